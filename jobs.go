package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"dressup/internal/compose"
)

// Job composites one garment file onto the shared avatar.
type Job struct {
	// Garment is relative to JobExecutor.GarmentDir.
	Garment string `json:"garment"`
	// Output is relative to JobExecutor.OutputDir.
	Output string `json:"output"`
}

// configID is a short stable hash of cfg, used to keep outputs of different
// tunings apart.
func configID(cfg compose.Config) string {
	sum := md5.Sum([]byte(cfg.String()))
	return fmt.Sprintf("%x", sum[:4])
}

// planJobs creates one job per garment, writing <name>-<config id>.png.
func planJobs(garments []string, cfg compose.Config) []Job {
	id := configID(cfg)
	jobs := make([]Job, 0, len(garments))
	for _, g := range garments {
		base := strings.TrimSuffix(g, filepath.Ext(g))
		jobs = append(jobs, Job{
			Garment: g,
			Output:  fmt.Sprintf("%s-%s.png", base, id),
		})
	}
	return jobs
}

type JobExecutor struct {
	Avatar     image.Image
	GarmentDir string
	OutputDir  string
	Compositor Compositor
	// Workers bounds concurrent jobs. Zero means one per CPU.
	Workers int
}

// Exec runs all jobs and waits for them. A failing job does not stop the
// others; the collected errors are returned at the end.
func (r JobExecutor) Exec(ctx context.Context, jobs []Job) error {
	if len(jobs) == 0 {
		log.Ctx(ctx).Warn().Msg("no garments to compose")
		return nil
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pooler := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(workers)

	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}
	for _, job := range jobs {
		job := job
		pooler.Go(func(ctx context.Context) error {
			if err := r.execute(ctx, job); err != nil {
				log.Ctx(ctx).Error().Err(err).
					Interface("job", job).
					Msg("failed to compose garment")
				return fmt.Errorf("%s: %w", job.Garment, err)
			}
			return nil
		})
	}

	if err := pooler.Wait(); err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Msg("finished with errors")
		return err
	}

	return nil
}

func (r JobExecutor) execute(ctx context.Context, job Job) error {
	log.Ctx(ctx).Info().Str("garment", job.Garment).Msg("composing")
	sourcePath := filepath.Join(r.GarmentDir, job.Garment)
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", sourcePath, err)
	}
	defer f.Close()

	var b bytes.Buffer
	res, err := r.Compositor.Compose(ctx, r.Avatar, f, &b)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().
		Str("garment", job.Garment).
		Stringer("extent", res.Extent).
		Stringer("size", res.Size).
		Stringer("offset", res.Offset).
		Msg("placed")

	outPath := filepath.Join(r.OutputDir, job.Output)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", job.Output, err)
	}
	wf, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", job.Output, err)
	}
	defer wf.Close()
	if _, err := b.WriteTo(wf); err != nil {
		return fmt.Errorf("failed to write composite to file %s: %w", job.Output, err)
	}
	return nil
}
