package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dressup/internal/compose"
	"dressup/internal/segment"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("dressup"),
		kong.Description("Place a garment image onto an avatar."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "~/.config/dressup.json", "dressup.json"),
	)

	level := zerolog.InfoLevel
	if args.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = log.Logger.WithContext(ctx)

	cliCtx.BindTo(ctx, (*context.Context)(nil))
	if err := cliCtx.Run(&args.Pipeline); err != nil {
		return err
	}

	return nil
}

type cliArgs struct {
	Config   kong.ConfigFlag `help:"Load flag values from a JSON file."`
	Verbose  bool            `help:"Enable verbose logging" short:"v" env:"DRESSUP_VERBOSE"`
	Pipeline pipelineFlags   `embed:""`

	Compose composeCmd `cmd:"" help:"Composite a single garment onto an avatar."`
	Batch   batchCmd   `cmd:"" help:"Composite every garment in a directory onto an avatar."`
	Serve   serveCmd   `cmd:"" help:"Serve the compositing pipeline over HTTP."`
}

type pipelineFlags struct {
	NoiseFloor       uint8         `help:"Alpha values below this become fully transparent." default:"10" env:"DRESSUP_NOISE_FLOOR" group:"Pipeline"`
	SmoothRadius     int           `help:"Alpha blur radius in pixels, 0 to disable." default:"1" env:"DRESSUP_SMOOTH_RADIUS" group:"Pipeline"`
	Padding          int           `help:"Pixels kept around the garment when cropping." default:"0" env:"DRESSUP_PADDING" group:"Pipeline"`
	WidthFraction    float64       `help:"Garment width as a fraction of the avatar width." default:"0.5" env:"DRESSUP_WIDTH_FRACTION" group:"Pipeline"`
	VerticalFraction float64       `help:"Garment top edge as a fraction of the avatar height." default:"0.18" env:"DRESSUP_VERTICAL_FRACTION" group:"Pipeline"`
	Filter           string        `help:"Resampling filter." enum:"lanczos,catmullrom,mitchell,box" default:"lanczos" env:"DRESSUP_FILTER" group:"Pipeline"`
	SegmentTimeout   time.Duration `help:"Timeout for the segmentation step, 0 for none." default:"30s" env:"DRESSUP_SEGMENT_TIMEOUT" group:"Pipeline"`

	Segmenter         string `help:"How the garment is separated from its background." enum:"passthrough,backdrop,remote" default:"backdrop" env:"DRESSUP_SEGMENTER" group:"Segmentation"`
	BackdropThreshold uint8  `help:"Luminance at or above which a pixel counts as backdrop." default:"240" group:"Segmentation"`
	RemoteURL         string `help:"Background removal endpoint for the remote segmenter." default:"http://localhost:7000/api/remove" env:"DRESSUP_REMOTE_URL" group:"Segmentation"`
	RemoteModel       string `help:"Model requested from the remote segmenter." default:"u2net_human_seg" env:"DRESSUP_REMOTE_MODEL" group:"Segmentation"`
}

func (f *pipelineFlags) config() compose.Config {
	return compose.Config{
		NoiseFloor:       f.NoiseFloor,
		SmoothRadius:     f.SmoothRadius,
		Padding:          f.Padding,
		WidthFraction:    f.WidthFraction,
		VerticalFraction: f.VerticalFraction,
		Filter:           f.Filter,
		SegmentTimeout:   f.SegmentTimeout,
	}
}

func (f *pipelineFlags) segmenter() (compose.Segmenter, error) {
	switch f.Segmenter {
	case "passthrough":
		return segment.Passthrough{}, nil
	case "backdrop":
		b := segment.NewBackdrop()
		b.Threshold = f.BackdropThreshold
		return b, nil
	case "remote":
		r := segment.NewRemote(f.RemoteURL)
		r.Model = f.RemoteModel
		r.Timeout = f.SegmentTimeout
		return r, nil
	}
	return nil, fmt.Errorf("unknown segmenter %q", f.Segmenter)
}

func (f *pipelineFlags) pipeline() (*compose.Pipeline, error) {
	seg, err := f.segmenter()
	if err != nil {
		return nil, err
	}
	p, err := compose.New(f.config(), seg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, nil
}

type composeCmd struct {
	Avatar     string `arg:"" type:"existingfile" help:"Avatar image."`
	Garment    string `arg:"" type:"existingfile" help:"Garment image."`
	Output     string `short:"o" default:"composite.png" help:"Output file (.png or .jpg)."`
	Background string `default:"#ffffff" help:"Fill colour for outputs without alpha."`
}

func (cmd *composeCmd) Run(ctx context.Context, flags *pipelineFlags) error {
	p, err := flags.pipeline()
	if err != nil {
		return err
	}
	format, err := outputFormat(cmd.Output)
	if err != nil {
		return err
	}
	background, err := parseBackground(cmd.Background)
	if err != nil {
		return err
	}

	avatar, err := loadImage(cmd.Avatar)
	if err != nil {
		return err
	}
	garment, err := os.Open(cmd.Garment)
	if err != nil {
		return fmt.Errorf("failed to open garment %s: %w", cmd.Garment, err)
	}
	defer garment.Close()

	out, err := os.Create(cmd.Output)
	if err != nil {
		return fmt.Errorf("failed to create output %s: %w", cmd.Output, err)
	}
	defer out.Close()

	compositor := NewImagingCompositor(p, format, background)
	res, err := compositor.Compose(ctx, avatar, garment, out)
	if err != nil {
		_ = os.Remove(cmd.Output)
		return err
	}

	log.Ctx(ctx).Info().
		Str("output", cmd.Output).
		Stringer("size", res.Size).
		Stringer("offset", res.Offset).
		Msg("Composite saved")
	return nil
}

type batchCmd struct {
	Avatar     string `arg:"" type:"existingfile" help:"Avatar image."`
	GarmentDir string `arg:"" type:"existingdir" help:"Directory of garment images."`
	OutputDir  string `short:"o" default:"output" help:"Directory for composites."`
	Workers    int    `default:"0" help:"Concurrent jobs, 0 for one per CPU."`
	JSON       bool   `help:"Print the planned jobs as JSON lines without executing."`
}

func (cmd *batchCmd) Run(ctx context.Context, flags *pipelineFlags) error {
	garments, err := listGarments(cmd.GarmentDir)
	if err != nil {
		return fmt.Errorf("failed to list garments: %w", err)
	}
	jobs := planJobs(garments, flags.config())
	if cmd.JSON {
		printJSONL(jobs)
		return nil
	}

	p, err := flags.pipeline()
	if err != nil {
		return err
	}
	avatar, err := loadImage(cmd.Avatar)
	if err != nil {
		return err
	}

	executor := JobExecutor{
		Avatar:     avatar,
		GarmentDir: cmd.GarmentDir,
		OutputDir:  cmd.OutputDir,
		Compositor: NewImagingCompositor(p, imaging.PNG, color.NRGBA{}),
		Workers:    cmd.Workers,
	}
	return executor.Exec(ctx, jobs)
}

type serveCmd struct {
	Addr      string `default:"localhost:7860" env:"DRESSUP_ADDR" help:"Listen address."`
	BodyLimit int    `default:"33554432" help:"Maximum request body size in bytes."`
}

func (cmd *serveCmd) Run(ctx context.Context, flags *pipelineFlags) error {
	p, err := flags.pipeline()
	if err != nil {
		return err
	}

	app := NewWebApp(Config{
		Addr:       cmd.Addr,
		BodyLimit:  cmd.BodyLimit,
		Compositor: NewImagingCompositor(p, imaging.PNG, color.NRGBA{}),
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Str("segmenter", flags.Segmenter).Msgf("Server started at %s", addr)
		},
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

func printJSONL[T any](data []T) {
	enc := json.NewEncoder(os.Stdout)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}
