package segment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"mime/multipart"
	"time"

	"github.com/disintegration/imaging"
	"github.com/valyala/fasthttp"

	"dressup/internal/compose"
)

const (
	DefaultRemoteModel   = "u2net_human_seg"
	DefaultRemoteTimeout = 30 * time.Second
)

var defaultClient = &fasthttp.Client{
	Name:                "dressup",
	MaxResponseBodySize: 64 << 20,
}

// Remote calls a rembg-compatible HTTP server (POST /api/remove, multipart
// field "file") and uses the returned PNG as the segmentation result.
type Remote struct {
	// URL is the full endpoint, e.g. http://localhost:7000/api/remove.
	URL string
	// Model is the server-side model name.
	Model string
	// AlphaMatting asks the server to refine edges with alpha matting.
	AlphaMatting bool
	// Timeout caps a single request. The context deadline applies as well.
	Timeout time.Duration

	client *fasthttp.Client
}

// NewRemote returns a Remote for url with the human segmentation model and
// alpha matting enabled.
func NewRemote(url string) *Remote {
	return &Remote{
		URL:          url,
		Model:        DefaultRemoteModel,
		AlphaMatting: true,
		Timeout:      DefaultRemoteTimeout,
		client:       defaultClient,
	}
}

// Segment uploads img and decodes the returned cut-out. fasthttp takes no
// context: ctx is checked before the request is sent and its deadline bounds
// the call, but cancelling ctx does not interrupt a request in flight.
func (r *Remote) Segment(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", compose.ErrSegmentationUnavailable, err)
	}

	body, contentType, err := r.encodeRequest(img)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(contentType)
	req.SetBodyRaw(body)

	if deadline, ok := r.deadline(ctx); ok {
		err = r.httpClient().DoDeadline(req, resp, deadline)
	} else {
		err = r.httpClient().Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: request to %s: %w", compose.ErrSegmentationUnavailable, r.URL, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", compose.ErrSegmentationUnavailable, r.URL, code)
	}

	out, err := imaging.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", compose.ErrSegmentationUnavailable, err)
	}
	return imaging.Clone(out), nil
}

func (r *Remote) encodeRequest(img image.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	model := r.Model
	if model == "" {
		model = DefaultRemoteModel
	}
	fields := [][2]string{{"model", model}}
	if r.AlphaMatting {
		fields = append(fields,
			[2]string{"a", "true"},
			[2]string{"af", "240"},
			[2]string{"ab", "10"},
			[2]string{"ae", "10"},
		)
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	fw, err := mw.CreateFormFile("file", "garment.png")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if err := imaging.Encode(fw, img, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("failed to encode garment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// deadline returns the earlier of the context deadline and now+Timeout.
func (r *Remote) deadline(ctx context.Context) (time.Time, bool) {
	deadline, ok := ctx.Deadline()
	if r.Timeout > 0 {
		if t := time.Now().Add(r.Timeout); !ok || t.Before(deadline) {
			return t, true
		}
	}
	return deadline, ok
}

func (r *Remote) httpClient() *fasthttp.Client {
	if r.client == nil {
		return defaultClient
	}
	return r.client
}
