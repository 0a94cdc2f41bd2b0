package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	// Registered image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"asset-cache/core/resource"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrTooLarge is returned when a download exceeds the configured size.
var ErrTooLarge = errors.New("image exceeds size limit")

// Image is a downloaded and decoded image.
type Image struct {
	URL    string
	Format string
	Size   int
	Image  image.Image
}

// Bounds returns the image rectangle.
func (i *Image) Bounds() image.Rectangle {
	return i.Image.Bounds()
}

// Backend downloads remote images over HTTP.
type Backend struct {
	cfg    Config
	logger *zap.Logger
}

// NewBackend creates the remote image backend.
func NewBackend(cfg Config, logger *zap.Logger) *Backend {
	return &Backend{cfg: cfg, logger: logger}
}

func (b *Backend) timeout() time.Duration {
	if b.cfg.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(b.cfg.TimeoutSeconds) * time.Second
}

func (b *Backend) Load(ctx context.Context, key resource.Key, _ resource.Lookup, progress resource.ProgressFunc) (resource.Handle, error) {
	timeout := b.timeout()
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	agent := fiber.Get(key.Name).
		Timeout(timeout).
		MaxRedirectsCount(b.cfg.MaxRedirects).
		UserAgent(b.cfg.UserAgent)
	// The client stops reading once the body passes the limit.
	if b.cfg.MaxBytes > 0 && agent.HostClient != nil {
		agent.MaxResponseBodySize = b.cfg.MaxBytes
	}
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		err := multierr.Combine(errs...)
		if errors.Is(err, fasthttp.ErrBodyTooLarge) {
			return nil, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, key.Name, b.cfg.MaxBytes)
		}
		return nil, fmt.Errorf("download %s: %w", key.Name, err)
	}
	if status != fiber.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", key.Name, status)
	}
	if b.cfg.MaxBytes > 0 && len(body) > b.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, key.Name, len(body))
	}
	progress(0.5)

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key.Name, err)
	}

	b.logger.Debug("Image loaded",
		zap.String("url", key.Name),
		zap.String("format", format),
		zap.Int("bytes", len(body)))
	return &Image{URL: key.Name, Format: format, Size: len(body), Image: img}, nil
}

func (b *Backend) Dependencies(context.Context, resource.Key) ([]resource.Key, error) {
	return nil, nil
}

func (b *Backend) Free(resource.Handle) error {
	return nil
}

// Register binds the remote image category.
func Register(f *resource.Factory, cfg Config, logger *zap.Logger) error {
	return f.Register(resource.CategoryRemoteImage, NewBackend(cfg, logger))
}
