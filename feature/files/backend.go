package files

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"asset-cache/core/resource"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const chunkSize = 64 << 10

// File is a loaded file.
type File struct {
	Path    string
	Data    []byte
	ModTime time.Time
}

// Backend reads files from an afero filesystem. It serves both raw files and
// local resources; they differ only in the filesystem root.
type Backend struct {
	fs       afero.Fs
	maxBytes int64
	logger   *zap.Logger
}

// NewBackend creates a file backend on fs.
func NewBackend(fs afero.Fs, maxBytes int64, logger *zap.Logger) *Backend {
	return &Backend{fs: fs, maxBytes: maxBytes, logger: logger}
}

// Path returns the filesystem path of key. A resolved LocalPath wins over
// the name.
func Path(key resource.Key) string {
	p := key.Name
	if key.LocalPath != "" {
		p = key.LocalPath
	}
	return filepath.Clean(filepath.FromSlash(p))
}

func (b *Backend) Load(ctx context.Context, key resource.Key, _ resource.Lookup, progress resource.ProgressFunc) (resource.Handle, error) {
	p := Path(key)
	info, err := b.fs.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	if b.maxBytes > 0 && info.Size() > b.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", p, info.Size(), b.maxBytes)
	}

	f, err := b.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	data := make([]byte, 0, info.Size())
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := f.Read(buf)
		data = append(data, buf[:n]...)
		if info.Size() > 0 {
			progress(float64(len(data)) / float64(info.Size()))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
	}

	b.logger.Debug("File loaded", zap.String("path", p), zap.Int("bytes", len(data)))
	return &File{Path: p, Data: data, ModTime: info.ModTime()}, nil
}

func (b *Backend) Dependencies(context.Context, resource.Key) ([]resource.Key, error) {
	return nil, nil
}

func (b *Backend) Free(resource.Handle) error {
	return nil
}

// Register binds the raw file and local resource categories to backends
// rooted at the configured directories of the operating system filesystem.
func Register(f *resource.Factory, cfg Config, logger *zap.Logger) error {
	return RegisterFs(f, afero.NewOsFs(), cfg, logger)
}

// RegisterFs is Register on an arbitrary base filesystem.
func RegisterFs(f *resource.Factory, base afero.Fs, cfg Config, logger *zap.Logger) error {
	raw := NewBackend(afero.NewReadOnlyFs(afero.NewBasePathFs(base, cfg.Root)), cfg.MaxBytes, logger)
	if err := f.Register(resource.CategoryRawFile, raw); err != nil {
		return err
	}
	local := NewBackend(afero.NewReadOnlyFs(afero.NewBasePathFs(base, cfg.LocalRoot)), cfg.MaxBytes, logger)
	return f.Register(resource.CategoryLocalResource, local)
}
