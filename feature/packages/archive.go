package packages

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrEntryNotFound is returned when an archive lacks the requested entry.
	ErrEntryNotFound = errors.New("archive entry not found")
	// ErrEntryTooLarge is returned when an entry decompresses past the limit.
	ErrEntryTooLarge = errors.New("archive entry exceeds size limit")
)

// Archive is a loaded package. Entries are decompressed on demand.
type Archive struct {
	name     string
	size     int64
	maxEntry int64
	entries  map[string]*zip.File
}

// OpenArchive parses the zip encoded package data. maxEntryBytes, when
// positive, caps the decompressed size of a single entry.
func OpenArchive(name string, data []byte, maxEntryBytes int64) (*Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package %s: %w", name, err)
	}
	a := &Archive{
		name:     name,
		size:     int64(len(data)),
		maxEntry: maxEntryBytes,
		entries:  make(map[string]*zip.File, len(r.File)),
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		a.entries[path.Clean(f.Name)] = f
	}
	return a, nil
}

// Name returns the package name.
func (a *Archive) Name() string { return a.name }

// Size returns the compressed size in bytes.
func (a *Archive) Size() int64 { return a.size }

// ReadFile decompresses one entry. Reads stop at the declared size or the
// entry limit, whichever is smaller.
func (a *Archive) ReadFile(entry string) ([]byte, error) {
	f, ok := a.entries[path.Clean(entry)]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entry, a.name)
	}
	limit := int64(f.UncompressedSize64)
	if limit < 0 || (a.maxEntry > 0 && f.UncompressedSize64 > uint64(a.maxEntry)) {
		return nil, fmt.Errorf("%w: %s in %s declares %d bytes", ErrEntryTooLarge, entry, a.name, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s in %s: %w", entry, a.name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s in %s: %w", entry, a.name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s in %s is larger than declared", ErrEntryTooLarge, entry, a.name)
	}
	return data, nil
}
