package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sampic/sampic/internal/codec"
)

// Local writes encoded images into a directory. Links are file paths.
type Local struct {
	fs   afero.Fs
	dir  string
	hash Hasher
}

// NewLocal returns a Local backend rooted at dir on the OS filesystem.
func NewLocal(dir string, opts ...Option) *Local {
	return NewLocalFs(afero.NewOsFs(), dir, opts...)
}

// NewLocalFs returns a Local backend rooted at dir on fs.
func NewLocalFs(fs afero.Fs, dir string, opts ...Option) *Local {
	o := buildOptions(opts)
	return &Local{fs: fs, dir: dir, hash: o.hash}
}

// Save encodes buf as extension and writes it to dir/{digest}.{extension}.
func (l *Local) Save(_ context.Context, buf []byte, extension string, width, height uint32) (string, error) {
	path := l.Link(ObjectName(l, buf, extension))

	data, err := codec.Encode(buf, width, height, extension)
	if err != nil {
		return "", fmt.Errorf("save %s: %w: %w", path, ErrIO, err)
	}
	if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w: %w", l.dir, ErrIO, err)
	}
	if err := afero.WriteFile(l.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w: %w", path, ErrIO, err)
	}
	return path, nil
}

// ReadTo copies the file called name to w.
func (l *Local) ReadTo(_ context.Context, name string, w io.Writer) error {
	path := l.Link(name)
	f, err := l.fs.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", path, ErrIO, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("read %s: %w: %w", path, ErrIO, err)
	}
	return nil
}

// Link returns the filesystem path of name.
func (l *Local) Link(name string) string {
	return filepath.Join(l.dir, name)
}

// Hash returns the digest of buf.
func (l *Local) Hash(buf []byte) string {
	return l.hash(buf)
}
