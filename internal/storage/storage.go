// Package storage persists captured images under content-derived names.
// Swap backends by changing the concrete type injected at startup: Local keeps
// files on disk, ObjectStore talks to any S3-compatible provider and Relay hands
// the bytes to a sampic upload server.
package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/afero"

	"github.com/sampic/sampic/internal/digest"
)

// Storage is the interface every backend implements.
type Storage interface {
	// Save persists buf under a digest-derived name and returns its public link.
	// Saving identical bytes twice overwrites the same object.
	Save(ctx context.Context, buf []byte, extension string, width, height uint32) (string, error)
	// ReadTo appends the stored bytes of name to w.
	ReadTo(ctx context.Context, name string, w io.Writer) error
	// Link derives the public reference for name. It performs no I/O.
	Link(name string) string
	// Hash returns the digest used to name buf.
	Hash(buf []byte) string
}

// Error kinds. Backend errors wrap exactly one of these; test with errors.Is.
var (
	ErrConfig      = errors.New("configuration error")
	ErrCredentials = errors.New("credentials error")
	ErrIO          = errors.New("io error")
	ErrRead        = errors.New("read error")
	ErrUnknown     = errors.New("unknown error")
)

// Hasher names content. digest.Hash is the default for every backend.
type Hasher func(buf []byte) string

// Option configures a backend.
type Option func(*options)

type options struct {
	hash       Hasher
	transport  http.RoundTripper
	logger     *slog.Logger
	stagingFs  afero.Fs
	stagingDir string
}

func (o options) loggerOr() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return slog.Default()
}

// WithHasher overrides the content addresser.
func WithHasher(h Hasher) Option {
	return func(o *options) { o.hash = h }
}

func buildOptions(opts []Option) options {
	o := options{hash: digest.Hash}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ObjectName returns the name b stores buf under.
func ObjectName(b Storage, buf []byte, extension string) string {
	return digest.Name(b.Hash(buf), extension)
}
