package storage

import (
	"fmt"

	"github.com/sampic/sampic/internal/config"
)

// Kind names a backend variant.
type Kind string

const (
	KindLocal  Kind = "local"
	KindObject Kind = "s3"
	KindRelay  Kind = "upload"
)

// New builds the backend of the given kind from cfg.
func New(kind Kind, cfg *config.Config, opts ...Option) (Storage, error) {
	switch kind {
	case KindLocal:
		return NewLocal(cfg.LocalPath, opts...), nil
	case KindObject:
		return NewObjectStore(cfg, opts...)
	case KindRelay:
		return NewRelay(cfg, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConfig, kind)
	}
}
