// Package catalog records uploaded objects in Postgres so the upload server
// can answer metadata queries without touching object storage.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Object is one stored capture.
type Object struct {
	Name      string    `json:"name"      example:"3f1a9c0d2b7e4a11.png"`
	Digest    string    `json:"digest"    example:"3f1a9c0d2b7e4a11"`
	Extension string    `json:"extension" example:"png"`
	Width     uint32    `json:"width"     example:"1920"`
	Height    uint32    `json:"height"    example:"1080"`
	Size      int64     `json:"size"      example:"48213"`
	Link      string    `json:"link"      example:"https://sampic-store.s3.fr-par.scw.cloud/3f1a9c0d2b7e4a11.png"`
	CreatedAt time.Time `json:"createdAt" example:"2026-02-27T14:48:34Z"`
}

// ErrNotFound is returned when no object has the requested name.
var ErrNotFound = errors.New("object not found")

// Querier is the subset of *pgxpool.Pool the repository uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles all catalog database operations.
type Repository struct {
	db Querier
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// Record upserts o by name. Saving the same content twice keeps the first
// creation time.
func (r *Repository) Record(ctx context.Context, o Object) (*Object, error) {
	var width, height int64
	out := &Object{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO objects (name, digest, extension, width, height, size, link)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (name) DO UPDATE
		 SET link = EXCLUDED.link, size = EXCLUDED.size, updated_at = now()
		 RETURNING name, digest, extension, width, height, size, link, created_at`,
		o.Name, o.Digest, o.Extension, int64(o.Width), int64(o.Height), o.Size, o.Link,
	).Scan(&out.Name, &out.Digest, &out.Extension, &width, &height, &out.Size, &out.Link, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("record object: %w", err)
	}
	out.Width, out.Height = uint32(width), uint32(height)
	return out, nil
}

// Get fetches an object by name.
func (r *Repository) Get(ctx context.Context, name string) (*Object, error) {
	var width, height int64
	out := &Object{}
	err := r.db.QueryRow(ctx,
		`SELECT name, digest, extension, width, height, size, link, created_at
		 FROM objects WHERE name = $1`,
		name,
	).Scan(&out.Name, &out.Digest, &out.Extension, &width, &height, &out.Size, &out.Link, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	out.Width, out.Height = uint32(width), uint32(height)
	return out, nil
}
