// Package upload serves the HTTP upload endpoint: raw RGBA pixels in, a
// public link out.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/sampic/sampic/internal/catalog"
	"github.com/sampic/sampic/internal/codec"
	"github.com/sampic/sampic/internal/config"
	"github.com/sampic/sampic/internal/digest"
	"github.com/sampic/sampic/internal/response"
	"github.com/sampic/sampic/internal/storage"
)

// Factory builds the backend serving one request.
type Factory func(cfg *config.Config) (storage.Storage, error)

// ObjectStoreFactory returns a Factory building a fresh ObjectStore per
// request. All of them share transport.
func ObjectStoreFactory(transport http.RoundTripper, logger *slog.Logger) Factory {
	return func(cfg *config.Config) (storage.Storage, error) {
		return storage.NewObjectStore(cfg,
			storage.WithTransport(transport),
			storage.WithLogger(logger),
		)
	}
}

// Catalog records and looks up stored objects.
type Catalog interface {
	Record(ctx context.Context, o catalog.Object) (*catalog.Object, error)
	Get(ctx context.Context, name string) (*catalog.Object, error)
}

// Handler holds the upload endpoint handlers. cfg is never mutated.
type Handler struct {
	cfg        *config.Config
	newBackend Factory
	catalog    Catalog
	logger     *slog.Logger
}

// NewHandler creates a new upload Handler. catalog may be nil, which disables
// recording and the metadata endpoint.
func NewHandler(cfg *config.Config, newBackend Factory, catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:        cfg,
		newBackend: newBackend,
		catalog:    catalog,
		logger:     logger.With("component", "upload"),
	}
}

type uploadQuery struct {
	extension     string
	width, height uint32
}

// Upload godoc
//
//	@Summary		Upload a capture
//	@Description	Stores raw 8-bit RGBA pixels (stride 4*w) in object storage under a content-derived name, encoded as the given extension, and returns the public link as plain text.
//	@Tags			upload
//	@Accept			application/octet-stream
//	@Produce		plain
//	@Param			extension	query		string	true	"Image format"	example(png)
//	@Param			w			query		int		true	"Width in pixels"
//	@Param			h			query		int		true	"Height in pixels"
//	@Param			body		body		[]byte	true	"Raw RGBA pixels"
//	@Success		200			{string}	string	"Public link"
//	@Failure		400			{object}	response.Envelope
//	@Failure		413			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Failure		502			{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.UploadLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(w, "upload exceeds "+humanize.IBytes(uint64(tooLarge.Limit)))
			return
		}
		response.BadRequest(w, "could not read request body")
		return
	}

	if want := uint64(q.width) * uint64(q.height) * codec.BytesPerPixel; uint64(len(body)) != want {
		response.BadRequest(w, fmt.Sprintf("body is %s, %dx%d RGBA needs %s",
			humanize.IBytes(uint64(len(body))), q.width, q.height, humanize.IBytes(want)))
		return
	}

	backend, err := h.newBackend(h.cfg)
	if err != nil {
		h.fail(w, "build backend", err)
		return
	}

	link, err := backend.Save(r.Context(), body, q.extension, q.width, q.height)
	if err != nil {
		h.fail(w, "save", err)
		return
	}

	h.record(r.Context(), backend, body, q, link)
	response.Text(w, http.StatusOK, link)
}

// Object godoc
//
//	@Summary		Get object metadata
//	@Description	Returns the catalog record of a previously uploaded object.
//	@Tags			objects
//	@Produce		json
//	@Param			name	path		string	true	"Object name"	example(3f1a9c0d2b7e4a11.png)
//	@Success		200		{object}	response.Envelope{data=catalog.Object}
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/objects/{name} [get]
func (h *Handler) Object(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		response.NotFound(w, "object catalog is disabled")
		return
	}

	o, err := h.catalog.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			response.NotFound(w, "object not found")
			return
		}
		h.logger.Error("catalog lookup failed", "error", err)
		response.InternalError(w)
		return
	}
	response.OK(w, o)
}

// record stores metadata for a saved object. Failures are logged only: the
// object itself is already stored.
func (h *Handler) record(ctx context.Context, backend storage.Storage, body []byte, q uploadQuery, link string) {
	if h.catalog == nil {
		return
	}
	d := backend.Hash(body)
	_, err := h.catalog.Record(ctx, catalog.Object{
		Name:      digest.Name(d, q.extension),
		Digest:    d,
		Extension: q.extension,
		Width:     q.width,
		Height:    q.height,
		Size:      int64(len(body)),
		Link:      link,
	})
	if err != nil {
		h.logger.Warn("catalog record failed", "link", link, "error", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	h.logger.Error(op+" failed", "status", status, "error", err)
	response.Error(w, status, err.Error())
}

// statusFor maps a storage error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrConfig):
		return http.StatusInternalServerError
	case errors.Is(err, storage.ErrCredentials),
		errors.Is(err, storage.ErrIO),
		errors.Is(err, storage.ErrRead),
		errors.Is(err, storage.ErrUnknown):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseQuery(r *http.Request) (uploadQuery, error) {
	v := r.URL.Query()
	q := uploadQuery{extension: v.Get("extension")}
	if q.extension == "" {
		return q, errors.New("missing extension")
	}
	width, err := parseDimension(v.Get("w"))
	if err != nil {
		return q, fmt.Errorf("invalid w: %w", err)
	}
	height, err := parseDimension(v.Get("h"))
	if err != nil {
		return q, fmt.Errorf("invalid h: %w", err)
	}
	if width == 0 || height == 0 {
		return q, errors.New("w and h must be positive")
	}
	q.width, q.height = width, height
	return q, nil
}

func parseDimension(s string) (uint32, error) {
	if s == "" {
		return 0, errors.New("missing value")
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
