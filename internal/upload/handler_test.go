package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sampic/sampic/internal/catalog"
	"github.com/sampic/sampic/internal/codec"
	"github.com/sampic/sampic/internal/config"
	"github.com/sampic/sampic/internal/digest"
	"github.com/sampic/sampic/internal/response"
	"github.com/sampic/sampic/internal/storage"
)

// memBackend is a Local backend on an in-memory filesystem with a fixed link prefix.
type memBackend struct {
	*storage.Local
	saveErr error
}

func (m memBackend) Save(ctx context.Context, buf []byte, ext string, w, h uint32) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	return m.Local.Save(ctx, buf, ext, w, h)
}

type memCatalog struct {
	mu      sync.Mutex
	objects map[string]catalog.Object
	err     error
}

func (c *memCatalog) Record(_ context.Context, o catalog.Object) (*catalog.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.objects == nil {
		c.objects = map[string]catalog.Object{}
	}
	c.objects[o.Name] = o
	return &o, nil
}

func (c *memCatalog) Get(_ context.Context, name string) (*catalog.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	o, ok := c.objects[name]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &o, nil
}

type fixture struct {
	fs       afero.Fs
	cfg      *config.Config
	catalog  *memCatalog
	built    int
	saveErr  error
	buildErr error
}

func newFixture() *fixture {
	cfg := config.Default()
	cfg.UploadLimit = 1 << 10
	return &fixture{fs: afero.NewMemMapFs(), cfg: cfg, catalog: &memCatalog{}}
}

func (f *fixture) router(withCatalog bool) http.Handler {
	factory := func(cfg *config.Config) (storage.Storage, error) {
		f.built++
		if f.buildErr != nil {
			return nil, f.buildErr
		}
		return memBackend{Local: storage.NewLocalFs(f.fs, "/bucket"), saveErr: f.saveErr}, nil
	}
	var c Catalog
	if withCatalog {
		c = f.catalog
	}
	h := NewHandler(f.cfg, factory, c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Post("/upload", h.Upload)
	r.Get("/objects/{name}", h.Object)
	return r
}

func pixels(w, h int) []byte {
	return bytes.Repeat([]byte{10, 20, 30, 255}, w*h)
}

func post(t *testing.T, handler http.Handler, query string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/upload?"+query, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestUpload_ReturnsLinkAsText(t *testing.T) {
	f := newFixture()
	body := pixels(4, 4)

	rec := post(t, f.router(true), "extension=png&w=4&h=4", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	name := digest.Name(digest.Hash(body), "png")
	assert.Equal(t, "/bucket/"+name, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	data, err := afero.ReadFile(f.fs, "/bucket/"+name)
	require.NoError(t, err)
	got, w, h, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, uint32(4), w)
	assert.Equal(t, uint32(4), h)

	rec2 := post(t, f.router(true), "extension=png&w=4&h=4", body)
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, rec.Body.String(), rec2.Body.String())
}

func TestUpload_BuildsBackendPerRequest(t *testing.T) {
	f := newFixture()
	router := f.router(false)
	for i := 0; i < 3; i++ {
		rec := post(t, router, "extension=png&w=1&h=1", pixels(1, 1))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 3, f.built)
}

func TestUpload_BadQuery(t *testing.T) {
	cases := map[string]string{
		"missing extension": "w=1&h=1",
		"missing width":     "extension=png&h=1",
		"negative height":   "extension=png&w=1&h=-1",
		"width overflow":    "extension=png&w=4294967296&h=1",
		"not a number":      "extension=png&w=abc&h=1",
		"zero area":         "extension=png&w=0&h=5",
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			rec := post(t, f.router(true), query, pixels(1, 1))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := envelope(t, rec)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.Zero(t, f.built)
		})
	}
}

func TestUpload_SizeMismatch(t *testing.T) {
	f := newFixture()
	rec := post(t, f.router(true), "extension=png&w=4&h=4", pixels(2, 2))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, envelope(t, rec).Error, "4x4")
}

func TestUpload_TooLarge(t *testing.T) {
	f := newFixture()
	rec := post(t, f.router(true), "extension=png&w=32&h=32", pixels(32, 32))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "upload exceeds 1.0 KiB", envelope(t, rec).Error)
	assert.Zero(t, f.built)
}

func TestUpload_ErrorKinds(t *testing.T) {
	cases := []struct {
		name     string
		buildErr error
		saveErr  error
		status   int
	}{
		{"config", fmt.Errorf("object store: %w: api_key is not defined", storage.ErrConfig), nil, http.StatusInternalServerError},
		{"credentials", nil, fmt.Errorf("put object: %w: AccessDenied", storage.ErrCredentials), http.StatusBadGateway},
		{"transport", nil, fmt.Errorf("put object: %w: dial tcp", storage.ErrIO), http.StatusBadGateway},
		{"service", nil, fmt.Errorf("put object: %w: NoSuchBucket", storage.ErrUnknown), http.StatusBadGateway},
		{"unclassified", nil, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.buildErr, f.saveErr = tc.buildErr, tc.saveErr
			rec := post(t, f.router(true), "extension=png&w=1&h=1", pixels(1, 1))
			assert.Equal(t, tc.status, rec.Code)
			env := envelope(t, rec)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.Empty(t, f.catalog.objects)
		})
	}
}

func TestUpload_RecordsCatalogEntry(t *testing.T) {
	f := newFixture()
	body := pixels(2, 3)
	router := f.router(true)

	rec := post(t, router, "extension=png&w=2&h=3", body)
	require.Equal(t, http.StatusOK, rec.Code)

	name := digest.Name(digest.Hash(body), "png")
	req := httptest.NewRequest(http.MethodGet, "/objects/"+name, nil)
	got := httptest.NewRecorder()
	router.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)

	var env struct {
		Success bool           `json:"success"`
		Data    catalog.Object `json:"data"`
	}
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, name, env.Data.Name)
	assert.Equal(t, digest.Hash(body), env.Data.Digest)
	assert.Equal(t, uint32(2), env.Data.Width)
	assert.Equal(t, uint32(3), env.Data.Height)
	assert.Equal(t, int64(len(body)), env.Data.Size)
	assert.Equal(t, rec.Body.String(), env.Data.Link)
}

func TestUpload_CatalogFailureDoesNotFailUpload(t *testing.T) {
	f := newFixture()
	f.catalog.err = errors.New("db down")
	rec := post(t, f.router(true), "extension=png&w=1&h=1", pixels(1, 1))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestObject_NotFoundAndDisabled(t *testing.T) {
	f := newFixture()

	rec := httptest.NewRecorder()
	f.router(true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/objects/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "object not found", envelope(t, rec).Error)

	rec = httptest.NewRecorder()
	f.router(false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/objects/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "object catalog is disabled", envelope(t, rec).Error)
}

func TestObject_CatalogError(t *testing.T) {
	f := newFixture()
	f.catalog.err = errors.New("db down")
	rec := httptest.NewRecorder()
	f.router(true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/objects/x.png", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// A Relay backend is a client of this endpoint.
func TestUpload_ServesRelayClient(t *testing.T) {
	f := newFixture()
	srv := httptest.NewServer(f.router(true))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.SampicEndpoint = srv.URL + "/upload"
	relay, err := storage.NewRelay(cfg)
	require.NoError(t, err)

	body := pixels(3, 3)
	link, err := relay.Save(context.Background(), body, "png", 3, 3)
	require.NoError(t, err)

	name := digest.Name(digest.Hash(body), "png")
	assert.Equal(t, relay.Link(name), link)
	exists, err := afero.Exists(f.fs, "/bucket/"+name)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = relay.Save(context.Background(), body, "png", 4, 4)
	assert.ErrorIs(t, err, storage.ErrUnknown)
	assert.Contains(t, err.Error(), "4x4")
}
