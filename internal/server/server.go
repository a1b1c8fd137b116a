// Package server wires the upload endpoint into an HTTP server and runs it
// until its context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/sampic/sampic/internal/catalog"
	"github.com/sampic/sampic/internal/config"
	"github.com/sampic/sampic/internal/db"
	appMiddleware "github.com/sampic/sampic/internal/middleware"
	"github.com/sampic/sampic/internal/storage"
	"github.com/sampic/sampic/internal/upload"

	_ "github.com/sampic/sampic/docs/swagger"
)

const (
	shutdownTimeout = 30 * time.Second
	bucketTimeout   = 10 * time.Second
)

// NewRouter returns the HTTP handler serving h.
func NewRouter(h *upload.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", health)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Post("/upload", h.Upload)
	r.Get("/objects/{name}", h.Object)
	return r
}

// health godoc
//
//	@Summary		Health check
//	@Description	Liveness probe.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run serves the upload endpoint on cfg.Port until ctx is cancelled, then
// shuts down gracefully. With a database_url it also keeps the object catalog.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// One transport for every per-request backend.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	defer transport.CloseIdleConnections()

	var objects upload.Catalog
	if cfg.DatabaseURL != "" {
		if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()
		objects = catalog.NewRepository(pool)
	} else {
		logger.Info("database_url not set, object catalog disabled")
	}

	ensureBucket(ctx, cfg, transport, logger)

	h := upload.NewHandler(cfg, upload.ObjectStoreFactory(transport, logger), objects, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(h, logger),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return serve(ctx, srv, ln, cfg, logger)
}

func serve(ctx context.Context, srv *http.Server, ln net.Listener, cfg *config.Config, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", ln.Addr().String(),
			"env", cfg.AppEnv,
			"upload_limit", humanize.IBytes(uint64(cfg.UploadLimit)),
		)
		logger.Info("swagger UI available", "url", "http://"+ln.Addr().String()+"/swagger/")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// ensureBucket creates the configured bucket when credentials allow it.
// Failures are logged: uploads report their own errors per request.
func ensureBucket(ctx context.Context, cfg *config.Config, transport http.RoundTripper, logger *slog.Logger) {
	store, err := storage.NewObjectStore(cfg, storage.WithTransport(transport), storage.WithLogger(logger))
	if err != nil {
		logger.Warn("object storage not configured, uploads will fail", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, bucketTimeout)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn("could not ensure bucket", "bucket", cfg.Bucket, "error", err)
	}
}
