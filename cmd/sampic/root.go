package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sampic/sampic/internal/capture"
	"github.com/sampic/sampic/internal/config"
	"github.com/sampic/sampic/internal/notify"
	"github.com/sampic/sampic/internal/pipeline"
	"github.com/sampic/sampic/internal/pointer"
	"github.com/sampic/sampic/internal/server"
	"github.com/sampic/sampic/internal/storage"
)

// app holds what commands need from the outside world, so tests can swap it.
type app struct {
	store   *config.Store
	stderr  io.Writer
	verbose bool

	// capture runs one screenshot session with the given backend kind.
	capture func(ctx context.Context, kind storage.Kind, cfg *config.Config, logger *slog.Logger) (string, error)
	// serve runs the upload server until ctx is done.
	serve func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error
	// openURL opens a link in the user's browser.
	openURL func(url string) error
}

func defaultApp() *app {
	return &app{
		store:   config.DefaultStore(),
		stderr:  os.Stderr,
		capture: runPipeline,
		serve:   server.Run,
		openURL: browser.OpenURL,
	}
}

// logger logs at Warn, which keeps capture commands quiet.
func (a *app) logger() *slog.Logger {
	return a.loggerAt(slog.LevelWarn)
}

// loggerAt logs at level, or Debug with --verbose.
func (a *app) loggerAt(level slog.Level) *slog.Logger {
	if a.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}

func (a *app) loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := a.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sampic",
		Short: "Screenshot a region and share it by link",
		Long: `Take a screenshot, drag over the region to keep and get a link to the stored
image on your clipboard. Release without dragging to keep the whole screen.

Usage examples:

1. Keep the screenshot on disk:

	sampic local

2. Upload straight to your S3-compatible bucket:

	sampic s3

3. Upload through a sampic server and open the result:

	sampic upload --open
`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newCaptureCommand(a, storage.KindLocal, "Save the screenshot under local_path"),
		newCaptureCommand(a, storage.KindObject, "Upload the screenshot to object storage"),
		newCaptureCommand(a, storage.KindRelay, "Upload the screenshot through a sampic server"),
		newServerCommand(a),
		newConfigCommand(a),
	)
	return root
}

// runPipeline wires the desktop collaborators around the chosen backend.
func runPipeline(ctx context.Context, kind storage.Kind, cfg *config.Config, logger *slog.Logger) (string, error) {
	backend, err := storage.New(kind, cfg, storage.WithLogger(logger))
	if err != nil {
		return "", err
	}

	var notifier notify.Notifier = notify.Discard{}
	if desktop, err := notify.NewDesktop(); err != nil {
		logger.Warn("desktop notifications unavailable", "error", err)
	} else {
		notifier = desktop
	}

	p := &pipeline.Pipeline{
		Frames:    capture.NewScreen(),
		Staging:   storage.NewLocal(cfg.LocalPath),
		Selector:  &pointer.Selector{Display: os.Getenv("DISPLAY"), Logger: logger},
		Backend:   backend,
		Notifier:  notifier,
		Clipboard: notify.SystemClipboard{},
		Logger:    logger,
	}
	return p.Run(ctx)
}

// isPartial reports whether a session handed out a link but failed to store it.
func isPartial(err error) bool {
	return errors.Is(err, pipeline.ErrUpload)
}
