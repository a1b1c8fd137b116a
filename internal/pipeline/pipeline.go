// Package pipeline runs one screenshot session: grab the display, stage it
// locally, let the user pick a region, issue the link, then store the crop.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sampic/sampic/internal/capture"
	"github.com/sampic/sampic/internal/codec"
	"github.com/sampic/sampic/internal/notify"
	"github.com/sampic/sampic/internal/region"
	"github.com/sampic/sampic/internal/storage"
)

// Extension is the file format every capture is stored as.
const Extension = "png"

const (
	msgCopied   = "Copied URL to clipboard. Uploading to server..."
	msgUploaded = "Uploaded!"
	msgFailed   = "Upload failed."
)

// ErrUpload wraps a failed final save. The link returned alongside it was
// already handed out and stays valid once the object is stored.
var ErrUpload = errors.New("upload failed")

// Selector picks a region of the capture staged at path.
type Selector interface {
	Select(ctx context.Context, path string) (region.Region, error)
}

// Pipeline wires the collaborators of a session. Staging is always a local
// backend; Backend is where the selected crop is stored.
type Pipeline struct {
	Frames    capture.FrameSource
	Staging   *storage.Local
	Selector  Selector
	Backend   storage.Storage
	Notifier  notify.Notifier
	Clipboard notify.Clipboard
	Logger    *slog.Logger
}

// Run executes one session and returns the link of the stored crop.
//
// Failures before the link is known return an empty link. A failed save
// returns the link together with an error wrapping ErrUpload.
func (p *Pipeline) Run(ctx context.Context) (string, error) {
	logger := p.logger()

	frame, err := p.Frames.Grab(ctx)
	if err != nil {
		return "", fmt.Errorf("grab frame: %w", err)
	}
	logger.Debug("captured frame", "width", frame.Width, "height", frame.Height)

	stagedPath, err := p.Staging.Save(ctx, frame.Pixels, Extension, frame.Width, frame.Height)
	if err != nil {
		return "", fmt.Errorf("stage capture: %w", err)
	}

	sel, err := p.Selector.Select(ctx, stagedPath)
	if err != nil {
		return "", fmt.Errorf("select region: %w", err)
	}

	pixels, width, height := frame.Pixels, frame.Width, frame.Height
	if sel.Empty() {
		logger.Info("empty selection, keeping full capture")
	} else {
		pixels, width, height, err = p.crop(ctx, storage.ObjectName(p.Staging, frame.Pixels, Extension), sel)
		if err != nil {
			return "", err
		}
	}

	link := p.Backend.Link(storage.ObjectName(p.Backend, pixels, Extension))
	p.announce(ctx, link)

	if _, err := p.Backend.Save(ctx, pixels, Extension, width, height); err != nil {
		logger.Error("save failed", "link", link, "error", err)
		p.report(ctx, link, msgFailed)
		return link, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	p.report(ctx, link, msgUploaded)
	logger.Info("capture stored", "link", link, "width", width, "height", height)
	return link, nil
}

// crop reads the staged file back and cuts sel out of it.
func (p *Pipeline) crop(ctx context.Context, stagedName string, sel region.Region) ([]byte, uint32, uint32, error) {
	var staged bytes.Buffer
	if err := p.Staging.ReadTo(ctx, stagedName, &staged); err != nil {
		return nil, 0, 0, fmt.Errorf("read staged capture: %w", err)
	}
	full, w, h, err := codec.Decode(staged.Bytes())
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode staged capture: %w", err)
	}
	pixels, cw, ch, err := codec.Crop(full, w, h, sel.Rect())
	if err != nil {
		return nil, 0, 0, fmt.Errorf("crop capture: %w", err)
	}
	if cw == 0 || ch == 0 {
		return nil, 0, 0, fmt.Errorf("crop capture: region %+v is outside the %dx%d frame", sel, w, h)
	}
	return pixels, cw, ch, nil
}

// announce hands the link out before the save starts.
func (p *Pipeline) announce(ctx context.Context, link string) {
	if p.Clipboard != nil {
		if err := p.Clipboard.SetText(link); err != nil {
			p.logger().Warn("clipboard write failed", "error", err)
		}
	}
	p.report(ctx, link, msgCopied)
}

func (p *Pipeline) report(ctx context.Context, link, message string) {
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.Notify(ctx, link, message); err != nil {
		p.logger().Warn("notification failed", "error", err)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
