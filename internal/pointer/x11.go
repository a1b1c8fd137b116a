// Package pointer reads a selection drag from the X server.
//
// The pointer and keyboard are grabbed on the root window while a selection
// runs, so root coordinates map one to one onto the captured frame.
package pointer

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"log/slog"
	"os"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/sampic/sampic/internal/region"
)

// crosshair is XC_crosshair in the standard cursor font.
const crosshair = 34

var errGrabFailed = errors.New("grab failed")

// Source is a region.EventSource backed by an X11 pointer grab.
type Source struct {
	conn    *xgb.Conn
	bounds  image.Rectangle
	events  chan region.Event
	done    chan struct{}
	logger  *slog.Logger
	outline *outline
}

// Open connects to display ("" means $DISPLAY) and grabs pointer and keyboard.
// Event coordinates are clamped to bounds when it is not empty.
func Open(display string, bounds image.Rectangle, logger *slog.Logger) (*Source, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X display: %w", err)
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	root := screen.Root

	cursor, err := crosshairCursor(conn)
	if err != nil {
		logger.Debug("crosshair cursor unavailable", "error", err)
		cursor = xproto.CursorNone
	}

	mask := uint16(xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease | xproto.EventMaskPointerMotion)
	pointerReply, err := xproto.GrabPointer(conn, false, root, mask,
		xproto.GrabModeAsync, xproto.GrabModeAsync, xproto.WindowNone, cursor, xproto.TimeCurrentTime).Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("grab pointer: %w", err)
	}
	if pointerReply.Status != xproto.GrabStatusSuccess {
		conn.Close()
		return nil, fmt.Errorf("grab pointer: %w (status %d)", errGrabFailed, pointerReply.Status)
	}

	keyboardReply, err := xproto.GrabKeyboard(conn, false, root, xproto.TimeCurrentTime,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Reply()
	if err != nil || keyboardReply.Status != xproto.GrabStatusSuccess {
		// selection still works, it just can't be cancelled from the keyboard
		logger.Debug("keyboard grab failed", "error", err)
	}

	s := &Source{
		conn:   conn,
		bounds: bounds,
		events: make(chan region.Event),
		done:   make(chan struct{}),
		logger: logger,
	}
	if s.outline, err = newRootOutline(conn, screen); err != nil {
		// selection still works, the user just drags blind
		logger.Debug("selection outline unavailable", "error", err)
	}
	go s.pump()
	return s, nil
}

// Next returns the next pointer event. It returns io.EOF after Close or when
// the X connection drops.
func (s *Source) Next(ctx context.Context) (region.Event, error) {
	select {
	case <-ctx.Done():
		return region.Event{}, ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			return region.Event{}, io.EOF
		}
		return ev, nil
	}
}

// Close releases the grabs and the connection.
func (s *Source) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	s.outline.Hide()
	s.outline.free()
	xproto.UngrabPointer(s.conn, xproto.TimeCurrentTime)
	xproto.UngrabKeyboard(s.conn, xproto.TimeCurrentTime)
	// round trip so the ungrab requests are flushed before closing
	_, _ = xproto.GetInputFocus(s.conn).Reply()
	s.conn.Close()
	return nil
}

func (s *Source) pump() {
	defer close(s.events)
	for {
		xev, xerr := s.conn.WaitForEvent()
		if xev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			s.logger.Debug("X error", "error", xerr)
			continue
		}
		ev, ok := s.translate(xev)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *Source) translate(xev xgb.Event) (region.Event, bool) {
	switch e := xev.(type) {
	case xproto.ButtonPressEvent:
		return region.Event{Kind: region.EventPress, Point: s.point(e.RootX, e.RootY)}, true
	case xproto.MotionNotifyEvent:
		return region.Event{Kind: region.EventMove, Point: s.point(e.RootX, e.RootY)}, true
	case xproto.ButtonReleaseEvent:
		return region.Event{Kind: region.EventRelease, Point: s.point(e.RootX, e.RootY)}, true
	case xproto.KeyPressEvent:
		return region.Event{Kind: region.EventCancel}, true
	default:
		return region.Event{}, false
	}
}

func (s *Source) point(x, y int16) region.Point {
	return clamp(region.Point{X: float64(x), Y: float64(y)}, s.bounds)
}

// clamp keeps p inside r. An empty r leaves p unchanged.
func clamp(p region.Point, r image.Rectangle) region.Point {
	if r.Empty() {
		return p
	}
	p.X = min(max(p.X, float64(r.Min.X)), float64(r.Max.X))
	p.Y = min(max(p.Y, float64(r.Min.Y)), float64(r.Max.Y))
	return p
}

func crosshairCursor(conn *xgb.Conn) (xproto.Cursor, error) {
	font, err := xproto.NewFontId(conn)
	if err != nil {
		return 0, err
	}
	const name = "cursor"
	if err := xproto.OpenFontChecked(conn, font, uint16(len(name)), name).Check(); err != nil {
		return 0, err
	}
	cursor, err := xproto.NewCursorId(conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateGlyphCursorChecked(conn, cursor, font, font, crosshair, crosshair+1,
		0, 0, 0, 0xffff, 0xffff, 0xffff).Check()
	if err != nil {
		return 0, err
	}
	return cursor, nil
}

// Selector runs interactive selections over staged captures.
type Selector struct {
	Display string
	Logger  *slog.Logger
}

// Select grabs the pointer and returns the region dragged over the capture
// staged at path. The staged image bounds limit the selection.
func (sel *Selector) Select(ctx context.Context, path string) (region.Region, error) {
	logger := sel.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bounds, err := imageBounds(path)
	if err != nil {
		return region.Region{}, err
	}

	src, err := Open(sel.Display, bounds, logger.With("component", "pointer"))
	if err != nil {
		return region.Region{}, err
	}
	defer src.Close()

	r, err := region.SelectObserved(ctx, src, src.outline.Show)
	if err != nil {
		return region.Region{}, err
	}
	logger.Debug("selection closed", "x", r.X, "y", r.Y, "width", r.Width, "height", r.Height)
	return r, nil
}

func imageBounds(path string) (image.Rectangle, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("open staged capture: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("read staged capture: %w", err)
	}
	return image.Rect(0, 0, cfg.Width, cfg.Height), nil
}
