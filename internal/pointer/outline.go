package pointer

import (
	"fmt"
	"image"
	"math"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/sampic/sampic/internal/region"
)

const outlineWidth = 2

// outline draws the selection rectangle over the screen. Drawing uses XOR on
// the root window, so drawing the same rectangle twice erases it. A nil
// outline draws nothing.
type outline struct {
	draw  func(xproto.Rectangle)
	close func()
	shown *xproto.Rectangle
}

// newRootOutline creates an XOR graphics context on the root window that also
// paints over child windows.
func newRootOutline(conn *xgb.Conn, screen *xproto.ScreenInfo) (*outline, error) {
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return nil, err
	}
	drawable := xproto.Drawable(screen.Root)
	mask := uint32(xproto.GcFunction | xproto.GcForeground | xproto.GcLineWidth | xproto.GcSubwindowMode)
	values := []uint32{
		xproto.GxXor,
		screen.WhitePixel ^ screen.BlackPixel,
		outlineWidth,
		xproto.SubwindowModeIncludeInferiors,
	}
	if err := xproto.CreateGCChecked(conn, gc, drawable, mask, values).Check(); err != nil {
		return nil, fmt.Errorf("create outline gc: %w", err)
	}
	return &outline{
		draw: func(r xproto.Rectangle) {
			xproto.PolyRectangle(conn, drawable, gc, []xproto.Rectangle{r})
		},
		close: func() { xproto.FreeGC(conn, gc) },
	}, nil
}

// Show redraws the outline for the selection in state. Only an anchored,
// non-empty selection is visible.
func (o *outline) Show(state region.State, r region.Region) {
	if o == nil {
		return
	}
	next, visible := toRectangle(r.Rect())
	if state != region.StateAnchored {
		visible = false
	}
	if o.shown != nil && visible && *o.shown == next {
		return
	}
	o.Hide()
	if visible {
		o.draw(next)
		o.shown = &next
	}
}

// Hide erases the outline if one is drawn.
func (o *outline) Hide() {
	if o == nil || o.shown == nil {
		return
	}
	o.draw(*o.shown)
	o.shown = nil
}

func (o *outline) free() {
	if o == nil || o.close == nil {
		return
	}
	o.close()
}

// toRectangle converts r to X11 wire form. Empty or out-of-range rectangles
// are not drawable.
func toRectangle(r image.Rectangle) (xproto.Rectangle, bool) {
	if r.Empty() ||
		r.Min.X < math.MinInt16 || r.Min.Y < math.MinInt16 ||
		r.Min.X > math.MaxInt16 || r.Min.Y > math.MaxInt16 ||
		r.Dx() > math.MaxUint16 || r.Dy() > math.MaxUint16 {
		return xproto.Rectangle{}, false
	}
	return xproto.Rectangle{
		X:      int16(r.Min.X),
		Y:      int16(r.Min.Y),
		Width:  uint16(r.Dx()),
		Height: uint16(r.Dy()),
	}, true
}
