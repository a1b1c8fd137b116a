// Package region turns a pointer drag into a selection rectangle.
//
// A Selector moves through Idle, Anchored and Closed. The first pointer-down
// anchors the rectangle, pointer moves only ever push the far corner further
// right and down (a running maximum of every observed position), and any
// pointer-up closes the selection.
package region

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
)

// State is the lifecycle stage of a Selector.
type State int

const (
	StateIdle State = iota
	StateAnchored
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnchored:
		return "anchored"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Point is a pointer position in display coordinates.
type Point struct {
	X, Y float64
}

// Region is a selected rectangle. Width and Height are never negative.
type Region struct {
	X, Y          float64
	Width, Height float64
}

// Empty reports whether the region covers no whole pixel, meaning nothing
// was selected.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0 || r.Rect().Empty()
}

// Rect converts the region to integer pixel bounds, truncating fractions.
func (r Region) Rect() image.Rectangle {
	x, y := int(r.X), int(r.Y)
	return image.Rect(x, y, x+int(r.Width), y+int(r.Height))
}

// Selector is the selection state machine. The zero value is an idle selector.
// It is not safe for concurrent use.
type Selector struct {
	state  State
	anchor Point
	far    Point
}

// State returns the current stage.
func (s *Selector) State() State { return s.state }

// PointerDown anchors the selection. Only the first press counts.
func (s *Selector) PointerDown(p Point) {
	if s.state != StateIdle {
		return
	}
	s.anchor = p
	s.far = p
	s.state = StateAnchored
}

// PointerMove grows the far corner. Moves before the anchor is set, or after
// the selection closed, are ignored.
func (s *Selector) PointerMove(p Point) {
	if s.state != StateAnchored {
		return
	}
	s.far.X = max(s.far.X, p.X)
	s.far.Y = max(s.far.Y, p.Y)
}

// PointerUp closes the selection, whichever button was released.
func (s *Selector) PointerUp() {
	s.state = StateClosed
}

// Close ends the session without a release, e.g. when the input source goes away.
func (s *Selector) Close() {
	s.state = StateClosed
}

// Region returns the rectangle described so far. An idle selector yields the
// zero region.
func (s *Selector) Region() Region {
	if s.state == StateIdle {
		return Region{}
	}
	return Region{
		X:      s.anchor.X,
		Y:      s.anchor.Y,
		Width:  s.far.X - s.anchor.X,
		Height: s.far.Y - s.anchor.Y,
	}
}

// Apply feeds one input event into the state machine.
func (s *Selector) Apply(ev Event) {
	switch ev.Kind {
	case EventPress:
		s.PointerDown(ev.Point)
	case EventMove:
		s.PointerMove(ev.Point)
	case EventRelease:
		s.PointerUp()
	case EventCancel:
		s.Close()
	}
}

// EventKind identifies a pointer input.
type EventKind int

const (
	EventPress EventKind = iota
	EventMove
	EventRelease
	// EventCancel ends the session, e.g. a key press.
	EventCancel
)

// Event is one pointer input.
type Event struct {
	Kind  EventKind
	Point Point
}

// EventSource delivers pointer events. Next blocks until an event is available
// and returns io.EOF once the source has no more input.
type EventSource interface {
	Next(ctx context.Context) (Event, error)
}

// Select drives a fresh Selector from src until the selection closes. Running
// out of input or cancelling ctx also ends the session; the region collected
// so far is returned, which is the zero region if nothing was pressed.
func Select(ctx context.Context, src EventSource) (Region, error) {
	return SelectObserved(ctx, src, nil)
}

// SelectObserved is Select with observe called after every applied event,
// so callers can draw the selection as it grows. observe may be nil.
func SelectObserved(ctx context.Context, src EventSource, observe func(State, Region)) (Region, error) {
	var sel Selector
	for sel.State() != StateClosed {
		ev, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				sel.Close()
				break
			}
			return Region{}, fmt.Errorf("read pointer event: %w", err)
		}
		sel.Apply(ev)
		if observe != nil {
			observe(sel.State(), sel.Region())
		}
	}
	return sel.Region(), nil
}
