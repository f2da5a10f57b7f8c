package annotate

import (
	"context"
	"errors"
	"fmt"
)

type fakePolygon struct {
	path      Path
	style     Style
	editable  bool
	draggable bool
}

// fakeSurface keeps polygons in memory and lets tests move vertices the way
// a real map would.
type fakeSurface struct {
	polygons map[Handle]*fakePolygon
	next     int

	// emit, when set, receives the events the surface raises itself.
	emit func(Event)

	failSetPath error
	failRemove  error
	failStyle   error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{polygons: make(map[Handle]*fakePolygon)}
}

// draw creates a polygon the way a finished draw gesture would.
func (f *fakeSurface) draw(path Path) Handle {
	f.next++
	h := Handle(fmt.Sprintf("poly-%d", f.next))
	f.polygons[h] = &fakePolygon{path: path.Clone()}
	return h
}

// move replaces the live path without raising events.
func (f *fakeSurface) move(h Handle, path Path) {
	f.polygons[h].path = path.Clone()
}

func (f *fakeSurface) Path(h Handle) (Path, bool) {
	p, ok := f.polygons[h]
	if !ok {
		return nil, false
	}
	return p.path.Clone(), true
}

func (f *fakeSurface) SetPath(h Handle, path Path) error {
	if f.failSetPath != nil {
		return f.failSetPath
	}
	p, ok := f.polygons[h]
	if !ok {
		return ErrUnknownPolygon
	}
	// Clearing and re-pushing vertices raises one change per vertex.
	p.path = nil
	for _, pt := range path {
		p.path = append(p.path, pt)
		if f.emit != nil {
			f.emit(Event{Type: VertexChanged, Handle: h})
		}
	}
	return nil
}

func (f *fakeSurface) SetStyle(h Handle, s Style) error {
	if f.failStyle != nil {
		return f.failStyle
	}
	p, ok := f.polygons[h]
	if !ok {
		return ErrUnknownPolygon
	}
	p.style = s
	return nil
}

func (f *fakeSurface) SetEditable(h Handle, editable, draggable bool) error {
	p, ok := f.polygons[h]
	if !ok {
		return ErrUnknownPolygon
	}
	p.editable, p.draggable = editable, draggable
	return nil
}

func (f *fakeSurface) Remove(h Handle) error {
	if f.failRemove != nil {
		return f.failRemove
	}
	delete(f.polygons, h)
	return nil
}

type fakeClipboard struct {
	text   string
	writes int
	err    error
}

func (c *fakeClipboard) WriteText(_ context.Context, text string) error {
	c.writes++
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

// stuckClipboard never finishes a write until ctx ends.
type stuckClipboard struct{}

func (stuckClipboard) WriteText(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeNotifier struct {
	got []Notification
}

func (n *fakeNotifier) Notify(x Notification) { n.got = append(n.got, x) }

func (n *fakeNotifier) last() Notification {
	if len(n.got) == 0 {
		return Notification{}
	}
	return n.got[len(n.got)-1]
}

type countingRecorder map[string]int

func (r countingRecorder) Record(op, outcome string) { r[op+"/"+outcome]++ }

var errBoom = errors.New("boom")

var (
	triangle = Path{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 2}, {Lat: 2, Lng: 0}}
	square   = Path{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 4}, {Lat: 4, Lng: 4}, {Lat: 4, Lng: 0}}
)

type fixture struct {
	surface   *fakeSurface
	clipboard *fakeClipboard
	notifier  *fakeNotifier
	orch      *Orchestrator
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		surface:   newFakeSurface(),
		clipboard: &fakeClipboard{},
		notifier:  &fakeNotifier{},
	}
	f.orch = New(f.surface, f.clipboard, f.notifier, opts...)
	f.surface.emit = f.orch.HandleEvent
	return f
}

// drawPolygon runs a full draw gesture and returns the new handle.
func (f *fixture) drawPolygon(path Path) Handle {
	f.orch.HandleEvent(Event{Type: DrawStarted})
	h := f.surface.draw(path)
	f.orch.HandleEvent(Event{Type: DrawCompleted, Handle: h})
	return h
}

// editVertex moves h to path and reports it as a direct vertex edit.
func (f *fixture) editVertex(h Handle, path Path) {
	f.surface.move(h, path)
	f.orch.HandleEvent(Event{Type: VertexChanged, Handle: h})
}

func (f *fixture) click(h Handle) {
	f.orch.HandleEvent(Event{Type: Clicked, Handle: h})
}
