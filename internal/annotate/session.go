package annotate

import (
	"fmt"
	"log/slog"
)

// Phase is the drawing state of the session.
type Phase int

const (
	Idle Phase = iota
	Drawing
	Committed
)

func (p Phase) String() string {
	switch p {
	case Drawing:
		return "drawing"
	case Committed:
		return "committed"
	default:
		return "idle"
	}
}

// Session turns surface gestures into polygon records and history entries.
//
// The surface reports VertexChanged for every frame of a drag as well as
// for direct vertex edits. Between DragStarted and DragEnded the session
// ignores VertexChanged for that polygon and commits once on DragEnded, so a
// drag yields exactly one entry while each direct edit yields one.
type Session struct {
	state     *State
	history   *History
	surface   Surface
	selection *Selection
	log       *slog.Logger

	phase     Phase
	dragging  map[Handle]bool
	restoring Handle
	onCommit  func(h Handle, created bool)
}

func NewSession(state *State, history *History, surface Surface, selection *Selection, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		state:     state,
		history:   history,
		surface:   surface,
		selection: selection,
		log:       log,
		dragging:  make(map[Handle]bool),
	}
}

func (s *Session) Phase() Phase { return s.phase }

// Dragging reports whether h is between DragStarted and DragEnded.
func (s *Session) Dragging(h Handle) bool { return s.dragging[h] }

// HandleEvent applies one surface event. Events for polygons the session
// does not know are dropped.
func (s *Session) HandleEvent(ev Event) error {
	switch ev.Type {
	case DrawStarted:
		s.phase = Drawing
		return nil
	case DrawCancelled:
		s.phase = Idle
		return nil
	case DrawCompleted:
		return s.complete(ev.Handle)
	}

	if _, ok := s.state.Record(ev.Handle); !ok {
		s.log.Debug("event for unknown polygon", "event", ev.Type.String(), "polygon", ev.Handle)
		return nil
	}

	switch ev.Type {
	case DragStarted:
		s.dragging[ev.Handle] = true
	case DragEnded:
		delete(s.dragging, ev.Handle)
		return s.commit(ev.Handle)
	case VertexChanged:
		if s.dragging[ev.Handle] || s.restoring == ev.Handle {
			return nil
		}
		return s.commit(ev.Handle)
	case Clicked:
		return s.selection.Select(ev.Handle)
	}
	return nil
}

// complete registers a freshly drawn polygon. Degenerate polygons are
// removed from the surface and never recorded.
func (s *Session) complete(h Handle) error {
	if h == "" {
		s.phase = Idle
		return fmt.Errorf("draw completed without a polygon: %w", ErrUnknownPolygon)
	}
	if _, ok := s.state.Record(h); ok {
		return nil
	}
	path, ok := s.surface.Path(h)
	if !ok {
		s.phase = Idle
		return fmt.Errorf("draw completed for %s: %w", h, ErrUnknownPolygon)
	}
	if len(path) < 3 {
		s.phase = Idle
		if err := s.surface.Remove(h); err != nil {
			s.log.Warn("remove degenerate polygon", "polygon", h, "error", err)
		}
		return fmt.Errorf("draw completed for %s with %d vertices: %w", h, len(path), ErrDegeneratePath)
	}

	color := s.state.activeColor
	if err := s.surface.SetEditable(h, true, true); err != nil {
		s.phase = Idle
		return fmt.Errorf("make %s editable: %w", h, err)
	}
	if err := s.surface.SetStyle(h, DefaultStyle(color)); err != nil {
		s.phase = Idle
		return fmt.Errorf("style %s: %w", h, err)
	}

	s.state.addRecord(h, path, color)
	s.history.Commit(h, path)
	s.phase = Committed
	s.log.Debug("polygon committed", "polygon", h, "vertices", len(path), "color", color)
	if s.onCommit != nil {
		s.onCommit(h, true)
	}
	return nil
}

// commit snapshots the live path of h into its record and the history.
func (s *Session) commit(h Handle) error {
	rec, ok := s.state.Record(h)
	if !ok {
		return nil
	}
	path, ok := s.surface.Path(h)
	if !ok {
		return fmt.Errorf("read path of %s: %w", h, ErrUnknownPolygon)
	}
	if !path.Committable() {
		s.log.Debug("skipping degenerate edit", "polygon", h, "vertices", len(path))
		return nil
	}
	if path.Equal(rec.CurrentPath) {
		s.log.Debug("skipping unchanged edit", "polygon", h)
		return nil
	}
	rec.CurrentPath = path.Clone()
	s.history.Commit(h, path)
	if s.onCommit != nil {
		s.onCommit(h, false)
	}
	return nil
}

// restore replaces the live vertices of h with p. VertexChanged events the
// surface raises while doing so are not committed.
func (s *Session) restore(h Handle, p Path) error {
	s.restoring = h
	defer func() { s.restoring = "" }()
	return s.surface.SetPath(h, p.Clone())
}

// forget drops per-polygon session state for a deleted polygon.
func (s *Session) forget(h Handle) {
	delete(s.dragging, h)
}
