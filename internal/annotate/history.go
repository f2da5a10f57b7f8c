package annotate

import (
	"fmt"
	"strings"
)

// HistoryEntry is a snapshot of one polygon's path.
type HistoryEntry struct {
	Polygon Handle
	Path    Path
}

// UndoMode selects how Undo picks the snapshot to restore.
type UndoMode int

const (
	// UndoPerPolygon restores the selected polygon's own previous snapshot.
	UndoPerPolygon UndoMode = iota
	// UndoGlobal restores the second-to-last entry of the whole log onto
	// the selected polygon, whichever polygon recorded it.
	UndoGlobal
)

func (m UndoMode) String() string {
	if m == UndoGlobal {
		return "global"
	}
	return "per-polygon"
}

// ParseUndoMode accepts "per-polygon" (or "polygon", "") and "global".
func ParseUndoMode(s string) (UndoMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per-polygon", "per_polygon", "polygon":
		return UndoPerPolygon, nil
	case "global":
		return UndoGlobal, nil
	}
	return UndoPerPolygon, fmt.Errorf("unknown undo mode %q", s)
}

// History is the append-only chronological log of path snapshots shared by
// all polygons. Entries of deleted polygons stay in the log.
type History struct {
	entries []HistoryEntry
	mode    UndoMode
}

func NewHistory(mode UndoMode) *History {
	return &History{entries: []HistoryEntry{}, mode: mode}
}

func (h *History) Mode() UndoMode { return h.mode }

// Commit appends a snapshot of path for polygon.
func (h *History) Commit(polygon Handle, path Path) {
	h.entries = append(h.entries, HistoryEntry{Polygon: polygon, Path: path.Clone()})
}

func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the log, oldest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[i] = HistoryEntry{Polygon: e.Polygon, Path: e.Path.Clone()}
	}
	return out
}

// EntriesFor returns the snapshots recorded for polygon, oldest first.
func (h *History) EntriesFor(polygon Handle) []HistoryEntry {
	var out []HistoryEntry
	for _, e := range h.entries {
		if e.Polygon == polygon {
			out = append(out, HistoryEntry{Polygon: e.Polygon, Path: e.Path.Clone()})
		}
	}
	return out
}

// undoStep describes the change Undo will make: restore Path onto the
// selected polygon and drop the log entry at index drop.
type undoStep struct {
	Path Path
	drop int
}

// plan computes the undo step for the selected polygon without mutating
// the log.
func (h *History) plan(selected Handle) (undoStep, bool) {
	if selected == "" || len(h.entries) <= 1 {
		return undoStep{}, false
	}
	if h.mode == UndoGlobal {
		last := len(h.entries) - 1
		return undoStep{Path: h.entries[last-1].Path.Clone(), drop: last}, true
	}

	latest := -1
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Polygon != selected {
			continue
		}
		if latest < 0 {
			latest = i
			continue
		}
		return undoStep{Path: h.entries[i].Path.Clone(), drop: latest}, true
	}
	return undoStep{}, false
}

func (h *History) apply(step undoStep) {
	h.entries = append(h.entries[:step.drop], h.entries[step.drop+1:]...)
}

// Undo reverts the selected polygon one step. restore must replace the live
// polygon's vertices; if it fails neither the record nor the log change.
func (h *History) Undo(st *State, restore func(Handle, Path) error) error {
	selected := st.selected
	if selected == "" {
		return ErrNothingSelected
	}
	rec, ok := st.Record(selected)
	if !ok {
		return ErrUnknownPolygon
	}
	step, ok := h.plan(selected)
	if !ok {
		return ErrNothingToUndo
	}
	if err := restore(selected, step.Path); err != nil {
		return fmt.Errorf("restore %s: %w", selected, err)
	}
	rec.CurrentPath = step.Path
	h.apply(step)
	return nil
}
