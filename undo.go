package main

import (
	"context"
	"time"

	"pinmap/internal/annotate"
)

const clipboardTimeout = 2 * time.Second

// undo reverts the selected polygon one step. The orchestrator reports the
// outcome on the status line, so the error is only logged.
func (m *model) undo() {
	if err := m.orch.Undo(); err != nil {
		m.log.Debug("undo", "err", err)
	}
}

// undoDepth is the number of steps undo can still take for the selection.
func (m *model) undoDepth() int {
	h, ok := m.orch.Selection().Selected()
	if !ok {
		return 0
	}
	hist := m.orch.History()
	n := len(hist.EntriesFor(h)) - 1
	if hist.Mode() == annotate.UndoGlobal {
		n = hist.Len() - 1
	}
	if n > 0 {
		return n
	}
	return 0
}

func (m *model) deleteSelected() {
	if err := m.orch.DeleteSelected(); err != nil {
		m.log.Debug("delete", "err", err)
	}
}

func (m *model) copyPinNames() {
	ctx, cancel := context.WithTimeout(context.Background(), clipboardTimeout)
	defer cancel()
	if err := m.orch.CopySelectedPinNames(ctx); err != nil {
		m.log.Debug("copy", "err", err)
	}
}
