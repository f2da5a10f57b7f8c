package main

import (
	"pinmap/internal/annotate"
)

// cycleSelection selects the next polygon in drawing order.
func (m *model) cycleSelection(step int) {
	handles := m.canvas.Handles()
	if len(handles) == 0 {
		return
	}
	next := 0
	if cur, ok := m.orch.Selection().Selected(); ok {
		for i, h := range handles {
			if h == cur {
				next = (i + step + len(handles)) % len(handles)
				break
			}
		}
	} else if step < 0 {
		next = len(handles) - 1
	}
	m.canvas.ClickHandle(handles[next])
}

func (m *model) requireSelection(action string) (annotate.Handle, bool) {
	h, ok := m.orch.Selection().Selected()
	if !ok {
		m.ui.Notify(annotate.Notification{
			Title:       action + " failed",
			Description: "No polygon is selected.",
			Kind:        annotate.KindError,
		})
	}
	return h, ok
}

func (m *model) startMove() {
	h, ok := m.requireSelection("Move")
	if !ok || !m.canvas.BeginDrag(h) {
		return
	}
	m.moveHandle = h
	m.mode = ModeMove
}

func (m *model) handleMoveKey(key string) {
	if isNavigationKey(key) {
		dx, dy := direction(key)
		speed := m.getMoveSpeed(key)
		m.canvas.DragBy(m.moveHandle, dx*speed, dy*speed)
		return
	}
	switch key {
	case "enter", "esc", "m":
		m.canvas.EndDrag(m.moveHandle)
		m.moveHandle = ""
		m.mouseDown = false
		m.mouseDrag = false
		m.mode = ModeNormal
	}
}

// grabVertex picks up the selected polygon's vertex nearest the cursor and
// puts the cursor on it.
func (m *model) grabVertex() {
	h, ok := m.requireSelection("Vertex edit")
	if !ok {
		return
	}
	i, ok := m.canvas.NearestVertex(h, m.cursorX, m.cursorY)
	if !ok {
		return
	}
	path, _ := m.canvas.Path(h)
	m.vertexHandle = h
	m.vertexIndex = i
	m.vertexOriginal = path[i]
	m.cursorX, m.cursorY = m.canvas.cellOf(path[i])
	m.ensureCursorInBounds()
	m.mode = ModeVertex
}

func (m *model) handleVertexKey(key string) {
	if isNavigationKey(key) {
		m.handleCursorMove(key, m.getMoveSpeed(key))
		m.canvas.PreviewVertex(m.vertexHandle, m.vertexIndex, m.cursorX, m.cursorY)
		return
	}
	switch key {
	case "enter", "v":
		m.canvas.DropVertex(m.vertexHandle)
		m.mode = ModeNormal
	case "esc":
		m.canvas.RestoreVertex(m.vertexHandle, m.vertexIndex, m.vertexOriginal)
		m.mode = ModeNormal
	}
}

func (m *model) insertVertex() {
	if h, ok := m.requireSelection("Vertex insert"); ok {
		m.canvas.InsertVertex(h, m.cursorX, m.cursorY)
	}
}

func (m *model) removeVertex() {
	h, ok := m.requireSelection("Vertex removal")
	if !ok {
		return
	}
	i, ok := m.canvas.NearestVertex(h, m.cursorX, m.cursorY)
	if !ok || !m.canvas.RemoveVertex(h, i) {
		m.ui.Notify(annotate.Notification{
			Title:       "Vertex removal failed",
			Description: "A polygon keeps at least 3 vertices.",
			Kind:        annotate.KindError,
		})
	}
}
