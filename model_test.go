package main

import (
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinmap/internal/annotate"
	"pinmap/internal/sheets"
)

func testConfig() *Config {
	return &Config{
		Confirmations: true,
		Map:           MapConfig{CenterLat: 43.0646, CenterLng: 141.3468, Zoom: 15},
		Sheets:        SheetsConfig{Timeout: sheets.DefaultTimeout},
		History:       HistoryConfig{UndoMode: "per-polygon"},
		Clipboard:     ClipboardConfig{Delimiter: annotate.DefaultDelimiter},
		Log:           LogConfig{Level: "debug", Format: "text"},
	}
}

func newTestModel(t *testing.T) model {
	t.Helper()
	m := initialModel(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), newMetrics())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 26})
	return next.(model)
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func press(t *testing.T, m model, keys ...string) (model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(model)
	}
	return m, cmd
}

func typeText(t *testing.T, m model, text string) model {
	t.Helper()
	for _, r := range text {
		m, _ = press(t, m, string(r))
	}
	return m
}

// drawTriangle draws through the keyboard and selects the result.
func drawTriangle(t *testing.T, m model) (model, annotate.Handle) {
	t.Helper()
	m, _ = press(t, m, "p")
	require.Equal(t, ModeDrawing, m.mode)
	for _, c := range triangleCells {
		m.cursorX, m.cursorY = c[0], c[1]
		m, _ = press(t, m, " ")
	}
	m, _ = press(t, m, "enter")
	require.Equal(t, ModeNormal, m.mode)
	handles := m.canvas.Handles()
	require.NotEmpty(t, handles)
	h := handles[len(handles)-1]

	m.cursorX, m.cursorY = 20, 8
	m, _ = press(t, m, "enter")
	got, ok := m.orch.Selection().Selected()
	require.True(t, ok)
	require.Equal(t, h, got)
	return m, h
}

func TestWindowSizeLeavesRoomForStatus(t *testing.T) {
	m := newTestModel(t)
	w, h := m.canvas.Size()
	assert.Equal(t, 80, w)
	assert.Equal(t, 24, h)
}

func TestDrawSelectMoveUndoDelete(t *testing.T) {
	m := newTestModel(t)
	m, h := drawTriangle(t, m)
	original, _ := m.canvas.Path(h)

	m, _ = press(t, m, "m")
	require.Equal(t, ModeMove, m.mode)
	m, _ = press(t, m, "l", "l", "j", "enter")
	assert.Equal(t, ModeNormal, m.mode)
	assert.Len(t, m.orch.History().EntriesFor(h), 2)
	assert.Equal(t, 1, m.undoDepth())

	m, _ = press(t, m, "u")
	restored, _ := m.canvas.Path(h)
	assert.True(t, restored.Equal(original))
	assert.Zero(t, m.undoDepth())

	m, _ = press(t, m, "u")
	assert.Equal(t, "Nothing to undo", m.ui.status.Title)

	m, _ = press(t, m, "d")
	require.Equal(t, ModeConfirm, m.mode)
	m, _ = press(t, m, "y")
	assert.Equal(t, ModeNormal, m.mode)
	assert.Empty(t, m.canvas.Handles())
	assert.Zero(t, m.orch.State().Len())
	assert.Equal(t, "Polygon deleted", m.ui.status.Title)
}

func TestDrawWithTooFewVertices(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, "p", " ", "enter")

	assert.Equal(t, ModeNormal, m.mode)
	assert.Empty(t, m.canvas.Handles())
	assert.Equal(t, "Polygon discarded", m.ui.status.Title)
}

func TestEscCancelsDrawing(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, "p", " ", "l", " ", "esc")

	assert.Equal(t, ModeNormal, m.mode)
	assert.False(t, m.canvas.Drawing())
	assert.Empty(t, m.canvas.Handles())
}

func TestVertexGrabAndCancel(t *testing.T) {
	m := newTestModel(t)
	m, h := drawTriangle(t, m)
	before, _ := m.canvas.Path(h)

	m.cursorX, m.cursorY = 29, 6
	m, _ = press(t, m, "v")
	require.Equal(t, ModeVertex, m.mode)
	assert.Equal(t, 1, m.vertexIndex)
	m, _ = press(t, m, "l", "l", "esc")
	after, _ := m.canvas.Path(h)
	assert.True(t, after.Equal(before))
	assert.Len(t, m.orch.History().EntriesFor(h), 1)

	m, _ = press(t, m, "v", "l", "l", "enter")
	assert.Len(t, m.orch.History().EntriesFor(h), 2)
}

func TestTabCyclesSelection(t *testing.T) {
	m := newTestModel(t)
	m, a := drawTriangle(t, m)
	m, _ = press(t, m, "p")
	for _, c := range [][2]int{{50, 5}, {70, 5}, {60, 15}} {
		m.cursorX, m.cursorY = c[0], c[1]
		m, _ = press(t, m, " ")
	}
	m, _ = press(t, m, "enter")
	handles := m.canvas.Handles()
	require.Len(t, handles, 2)
	b := handles[1]

	m, _ = press(t, m, "tab")
	got, _ := m.orch.Selection().Selected()
	assert.Equal(t, b, got)
	m, _ = press(t, m, "tab")
	got, _ = m.orch.Selection().Selected()
	assert.Equal(t, a, got)

	m, _ = press(t, m, "esc")
	_, ok := m.orch.Selection().Selected()
	assert.False(t, ok)
}

func TestColorFieldRestylesSelection(t *testing.T) {
	m := newTestModel(t)
	m, h := drawTriangle(t, m)
	assert.Equal(t, annotate.DefaultColor, m.colorInput.Value())

	m, _ = press(t, m, "C")
	require.Equal(t, ModeColorInput, m.mode)
	m = typeText(t, m, "#00FF00")
	m, _ = press(t, m, "enter")

	assert.Equal(t, ModeNormal, m.mode)
	assert.Equal(t, "#00FF00", m.colorInput.Value())
	assert.Equal(t, "#00FF00", m.orch.Selection().ActiveColor())
	polys := m.canvas.Polygons()
	require.Len(t, polys, 1)
	assert.Equal(t, h, polys[0].Handle)
	assert.Equal(t, "#00FF00", polys[0].Style.Fill)

	m, _ = press(t, m, "esc")
	assert.Equal(t, "#00FF00", m.colorInput.Value(), "the field keeps the color new polygons get")
}

func TestColorFieldRejectsInvalid(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, "C")
	m = typeText(t, m, "green")
	m, _ = press(t, m, "enter")

	assert.Equal(t, "Invalid color", m.ui.status.Title)
	assert.Equal(t, annotate.KindError, m.ui.status.Kind)
	assert.Equal(t, annotate.DefaultColor, m.orch.Selection().ActiveColor())
}

func TestOperationsWithoutSelectionNotify(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, "d")
	assert.Equal(t, ModeNormal, m.mode, "nothing to confirm without a selection")
	assert.Equal(t, "Delete failed", m.ui.status.Title)

	m, _ = press(t, m, "m")
	assert.Equal(t, ModeNormal, m.mode)
	assert.Equal(t, "Move failed", m.ui.status.Title)
}

func TestQuitAsksForConfirmation(t *testing.T) {
	m := newTestModel(t)
	m, cmd := press(t, m, "q")
	assert.Nil(t, cmd)
	require.Equal(t, ModeConfirm, m.mode)

	m, _ = press(t, m, "n")
	assert.Equal(t, ModeNormal, m.mode)

	_, cmd = press(t, m, "q", "y")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestPinsLoadedMessage(t *testing.T) {
	m := newTestModel(t)
	pins := []annotate.Pin{{ID: "1", Name: "Sato", Lat: 43.0646, Lng: 141.3468}}

	next, _ := m.Update(pinsLoadedMsg{pins: pins, dropped: 2, source: "members.csv"})
	m = next.(model)

	assert.False(t, m.pinsLoading)
	assert.Equal(t, pins, m.orch.Pins())
	assert.Equal(t, pins, m.canvas.Pins())
	assert.Equal(t, "1 pins from members.csv, 2 rows skipped.", m.ui.status.Description)
}

func TestPinsLoadErrors(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(pinsLoadedMsg{err: errNoPinSource})
	m = next.(model)
	assert.Equal(t, annotate.KindInfo, m.ui.status.Kind)

	next, _ = m.Update(pinsLoadedMsg{err: assert.AnError})
	m = next.(model)
	assert.Equal(t, annotate.KindError, m.ui.status.Kind)
	assert.Empty(t, m.orch.Pins())
}

func TestMouseDragMovesPolygon(t *testing.T) {
	m := newTestModel(t)
	m, h := drawTriangle(t, m)
	before, _ := m.canvas.Path(h)

	send := func(ev tea.MouseEvent) {
		next, _ := m.Update(tea.MouseMsg(ev))
		m = next.(model)
	}
	send(tea.MouseEvent{X: 20, Y: 8, Type: tea.MouseLeft})
	send(tea.MouseEvent{X: 22, Y: 8, Type: tea.MouseMotion})
	assert.Equal(t, ModeMove, m.mode)
	send(tea.MouseEvent{X: 24, Y: 9, Type: tea.MouseMotion})
	send(tea.MouseEvent{X: 24, Y: 9, Type: tea.MouseRelease})

	assert.Equal(t, ModeNormal, m.mode)
	assert.Len(t, m.orch.History().EntriesFor(h), 2)
	after, _ := m.canvas.Path(h)
	assert.False(t, after.Equal(before))
}

func TestViewRendersStatusAndColorLines(t *testing.T) {
	m := newTestModel(t)
	m, _ = drawTriangle(t, m)

	view := m.View()
	assert.Contains(t, view, "NORMAL")
	assert.Contains(t, view, "1 polygons")
	assert.Contains(t, view, "selected polygon")

	m, _ = press(t, m, "?")
	assert.Contains(t, m.View(), "pinmap Help")
}

func TestEditsThatMoveNothingAreNotRecorded(t *testing.T) {
	m := newTestModel(t)
	m, h := drawTriangle(t, m)
	before, _ := m.canvas.Path(h)

	m, _ = press(t, m, "m", "enter")
	m.cursorX, m.cursorY = 29, 6
	m, _ = press(t, m, "v", "enter")

	assert.Len(t, m.orch.History().EntriesFor(h), 1)
	assert.Zero(t, m.undoDepth())
	m, _ = press(t, m, "u")
	assert.Equal(t, "Nothing to undo", m.ui.status.Title)
	after, _ := m.canvas.Path(h)
	assert.True(t, after.Equal(before))
}

func TestCursorOnPinShowsPinInfo(t *testing.T) {
	m := newTestModel(t)
	at := m.canvas.ToGeo(40, 12)
	pins := []annotate.Pin{{ID: "1", Name: "Sato", Course: "A", DeliveryOrder: "3", Lat: at.Lat, Lng: at.Lng}}
	next, _ := m.Update(pinsLoadedMsg{pins: pins, source: "test"})
	m = next.(model)

	m.cursorX, m.cursorY = 40, 12
	assert.Contains(t, m.View(), "Sato / A / #3")

	next, _ = m.Update(tea.MouseMsg(tea.MouseEvent{X: 40, Y: 12, Type: tea.MouseLeft}))
	m = next.(model)
	assert.Equal(t, "Pin", m.ui.status.Title)
	assert.Equal(t, "Sato / A / #3", m.ui.status.Description)

	m.ui.clearStatus()
	m.cursorX = 0
	assert.NotContains(t, m.View(), "Sato / A")
}
