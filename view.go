package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pinmap/internal/annotate"
)

var (
	modeStyle    = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3333")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5599FF"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func (m model) View() string {
	if m.help {
		return m.helpView()
	}

	var result strings.Builder
	showCursor := m.mode != ModeMove
	for _, line := range m.canvas.Render(m.selected(), m.cursorX, m.cursorY, showCursor) {
		result.WriteString(line)
		result.WriteString("\n")
	}
	result.WriteString(m.colorLine())
	result.WriteString("\n")
	result.WriteString(m.statusLine())
	return result.String()
}

// colorLine shows the color field with a swatch and what it applies to.
func (m model) colorLine() string {
	value := m.colorInput.Value()
	swatch := "  "
	if annotate.ValidColor(value) {
		swatch = lipgloss.NewStyle().Background(lipgloss.Color(value)).Render("  ")
	}
	target := "new polygons"
	if h, ok := m.orch.Selection().Selected(); ok {
		target = "selected polygon " + shortHandle(h)
	}
	return fmt.Sprintf("%s %s %s", m.colorInput.View(), swatch, dimStyle.Render("→ "+target))
}

func shortHandle(h annotate.Handle) string {
	s := string(h)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func (m model) statusLine() string {
	var status string
	switch m.mode {
	case ModeDrawing:
		status = fmt.Sprintf("%d vertices | space=add vertex, click=add at mouse, Enter=finish, Esc=cancel", m.canvas.DraftLen())
	case ModeMove:
		status = "hjkl/arrows or mouse drag=move polygon, Enter=finish"
	case ModeVertex:
		status = fmt.Sprintf("Vertex %d | hjkl/arrows=move, Enter=drop, Esc=cancel", m.vertexIndex+1)
	case ModeColorInput:
		status = "Type a hex color like #00FF00 | Enter=apply, Ctrl+V=paste, Esc=cancel"
	case ModeFileInput:
		var opStr string
		switch m.fileOp {
		case FileOpSavePNG:
			opStr = "Export PNG"
		case FileOpSaveGeoJSON:
			opStr = "Export GeoJSON"
		case FileOpSaveVisualTXT:
			opStr = "Export text"
		}
		status = fmt.Sprintf("%s filename: %s█ | Enter=confirm, Esc=cancel", opStr, m.filename)
	case ModeConfirm:
		switch m.confirmAction {
		case ConfirmDeletePolygon:
			status = "Delete the selected polygon? (y/n)"
		case ConfirmQuit:
			status = "Quit pinmap? (y/n)"
		case ConfirmOverwriteFile:
			status = fmt.Sprintf("File %s already exists. Overwrite? (y/n)", m.filename)
		}
	default:
		center := m.canvas.Center()
		status = fmt.Sprintf("%.5f,%.5f z%.1f | %d pins | %d polygons",
			center.Lat, center.Lng, m.canvas.Zoom(), len(m.orch.Pins()), m.orch.State().Len())
		if h, ok := m.orch.Selection().Selected(); ok {
			inside, _ := m.orch.PinsInSelected()
			status += fmt.Sprintf(" | %s: %d pins inside, %d undo", shortHandle(h), len(inside), m.undoDepth())
		}
		if pin, ok := m.canvas.PinAt(m.cursorX, m.cursorY); ok {
			status += " | " + pinInfo(pin)
		}
		if m.pinsLoading {
			status += " | loading pins…"
		}
	}

	line := modeStyle.Render(m.modeString()) + " " + status
	if m.ui.hasStatus && (m.mode == ModeNormal || m.mode == ModeDrawing) {
		line += " | " + renderNotification(m.ui.status)
	} else if m.mode == ModeNormal && !m.ui.hasStatus {
		line += " | ? for help | q to quit"
	}
	return line
}

// pinInfo is name / course / #delivery order, leaving out what is unknown.
func pinInfo(pin annotate.Pin) string {
	parts := []string{pin.Name}
	if pin.Course != "" {
		parts = append(parts, pin.Course)
	}
	if pin.DeliveryOrder != "" {
		parts = append(parts, "#"+pin.DeliveryOrder)
	}
	return strings.Join(parts, " / ")
}

func renderNotification(n annotate.Notification) string {
	text := n.Title
	if n.Description != "" {
		text += ": " + n.Description
	}
	switch n.Kind {
	case annotate.KindSuccess:
		return successStyle.Render(text)
	case annotate.KindError:
		return errorStyle.Render(text)
	default:
		return infoStyle.Render(text)
	}
}

func (m model) modeString() string {
	if m.zPanMode && (m.mode == ModeNormal || m.mode == ModeDrawing) {
		return "PAN"
	}
	switch m.mode {
	case ModeNormal:
		return "NORMAL"
	case ModeDrawing:
		return "DRAW"
	case ModeMove:
		return "MOVE"
	case ModeVertex:
		return "VERTEX"
	case ModeColorInput:
		return "COLOR"
	case ModeFileInput:
		return "FILE"
	case ModeConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

var helpLines = []string{
	"pinmap Help",
	"===========",
	"",
	"Navigation:",
	"-----------",
	"  h/←/j/↓/k/↑/l/→  Move cursor around the map",
	"  Shift+h/j/k/l    Move cursor 4x faster",
	"  z                Toggle pan mode (direction keys scroll the map)",
	"  +/-, wheel       Zoom in/out",
	"",
	"Drawing:",
	"--------",
	"  p                Start a polygon",
	"  Space, click     Add a vertex at the cursor or mouse",
	"  Enter            Finish the polygon (fewer than 3 vertices is discarded)",
	"  Esc              Cancel drawing",
	"",
	"Selection and editing:",
	"----------------------",
	"  click, Enter     Select the polygon under the mouse or cursor",
	"  Tab/Shift+Tab    Cycle through polygons",
	"  m, mouse drag    Move the selected polygon",
	"  v                Grab the nearest vertex, Enter drops it, Esc puts it back",
	"  i                Insert a vertex on the nearest edge at the cursor",
	"  x                Remove the nearest vertex",
	"  d                Delete the selected polygon",
	"  u                Undo the last change to the selected polygon",
	"  Esc              Clear selection",
	"",
	"Pins:",
	"-----",
	"  c                Copy names of pins inside the selected polygon",
	"  r                Reload pins",
	"                   Name, course and delivery order of the pin under the",
	"                   cursor show on the status line. From zoom 18 pins are",
	"                   drawn as their delivery order.",
	"                   Completing a polygon copies the names inside it when",
	"                   clipboard.auto_copy is on.",
	"",
	"Color:",
	"------",
	"  C                Edit the color field. Applies to the selection and to",
	"                   polygons drawn afterwards.",
	"",
	"Export:",
	"-------",
	"  S                Export PNG image",
	"  G                Export GeoJSON",
	"  T                Export the map as text",
	"",
	"General:",
	"  ?                Toggle this help screen",
	"  q/Ctrl+C         Quit",
}

func (m model) helpView() string {
	visibleHeight := m.height - 1
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	startLine := m.helpScroll
	if startLine > len(helpLines)-visibleHeight {
		startLine = len(helpLines) - visibleHeight
	}
	if startLine < 0 {
		startLine = 0
	}
	endLine := startLine + visibleHeight
	if endLine > len(helpLines) {
		endLine = len(helpLines)
	}

	result := strings.Join(helpLines[startLine:endLine], "\n")
	result += "\n" + fmt.Sprintf("Help (%d-%d of %d lines) | j/k to scroll, Esc to close",
		startLine+1, endLine, len(helpLines))
	return result
}
