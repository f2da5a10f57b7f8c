package main

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/textinput"

	"pinmap/internal/annotate"
)

type model struct {
	width      int
	height     int
	cursorX    int
	cursorY    int
	zPanMode   bool
	mode       Mode
	help       bool
	helpScroll int

	canvas *Canvas
	orch   *annotate.Orchestrator
	ui     *uiState

	colorInput textinput.Model

	// ModeMove: the polygon being dragged. A mouse press on a polygon arms
	// a drag that starts with the first motion event.
	moveHandle annotate.Handle
	mouseDown  bool
	mouseDrag  bool
	lastMouseX int
	lastMouseY int

	// ModeVertex: the grabbed vertex and where it was before.
	vertexHandle   annotate.Handle
	vertexIndex    int
	vertexOriginal annotate.GeoPoint

	filename      string
	fileOp        FileOperation
	confirmAction ConfirmAction

	config      *Config
	pinLoader   pinLoader
	pinsLoading bool
	metrics     *metrics
	log         *slog.Logger
}

// uiState is shared between model copies and the callbacks the annotation
// core calls while an update is being handled.
type uiState struct {
	status       annotate.Notification
	hasStatus    bool
	colorPending bool
}

// Notify shows n on the status line.
func (u *uiState) Notify(n annotate.Notification) {
	u.status = n
	u.hasStatus = true
}

func (u *uiState) clearStatus() {
	u.hasStatus = false
}

func (u *uiState) selectionChanged(annotate.Handle, string) {
	u.colorPending = true
}

type pinsLoadedMsg struct {
	pins    []annotate.Pin
	dropped int
	source  string
	err     error
}
