package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"pinmap/internal/annotate"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "pinmap:", err)
		os.Exit(1)
	}
}

// run owns every deferred cleanup so the log file is closed on all exits.
func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger, closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	met := newMetrics()
	met.serve(ctx, cfg.Metrics.Addr, logger)

	logger.Info("starting", "undo_mode", cfg.UndoMode().String(), "auto_copy", cfg.Clipboard.AutoCopy)
	p := tea.NewProgram(
		initialModel(cfg, logger, met),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		logger.Error("program failed", "err", err)
		return err
	}
	return nil
}

func initialModel(cfg *Config, logger *slog.Logger, met *metrics) model {
	ui := &uiState{}
	canvas := NewCanvas(annotate.GeoPoint{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng}, cfg.Map.Zoom)
	orch := annotate.New(canvas, newSystemClipboard(), ui,
		annotate.WithLogger(logger),
		annotate.WithUndoMode(cfg.UndoMode()),
		annotate.WithAutoCopy(cfg.Clipboard.AutoCopy),
		annotate.WithDelimiter(cfg.Clipboard.Delimiter),
		annotate.WithRecorder(met),
		annotate.WithClipboardTimeout(clipboardTimeout),
	)
	canvas.OnEvent(orch.HandleEvent)
	orch.Selection().Observe(ui.selectionChanged)

	ti := textinput.New()
	ti.Prompt = "Color: "
	ti.Placeholder = annotate.DefaultColor
	ti.CharLimit = 7
	ti.Width = 8
	ti.SetValue(orch.Selection().DisplayColor())

	return model{
		mode:        ModeNormal,
		canvas:      canvas,
		orch:        orch,
		ui:          ui,
		colorInput:  ti,
		config:      cfg,
		pinLoader:   newPinLoader(cfg.Sheets, logger),
		pinsLoading: true,
		metrics:     met,
		log:         logger,
	}
}

func (m model) Init() tea.Cmd {
	return loadPinsCmd(m.pinLoader, m.config.Sheets.Timeout)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Two lines below the map: the color field and the status line.
		m.canvas.Resize(msg.Width, msg.Height-2)
		m.ensureCursorInBounds()

	case pinsLoadedMsg:
		m.pinsLoaded(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	}

	m.syncColorField()
	return m, cmd
}

func (m *model) pinsLoaded(msg pinsLoadedMsg) {
	m.pinsLoading = false
	m.metrics.pinsLoadedResult(msg)
	if msg.err != nil {
		m.log.Warn("pins not loaded", "err", msg.err)
		if errors.Is(msg.err, errNoPinSource) {
			m.ui.Notify(annotate.Notification{
				Title:       "No pins",
				Description: "Set sheets.spreadsheet_id or sheets.csv_file to load pins.",
				Kind:        annotate.KindInfo,
			})
			return
		}
		m.ui.Notify(annotate.Notification{
			Title:       "Loading pins failed",
			Description: msg.err.Error(),
			Kind:        annotate.KindError,
		})
		return
	}

	m.orch.SetPins(msg.pins)
	m.canvas.SetPins(msg.pins)
	m.log.Info("pins loaded", "source", msg.source, "pins", len(msg.pins), "dropped", msg.dropped)
	desc := fmt.Sprintf("%d pins from %s.", len(msg.pins), msg.source)
	if msg.dropped > 0 {
		desc = fmt.Sprintf("%d pins from %s, %d rows skipped.", len(msg.pins), msg.source, msg.dropped)
	}
	m.ui.Notify(annotate.Notification{Title: "Pins loaded", Description: desc, Kind: annotate.KindInfo})
}

// syncColorField shows the selection's color unless the operator is typing.
func (m *model) syncColorField() {
	if !m.ui.colorPending || m.mode == ModeColorInput {
		return
	}
	m.colorInput.SetValue(m.fieldColor())
	m.ui.colorPending = false
}

// fieldColor is the selected polygon's color, or the color new polygons
// get when nothing is selected.
func (m *model) fieldColor() string {
	if _, ok := m.orch.Selection().Selected(); ok {
		return m.orch.Selection().DisplayColor()
	}
	return m.orch.Selection().ActiveColor()
}

func (m *model) handleMouse(msg tea.MouseMsg) {
	if m.help || (m.mode != ModeNormal && m.mode != ModeDrawing && m.mode != ModeMove) {
		return
	}
	_, mapHeight := m.canvas.Size()
	onMap := msg.Y >= 0 && msg.Y < mapHeight

	switch msg.Type {
	case tea.MouseLeft:
		if !onMap {
			return
		}
		m.cursorX, m.cursorY = msg.X, msg.Y
		if m.mode == ModeDrawing {
			m.canvas.AddDraftVertex(msg.X, msg.Y)
			return
		}
		if m.mode != ModeNormal {
			return
		}
		if pin, ok := m.canvas.PinAt(msg.X, msg.Y); ok {
			m.ui.Notify(annotate.Notification{Title: "Pin", Description: pinInfo(pin), Kind: annotate.KindInfo})
		}
		if h, ok := m.canvas.Click(msg.X, msg.Y); ok {
			m.moveHandle = h
			m.mouseDown = true
			m.lastMouseX, m.lastMouseY = msg.X, msg.Y
		}

	case tea.MouseMotion:
		if !m.mouseDown {
			return
		}
		if !m.mouseDrag {
			if !m.canvas.BeginDrag(m.moveHandle) {
				m.mouseDown = false
				return
			}
			m.mouseDrag = true
			m.mode = ModeMove
		}
		m.canvas.DragBy(m.moveHandle, msg.X-m.lastMouseX, msg.Y-m.lastMouseY)
		m.lastMouseX, m.lastMouseY = msg.X, msg.Y
		m.cursorX, m.cursorY = msg.X, msg.Y
		m.ensureCursorInBounds()

	case tea.MouseRelease:
		if m.mouseDrag {
			m.canvas.EndDrag(m.moveHandle)
			m.mode = ModeNormal
		}
		m.mouseDown = false
		m.mouseDrag = false
		if m.mode == ModeNormal {
			m.moveHandle = ""
		}

	case tea.MouseWheelUp:
		m.canvas.ZoomBy(zoomStep)
	case tea.MouseWheelDown:
		m.canvas.ZoomBy(-zoomStep)
	}
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}
	if m.help {
		m.handleHelpKey(key)
		return nil
	}

	switch m.mode {
	case ModeConfirm:
		return m.handleConfirmKey(key)
	case ModeFileInput:
		m.handleFileInputKey(msg)
		return nil
	case ModeColorInput:
		return m.handleColorKey(msg)
	case ModeDrawing:
		m.handleDrawingKey(key)
		return nil
	case ModeMove:
		m.handleMoveKey(key)
		return nil
	case ModeVertex:
		m.handleVertexKey(key)
		return nil
	}
	return m.handleNormalKey(key)
}

func (m *model) handleHelpKey(key string) {
	switch key {
	case "esc", "q", "?":
		m.help = false
		m.helpScroll = 0
	case "j", "down":
		if m.helpScroll < len(helpLines)-1 {
			m.helpScroll++
		}
	case "k", "up":
		if m.helpScroll > 0 {
			m.helpScroll--
		}
	}
}

func (m *model) handleNormalKey(key string) tea.Cmd {
	if isNavigationKey(key) {
		m.handleNavigation(key, m.getMoveSpeed(key))
		return nil
	}

	switch key {
	case "q":
		if m.config.Confirmations {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmQuit
			return nil
		}
		return tea.Quit
	case "?":
		m.help = true
	case "z":
		m.zPanMode = !m.zPanMode
	case "+", "=":
		m.canvas.ZoomBy(zoomStep)
	case "-", "_":
		m.canvas.ZoomBy(-zoomStep)
	case "esc":
		m.zPanMode = false
		m.orch.Selection().Clear()
	case "p":
		m.ui.clearStatus()
		m.canvas.StartDraw()
		m.mode = ModeDrawing
	case "enter":
		if _, ok := m.canvas.Click(m.cursorX, m.cursorY); !ok {
			m.orch.Selection().Clear()
		}
	case "tab":
		m.cycleSelection(1)
	case "shift+tab":
		m.cycleSelection(-1)
	case "m":
		m.startMove()
	case "v":
		m.grabVertex()
	case "i":
		m.insertVertex()
	case "x":
		m.removeVertex()
	case "d":
		if _, ok := m.orch.Selection().Selected(); ok && m.config.Confirmations {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmDeletePolygon
			return nil
		}
		m.deleteSelected()
	case "c":
		m.copyPinNames()
	case "u":
		m.undo()
	case "C":
		m.mode = ModeColorInput
		m.colorInput.Placeholder = m.fieldColor()
		m.colorInput.SetValue("")
		return m.colorInput.Focus()
	case "r":
		if !m.pinsLoading {
			m.pinsLoading = true
			m.ui.Notify(annotate.Notification{Title: "Loading pins", Kind: annotate.KindInfo})
			return loadPinsCmd(m.pinLoader, m.config.Sheets.Timeout)
		}
	case "S":
		m.startFileInput(FileOpSavePNG)
	case "G":
		m.startFileInput(FileOpSaveGeoJSON)
	case "T":
		m.startFileInput(FileOpSaveVisualTXT)
	}
	return nil
}

func (m *model) handleDrawingKey(key string) {
	if isNavigationKey(key) {
		m.handleNavigation(key, m.getMoveSpeed(key))
		return
	}
	switch key {
	case " ", "a":
		m.canvas.AddDraftVertex(m.cursorX, m.cursorY)
	case "enter":
		if n := m.canvas.DraftLen(); n < 3 {
			m.ui.Notify(annotate.Notification{
				Title:       "Polygon discarded",
				Description: fmt.Sprintf("A polygon needs at least 3 vertices, got %d.", n),
				Kind:        annotate.KindInfo,
			})
		}
		m.canvas.FinishDraw()
		m.mode = ModeNormal
	case "esc":
		m.canvas.CancelDraw()
		m.mode = ModeNormal
	case "z":
		m.zPanMode = !m.zPanMode
	case "+", "=":
		m.canvas.ZoomBy(zoomStep)
	case "-", "_":
		m.canvas.ZoomBy(-zoomStep)
	}
}

func (m *model) handleConfirmKey(key string) tea.Cmd {
	switch key {
	case "y", "Y":
		switch m.confirmAction {
		case ConfirmQuit:
			return tea.Quit
		case ConfirmDeletePolygon:
			m.deleteSelected()
		case ConfirmOverwriteFile:
			m.export(m.fileOp, m.filename)
		}
		m.mode = ModeNormal
		m.filename = ""
	case "n", "N", "esc":
		if m.confirmAction == ConfirmOverwriteFile {
			m.mode = ModeFileInput
			return nil
		}
		m.mode = ModeNormal
	}
	return nil
}

func (m *model) startFileInput(op FileOperation) {
	m.mode = ModeFileInput
	m.fileOp = op
	m.filename = "pinmap"
	m.ui.clearStatus()
}

func (m *model) handleFileInputKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeNormal
		m.filename = ""
	case tea.KeyEnter:
		if strings.TrimSpace(m.filename) == "" {
			return
		}
		path, err := m.config.GetSavePath(withExtension(m.filename, m.fileOp))
		if err != nil {
			m.log.Error("save directory unavailable", "err", err)
			m.ui.Notify(annotate.Notification{Title: "Export failed", Description: err.Error(), Kind: annotate.KindError})
			m.mode = ModeNormal
			m.filename = ""
			return
		}
		if _, err := os.Stat(path); err == nil && m.config.Confirmations {
			m.filename = path
			m.mode = ModeConfirm
			m.confirmAction = ConfirmOverwriteFile
			return
		}
		m.export(m.fileOp, path)
		m.mode = ModeNormal
		m.filename = ""
	case tea.KeyBackspace:
		if len(m.filename) > 0 {
			runes := []rune(m.filename)
			m.filename = string(runes[:len(runes)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.filename += string(msg.Runes)
	}
}

func (m *model) handleColorKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		if strings.TrimSpace(m.colorInput.Value()) != "" {
			_ = m.orch.SetColor(m.colorInput.Value())
		}
		m.colorInput.Blur()
		m.mode = ModeNormal
		m.colorInput.SetValue(m.fieldColor())
		return nil
	case "esc":
		m.colorInput.Blur()
		m.mode = ModeNormal
		m.colorInput.SetValue(m.fieldColor())
		return nil
	case "ctrl+v":
		text, err := readClipboardText()
		if err != nil {
			m.ui.Notify(annotate.Notification{Title: "Paste failed", Description: err.Error(), Kind: annotate.KindError})
			return nil
		}
		m.colorInput.SetValue(cleanClipboardColor(text))
		m.colorInput.CursorEnd()
		return nil
	}
	var cmd tea.Cmd
	m.colorInput, cmd = m.colorInput.Update(msg)
	return cmd
}

func withExtension(name string, op FileOperation) string {
	ext := ".png"
	switch op {
	case FileOpSaveGeoJSON:
		ext = ".geojson"
	case FileOpSaveVisualTXT:
		ext = ".txt"
	}
	if strings.EqualFold(filepath.Ext(name), ext) {
		return name
	}
	return name + ext
}

func (m *model) export(op FileOperation, path string) {
	var err error
	switch op {
	case FileOpSavePNG:
		err = m.exportPNG(path)
	case FileOpSaveGeoJSON:
		err = m.exportGeoJSON(path)
	case FileOpSaveVisualTXT:
		err = m.exportVisualTXT(path)
	}
	if err != nil {
		m.log.Error("export failed", "path", path, "err", err)
		m.ui.Notify(annotate.Notification{Title: "Export failed", Description: err.Error(), Kind: annotate.KindError})
		return
	}
	absPath, _ := filepath.Abs(path)
	m.log.Info("exported", "path", absPath)
	m.ui.Notify(annotate.Notification{Title: "Saved", Description: absPath, Kind: annotate.KindSuccess})
}
