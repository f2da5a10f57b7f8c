package main

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"

	"pinmap/internal/annotate"
)

// systemClipboard writes through the OS clipboard. xclip and friends can
// hang, so a write gives up when ctx ends and the helper is left to finish
// on its own.
type systemClipboard struct {
	write func(string) error
}

func newSystemClipboard() systemClipboard {
	return systemClipboard{write: clipboard.WriteAll}
}

func (c systemClipboard) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- c.write(text) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func readClipboardText() (string, error) {
	if runtime.GOOS == "darwin" {
		if output, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(output), nil
		}
		if output, err := exec.Command("pbpaste").Output(); err == nil {
			return string(output), nil
		}
	}
	return clipboard.ReadAll()
}

// cleanClipboardColor keeps the first line of pasted text, without control
// characters or surrounding blanks.
func cleanClipboardColor(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text, _, _ = strings.Cut(text, "\n")
	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

func (m *model) ensureCursorInBounds() {
	if m.cursorX < 0 {
		m.cursorX = 0
	}
	if m.cursorY < 0 {
		m.cursorY = 0
	}
	w, h := m.canvas.Size()
	if m.cursorX >= w {
		m.cursorX = w - 1
	}
	if m.cursorY >= h {
		m.cursorY = h - 1
	}
}

// selected returns the selected polygon, or "" when there is none.
func (m *model) selected() annotate.Handle {
	h, _ := m.orch.Selection().Selected()
	return h
}
