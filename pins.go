package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pinmap/internal/annotate"
	"pinmap/internal/sheets"
)

var errNoPinSource = errors.New("no pin source configured")

// pinLoader fetches the pin set once. It reports how many source rows were
// skipped and a short name for where the pins came from.
type pinLoader func(ctx context.Context) (pins []annotate.Pin, dropped int, source string, err error)

// newPinLoader prefers a local CSV export over the spreadsheet.
func newPinLoader(cfg SheetsConfig, log *slog.Logger) pinLoader {
	switch {
	case cfg.CSVFile != "":
		return func(context.Context) ([]annotate.Pin, int, string, error) {
			pins, dropped, err := sheets.LoadCSV(cfg.CSVFile, nil)
			return pins, dropped, cfg.CSVFile, err
		}
	case cfg.SpreadsheetID != "":
		client := sheets.NewClient(cfg.APIKey, sheets.WithLogger(log))
		return func(ctx context.Context) ([]annotate.Pin, int, string, error) {
			pins, err := client.FetchPins(ctx, cfg.Source())
			return pins, 0, "Google Sheets", err
		}
	default:
		return nil
	}
}

func loadPinsCmd(load pinLoader, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		if load == nil {
			return pinsLoadedMsg{err: errNoPinSource}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		pins, dropped, source, err := load(ctx)
		return pinsLoadedMsg{pins: pins, dropped: dropped, source: source, err: err}
	}
}
