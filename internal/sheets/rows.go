package sheets

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"pinmap/internal/annotate"
)

// Member sheet columns, zero-based from column A.
const (
	colID            = 0
	colCourse        = 3
	colName          = 8
	colLat           = 17
	colLng           = 18
	colDeliveryOrder = 26
	colPaletteIndex  = 27
)

const (
	// PaletteSize is the modulus applied to a row's palette index.
	PaletteSize = 200
	// FallbackColor paints pins whose palette entry is missing.
	FallbackColor = "#e44631"
)

var validate = validator.New()

// Palette is the list of pin colors read from the color sheet.
type Palette []string

// newPalette flattens single-column rows into colors.
func newPalette(rows [][]string) Palette {
	p := make(Palette, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 {
			p = append(p, "")
			continue
		}
		p = append(p, strings.TrimSpace(r[0]))
	}
	return p
}

// Color resolves a raw palette index cell.
func (p Palette) Color(raw string) string {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return FallbackColor
	}
	n %= PaletteSize
	if n >= len(p) || p[n] == "" {
		return FallbackColor
	}
	return p[n]
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseRow maps one member row to a pin.
func ParseRow(row []string, palette Palette) (annotate.Pin, error) {
	lat, err := strconv.ParseFloat(cell(row, colLat), 64)
	if err != nil {
		return annotate.Pin{}, errors.Wrap(err, "latitude")
	}
	lng, err := strconv.ParseFloat(cell(row, colLng), 64)
	if err != nil {
		return annotate.Pin{}, errors.Wrap(err, "longitude")
	}
	pin := annotate.Pin{
		ID:            cell(row, colID),
		Name:          cell(row, colName),
		Lat:           lat,
		Lng:           lng,
		Course:        cell(row, colCourse),
		DeliveryOrder: cell(row, colDeliveryOrder),
		Color:         palette.Color(cell(row, colPaletteIndex)),
	}
	if err := validate.Struct(pin); err != nil {
		return annotate.Pin{}, errors.Wrapf(err, "row %q", pin.ID)
	}
	return pin, nil
}

// Parse maps member rows to pins, skipping rows that fail ParseRow, and
// reports how many were skipped.
func Parse(rows [][]string, palette Palette) ([]annotate.Pin, int) {
	pins := make([]annotate.Pin, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		pin, err := ParseRow(row, palette)
		if err != nil {
			dropped++
			continue
		}
		pins = append(pins, pin)
	}
	return pins, dropped
}

// ReadCSV parses member rows from r. Header rows are expected to have been
// removed, as with the A3:AB range.
func ReadCSV(r io.Reader, palette Palette) ([]annotate.Pin, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, 0, errors.Wrap(err, "read csv")
	}
	pins, dropped := Parse(rows, palette)
	return pins, dropped, nil
}

// LoadCSV reads pins from a CSV export of the member sheet.
func LoadCSV(path string, palette Palette) ([]annotate.Pin, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, palette)
}
