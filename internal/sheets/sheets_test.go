package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memberRow builds a 28-column row with the fields the parser reads.
func memberRow(id, course, name, lat, lng, order, palette string) []string {
	row := make([]string, 28)
	row[colID] = id
	row[colCourse] = course
	row[colName] = name
	row[colLat] = lat
	row[colLng] = lng
	row[colDeliveryOrder] = order
	row[colPaletteIndex] = palette
	return row
}

func TestPaletteColor(t *testing.T) {
	p := Palette{"#111111", "#222222", ""}
	assert.Equal(t, "#222222", p.Color("1"))
	assert.Equal(t, "#222222", p.Color("201"))
	assert.Equal(t, FallbackColor, p.Color("2"))
	assert.Equal(t, FallbackColor, p.Color("7"))
	assert.Equal(t, FallbackColor, p.Color("x"))
	assert.Equal(t, FallbackColor, p.Color("-1"))
}

func TestParseRow(t *testing.T) {
	pin, err := ParseRow(memberRow("M01", "A", "Sato", "43.0646", "141.3468", "12", "0"), Palette{"#00AA00"})
	require.NoError(t, err)
	assert.Equal(t, "M01", pin.ID)
	assert.Equal(t, "Sato", pin.Name)
	assert.Equal(t, "A", pin.Course)
	assert.Equal(t, "12", pin.DeliveryOrder)
	assert.Equal(t, "#00AA00", pin.Color)
	assert.InDelta(t, 43.0646, pin.Lat, 1e-9)
	assert.InDelta(t, 141.3468, pin.Lng, 1e-9)
}

func TestParseDropsMalformedRows(t *testing.T) {
	rows := [][]string{
		memberRow("M01", "A", "Sato", "43.06", "141.34", "1", "0"),
		memberRow("", "A", "NoID", "43.06", "141.34", "2", "0"),
		memberRow("M03", "A", "", "43.06", "141.34", "3", "0"),
		memberRow("M04", "A", "BadLat", "north", "141.34", "4", "0"),
		memberRow("M05", "A", "OutOfRange", "123", "141.34", "5", "0"),
		{"M06", "short row"},
		memberRow("M07", "B", "Suzuki", "43.07", "141.35", "7", "0"),
	}

	pins, dropped := Parse(rows, nil)
	assert.Equal(t, 5, dropped)
	require.Len(t, pins, 2)
	assert.Equal(t, "Sato", pins[0].Name)
	assert.Equal(t, "Suzuki", pins[1].Name)
	assert.Equal(t, FallbackColor, pins[1].Color)
}

func TestReadCSV(t *testing.T) {
	var b strings.Builder
	for _, r := range [][]string{
		memberRow("M01", "A", "Sato", "43.06", "141.34", "1", "1"),
		memberRow("M02", "A", "Tanaka", "", "141.34", "2", "1"),
	} {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\n")
	}

	pins, dropped, err := ReadCSV(strings.NewReader(b.String()), Palette{"#000000", "#FFFFFF"})
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, pins, 1)
	assert.Equal(t, "#FFFFFF", pins[0].Color)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, _, err := LoadCSV("does-not-exist.csv", nil)
	assert.Error(t, err)
}

func sheetsServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPins(t *testing.T) {
	var calls atomic.Int32
	srv := sheetsServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		switch r.URL.Path {
		case "/book/values/Members!A3:AB":
			_ = json.NewEncoder(w).Encode(valueRange{Values: [][]string{
				memberRow("M01", "A", "Sato", "43.06", "141.34", "1", "1"),
				memberRow("M02", "B", "Suzuki", "43.07", "141.35", "2", "0"),
				memberRow("M03", "B", "Broken", "", "", "3", "0"),
			}})
		case "/palette/values/Colors!E2:E":
			_ = json.NewEncoder(w).Encode(valueRange{Values: [][]string{{"#AA0000"}, {"#00BB00"}}})
		default:
			http.NotFound(w, r)
		}
	})

	c := NewClient("secret", WithBaseURL(srv.URL))
	pins, err := c.FetchPins(context.Background(), Source{
		SpreadsheetID:      "book",
		MemberSheet:        "Members",
		ColorSpreadsheetID: "palette",
		ColorSheet:         "Colors",
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, pins, 2)
	assert.Equal(t, "#00BB00", pins[0].Color)
	assert.Equal(t, "#AA0000", pins[1].Color)
}

func TestFetchPinsWithoutColorSheet(t *testing.T) {
	srv := sheetsServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(valueRange{Values: [][]string{
			memberRow("M01", "A", "Sato", "43.06", "141.34", "1", "1"),
		}})
	})

	pins, err := NewClient("", WithBaseURL(srv.URL)).FetchPins(context.Background(), Source{
		SpreadsheetID: "book",
		MemberSheet:   "Members",
	})
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, FallbackColor, pins[0].Color)
}

func TestFetchPinsStatusError(t *testing.T) {
	srv := sheetsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	})

	_, err := NewClient("bad", WithBaseURL(srv.URL)).FetchPins(context.Background(), Source{
		SpreadsheetID: "book",
		MemberSheet:   "Members",
	})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "API key not valid", se.Message)
	assert.Contains(t, se.Error(), "Members!A3:AB")
}

func TestFetchPinsRequiresSource(t *testing.T) {
	_, err := NewClient("k").FetchPins(context.Background(), Source{})
	assert.Error(t, err)
}

func TestFetchPinsHonoursContext(t *testing.T) {
	srv := sheetsServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("k", WithBaseURL(srv.URL)).FetchPins(ctx, Source{SpreadsheetID: "b", MemberSheet: "m"})
	assert.ErrorIs(t, err, context.Canceled)
}
