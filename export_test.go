package main

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinmap/internal/annotate"
)

func exportModel(t *testing.T) (model, annotate.Handle) {
	t.Helper()
	m := newTestModel(t)
	inside := m.canvas.ToGeo(20, 8)
	outside := m.canvas.ToGeo(60, 20)
	pins := []annotate.Pin{
		{ID: "1", Name: "Sato", Lat: inside.Lat, Lng: inside.Lng, Course: "A", Color: "#0000FF"},
		{ID: "2", Name: "Suzuki", Lat: outside.Lat, Lng: outside.Lng, Course: "B", Color: "#00AA00"},
	}
	next, _ := m.Update(pinsLoadedMsg{pins: pins, source: "test"})
	m = next.(model)
	return drawTriangle(t, m)
}

func TestExportGeoJSON(t *testing.T) {
	m, h := exportModel(t)
	path := filepath.Join(t.TempDir(), "map.geojson")
	require.NoError(t, m.exportGeoJSON(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)

	poly := fc.Features[0]
	assert.Equal(t, string(h), poly.ID)
	_, ok := poly.Geometry.(orb.Polygon)
	assert.True(t, ok)
	assert.Equal(t, true, poly.Properties["selected"])
	assert.Equal(t, []interface{}{"1"}, poly.Properties["pins"])

	pin := fc.Features[1]
	_, ok = pin.Geometry.(orb.Point)
	assert.True(t, ok)
	assert.Equal(t, "Sato", pin.Properties.MustString("name"))
	assert.Equal(t, "#0000FF", pin.Properties.MustString("marker-color"))
}

func TestExportVisualTXT(t *testing.T) {
	m, _ := exportModel(t)
	path := filepath.Join(t.TempDir(), "map.txt")
	require.NoError(t, m.exportVisualTXT(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	assert.Len(t, lines, 24)
	assert.Contains(t, string(raw), "◉")
	assert.NotContains(t, string(raw), "█", "the cursor is not part of the export")
}

func TestExportPNG(t *testing.T) {
	m, _ := exportModel(t)
	path := filepath.Join(t.TempDir(), "map.png")
	require.NoError(t, m.exportPNG(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), int(2*pngPadding))
	assert.Greater(t, img.Bounds().Dy(), int(2*pngPadding))
}

func TestExportPNGEmptyCanvas(t *testing.T) {
	m := newTestModel(t)
	assert.Error(t, m.exportPNG(filepath.Join(t.TempDir(), "empty.png")))
}

func TestWithExtension(t *testing.T) {
	assert.Equal(t, "map.png", withExtension("map", FileOpSavePNG))
	assert.Equal(t, "map.PNG", withExtension("map.PNG", FileOpSavePNG))
	assert.Equal(t, "map.geojson", withExtension("map", FileOpSaveGeoJSON))
	assert.Equal(t, "map.png.txt", withExtension("map.png", FileOpSaveVisualTXT))
}

func TestRGBAFallsBackToBlack(t *testing.T) {
	r, g, b, a := rgba("#FF0000", 0.5)
	assert.Equal(t, []float64{1, 0, 0, 0.5}, []float64{r, g, b, a})

	r, g, b, a = rgba("nope", 1)
	assert.Equal(t, []float64{0, 0, 0, 1}, []float64{r, g, b, a})
}
