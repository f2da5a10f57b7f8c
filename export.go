package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"pinmap/internal/annotate"
)

const (
	pngLongSide = 1200.0
	pngPadding  = 48.0
	pinRadius   = 5.0
)

func (m *model) exportVisualTXT(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	// The map exactly as it appears, without cursor or colors.
	for _, line := range m.canvas.RenderPlain(m.selected()) {
		fmt.Fprintln(file, line)
	}
	return nil
}

func (m *model) exportGeoJSON(filename string) error {
	fc := m.orch.FeatureCollection()
	for _, pin := range m.orch.Pins() {
		f := geojson.NewFeature(pin.Point().Point())
		f.ID = pin.ID
		f.Properties["name"] = pin.Name
		f.Properties["course"] = pin.Course
		f.Properties["delivery_order"] = pin.DeliveryOrder
		f.Properties["marker-color"] = pin.Color
		fc.Append(f)
	}
	raw, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return os.WriteFile(filename, raw, 0644)
}

func (m *model) exportPNG(filename string) error {
	return m.canvas.ExportToPNG(filename, m.selected())
}

// rgba parses a hex color, falling back to black.
func rgba(hex string, alpha float64) (float64, float64, float64, float64) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, 0, 0, alpha
	}
	return c.R, c.G, c.B, alpha
}

// ExportToPNG draws every polygon and pin, fitted to the image rather than
// to the current viewport.
func (c *Canvas) ExportToPNG(filename string, selected annotate.Handle) error {
	var points orb.MultiPoint
	for _, pin := range c.pins {
		points = append(points, pin.Point().Point())
	}
	for _, h := range c.order {
		for _, v := range c.polygons[h].Path {
			points = append(points, v.Point())
		}
	}
	if len(points) == 0 {
		return fmt.Errorf("nothing to export")
	}

	bound := points.Bound()
	kx := math.Cos(bound.Center().Y() * math.Pi / 180)
	spanX := (bound.Max.X() - bound.Min.X()) * kx
	spanY := bound.Max.Y() - bound.Min.Y()
	span := math.Max(spanX, spanY)
	if span == 0 {
		span = 0.001
	}
	scale := pngLongSide / span

	imageWidth := int(spanX*scale + 2*pngPadding)
	imageHeight := int(spanY*scale + 2*pngPadding)
	toPx := func(p annotate.GeoPoint) (float64, float64) {
		return pngPadding + (p.Lng-bound.Min.X())*kx*scale, pngPadding + (bound.Max.Y()-p.Lat)*scale
	}

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(color.White)
	dc.Clear()

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %v", err)
	}
	dc.SetFontFace(truetype.NewFace(ttfFont, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	}))

	for _, h := range c.order {
		p := c.polygons[h]
		if len(p.Path) < 3 {
			continue
		}
		for i, v := range p.Path {
			x, y := toPx(v)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		dc.SetRGBA(rgba(p.Style.Fill, p.Style.FillOpacity))
		dc.FillPreserve()
		dc.SetRGBA(rgba(p.Style.Stroke, p.Style.StrokeOpacity))
		width := p.Style.StrokeWeight
		if h == selected {
			width *= 2
		}
		dc.SetLineWidth(width)
		dc.Stroke()
	}

	for _, pin := range c.pins {
		x, y := toPx(pin.Point())
		dc.DrawCircle(x, y, pinRadius)
		dc.SetRGBA(rgba(pin.Color, 1))
		dc.Fill()
		dc.SetColor(color.Black)
		dc.DrawString(pin.Name, x+pinRadius+3, y+4)
	}

	return dc.SavePNG(filename)
}
