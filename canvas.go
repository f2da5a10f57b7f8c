package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"pinmap/internal/annotate"
)

const (
	minZoom = 1.0
	maxZoom = 21.0
	// Terminal columns covered by one 256px web map tile.
	colsPerTile = 32.0
	// Zoom from which pins show their delivery order.
	pinLabelZoom = 18.0
)

// Polygon is a shape drawn on the canvas. The canvas owns its path; the
// annotation core only sees it through the Surface methods.
type Polygon struct {
	Handle    annotate.Handle
	Path      annotate.Path
	Style     annotate.Style
	Editable  bool
	Draggable bool
}

// Canvas is the terminal map. It projects pins and polygons onto cells and
// turns gestures into annotate events.
type Canvas struct {
	pins     []annotate.Pin
	polygons map[annotate.Handle]*Polygon
	order    []annotate.Handle
	draft    annotate.Path
	drawing  bool

	center annotate.GeoPoint
	zoom   float64
	width  int
	height int

	geom      annotate.PlanarGeometry
	emit      func(annotate.Event)
	newHandle func() annotate.Handle
}

func NewCanvas(center annotate.GeoPoint, zoom float64) *Canvas {
	return &Canvas{
		polygons:  make(map[annotate.Handle]*Polygon),
		center:    center,
		zoom:      clampZoom(zoom),
		width:     80,
		height:    24,
		newHandle: func() annotate.Handle { return annotate.Handle(uuid.NewString()) },
	}
}

// OnEvent sets the receiver of gesture events.
func (c *Canvas) OnEvent(fn func(annotate.Event)) { c.emit = fn }

func (c *Canvas) send(t annotate.EventType, h annotate.Handle) {
	if c.emit != nil {
		c.emit(annotate.Event{Type: t, Handle: h})
	}
}

func (c *Canvas) SetPins(pins []annotate.Pin) {
	c.pins = append([]annotate.Pin(nil), pins...)
}

func (c *Canvas) Pins() []annotate.Pin { return c.pins }

// Polygons returns the shapes in drawing order.
func (c *Canvas) Polygons() []Polygon {
	out := make([]Polygon, 0, len(c.order))
	for _, h := range c.order {
		p := *c.polygons[h]
		p.Path = p.Path.Clone()
		out = append(out, p)
	}
	return out
}

func (c *Canvas) polygon(h annotate.Handle) (*Polygon, error) {
	p, ok := c.polygons[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", annotate.ErrUnknownPolygon, h)
	}
	return p, nil
}

func (c *Canvas) Path(h annotate.Handle) (annotate.Path, bool) {
	p, ok := c.polygons[h]
	if !ok {
		return nil, false
	}
	return p.Path.Clone(), true
}

func (c *Canvas) SetPath(h annotate.Handle, path annotate.Path) error {
	p, err := c.polygon(h)
	if err != nil {
		return err
	}
	p.Path = path.Clone()
	return nil
}

func (c *Canvas) SetStyle(h annotate.Handle, s annotate.Style) error {
	p, err := c.polygon(h)
	if err != nil {
		return err
	}
	p.Style = s
	return nil
}

func (c *Canvas) SetEditable(h annotate.Handle, editable, draggable bool) error {
	p, err := c.polygon(h)
	if err != nil {
		return err
	}
	p.Editable = editable
	p.Draggable = draggable
	return nil
}

func (c *Canvas) Remove(h annotate.Handle) error {
	if _, err := c.polygon(h); err != nil {
		return err
	}
	delete(c.polygons, h)
	for i, o := range c.order {
		if o == h {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Viewport

func clampZoom(z float64) float64 {
	return math.Max(minZoom, math.Min(maxZoom, z))
}

func (c *Canvas) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	c.width, c.height = width, height
}

func (c *Canvas) Size() (int, int) { return c.width, c.height }

func (c *Canvas) Center() annotate.GeoPoint { return c.center }

func (c *Canvas) Zoom() float64 { return c.zoom }

// ZoomBy changes the zoom level, keeping the center fixed.
func (c *Canvas) ZoomBy(delta float64) {
	c.zoom = clampZoom(c.zoom + delta)
}

// Pan moves the view by whole cells.
func (c *Canvas) Pan(dx, dy int) {
	c.center.Lng += float64(dx) / c.colsPerDegree()
	c.center.Lat -= float64(dy) / c.rowsPerDegree()
}

func (c *Canvas) colsPerDegree() float64 {
	return colsPerTile * math.Pow(2, c.zoom) / 360
}

// Cells are about twice as tall as wide, and latitude degrees are stretched
// by 1/cos(lat) the way a web mercator map stretches them near the center.
func (c *Canvas) rowsPerDegree() float64 {
	cos := math.Cos(c.center.Lat * math.Pi / 180)
	if cos < 0.01 {
		cos = 0.01
	}
	return c.colsPerDegree() / (2 * cos)
}

// ToScreen projects p to fractional cell coordinates.
func (c *Canvas) ToScreen(p annotate.GeoPoint) (float64, float64) {
	x := float64(c.width)/2 + (p.Lng-c.center.Lng)*c.colsPerDegree()
	y := float64(c.height)/2 - (p.Lat-c.center.Lat)*c.rowsPerDegree()
	return x, y
}

// ToGeo returns the location at the middle of cell (x, y).
func (c *Canvas) ToGeo(x, y int) annotate.GeoPoint {
	return annotate.GeoPoint{
		Lat: c.center.Lat - (float64(y)+0.5-float64(c.height)/2)/c.rowsPerDegree(),
		Lng: c.center.Lng + (float64(x)+0.5-float64(c.width)/2)/c.colsPerDegree(),
	}
}

func (c *Canvas) cellOf(p annotate.GeoPoint) (int, int) {
	x, y := c.ToScreen(p)
	return int(math.Floor(x)), int(math.Floor(y))
}

// Gestures

func (c *Canvas) StartDraw() {
	c.drawing = true
	c.draft = nil
	c.send(annotate.DrawStarted, "")
}

func (c *Canvas) Drawing() bool { return c.drawing }

func (c *Canvas) DraftLen() int { return len(c.draft) }

func (c *Canvas) AddDraftVertex(x, y int) {
	if !c.drawing {
		return
	}
	c.draft = append(c.draft, c.ToGeo(x, y))
}

// FinishDraw places the draft on the map and reports it, whatever its size.
// Shapes too small to be polygons are dropped by the receiver.
func (c *Canvas) FinishDraw() annotate.Handle {
	if !c.drawing {
		return ""
	}
	h := c.newHandle()
	c.polygons[h] = &Polygon{Handle: h, Path: c.draft, Style: annotate.DefaultStyle(annotate.DefaultColor)}
	c.order = append(c.order, h)
	c.drawing = false
	c.draft = nil
	c.send(annotate.DrawCompleted, h)
	return h
}

func (c *Canvas) CancelDraw() {
	if !c.drawing {
		return
	}
	c.drawing = false
	c.draft = nil
	c.send(annotate.DrawCancelled, "")
}

// PolygonAt returns the topmost polygon covering cell (x, y).
func (c *Canvas) PolygonAt(x, y int) (annotate.Handle, bool) {
	pt := c.ToGeo(x, y)
	for i := len(c.order) - 1; i >= 0; i-- {
		p := c.polygons[c.order[i]]
		if c.geom.ContainsPoint(pt, p.Path) {
			return p.Handle, true
		}
	}
	return "", false
}

// pinLabel is the delivery order drawn in place of the pin glyph once the
// map is zoomed in far enough to leave room for it.
func (c *Canvas) pinLabel(pin annotate.Pin) []rune {
	if c.zoom < pinLabelZoom {
		return nil
	}
	return []rune(strings.TrimSpace(pin.DeliveryOrder))
}

// PinAt returns the pin drawn at cell (x, y). Pins drawn later cover
// earlier ones.
func (c *Canvas) PinAt(x, y int) (annotate.Pin, bool) {
	for i := len(c.pins) - 1; i >= 0; i-- {
		pin := c.pins[i]
		px, py := c.cellOf(pin.Point())
		width := max(len(c.pinLabel(pin)), 1)
		if y == py && x >= px && x < px+width {
			return pin, true
		}
	}
	return annotate.Pin{}, false
}

// Click reports a click on the polygon under (x, y), if any.
func (c *Canvas) Click(x, y int) (annotate.Handle, bool) {
	h, ok := c.PolygonAt(x, y)
	if ok {
		c.send(annotate.Clicked, h)
	}
	return h, ok
}

// ClickHandle reports a click on h without hit testing.
func (c *Canvas) ClickHandle(h annotate.Handle) {
	if _, ok := c.polygons[h]; ok {
		c.send(annotate.Clicked, h)
	}
}

// Handles lists polygons in drawing order.
func (c *Canvas) Handles() []annotate.Handle {
	return append([]annotate.Handle(nil), c.order...)
}

func (c *Canvas) BeginDrag(h annotate.Handle) bool {
	p, ok := c.polygons[h]
	if !ok || !p.Draggable {
		return false
	}
	c.send(annotate.DragStarted, h)
	return true
}

// DragBy shifts the whole polygon by dx, dy cells.
func (c *Canvas) DragBy(h annotate.Handle, dx, dy int) {
	p, ok := c.polygons[h]
	if !ok || !p.Draggable || (dx == 0 && dy == 0) {
		return
	}
	p.Path = p.Path.Translate(-float64(dy)/c.rowsPerDegree(), float64(dx)/c.colsPerDegree())
	c.send(annotate.VertexChanged, h)
}

func (c *Canvas) EndDrag(h annotate.Handle) {
	if _, ok := c.polygons[h]; ok {
		c.send(annotate.DragEnded, h)
	}
}

// screenDist weighs rows double since cells are twice as tall as wide.
func screenDist(ax, ay, bx, by float64) float64 {
	return math.Hypot(ax-bx, 2*(ay-by))
}

// NearestVertex finds the vertex of h closest to cell (x, y).
func (c *Canvas) NearestVertex(h annotate.Handle, x, y int) (int, bool) {
	p, ok := c.polygons[h]
	if !ok || len(p.Path) == 0 {
		return -1, false
	}
	px, py := float64(x)+0.5, float64(y)+0.5
	best, bestD := -1, math.Inf(1)
	for i, v := range p.Path {
		vx, vy := c.ToScreen(v)
		if d := screenDist(vx, vy, px, py); d < bestD {
			best, bestD = i, d
		}
	}
	return best, true
}

// PreviewVertex moves vertex i to (x, y) without reporting it, as while the
// vertex is being dragged.
func (c *Canvas) PreviewVertex(h annotate.Handle, i, x, y int) {
	p, ok := c.polygons[h]
	if !ok || !p.Editable || i < 0 || i >= len(p.Path) {
		return
	}
	p.Path[i] = c.ToGeo(x, y)
}

// RestoreVertex puts vertex i back without reporting it.
func (c *Canvas) RestoreVertex(h annotate.Handle, i int, pt annotate.GeoPoint) {
	p, ok := c.polygons[h]
	if !ok || i < 0 || i >= len(p.Path) {
		return
	}
	p.Path[i] = pt
}

// DropVertex reports the end of a vertex drag.
func (c *Canvas) DropVertex(h annotate.Handle) {
	if p, ok := c.polygons[h]; ok && p.Editable {
		c.send(annotate.VertexChanged, h)
	}
}

// InsertVertex splits the edge of h nearest to (x, y) at that cell.
func (c *Canvas) InsertVertex(h annotate.Handle, x, y int) bool {
	p, ok := c.polygons[h]
	if !ok || !p.Editable || len(p.Path) < 2 {
		return false
	}
	px, py := float64(x)+0.5, float64(y)+0.5
	edge, bestD := 0, math.Inf(1)
	for i := range p.Path {
		ax, ay := c.ToScreen(p.Path[i])
		bx, by := c.ToScreen(p.Path[(i+1)%len(p.Path)])
		if d := segmentDist(ax, ay, bx, by, px, py); d < bestD {
			edge, bestD = i, d
		}
	}
	path := make(annotate.Path, 0, len(p.Path)+1)
	path = append(path, p.Path[:edge+1]...)
	path = append(path, c.ToGeo(x, y))
	path = append(path, p.Path[edge+1:]...)
	p.Path = path
	c.send(annotate.VertexChanged, h)
	return true
}

// RemoveVertex deletes vertex i, refusing to leave fewer than three.
func (c *Canvas) RemoveVertex(h annotate.Handle, i int) bool {
	p, ok := c.polygons[h]
	if !ok || !p.Editable || len(p.Path) <= 3 || i < 0 || i >= len(p.Path) {
		return false
	}
	path := make(annotate.Path, 0, len(p.Path)-1)
	path = append(path, p.Path[:i]...)
	path = append(path, p.Path[i+1:]...)
	p.Path = path
	c.send(annotate.VertexChanged, h)
	return true
}

func segmentDist(ax, ay, bx, by, px, py float64) float64 {
	dx, dy := bx-ax, (by-ay)*2
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return screenDist(ax, ay, px, py)
	}
	t := ((px-ax)*dx + (py-ay)*2*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return screenDist(ax+t*(bx-ax), ay+t*(by-ay), px, py)
}

// Rendering

type cell struct {
	r     rune
	color string
	bold  bool
	faint bool
	rev   bool
}

func blankGrid(width, height int) [][]cell {
	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
		for j := range grid[i] {
			grid[i][j] = cell{r: ' '}
		}
	}
	return grid
}

func isValidPos(grid [][]cell, x, y int) bool {
	return y >= 0 && y < len(grid) && x >= 0 && x < len(grid[0])
}

func setCell(grid [][]cell, x, y int, c cell) {
	if isValidPos(grid, x, y) {
		grid[y][x] = c
	}
}

// drawLine plots a Bresenham line, choosing a glyph per step from its
// direction.
func drawLine(grid [][]cell, x0, y0, x1, y1 int, color string, bold bool) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for steps := 0; steps < 4096; steps++ {
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		nx, ny := x0, y0
		if e2 >= dy {
			err += dy
			nx += sx
		}
		if e2 <= dx {
			err += dx
			ny += sy
		}
		glyph := '•'
		switch {
		case nx != x0 && ny != y0:
			if (nx-x0)*(ny-y0) > 0 {
				glyph = '╲'
			} else {
				glyph = '╱'
			}
		case nx != x0:
			glyph = '─'
		case ny != y0:
			glyph = '│'
		}
		setCell(grid, x0, y0, cell{r: glyph, color: color, bold: bold})
		x0, y0 = nx, ny
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (c *Canvas) drawPolygon(grid [][]cell, p *Polygon, selected bool) {
	if len(p.Path) == 0 {
		return
	}
	if selected && len(p.Path) >= 3 {
		minX, minY, maxX, maxY := c.width, c.height, -1, -1
		for _, v := range p.Path {
			x, y := c.cellOf(v)
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
		for y := max(minY, 0); y <= min(maxY, c.height-1); y++ {
			for x := max(minX, 0); x <= min(maxX, c.width-1); x++ {
				if c.geom.ContainsPoint(c.ToGeo(x, y), p.Path) {
					setCell(grid, x, y, cell{r: '·', color: p.Style.Fill, faint: true})
				}
			}
		}
	}

	for i := range p.Path {
		x0, y0 := c.cellOf(p.Path[i])
		x1, y1 := c.cellOf(p.Path[(i+1)%len(p.Path)])
		drawLine(grid, x0, y0, x1, y1, p.Style.Stroke, selected)
	}

	marker := '•'
	if selected && p.Editable {
		marker = '◆'
	}
	for _, v := range p.Path {
		x, y := c.cellOf(v)
		setCell(grid, x, y, cell{r: marker, color: p.Style.Stroke, bold: selected})
	}
}

func (c *Canvas) layout(selected annotate.Handle, cursorX, cursorY int, showCursor bool) [][]cell {
	grid := blankGrid(c.width, c.height)

	for _, h := range c.order {
		if h != selected {
			c.drawPolygon(grid, c.polygons[h], false)
		}
	}
	if p, ok := c.polygons[selected]; ok {
		c.drawPolygon(grid, p, true)
	}

	if c.drawing {
		for i := 1; i < len(c.draft); i++ {
			x0, y0 := c.cellOf(c.draft[i-1])
			x1, y1 := c.cellOf(c.draft[i])
			drawLine(grid, x0, y0, x1, y1, annotate.DefaultColor, false)
		}
		if n := len(c.draft); n > 0 && showCursor {
			x0, y0 := c.cellOf(c.draft[n-1])
			drawLine(grid, x0, y0, cursorX, cursorY, annotate.DefaultColor, false)
		}
		for _, v := range c.draft {
			x, y := c.cellOf(v)
			setCell(grid, x, y, cell{r: '+', color: annotate.DefaultColor, bold: true})
		}
	}

	var inside map[string]bool
	if p, ok := c.polygons[selected]; ok {
		inside = make(map[string]bool)
		for _, pin := range annotate.NewPinQuery(c.geom).PinsInside(p.Path, c.pins) {
			inside[pin.ID] = true
		}
	}
	for _, pin := range c.pins {
		x, y := c.cellOf(pin.Point())
		mark := cell{r: '●', color: pin.Color}
		if inside[pin.ID] {
			mark = cell{r: '◉', color: pin.Color, bold: true}
		}
		label := c.pinLabel(pin)
		if len(label) == 0 {
			setCell(grid, x, y, mark)
			continue
		}
		// Pins inside the selection keep standing out once labelled.
		mark.rev = inside[pin.ID]
		for i, r := range label {
			mark.r = r
			setCell(grid, x+i, y, mark)
		}
	}

	if showCursor && isValidPos(grid, cursorX, cursorY) {
		cur := grid[cursorY][cursorX]
		if cur.r == ' ' {
			grid[cursorY][cursorX] = cell{r: '█'}
		} else {
			cur.rev = true
			grid[cursorY][cursorX] = cur
		}
	}
	return grid
}

func (cl cell) style() lipgloss.Style {
	s := lipgloss.NewStyle()
	if cl.color != "" {
		s = s.Foreground(lipgloss.Color(cl.color))
	}
	return s.Bold(cl.bold).Faint(cl.faint).Reverse(cl.rev)
}

// Render draws the map with colors. Runs of cells sharing a style are
// rendered together.
func (c *Canvas) Render(selected annotate.Handle, cursorX, cursorY int, showCursor bool) []string {
	grid := c.layout(selected, cursorX, cursorY, showCursor)
	result := make([]string, len(grid))
	for i, row := range grid {
		var line strings.Builder
		var run []rune
		var runCell cell
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runCell.color == "" && !runCell.bold && !runCell.faint && !runCell.rev {
				line.WriteString(string(run))
			} else {
				line.WriteString(runCell.style().Render(string(run)))
			}
			run = run[:0]
		}
		for _, cl := range row {
			key := cl
			key.r = 0
			prev := runCell
			prev.r = 0
			if len(run) > 0 && key != prev {
				flush()
			}
			if len(run) == 0 {
				runCell = cl
			}
			run = append(run, cl.r)
		}
		flush()
		result[i] = line.String()
	}
	return result
}

// RenderPlain draws the map without styling or cursor.
func (c *Canvas) RenderPlain(selected annotate.Handle) []string {
	grid := c.layout(selected, -1, -1, false)
	result := make([]string, len(grid))
	for i, row := range grid {
		runes := make([]rune, len(row))
		for j, cl := range row {
			runes[j] = cl.r
		}
		result[i] = string(runes)
	}
	return result
}
