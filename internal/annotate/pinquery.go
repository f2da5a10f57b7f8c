package annotate

import "strings"

// PinQuery answers which pins fall inside a polygon path. It scans every pin
// against every edge; there is no spatial index.
type PinQuery struct {
	geom Geometry
}

// NewPinQuery returns a query backed by geom, or PlanarGeometry when nil.
func NewPinQuery(geom Geometry) PinQuery {
	if geom == nil {
		geom = PlanarGeometry{}
	}
	return PinQuery{geom: geom}
}

// PinsInside returns the pins whose coordinate lies inside path, in input
// order. Paths with fewer than 3 vertices contain nothing.
func (q PinQuery) PinsInside(path Path, pins []Pin) []Pin {
	out := []Pin{}
	if len(path) < 3 {
		return out
	}
	for _, pin := range pins {
		if q.geom.ContainsPoint(pin.Point(), path) {
			out = append(out, pin)
		}
	}
	return out
}

// JoinNames joins pin names with sep.
func JoinNames(pins []Pin, sep string) string {
	names := make([]string, len(pins))
	for i, p := range pins {
		names[i] = p.Name
	}
	return strings.Join(names, sep)
}
