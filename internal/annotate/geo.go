package annotate

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// GeoPoint is a single WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts to orb's (x=lng, y=lat) ordering.
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Path is an ordered vertex sequence. The edge from the last vertex back to
// the first is implicit.
type Path []GeoPoint

// Clone returns a copy that shares no backing array with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Committable reports whether p may be stored as a polygon's path.
func (p Path) Committable() bool {
	return len(p) == 0 || len(p) >= 3
}

// Equal compares vertex sequences exactly.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Ring returns the path as an open orb ring.
func (p Path) Ring() orb.Ring {
	r := make(orb.Ring, 0, len(p))
	for _, pt := range p {
		r = append(r, pt.Point())
	}
	return r
}

// ClosedRing returns the path as a ring whose last point repeats the first,
// as GeoJSON requires.
func (p Path) ClosedRing() orb.Ring {
	r := p.Ring()
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

// Bound is the lat/lng bounding box of the path.
func (p Path) Bound() orb.Bound {
	return p.Ring().Bound()
}

// Translate shifts every vertex by the given deltas.
func (p Path) Translate(dLat, dLng float64) Path {
	out := make(Path, len(p))
	for i, pt := range p {
		out[i] = GeoPoint{Lat: pt.Lat + dLat, Lng: pt.Lng + dLng}
	}
	return out
}

// Centroid is the planar area centroid, falling back to the bound center for
// degenerate rings.
func (p Path) Centroid() GeoPoint {
	if len(p) == 0 {
		return GeoPoint{}
	}
	c, area := planar.CentroidArea(orb.Polygon{p.ClosedRing()})
	if area == 0 {
		c = p.Bound().Center()
	}
	return GeoPoint{Lat: c[1], Lng: c[0]}
}

// Pin is a point of interest supplied by the pin source. The core never
// mutates pins.
type Pin struct {
	ID            string  `json:"id" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Lat           float64 `json:"lat" validate:"latitude"`
	Lng           float64 `json:"lng" validate:"longitude"`
	Course        string  `json:"course"`
	DeliveryOrder string  `json:"delivery_order"`
	Color         string  `json:"color"`
}

func (p Pin) Point() GeoPoint {
	return GeoPoint{Lat: p.Lat, Lng: p.Lng}
}

// Geometry answers point-in-polygon questions for the pin query.
type Geometry interface {
	ContainsPoint(pt GeoPoint, path Path) bool
}

// PlanarGeometry treats lat/lng as planar coordinates and applies the
// even-odd rule. Points on an edge count as inside.
type PlanarGeometry struct{}

func (PlanarGeometry) ContainsPoint(pt GeoPoint, path Path) bool {
	if len(path) < 3 {
		return false
	}
	return planar.RingContains(path.Ring(), pt.Point())
}
