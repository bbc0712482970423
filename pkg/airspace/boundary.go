// Package airspace provides the region-of-interest geometry used to decide
// whether an aircraft position falls inside the monitored airspace.
//
// A Boundary is an immutable closed polygon in WGS84 lat/lon degrees plus a
// precomputed bounding rectangle used as a cheap pre-filter. All methods are
// safe for concurrent use.
package airspace

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Vertex is a single polygon vertex in decimal degrees.
type Vertex struct {
	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude"`
}

// Boundary is an immutable airspace polygon with a bounding-box pre-filter.
type Boundary struct {
	name    string
	polygon orb.Polygon
	bound   orb.Bound
}

// NewBoundary builds a Boundary from an ordered vertex list.
// The ring is closed automatically if the last vertex does not repeat the
// first. At least three distinct vertices are required.
func NewBoundary(name string, vertices []Vertex) (*Boundary, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("airspace: boundary %q needs at least 3 vertices, got %d", name, len(vertices))
	}

	for i, v := range vertices {
		if !isFinite(v.Latitude) || !isFinite(v.Longitude) {
			return nil, fmt.Errorf("airspace: boundary %q vertex %d is not finite", name, i)
		}
		if math.Abs(v.Latitude) > 90 || math.Abs(v.Longitude) > 180 {
			return nil, fmt.Errorf("airspace: boundary %q vertex %d out of range (%.4f, %.4f)",
				name, i, v.Latitude, v.Longitude)
		}
	}

	ring := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		// orb points are (lon, lat)
		ring = append(ring, orb.Point{v.Longitude, v.Latitude})
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	polygon := orb.Polygon{ring}
	return &Boundary{
		name:    name,
		polygon: polygon,
		bound:   polygon.Bound(),
	}, nil
}

// Name returns the friendly boundary name from configuration.
func (b *Boundary) Name() string { return b.name }

// Contains reports whether the point lies inside the boundary polygon.
// Non-finite or out-of-range coordinates return false without error.
// The bounding-box rejection is a pure optimization; the result is always
// identical to running the polygon test alone.
func (b *Boundary) Contains(lat, lon float64) bool {
	if !isFinite(lat) || !isFinite(lon) {
		return false
	}
	if math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return false
	}

	p := orb.Point{lon, lat}
	if !b.bound.Contains(p) {
		return false
	}
	return planar.PolygonContains(b.polygon, p)
}

// BoundingBox returns the polygon's bounding rectangle as
// (latMin, latMax, lonMin, lonMax). Used to narrow upstream queries.
func (b *Boundary) BoundingBox() (latMin, latMax, lonMin, lonMax float64) {
	return b.bound.Min.Y(), b.bound.Max.Y(), b.bound.Min.X(), b.bound.Max.X()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
