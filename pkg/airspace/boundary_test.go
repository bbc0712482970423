package airspace

import (
	"math"
	"math/rand"
	"testing"
)

// turkeyBox mirrors the default monitored region: a rough box over Turkey.
var turkeyBox = []Vertex{
	{Latitude: 35.0, Longitude: 25.0},
	{Latitude: 35.0, Longitude: 45.5},
	{Latitude: 42.5, Longitude: 45.5},
	{Latitude: 42.5, Longitude: 25.0},
}

// anatolia is an irregular (convex-ish but not rectangular) polygon used to
// exercise the full point-in-polygon path beyond the bounding box.
var anatolia = []Vertex{
	{Latitude: 36.1, Longitude: 26.3},
	{Latitude: 35.7, Longitude: 33.9},
	{Latitude: 36.4, Longitude: 41.2},
	{Latitude: 39.8, Longitude: 44.7},
	{Latitude: 42.1, Longitude: 40.3},
	{Latitude: 41.9, Longitude: 31.6},
	{Latitude: 40.2, Longitude: 26.1},
}

func TestNewBoundary(t *testing.T) {
	t.Run("Too few vertices", func(t *testing.T) {
		if _, err := NewBoundary("bad", turkeyBox[:2]); err == nil {
			t.Error("Expected error for 2-vertex polygon")
		}
	})

	t.Run("Out of range vertex", func(t *testing.T) {
		bad := []Vertex{{91.0, 0.0}, {0.0, 0.0}, {1.0, 1.0}}
		if _, err := NewBoundary("bad", bad); err == nil {
			t.Error("Expected error for out-of-range vertex")
		}
	})

	t.Run("Non-finite vertex", func(t *testing.T) {
		bad := []Vertex{{math.NaN(), 0.0}, {0.0, 0.0}, {1.0, 1.0}}
		if _, err := NewBoundary("bad", bad); err == nil {
			t.Error("Expected error for NaN vertex")
		}
	})

	t.Run("Ring closed automatically", func(t *testing.T) {
		b, err := NewBoundary("turkey", turkeyBox)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if !b.Contains(39.0, 34.0) {
			t.Error("Expected center of box to be inside")
		}
	})

	t.Run("Pre-closed ring accepted", func(t *testing.T) {
		closed := append(append([]Vertex{}, turkeyBox...), turkeyBox[0])
		b, err := NewBoundary("turkey", closed)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if !b.Contains(39.0, 34.0) {
			t.Error("Expected center of box to be inside")
		}
	})
}

func TestContainsRejectsInvalidInput(t *testing.T) {
	b, err := NewBoundary("turkey", turkeyBox)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		lat, lon float64
	}{
		{"NaN lat", math.NaN(), 34.0},
		{"NaN lon", 39.0, math.NaN()},
		{"Inf lat", math.Inf(1), 34.0},
		{"Inf lon", 39.0, math.Inf(-1)},
		{"Lat over 90", 90.5, 34.0},
		{"Lat under -90", -91.0, 34.0},
		{"Lon over 180", 39.0, 180.5},
		{"Lon under -180", 39.0, -181.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if b.Contains(tc.lat, tc.lon) {
				t.Errorf("Contains(%v, %v) = true, want false", tc.lat, tc.lon)
			}
		})
	}
}

// TestContainsOutsideBoundingBox verifies the property that every point
// strictly outside the bounding rectangle is rejected.
func TestContainsOutsideBoundingBox(t *testing.T) {
	b, err := NewBoundary("anatolia", anatolia)
	if err != nil {
		t.Fatal(err)
	}

	latMin, latMax, lonMin, lonMax := b.BoundingBox()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		lat := -90 + rng.Float64()*180
		lon := -180 + rng.Float64()*360
		outside := lat < latMin || lat > latMax || lon < lonMin || lon > lonMax
		if !outside {
			continue
		}
		if b.Contains(lat, lon) {
			t.Fatalf("point (%.6f, %.6f) outside bounding box reported inside", lat, lon)
		}
	}
}

// TestContainsMatchesReference cross-checks Contains against an independent
// ray-casting implementation over random points in and around the polygon.
func TestContainsMatchesReference(t *testing.T) {
	b, err := NewBoundary("anatolia", anatolia)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		lat := 33.0 + rng.Float64()*12.0
		lon := 24.0 + rng.Float64()*23.0

		got := b.Contains(lat, lon)
		want := raycastContains(anatolia, lat, lon)
		if got != want {
			t.Fatalf("Contains(%.8f, %.8f) = %v, reference says %v", lat, lon, got, want)
		}
	}
}

// TestContainsVertexOrderIndependent verifies that reversing the vertex order
// (CW vs CCW winding) does not change membership results.
func TestContainsVertexOrderIndependent(t *testing.T) {
	fwd, err := NewBoundary("anatolia", anatolia)
	if err != nil {
		t.Fatal(err)
	}

	reversed := make([]Vertex, len(anatolia))
	for i, v := range anatolia {
		reversed[len(anatolia)-1-i] = v
	}
	rev, err := NewBoundary("anatolia-reversed", reversed)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 2000; i++ {
		lat := 33.0 + rng.Float64()*12.0
		lon := 24.0 + rng.Float64()*23.0
		if fwd.Contains(lat, lon) != rev.Contains(lat, lon) {
			t.Fatalf("winding order changed result at (%.8f, %.8f)", lat, lon)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	b, err := NewBoundary("turkey", turkeyBox)
	if err != nil {
		t.Fatal(err)
	}

	latMin, latMax, lonMin, lonMax := b.BoundingBox()
	if latMin != 35.0 || latMax != 42.5 || lonMin != 25.0 || lonMax != 45.5 {
		t.Errorf("BoundingBox() = (%v, %v, %v, %v), want (35, 42.5, 25, 45.5)",
			latMin, latMax, lonMin, lonMax)
	}
}

// raycastContains is a textbook even-odd ray-casting test, kept independent of
// the production implementation on purpose.
func raycastContains(vertices []Vertex, lat, lon float64) bool {
	inside := false
	n := len(vertices)
	j := n - 1
	for i := 0; i < n; i++ {
		yi, xi := vertices[i].Latitude, vertices[i].Longitude
		yj, xj := vertices[j].Latitude, vertices[j].Longitude
		if (yi > lat) != (yj > lat) {
			xCross := (xj-xi)*(lat-yi)/(yj-yi) + xi
			if lon < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
