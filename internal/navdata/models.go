package navdata

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/yegors/handoff-board/internal/physics"
)

// ErrInvalidNavdata is returned when reference data fails load-time validation
var ErrInvalidNavdata = errors.New("invalid navdata")

// RawWaypoint is a waypoint as it appears in a navdata file
type RawWaypoint struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

// RawNavdata is the on-disk navdata document before validation
type RawNavdata struct {
	Waypoints     []RawWaypoint       `json:"waypoints"`
	Airways       map[string][]string `json:"airways"`
	BoundaryFixes []string            `json:"boundary_fixes"`
}

// Waypoint is an immutable named fix. Location is [lon, lat]; HasLocation is false for fixes
// that only appear on an airway and have no coordinate in the reference data.
type Waypoint struct {
	Name        string    `json:"name"`
	Location    orb.Point `json:"location"`
	HasLocation bool      `json:"has_location"`
	Boundary    bool      `json:"boundary"`
}

// Lat returns the waypoint latitude
func (w Waypoint) Lat() float64 { return w.Location.Lat() }

// Lon returns the waypoint longitude
func (w Waypoint) Lon() float64 { return w.Location.Lon() }

// Index holds the waypoint, airway and boundary fix tables. It is built once at startup and never
// mutated afterwards, so it is safe for concurrent readers.
type Index struct {
	waypoints map[string]Waypoint
	airways   map[string][]string
	boundary  []string
}

// Stats summarises the size of an index
type Stats struct {
	Waypoints     int `json:"waypoints"`
	Unlocated     int `json:"unlocated"`
	Airways       int `json:"airways"`
	BoundaryFixes int `json:"boundary_fixes"`
}

// NewIndex validates raw navdata and builds an index from it
func NewIndex(raw RawNavdata) (*Index, error) {
	idx := &Index{
		waypoints: make(map[string]Waypoint, len(raw.Waypoints)),
		airways:   make(map[string][]string, len(raw.Airways)),
	}

	for i, rw := range raw.Waypoints {
		name := normalizeName(rw.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: waypoint #%d has no name", ErrInvalidNavdata, i+1)
		}
		if rw.Lat == nil || rw.Lon == nil {
			return nil, fmt.Errorf("%w: waypoint %s is missing lat/lon", ErrInvalidNavdata, name)
		}
		lat, lon := *rw.Lat, *rw.Lon
		if !physics.ValidLatLon(lat, lon) {
			return nil, fmt.Errorf("%w: waypoint %s has invalid coordinate (%f, %f)", ErrInvalidNavdata, name, lat, lon)
		}
		loc := orb.Point{lon, lat}
		if existing, ok := idx.waypoints[name]; ok {
			if existing.Location != loc {
				return nil, fmt.Errorf("%w: waypoint %s defined twice with different coordinates", ErrInvalidNavdata, name)
			}
			continue
		}
		idx.waypoints[name] = Waypoint{Name: name, Location: loc, HasLocation: true}
	}

	for id, fixes := range raw.Airways {
		airway := normalizeName(id)
		if airway == "" {
			return nil, fmt.Errorf("%w: airway with empty identifier", ErrInvalidNavdata)
		}
		if _, dup := idx.airways[airway]; dup {
			return nil, fmt.Errorf("%w: airway %s defined twice", ErrInvalidNavdata, airway)
		}
		if len(fixes) < 2 {
			return nil, fmt.Errorf("%w: airway %s has %d fixes (need at least 2)", ErrInvalidNavdata, airway, len(fixes))
		}

		seq := make([]string, 0, len(fixes))
		for j, f := range fixes {
			name := normalizeName(f)
			if name == "" {
				return nil, fmt.Errorf("%w: airway %s fix #%d has no name", ErrInvalidNavdata, airway, j+1)
			}
			if _, ok := idx.waypoints[name]; !ok {
				// Known by name only; its coordinate is unresolvable
				idx.waypoints[name] = Waypoint{Name: name}
			}
			seq = append(seq, name)
		}
		idx.airways[airway] = seq
	}

	seen := make(map[string]bool, len(raw.BoundaryFixes))
	for _, f := range raw.BoundaryFixes {
		name := normalizeName(f)
		if name == "" || seen[name] {
			continue
		}
		wp, ok := idx.waypoints[name]
		if !ok || !wp.HasLocation {
			return nil, fmt.Errorf("%w: boundary fix %s has no coordinate", ErrInvalidNavdata, name)
		}
		wp.Boundary = true
		idx.waypoints[name] = wp
		idx.boundary = append(idx.boundary, name)
		seen[name] = true
	}
	sort.Strings(idx.boundary)

	return idx, nil
}

// Waypoint returns the named waypoint
func (idx *Index) Waypoint(name string) (Waypoint, bool) {
	wp, ok := idx.waypoints[name]
	return wp, ok
}

// Location returns the coordinate of the named waypoint when it is resolvable
func (idx *Index) Location(name string) (orb.Point, bool) {
	wp, ok := idx.waypoints[name]
	if !ok || !wp.HasLocation {
		return orb.Point{}, false
	}
	return wp.Location, true
}

// Airway returns the stored (arbitrary direction) fix sequence of an airway
func (idx *Index) Airway(id string) ([]string, bool) {
	fixes, ok := idx.airways[id]
	return fixes, ok
}

// IsAirway reports whether the token is a known airway identifier
func (idx *Index) IsAirway(token string) bool {
	_, ok := idx.airways[token]
	return ok
}

// IsBoundaryFix reports whether the named waypoint is flagged as a boundary fix
func (idx *Index) IsBoundaryFix(name string) bool {
	wp, ok := idx.waypoints[name]
	return ok && wp.Boundary
}

// BoundaryFixes returns the boundary fix names in sorted order
func (idx *Index) BoundaryFixes() []string {
	out := make([]string, len(idx.boundary))
	copy(out, idx.boundary)
	return out
}

// UnlocatedFixes lists the waypoints known only by name, sorted
func (idx *Index) UnlocatedFixes() []string {
	var out []string
	for name, wp := range idx.waypoints {
		if !wp.HasLocation {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Stats returns table sizes for logging and health reporting
func (idx *Index) Stats() Stats {
	s := Stats{
		Waypoints:     len(idx.waypoints),
		Airways:       len(idx.airways),
		BoundaryFixes: len(idx.boundary),
	}
	for _, wp := range idx.waypoints {
		if !wp.HasLocation {
			s.Unlocated++
		}
	}
	return s
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
