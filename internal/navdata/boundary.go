package navdata

import (
	"github.com/yegors/handoff-board/internal/physics"
)

// ResolveStep records which stage of boundary resolution produced the fix
type ResolveStep int

const (
	StepNone ResolveStep = iota
	StepForward
	StepBackward
	StepRawFallback
)

func (s ResolveStep) String() string {
	switch s {
	case StepForward:
		return "forward"
	case StepBackward:
		return "backward"
	case StepRawFallback:
		return "raw"
	default:
		return "none"
	}
}

// Boundary is the outcome of boundary fix resolution for one sample
type Boundary struct {
	Fix        string      // Boundary fix name
	Step       ResolveStep // Which stage found it
	Nearest    string      // Nearest located route waypoint, empty if none
	NearestIdx int         // Index of Nearest in the expanded route, -1 if none
	NearestNM  float64     // Distance to Nearest
}

// NearestWaypoint returns the index of the route waypoint closest to (lat, lon) by great-circle
// distance. Waypoints without a resolvable coordinate are skipped and ties keep the earliest
// entry. ok is false when no waypoint on the route has a coordinate.
func (idx *Index) NearestWaypoint(route []string, lat, lon float64) (i int, distNM float64, ok bool) {
	i = -1
	for j, name := range route {
		loc, found := idx.Location(name)
		if !found {
			continue
		}
		d := physics.DistanceNM(lat, lon, loc.Lat(), loc.Lon())
		if i == -1 || d < distNM {
			i, distNM = j, d
		}
	}
	return i, distNM, i != -1
}

// ResolveBoundary finds the boundary fix relevant to an aircraft at (lat, lon) flying the
// expanded route. It looks forward from the nearest route waypoint first, then backward from it,
// and finally falls back to the first boundary fix named literally in the raw route string.
func (idx *Index) ResolveBoundary(route []string, raw string, lat, lon float64) (Boundary, bool) {
	b := Boundary{NearestIdx: -1}

	if n, d, ok := idx.NearestWaypoint(route, lat, lon); ok {
		b.Nearest, b.NearestIdx, b.NearestNM = route[n], n, d

		for j := n + 1; j < len(route); j++ {
			if idx.IsBoundaryFix(route[j]) {
				b.Fix, b.Step = route[j], StepForward
				return b, true
			}
		}
		for j := n; j >= 0; j-- {
			if idx.IsBoundaryFix(route[j]) {
				b.Fix, b.Step = route[j], StepBackward
				return b, true
			}
		}
	}

	for _, tok := range Tokenize(raw) {
		if idx.IsBoundaryFix(tok) {
			b.Fix, b.Step = tok, StepRawFallback
			return b, true
		}
	}

	return b, false
}
