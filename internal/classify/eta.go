package classify

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/yegors/handoff-board/internal/physics"
)

// NotAvailable is the Center Estimate shown when no crossing time can be computed
const NotAvailable = "N/A"

// FixLocator resolves a waypoint name to its coordinate
type FixLocator interface {
	Location(name string) (orb.Point, bool)
}

// Estimator predicts when an aircraft reaches a fix flying a great-circle track at its current
// groundspeed
type Estimator struct {
	fixes FixLocator
}

// NewEstimator creates an estimator backed by the given fix table
func NewEstimator(fixes FixLocator) *Estimator {
	return &Estimator{fixes: fixes}
}

// Crossing returns the predicted crossing time of fix. ok is false when the fix has no coordinate,
// the position is invalid or the groundspeed is not a positive number.
func (e *Estimator) Crossing(now time.Time, lat, lon float64, fix string, groundspeed float64) (time.Time, bool) {
	if !physics.ValidLatLon(lat, lon) {
		return time.Time{}, false
	}
	if math.IsNaN(groundspeed) || math.IsInf(groundspeed, 0) || groundspeed <= 0 {
		return time.Time{}, false
	}
	loc, ok := e.fixes.Location(fix)
	if !ok {
		return time.Time{}, false
	}

	distNM := physics.DistanceNM(lat, lon, loc.Lat(), loc.Lon())
	hours := distNM / groundspeed
	return now.Add(time.Duration(hours * float64(time.Hour))), true
}

// Estimate returns the crossing time of fix as "HH:MMZ", or NotAvailable
func (e *Estimator) Estimate(now time.Time, lat, lon float64, fix string, groundspeed float64) string {
	t, ok := e.Crossing(now, lat, lon, fix, groundspeed)
	if !ok {
		return NotAvailable
	}
	return FormatEstimate(t)
}

// FormatEstimate renders t as a UTC hour and minute with a trailing Z. Seconds are truncated.
func FormatEstimate(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%02d:%02dZ", t.Hour(), t.Minute())
}

// ParseEstimate parses an "HH:MMZ" string back into a minute of the day
func ParseEstimate(s string) (int, bool) {
	if len(s) != 6 || s[2] != ':' || s[5] != 'Z' {
		return 0, false
	}
	for i, c := range s[:5] {
		if i == 2 {
			continue
		}
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// WithinHorizon reports whether crossing lies between now and now+horizon. Both are full
// timestamps, so a crossing a day or more away is never mistaken for one later today.
func WithinHorizon(crossing, now time.Time, horizon time.Duration) bool {
	ahead := crossing.Sub(now)
	return ahead >= 0 && ahead <= horizon
}
