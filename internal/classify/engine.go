package classify

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/yegors/handoff-board/internal/airspace"
	"github.com/yegors/handoff-board/internal/navdata"
	"github.com/yegors/handoff-board/internal/physics"
)

const (
	// DefaultMaxListLength caps each published list
	DefaultMaxListLength = 15

	// DefaultHorizon is how far ahead a Center Estimate may be and still be shown
	DefaultHorizon = 45 * time.Minute

	// machDivisor turns groundspeed into the rough display Mach number used by the board
	machDivisor = 666.0

	statusDefault = "red"
)

// Sample is one aircraft report from the feed. Pointer fields are nil when the feed omitted them.
type Sample struct {
	ID          string
	Callsign    string
	Route       string
	Destination string
	Lat         *float64
	Lon         *float64
	Heading     *float64
	Groundspeed *float64
	Altitude    int
	ObservedAt  time.Time
	Malformed   bool // the feed record could not be decoded; only ID and Callsign may be set
}

// Track is a classified aircraft as sent to viewers. JSON names match what the board expects.
type Track struct {
	ID             string    `json:"id"`
	Callsign       string    `json:"Callsign"`
	Waypoint       string    `json:"Waypoint"`
	Route          string    `json:"Route"`
	CenterEstimate string    `json:"Center Estimate"`
	Heading        float64   `json:"Heading"`
	Altitude       int       `json:"Altitude"`
	Mach           string    `json:"Mach"`
	Status         string    `json:"Status"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	Direction      Direction `json:"direction"`
	Region         string    `json:"region"`
	UTC            int64     `json:"utc"`

	ObservedAt time.Time `json:"-"`
}

// Result is the output of one processing cycle
type Result struct {
	Inbound   []Track        `json:"inbound"`
	Outbound  []Track        `json:"outbound"`
	Processed int            `json:"processed"`
	Dropped   map[string]int `json:"dropped"`
}

// Config tunes the engine
type Config struct {
	Rules          []Rule
	Horizon        time.Duration
	MaxListLength  int
	MagneticArcs   bool // arcs are magnetic; true headings are converted before classification
	RouteCacheSize int
}

// RegionLocator answers point-in-region queries
type RegionLocator interface {
	RegionOf(lat, lon float64) *airspace.Region
}

// Engine runs the per-sample pipeline: region, route expansion, boundary fix, estimate,
// classification and horizon filter
type Engine struct {
	regions    RegionLocator
	nav        *navdata.Index
	expander   *navdata.CachedExpander
	estimator  *Estimator
	classifier *Classifier
	cfg        Config
}

// NewEngine creates an engine over the loaded reference tables
func NewEngine(regions RegionLocator, nav *navdata.Index, cfg Config) (*Engine, error) {
	if regions == nil || nav == nil {
		return nil, errors.New("engine requires regions and navdata")
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.MaxListLength <= 0 {
		cfg.MaxListLength = DefaultMaxListLength
	}

	classifier, err := NewClassifier(cfg.Rules)
	if err != nil {
		return nil, err
	}
	expander, err := navdata.NewCachedExpander(nav, cfg.RouteCacheSize)
	if err != nil {
		return nil, err
	}

	return &Engine{
		regions:    regions,
		nav:        nav,
		expander:   expander,
		estimator:  NewEstimator(nav),
		classifier: classifier,
		cfg:        cfg,
	}, nil
}

// Process classifies a batch of samples. Each sample is handled on its own and one bad sample
// never affects another. An aircraft id is emitted at most once, in the first list it qualifies
// for. Both lists are ordered by observation time, earliest first, and capped.
func (e *Engine) Process(samples []Sample, now time.Time) Result {
	res := Result{
		Inbound:   []Track{},
		Outbound:  []Track{},
		Processed: len(samples),
		Dropped:   make(map[string]int),
	}

	seen := make(map[string]bool, len(samples))
	for _, s := range samples {
		track, reason := e.Classify(s, now)
		if !reason.Classified() {
			res.Dropped[reason.String()]++
			continue
		}
		if seen[s.ID] {
			res.Dropped[ReasonDuplicate.String()]++
			continue
		}
		seen[s.ID] = true

		if track.Direction == Outbound {
			res.Outbound = append(res.Outbound, track)
		} else {
			res.Inbound = append(res.Inbound, track)
		}
	}

	res.Inbound = rank(res.Inbound, e.cfg.MaxListLength)
	res.Outbound = rank(res.Outbound, e.cfg.MaxListLength)
	return res
}

// Classify runs the pipeline for one sample and returns the track with the reason it ended on
func (e *Engine) Classify(s Sample, now time.Time) (Track, Reason) {
	if s.Malformed {
		return Track{}, ReasonMalformed
	}
	if s.Lat == nil || s.Lon == nil || !physics.ValidLatLon(*s.Lat, *s.Lon) {
		return Track{}, ReasonNoPosition
	}
	lat, lon := *s.Lat, *s.Lon

	region := e.regions.RegionOf(lat, lon)
	if region == nil {
		return Track{}, ReasonNoRegion
	}

	route := e.expander.Expand(s.Route)
	boundary, ok := e.nav.ResolveBoundary(route, s.Route, lat, lon)
	if !ok {
		return Track{}, ReasonNoBoundaryFix
	}

	heading := s.Heading
	if heading != nil && e.cfg.MagneticArcs {
		mag := physics.TrueToMagnetic(*heading, lat, lon, float64(s.Altitude), now)
		heading = &mag
	}

	direction, reason := e.classifier.Classify(region.ID, boundary.Fix, heading, s.Destination)
	if !reason.Classified() {
		return Track{}, reason
	}

	var gs float64
	if s.Groundspeed != nil {
		gs = *s.Groundspeed
	}
	crossing, ok := e.estimator.Crossing(now, lat, lon, boundary.Fix, gs)
	if !ok || !WithinHorizon(crossing, now, e.cfg.Horizon) {
		return Track{}, ReasonBeyondHorizon
	}
	// The display string is derived from the crossing time, never compared
	estimate := FormatEstimate(crossing)
	if _, ok := ParseEstimate(estimate); !ok {
		return Track{}, ReasonBeyondHorizon
	}

	observed := s.ObservedAt
	if observed.IsZero() {
		observed = now
	}

	return Track{
		ID:             s.ID,
		Callsign:       s.Callsign,
		Waypoint:       boundary.Fix,
		Route:          s.Route,
		CenterEstimate: estimate,
		Heading:        *s.Heading,
		Altitude:       s.Altitude,
		Mach:           strconv.FormatFloat(gs/machDivisor, 'f', 2, 64),
		Status:         statusDefault,
		Lat:            lat,
		Lon:            lon,
		Direction:      direction,
		Region:         region.ID,
		UTC:            observed.UnixMilli(),
		ObservedAt:     observed,
	}, reason
}

// rank orders tracks by observation time, keeping feed order for ties, and truncates to limit
func rank(tracks []Track, limit int) []Track {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].ObservedAt.Before(tracks[j].ObservedAt)
	})
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks
}
