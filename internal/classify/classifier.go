package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yegors/handoff-board/internal/physics"
)

// Direction is the classification assigned to a sample for one cycle
type Direction string

const (
	Unclassified Direction = ""
	Inbound      Direction = "INBOUND"
	Outbound     Direction = "OUTBOUND"
)

// Reason names the transition taken by the classifier and the per-sample pipeline. Every sample
// ends in exactly one reason; only ReasonInbound and ReasonOutbound produce a track.
type Reason int

const (
	ReasonInbound Reason = iota
	ReasonOutbound
	ReasonNoPosition
	ReasonNoRegion
	ReasonNoBoundaryFix
	ReasonNoHeading
	ReasonExcludedDestination
	ReasonOutsideArcs
	ReasonBeyondHorizon
	ReasonDuplicate
	ReasonMalformed
)

var reasonNames = map[Reason]string{
	ReasonInbound:             "inbound",
	ReasonOutbound:            "outbound",
	ReasonNoPosition:          "no_position",
	ReasonNoRegion:            "no_region",
	ReasonNoBoundaryFix:       "no_boundary_fix",
	ReasonNoHeading:           "no_heading",
	ReasonExcludedDestination: "excluded_destination",
	ReasonOutsideArcs:         "outside_arcs",
	ReasonBeyondHorizon:       "beyond_horizon",
	ReasonDuplicate:           "duplicate",
	ReasonMalformed:           "malformed",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Classified reports whether the reason produces a track
func (r Reason) Classified() bool {
	return r == ReasonInbound || r == ReasonOutbound
}

// Arc is a clockwise range of headings from From to To, both inclusive. An arc whose From is
// greater than its To wraps through north, so {270, 60} covers 270..359 and 0..60.
type Arc struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Contains reports whether heading h falls inside the arc
func (a Arc) Contains(h float64) bool {
	h = physics.NormalizeHeading(h)
	from, to := physics.NormalizeHeading(a.From), physics.NormalizeHeading(a.To)
	if from <= to {
		return h >= from && h <= to
	}
	return h >= from || h <= to
}

func (a Arc) String() string {
	return fmt.Sprintf("%03.0f-%03.0f", a.From, a.To)
}

// Rule holds the heading arcs of one region. ExcludeDestinations are destination prefixes that
// are never shown as outbound from this region.
type Rule struct {
	Region              string
	Outbound            Arc
	Inbound             Arc
	ExcludeDestinations []string
}

func (r Rule) excluded(destination string) bool {
	destination = strings.ToUpper(strings.TrimSpace(destination))
	if destination == "" {
		return false
	}
	for _, prefix := range r.ExcludeDestinations {
		if prefix != "" && strings.HasPrefix(destination, strings.ToUpper(prefix)) {
			return true
		}
	}
	return false
}

// Classifier maps {region, heading arc} to a direction
type Classifier struct {
	rules map[string]Rule
}

// NewClassifier builds a classifier from per-region rules
func NewClassifier(rules []Rule) (*Classifier, error) {
	c := &Classifier{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		id := strings.ToUpper(strings.TrimSpace(r.Region))
		if id == "" {
			return nil, errors.New("classifier rule without region")
		}
		if _, dup := c.rules[id]; dup {
			return nil, fmt.Errorf("classifier rule for %s defined twice", id)
		}
		r.Region = id
		c.rules[id] = r
	}
	return c, nil
}

// Rule returns the rule for a region
func (c *Classifier) Rule(region string) (Rule, bool) {
	r, ok := c.rules[strings.ToUpper(region)]
	return r, ok
}

// Classify decides the direction of a sample. The outbound arc is tested first; a destination
// excluded from the outbound branch is dropped rather than falling through to inbound. Arcs are
// expected not to overlap.
func (c *Classifier) Classify(region, fix string, heading *float64, destination string) (Direction, Reason) {
	rule, ok := c.rules[strings.ToUpper(region)]
	switch {
	case region == "" || !ok:
		return Unclassified, ReasonNoRegion
	case fix == "":
		return Unclassified, ReasonNoBoundaryFix
	case heading == nil:
		return Unclassified, ReasonNoHeading
	}

	switch {
	case rule.Outbound.Contains(*heading):
		if rule.excluded(destination) {
			return Unclassified, ReasonExcludedDestination
		}
		return Outbound, ReasonOutbound
	case rule.Inbound.Contains(*heading):
		return Inbound, ReasonInbound
	default:
		return Unclassified, ReasonOutsideArcs
	}
}
