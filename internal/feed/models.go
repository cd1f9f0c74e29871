package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/handoff-board/internal/classify"
)

// DataResponse is the subset of the VATSIM v3 data document the board uses
type DataResponse struct {
	General General `json:"general"`
	Pilots  []Pilot `json:"pilots"`

	// Records that could not be decoded. They are kept so the cycle can count them without
	// losing the rest of the document.
	Malformed        []MalformedPilot `json:"-"`
	GeneralMalformed bool             `json:"-"`
}

// General is the document header
type General struct {
	Version          int       `json:"version"`
	UpdateTimestamp  time.Time `json:"update_timestamp"`
	ConnectedClients int       `json:"connected_clients"`
}

// MalformedPilot identifies a pilot record that failed to decode, as far as it can be identified
type MalformedPilot struct {
	Index    int
	ID       string
	Callsign string
	Err      error
}

// UnmarshalJSON decodes the header and every pilot on its own, so one bad record never costs the
// others
func (d *DataResponse) UnmarshalJSON(b []byte) error {
	var raw struct {
		General json.RawMessage   `json:"general"`
		Pilots  []json.RawMessage `json:"pilots"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*d = DataResponse{Pilots: make([]Pilot, 0, len(raw.Pilots))}
	if len(raw.General) > 0 {
		if err := json.Unmarshal(raw.General, &d.General); err != nil {
			d.General = General{}
			d.GeneralMalformed = true
		}
	}

	for i, msg := range raw.Pilots {
		var p Pilot
		if err := json.Unmarshal(msg, &p); err != nil {
			d.Malformed = append(d.Malformed, malformedPilot(i, msg, err))
			continue
		}
		d.Pilots = append(d.Pilots, p)
	}
	return nil
}

// malformedPilot recovers the id and callsign of a bad record when those two fields are intact
func malformedPilot(index int, msg json.RawMessage, err error) MalformedPilot {
	m := MalformedPilot{Index: index, ID: fmt.Sprintf("#%d", index), Err: err}
	var ident struct {
		CID      int    `json:"cid"`
		Callsign string `json:"callsign"`
	}
	if json.Unmarshal(msg, &ident) == nil {
		m.Callsign = strings.TrimSpace(ident.Callsign)
		switch {
		case ident.CID != 0:
			m.ID = strconv.Itoa(ident.CID)
		case m.Callsign != "":
			m.ID = m.Callsign
		}
	}
	return m
}

// Pilot is one connected aircraft. Position and motion fields are pointers so an absent field
// can be told apart from a zero value.
type Pilot struct {
	CID         int         `json:"cid"`
	Name        string      `json:"name"`
	Callsign    string      `json:"callsign"`
	Latitude    *float64    `json:"latitude"`
	Longitude   *float64    `json:"longitude"`
	Altitude    int         `json:"altitude"`
	Groundspeed *float64    `json:"groundspeed"`
	Transponder string      `json:"transponder"`
	Heading     *float64    `json:"heading"`
	FlightPlan  *FlightPlan `json:"flight_plan"`
	LogonTime   time.Time   `json:"logon_time"`
	LastUpdated time.Time   `json:"last_updated"`
}

// FlightPlan is the filed plan attached to a pilot, absent for aircraft flying without one
type FlightPlan struct {
	FlightRules string `json:"flight_rules"`
	Aircraft    string `json:"aircraft_short"`
	Departure   string `json:"departure"`
	Arrival     string `json:"arrival"`
	Altitude    string `json:"altitude"`
	Route       string `json:"route"`
	RevisionID  int    `json:"revision_id"`
}

// Sample converts the pilot into a classification sample. fallback is used as the observation
// time when the pilot carries no update time.
func (p Pilot) Sample(fallback time.Time) classify.Sample {
	s := classify.Sample{
		ID:          strconv.Itoa(p.CID),
		Callsign:    strings.TrimSpace(p.Callsign),
		Lat:         p.Latitude,
		Lon:         p.Longitude,
		Heading:     p.Heading,
		Groundspeed: p.Groundspeed,
		Altitude:    p.Altitude,
		ObservedAt:  p.LastUpdated,
	}
	if p.CID == 0 {
		s.ID = s.Callsign
	}
	if p.FlightPlan != nil {
		s.Route = p.FlightPlan.Route
		s.Destination = strings.ToUpper(strings.TrimSpace(p.FlightPlan.Arrival))
	}
	if s.ObservedAt.IsZero() {
		s.ObservedAt = fallback
	}
	return s
}

// Samples converts every pilot in the document. Malformed records become samples flagged as
// such, which the engine drops and counts.
func (d *DataResponse) Samples(fetchedAt time.Time) []classify.Sample {
	fallback := d.General.UpdateTimestamp
	if fallback.IsZero() {
		fallback = fetchedAt
	}

	samples := make([]classify.Sample, 0, len(d.Pilots)+len(d.Malformed))
	for _, p := range d.Pilots {
		samples = append(samples, p.Sample(fallback))
	}
	for _, m := range d.Malformed {
		samples = append(samples, classify.Sample{
			ID:         m.ID,
			Callsign:   m.Callsign,
			ObservedAt: fallback,
			Malformed:  true,
		})
	}
	return samples
}
