package classify

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"
	"github.com/yegors/handoff-board/internal/airspace"
	"github.com/yegors/handoff-board/internal/navdata"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

// The shared edge between the San Juan and New York oceanic sectors runs through these fixes,
// west to east.
var boundaryChain = []struct {
	name     string
	lat, lon float64
}{
	{"KINCH", 21.621478, -67.197817},
	{"HANCY", 22.036886, -66.170619},
	{"CHEDR", 22.046697, -66.009619},
	{"KEEKA", 22.097069, -65.134825},
	{"OPAUL", 21.856597, -63.846578},
	{"SOCCO", 21.116403, -63.061878},
	{"DAWIN", 20.538769, -62.457578},
	{"OBIKE", 19.341283, -61.767164},
}

func testNavdata(t *testing.T) *navdata.Index {
	t.Helper()
	raw := navdata.RawNavdata{
		Waypoints: []navdata.RawWaypoint{
			{Name: "SAVIK", Lat: ptr(25.0), Lon: ptr(-66.0)},
			{Name: "TJSJ", Lat: ptr(18.439417), Lon: ptr(-66.001833)},
		},
		Airways: map[string][]string{
			"M525": {"TJSJ", "SOCCO", "SAVIK"},
		},
	}
	for _, f := range boundaryChain {
		raw.Waypoints = append(raw.Waypoints, navdata.RawWaypoint{Name: f.name, Lat: ptr(f.lat), Lon: ptr(f.lon)})
		raw.BoundaryFixes = append(raw.BoundaryFixes, f.name)
	}
	idx, err := navdata.NewIndex(raw)
	require.NoError(t, err)
	return idx
}

func testRegions(t *testing.T) *airspace.Table {
	t.Helper()

	chain := make(orb.Ring, 0, len(boundaryChain))
	for _, f := range boundaryChain {
		chain = append(chain, orb.Point{f.lon, f.lat})
	}

	south := orb.Ring{{-68.5, 17.0}, {-68.5, 21.3}}
	south = append(south, chain...)
	south = append(south, orb.Point{-61.5, 17.0}, orb.Point{-68.5, 17.0})

	north := orb.Ring{{-68.5, 21.3}, {-68.5, 30.0}, {-55.0, 30.0}, {-55.0, 17.0}, {-61.5, 17.0}}
	for i := len(chain) - 1; i >= 0; i-- {
		north = append(north, chain[i])
	}
	north = append(north, orb.Point{-68.5, 21.3})

	west := orb.Ring{{-80, 17}, {-68.5, 17}, {-68.5, 30}, {-80, 30}, {-80, 17}}

	fc := geojson.NewFeatureCollection()
	for id, ring := range map[string]orb.Ring{"TJZS": south, "KZWY": north, "KZMA": west} {
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["id"] = id
		fc.Append(f)
	}

	table, err := airspace.NewTable(fc, []string{"TJZS", "KZWY", "KZMA"})
	require.NoError(t, err)
	return table
}

func testRules() []Rule {
	exclude := []string{"TJ", "TI", "TN", "TK"}
	return []Rule{
		{Region: "TJZS", Outbound: Arc{270, 60}, Inbound: Arc{90, 250}},
		{Region: "KZWY", Outbound: Arc{270, 110}, Inbound: Arc{111, 269}, ExcludeDestinations: exclude},
		{Region: "KZMA", Outbound: Arc{270, 110}, Inbound: Arc{111, 269}, ExcludeDestinations: exclude},
	}
}

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Rules == nil {
		cfg.Rules = testRules()
	}
	e, err := NewEngine(testRegions(t), testNavdata(t), cfg)
	require.NoError(t, err)
	return e
}

// farSideSample sits just south of SOCCO inside the San Juan sector
func farSideSample(id string, heading float64) Sample {
	return Sample{
		ID:          id,
		Callsign:    "AAL" + id,
		Route:       "TJSJ M525 SAVIK",
		Destination: "KJFK",
		Lat:         ptr(21.0),
		Lon:         ptr(-63.0),
		Heading:     ptr(heading),
		Groundspeed: ptr(450),
		Altitude:    35000,
		ObservedAt:  testNow.Add(-10 * time.Second),
	}
}

// approachSideSample sits north of the chain inside the New York oceanic sector
func approachSideSample(id string, heading float64, destination string) Sample {
	return Sample{
		ID:          id,
		Callsign:    "JBU" + id,
		Route:       "TJSJ M525 SAVIK",
		Destination: destination,
		Lat:         ptr(24.0),
		Lon:         ptr(-64.0),
		Heading:     ptr(heading),
		Groundspeed: ptr(480),
		Altitude:    37000,
		ObservedAt:  testNow.Add(-5 * time.Second),
	}
}
