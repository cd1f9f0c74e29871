package navdata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func wp(name string, lat, lon float64) RawWaypoint {
	return RawWaypoint{Name: name, Lat: f64(lat), Lon: f64(lon)}
}

// testRaw is a small slice of the Atlantic boundary between the oceanic and San Juan sectors,
// plus a synthetic straight airway A-B-C-D running east along 20N.
func testRaw() RawNavdata {
	return RawNavdata{
		Waypoints: []RawWaypoint{
			wp("KINCH", 21.621478, -67.197817),
			wp("HANCY", 22.036886, -66.170619),
			wp("CHEDR", 22.046697, -66.009619),
			wp("KEEKA", 22.097069, -65.134825),
			wp("OPAUL", 21.856597, -63.846578),
			wp("SOCCO", 21.116403, -63.061878),
			wp("DAWIN", 20.538769, -62.457578),
			wp("OBIKE", 19.341283, -61.767164),
			wp("SAVIK", 25.000000, -66.000000),
			wp("TJSJ", 18.439417, -66.001833),
			wp("A", 20.0, -70.0),
			wp("B", 20.0, -69.0),
			wp("C", 20.0, -68.0),
			wp("D", 20.0, -67.0),
		},
		Airways: map[string][]string{
			"L1":   {"A", "B", "C", "D"},
			"L455": {"SAVIK", "KINCH", "ZZNOLOC"},
			"M525": {"TJSJ", "SOCCO", "SAVIK"},
		},
		BoundaryFixes: []string{"KINCH", "HANCY", "CHEDR", "KEEKA", "OPAUL", "SOCCO", "DAWIN", "OBIKE", "C"},
	}
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(testRaw())
	require.NoError(t, err)
	return idx
}
