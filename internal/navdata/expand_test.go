package navdata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("  savik/N0450F350  L455 kinch/M080F370 DCT \t TJSJ ")
	assert.Equal(t, []string{"SAVIK", "L455", "KINCH", "DCT", "TJSJ"}, got)

	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   /N0450F350  "))
}

func TestExpandAirwayForwardAndReverse(t *testing.T) {
	idx := testIndex(t)

	assert.Equal(t, []string{"A", "B", "C", "D"}, idx.Expand("A L1 D"))
	assert.Equal(t, []string{"D", "C", "B", "A"}, idx.Expand("D L1 A"))
	assert.Equal(t, []string{"B", "C"}, idx.Expand("B L1 C"))
	assert.Equal(t, []string{"C", "B"}, idx.Expand("C L1 B"))
}

func TestExpandKeepsSurroundingTokens(t *testing.T) {
	idx := testIndex(t)

	got := idx.Expand("TJSJ M525 SAVIK/N0460F360 L455 KINCH DCT OBIKE")
	assert.Equal(t, []string{"TJSJ", "SOCCO", "SAVIK", "KINCH", "DCT", "OBIKE"}, got)
}

func TestExpandUnresolvableAirwayContributesNothing(t *testing.T) {
	idx := testIndex(t)

	tests := []struct {
		name  string
		route string
		want  []string
	}{
		{"airway first", "L1 A", []string{"A"}},
		{"airway last", "A L1", []string{"A"}},
		{"airway only", "L1", []string{}},
		{"exit not on airway", "A L1 KEEKA", []string{"A", "KEEKA"}},
		{"entry not on airway", "KEEKA L1 D", []string{"KEEKA", "D"}},
		{"airway to airway", "A L1 L455 KINCH", []string{"A", "KINCH"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Expand(tt.route))
		})
	}
}

func TestExpandIncludesUnlocatedAirwayFixes(t *testing.T) {
	idx := testIndex(t)

	got := idx.Expand("SAVIK L455 ZZNOLOC")
	assert.Equal(t, []string{"SAVIK", "KINCH", "ZZNOLOC"}, got)

	_, ok := idx.Location("ZZNOLOC")
	assert.False(t, ok)
}

func TestExpandPlainRouteIsIdempotent(t *testing.T) {
	idx := testIndex(t)

	routes := []string{
		"KINCH HANCY CHEDR",
		"A B A C B D",
		"dct tjsj DCT keeka",
		"",
	}
	for _, r := range routes {
		once := idx.Expand(r)
		twice := idx.Expand(strings.Join(once, " "))
		assert.Equal(t, once, twice, "route %q", r)

		// No duplicates, first-seen order preserved
		seen := map[string]bool{}
		for _, name := range once {
			require.False(t, seen[name], "duplicate %s in %v", name, once)
			seen[name] = true
		}
	}

	assert.Equal(t, []string{"A", "B", "C", "D"}, idx.Expand("A B A C B D"))
}

func TestCachedExpander(t *testing.T) {
	idx := testIndex(t)

	c, err := NewCachedExpander(idx, 2)
	require.NoError(t, err)

	first := c.Expand("A L1 D")
	assert.Equal(t, []string{"A", "B", "C", "D"}, first)
	assert.Equal(t, 1, c.Len())

	// Mutating a returned slice must not poison the cache
	first[0] = "MUTATED"
	assert.Equal(t, []string{"A", "B", "C", "D"}, c.Expand("A L1 D"))

	c.Expand("D L1 A")
	c.Expand("B L1 C")
	assert.Equal(t, 2, c.Len())
}
