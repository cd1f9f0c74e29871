package navdata

import (
	"strings"
)

// Tokenize splits a raw flight-plan route on whitespace, strips any "/speed-altitude" style
// annotation from each token and uppercases what is left. Empty tokens are dropped.
func Tokenize(raw string) []string {
	fields := strings.Fields(raw)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if i := strings.IndexByte(f, '/'); i >= 0 {
			f = f[:i]
		}
		f = strings.ToUpper(f)
		if f == "" {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Expand turns a raw route string into the ordered, de-duplicated list of waypoint names the
// aircraft is planned to fly over. Airway tokens are replaced by the part of the airway between
// the fixes on either side of them, walked in the direction of flight. An airway that cannot be
// resolved (no neighbour on one side, or a neighbour that is not on the airway) contributes
// nothing.
func (idx *Index) Expand(raw string) []string {
	tokens := Tokenize(raw)

	out := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for i, tok := range tokens {
		fixes, ok := idx.airways[tok]
		if !ok {
			add(tok)
			continue
		}
		if i == 0 || i == len(tokens)-1 {
			continue
		}
		segment, ok := airwaySegment(fixes, tokens[i-1], tokens[i+1])
		if !ok {
			continue
		}
		for _, name := range segment {
			add(name)
		}
	}

	return out
}

// airwaySegment returns the contiguous run of fixes from entry to exit inclusive, reversed when
// the exit is stored before the entry.
func airwaySegment(fixes []string, entry, exit string) ([]string, bool) {
	from, to := -1, -1
	for i, f := range fixes {
		if from == -1 && f == entry {
			from = i
		}
		if to == -1 && f == exit {
			to = i
		}
	}
	if from == -1 || to == -1 {
		return nil, false
	}

	step := 1
	if to < from {
		step = -1
	}
	segment := make([]string, 0, abs(to-from)+1)
	for i := from; ; i += step {
		segment = append(segment, fixes[i])
		if i == to {
			break
		}
	}
	return segment, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
