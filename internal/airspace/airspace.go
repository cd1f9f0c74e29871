package airspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidBoundaries is returned when the region polygon file cannot be used at all
var ErrInvalidBoundaries = errors.New("invalid boundaries")

// Region is a named polygonal airspace area. A region with missing or degenerate geometry is kept
// in the table so it can be reported, but it never matches a position.
type Region struct {
	ID       string
	Name     string
	Priority int
	Geometry orb.Geometry // orb.Polygon or orb.MultiPolygon
	Problem  string       // why the region is unusable, empty when valid

	bound orb.Bound
}

// Valid reports whether the region has usable geometry
func (r *Region) Valid() bool {
	return r != nil && r.Problem == ""
}

// Contains reports whether (lat, lon) lies inside the region. Points on an edge count as inside.
func (r *Region) Contains(lat, lon float64) bool {
	if !r.Valid() {
		return false
	}
	p := orb.Point{lon, lat}
	if !r.bound.Contains(p) {
		return false
	}
	switch g := r.Geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	}
	return false
}

// Table is the ordered set of regions. It is read-only once built.
type Table struct {
	regions []*Region
	byID    map[string]*Region
}

// LoadTable reads a GeoJSON FeatureCollection (optionally zstd-compressed, ".zst") and builds a
// table holding the given region ids in priority order.
func LoadTable(path string, ids []string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read boundaries file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		data, err = dec.DecodeAll(data, nil)
		dec.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decompress %s: %v", ErrInvalidBoundaries, path, err)
		}
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidBoundaries, path, err)
	}

	return NewTable(fc, ids)
}

// NewTable builds a table from a parsed feature collection. Features are matched to ids by their
// "id" property (falling back to the feature id), case-insensitively. ids gives the priority
// order: the first id is tested first.
func NewTable(fc *geojson.FeatureCollection, ids []string) (*Table, error) {
	if fc == nil {
		return nil, fmt.Errorf("%w: no feature collection", ErrInvalidBoundaries)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no regions configured", ErrInvalidBoundaries)
	}

	features := make(map[string]*geojson.Feature, len(fc.Features))
	for _, f := range fc.Features {
		id := featureID(f)
		if id == "" {
			continue
		}
		if _, dup := features[id]; dup {
			return nil, fmt.Errorf("%w: region %s defined twice", ErrInvalidBoundaries, id)
		}
		features[id] = f
	}

	t := &Table{byID: make(map[string]*Region, len(ids))}
	for i, raw := range ids {
		id := strings.ToUpper(strings.TrimSpace(raw))
		if id == "" {
			return nil, fmt.Errorf("%w: region #%d has no id", ErrInvalidBoundaries, i+1)
		}
		if _, dup := t.byID[id]; dup {
			return nil, fmt.Errorf("%w: region %s configured twice", ErrInvalidBoundaries, id)
		}

		r := &Region{ID: id, Name: id, Priority: i}
		if f, ok := features[id]; ok {
			if name, ok := f.Properties["name"].(string); ok && name != "" {
				r.Name = name
			}
			r.Geometry, r.Problem = usableGeometry(f.Geometry)
			if r.Problem == "" {
				r.bound = r.Geometry.Bound()
			}
		} else {
			r.Problem = "no feature with this id"
		}

		t.regions = append(t.regions, r)
		t.byID[id] = r
	}

	return t, nil
}

// RegionOf returns the first region, in priority order, containing (lat, lon), or nil
func (t *Table) RegionOf(lat, lon float64) *Region {
	for _, r := range t.regions {
		if r.Contains(lat, lon) {
			return r
		}
	}
	return nil
}

// Region returns the region with the given id
func (t *Table) Region(id string) (*Region, bool) {
	r, ok := t.byID[strings.ToUpper(id)]
	return r, ok
}

// Regions returns all configured regions in priority order
func (t *Table) Regions() []*Region {
	out := make([]*Region, len(t.regions))
	copy(out, t.regions)
	return out
}

// Unusable returns the regions that will never match
func (t *Table) Unusable() []*Region {
	var out []*Region
	for _, r := range t.regions {
		if !r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// FeatureCollection renders the usable regions as GeoJSON for viewers
func (t *Table) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range t.regions {
		if !r.Valid() {
			continue
		}
		f := geojson.NewFeature(r.Geometry)
		f.Properties["id"] = r.ID
		f.Properties["name"] = r.Name
		f.Properties["priority"] = r.Priority
		fc.Append(f)
	}
	return fc
}

func featureID(f *geojson.Feature) string {
	if id, ok := f.Properties["id"].(string); ok && strings.TrimSpace(id) != "" {
		return strings.ToUpper(strings.TrimSpace(id))
	}
	if id, ok := f.ID.(string); ok {
		return strings.ToUpper(strings.TrimSpace(id))
	}
	return ""
}

// usableGeometry drops degenerate polygons. A polygon is degenerate when its outer ring has
// fewer than three distinct vertices or encloses no area.
func usableGeometry(g orb.Geometry) (orb.Geometry, string) {
	switch g := g.(type) {
	case orb.Polygon:
		if !polygonUsable(g) {
			return nil, "degenerate polygon"
		}
		return g, ""
	case orb.MultiPolygon:
		var keep orb.MultiPolygon
		for _, p := range g {
			if polygonUsable(p) {
				keep = append(keep, p)
			}
		}
		if len(keep) == 0 {
			return nil, "all polygons degenerate"
		}
		return keep, ""
	case nil:
		return nil, "no geometry"
	default:
		return nil, fmt.Sprintf("unsupported geometry type %s", g.GeoJSONType())
	}
}

func polygonUsable(p orb.Polygon) bool {
	if len(p) == 0 {
		return false
	}
	outer := p[0]
	distinct := make(map[orb.Point]struct{}, len(outer))
	for _, pt := range outer {
		distinct[pt] = struct{}{}
	}
	if len(distinct) < 3 {
		return false
	}
	return planar.Area(outer) != 0
}
