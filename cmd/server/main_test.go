package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/handoff-board/internal/airspace"
	"github.com/yegors/handoff-board/internal/classify"
	"github.com/yegors/handoff-board/internal/config"
	"github.com/yegors/handoff-board/internal/navdata"
)

func shippedConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "config.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	cfg.Reference.NavdataPath = filepath.Join("..", "..", cfg.Reference.NavdataPath)
	cfg.Reference.BoundariesPath = filepath.Join("..", "..", cfg.Reference.BoundariesPath)
	return cfg
}

func TestBoundaryCollectionCarriesRoles(t *testing.T) {
	cfg := shippedConfig(t)
	regions, err := airspace.LoadTable(cfg.Reference.BoundariesPath, cfg.RegionIDs())
	require.NoError(t, err)
	assert.Empty(t, regions.Unusable())

	fc := boundaryCollection(cfg, regions)
	require.Len(t, fc.Features, 3)
	roles := map[string]any{}
	for _, f := range fc.Features {
		roles[f.Properties["id"].(string)] = f.Properties["role"]
	}
	assert.Equal(t, map[string]any{"TJZS": "far", "KZWY": "approach", "KZMA": "approach"}, roles)
}

func TestShippedReferenceData(t *testing.T) {
	cfg := shippedConfig(t)
	nav, err := navdata.Load(cfg.Reference.NavdataPath)
	require.NoError(t, err)
	regions, err := airspace.LoadTable(cfg.Reference.BoundariesPath, cfg.RegionIDs())
	require.NoError(t, err)

	engine, err := classify.NewEngine(regions, nav, cfg.EngineConfig())
	require.NoError(t, err)

	lat, lon, hdg, gs := 24.0, -64.0, 180.0, 480.0
	track, reason := engine.Classify(classify.Sample{
		ID:          "1",
		Callsign:    "JBU123",
		Route:       "TJSJ M525 SAVIK",
		Destination: "TJSJ",
		Lat:         &lat,
		Lon:         &lon,
		Heading:     &hdg,
		Groundspeed: &gs,
	}, time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	require.Equal(t, classify.ReasonInbound, reason)
	assert.Equal(t, "SOCCO", track.Waypoint)
	assert.Equal(t, "KZWY", track.Region)
}
