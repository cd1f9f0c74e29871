package navdata

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path string) {
	t.Helper()
	b, err := json.Marshal(testRaw())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navdata.json")
	writeJSON(t, path)

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, idx.Expand("A L1 D"))
	assert.True(t, idx.IsBoundaryFix("OBIKE"))
}

func TestLoadJSONCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navdata.json.zst")

	b, err := json.Marshal(testRaw())
	require.NoError(t, err)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = zw.Write(b)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testIndex(t).Stats(), idx.Stats())
}

func TestLoadJSONErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"waypoints": [`), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidNavdata)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"waypoints":[{"name":"X","lat":95,"lon":0}]}`), 0o644))
	_, err = Load(invalid)
	assert.ErrorIs(t, err, ErrInvalidNavdata)
}

func TestLoadSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navdata.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE waypoints (name TEXT NOT NULL, lat REAL NOT NULL, lon REAL NOT NULL, boundary INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE airway_fixes (airway TEXT NOT NULL, seq INTEGER NOT NULL, fix TEXT NOT NULL)`)
	require.NoError(t, err)

	raw := testRaw()
	boundary := map[string]int{}
	for _, b := range raw.BoundaryFixes {
		boundary[b] = 1
	}
	for _, w := range raw.Waypoints {
		_, err = db.Exec(`INSERT INTO waypoints (name, lat, lon, boundary) VALUES (?, ?, ?, ?)`,
			w.Name, *w.Lat, *w.Lon, boundary[w.Name])
		require.NoError(t, err)
	}
	for airway, fixes := range raw.Airways {
		// Insert in reverse to check ordering by seq
		for i := len(fixes) - 1; i >= 0; i-- {
			_, err = db.Exec(`INSERT INTO airway_fixes (airway, seq, fix) VALUES (?, ?, ?)`, airway, i, fixes[i])
			require.NoError(t, err)
		}
	}
	require.NoError(t, db.Close())

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testIndex(t).Stats(), idx.Stats())
	assert.Equal(t, []string{"D", "C", "B", "A"}, idx.Expand("D L1 A"))
	assert.True(t, idx.IsBoundaryFix("C"))
}

func TestLoadSQLiteMissing(t *testing.T) {
	_, err := LoadSQLite(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}
