package navdata

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// LoadSQLite reads navdata from a SQLite database with the tables
//
//	waypoints(name TEXT, lat REAL, lon REAL, boundary INTEGER)
//	airway_fixes(airway TEXT, seq INTEGER, fix TEXT)
//
// The database is opened read-only.
func LoadSQLite(path string) (*Index, error) {
	// sql.Open would happily create an empty database
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("navdata database not found: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open navdata database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(1)

	raw := RawNavdata{Airways: make(map[string][]string)}

	rows, err := db.Query(`SELECT name, lat, lon, boundary FROM waypoints ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query waypoints: %v", ErrInvalidNavdata, err)
	}
	for rows.Next() {
		var name string
		var lat, lon float64
		var boundary sql.NullInt64
		if err := rows.Scan(&name, &lat, &lon, &boundary); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: failed to scan waypoint: %v", ErrInvalidNavdata, err)
		}
		raw.Waypoints = append(raw.Waypoints, RawWaypoint{Name: name, Lat: &lat, Lon: &lon})
		if boundary.Valid && boundary.Int64 != 0 {
			raw.BoundaryFixes = append(raw.BoundaryFixes, name)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: failed to read waypoints: %v", ErrInvalidNavdata, err)
	}
	rows.Close()

	rows, err = db.Query(`SELECT airway, fix FROM airway_fixes ORDER BY airway, seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query airway_fixes: %v", ErrInvalidNavdata, err)
	}
	defer rows.Close()
	for rows.Next() {
		var airway, fix string
		if err := rows.Scan(&airway, &fix); err != nil {
			return nil, fmt.Errorf("%w: failed to scan airway fix: %v", ErrInvalidNavdata, err)
		}
		raw.Airways[airway] = append(raw.Airways[airway], fix)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read airway_fixes: %v", ErrInvalidNavdata, err)
	}

	return NewIndex(raw)
}
