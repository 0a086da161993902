// Public domain.

// Package results stores search runs and their candidates in a sqlite
// database.
package results

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/soniakeys/hscana/internal/hscat"
	"github.com/soniakeys/hscana/internal/skymap"
)

// DB is a results database.
type DB struct {
	*sql.DB
}

// Open opens or creates a results database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			band              TEXT,
			note              TEXT,
			started           TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS tiles (
			tile_id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT,
			group_id          BIGINT,
			tract             BIGINT,
			patch             TEXT,
			band              TEXT,
			status            TEXT,
			error             TEXT,
			count             BIGINT,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS cuts (
			tile_id           BIGINT,
			seq               BIGINT,
			name              TEXT,
			removed           BIGINT,
			FOREIGN KEY(tile_id) REFERENCES tiles(tile_id)
		);
		CREATE TABLE IF NOT EXISTS nans (
			tile_id           BIGINT,
			seq               BIGINT,
			name              TEXT,
			count             BIGINT,
			FOREIGN KEY(tile_id) REFERENCES tiles(tile_id)
		);
		CREATE TABLE IF NOT EXISTS candidates (
			tile_id           BIGINT,
			source_id         BIGINT,
			ra                DOUBLE,
			dec               DOUBLE,
			mag               DOUBLE,
			sb                DOUBLE,
			angsize           DOUBLE,
			size_kpc          DOUBLE,
			absmag            DOUBLE,
			FOREIGN KEY(tile_id) REFERENCES tiles(tile_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

// NewRun records the start of a run and returns its id.
func (db *DB) NewRun(band, note string) (string, error) {
	id := uuid.New().String()
	_, err := db.Exec(`INSERT INTO runs (run_id, band, note, started) VALUES (?, ?, ?, ?)`,
		id, band, note, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// Candidate is a source surviving all cuts.  SizeKpc and AbsMag are nil
// for catalogs built without group context.
type Candidate struct {
	GroupID *int64
	Tile    skymap.Tile

	ID      int64
	RA, Dec float64 // degrees
	Mag     float64
	SB      float64
	AngSize float64 // arc seconds
	SizeKpc *float64
	AbsMag  *float64
}

// Candidates lists the sources of a catalog.
func Candidates(c *hscat.Catalog) []Candidate {
	src := c.Sources()
	cs := make([]Candidate, len(src))
	for i := range cs {
		cs[i] = Candidate{
			Tile:    c.Tile,
			ID:      src[i].ID,
			RA:      c.RA()[i],
			Dec:     c.Dec()[i],
			Mag:     c.Mag()[i],
			SB:      c.SB()[i],
			AngSize: c.AngSize()[i],
		}
	}
	return cs
}

// GroupCandidates lists the sources of a group catalog.
func GroupCandidates(g *hscat.GroupCatalog) []Candidate {
	cs := Candidates(g.Catalog)
	id := g.GroupID
	for i := range cs {
		s, m := g.SizeKpc()[i], g.AbsMag()[i]
		cs[i].GroupID = &id
		cs[i].SizeKpc = &s
		cs[i].AbsMag = &m
	}
	return cs
}

// TileRecord is the outcome of one tile of a run.
type TileRecord struct {
	GroupID    *int64
	Tile       skymap.Tile
	Band       string
	Err        error // fetch or build failure
	Cuts       hscat.Record
	NaNs       hscat.Record
	Candidates []Candidate
}

// RecordTile stores a tile outcome with its cut and NaN records and
// candidates.
func (db *DB) RecordTile(run string, r TileRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	status, msg := "ok", ""
	if r.Err != nil {
		status, msg = "failed", r.Err.Error()
	}
	res, err := tx.Exec(
		`INSERT INTO tiles (run_id, group_id, tract, patch, band, status, error, count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run, r.GroupID, r.Tile.Tract, r.Tile.Patch, r.Band, status, msg, len(r.Candidates))
	if err != nil {
		return fmt.Errorf("recording tile %s: %w", r.Tile, err)
	}
	tileID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i, name := range r.Cuts.Names() {
		n, _ := r.Cuts.Get(name)
		if _, err = tx.Exec(`INSERT INTO cuts (tile_id, seq, name, removed) VALUES (?, ?, ?, ?)`,
			tileID, i, name, n); err != nil {
			return fmt.Errorf("recording cut %s: %w", name, err)
		}
	}
	for i, name := range r.NaNs.Names() {
		n, _ := r.NaNs.Get(name)
		if _, err = tx.Exec(`INSERT INTO nans (tile_id, seq, name, count) VALUES (?, ?, ?, ?)`,
			tileID, i, name, n); err != nil {
			return fmt.Errorf("recording nan count %s: %w", name, err)
		}
	}
	for _, c := range r.Candidates {
		if _, err = tx.Exec(
			`INSERT INTO candidates (tile_id, source_id, ra, dec, mag, sb, angsize, size_kpc, absmag)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tileID, c.ID, c.RA, c.Dec, nullable(c.Mag), nullable(c.SB), nullable(c.AngSize),
			c.SizeKpc, c.AbsMag); err != nil {
			return fmt.Errorf("recording candidate %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// nullable maps NaN to NULL.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nan(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// Candidates returns the candidates of a run in the order recorded.
func (db *DB) Candidates(run string) ([]Candidate, error) {
	rows, err := db.Query(
		`SELECT t.group_id, t.tract, t.patch, c.source_id, c.ra, c.dec,
			c.mag, c.sb, c.angsize, c.size_kpc, c.absmag
		FROM candidates c JOIN tiles t ON c.tile_id = t.tile_id
		WHERE t.run_id = ?
		ORDER BY c.rowid`, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cs []Candidate
	for rows.Next() {
		var c Candidate
		var mag, sb, size sql.NullFloat64
		if err := rows.Scan(&c.GroupID, &c.Tile.Tract, &c.Tile.Patch, &c.ID, &c.RA, &c.Dec,
			&mag, &sb, &size, &c.SizeKpc, &c.AbsMag); err != nil {
			return nil, err
		}
		c.Mag, c.SB, c.AngSize = nan(mag), nan(sb), nan(size)
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

// TileCounts returns the number of tiles of a run by status.
func (db *DB) TileCounts(run string) (map[string]int, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM tiles WHERE run_id = ? GROUP BY status`, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m := map[string]int{}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		m[s] = n
	}
	return m, rows.Err()
}

// CutTotals sums removed counts per cut over all tiles of a run.
func (db *DB) CutTotals(run string) (map[string]int, error) {
	return db.totals(
		`SELECT c.name, SUM(c.removed) FROM cuts c JOIN tiles t ON c.tile_id = t.tile_id
		WHERE t.run_id = ? GROUP BY c.name`, run)
}

// NaNTotals sums undefined value counts per quantity over all tiles of a
// run.
func (db *DB) NaNTotals(run string) (map[string]int, error) {
	return db.totals(
		`SELECT n.name, SUM(n.count) FROM nans n JOIN tiles t ON n.tile_id = t.tile_id
		WHERE t.run_id = ? GROUP BY n.name`, run)
}

func (db *DB) totals(query, run string) (map[string]int, error) {
	rows, err := db.Query(query, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m := map[string]int{}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		m[s] = n
	}
	return m, rows.Err()
}
