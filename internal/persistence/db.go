// Package persistence provides SQLite-based checkpointing of the latest
// planet snapshot so a restarted process resumes where it left off. Only the
// newest snapshot is kept; there is no history.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/earthsim/internal/ecosystem"
)

// ErrNoCheckpoint is returned by LoadCheckpoint on a fresh database.
var ErrNoCheckpoint = errors.New("no checkpoint saved")

// DB wraps a SQLite connection for checkpoint storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkpoint (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		population REAL NOT NULL,
		vegetation_pct REAL NOT NULL,
		water_pct REAL NOT NULL,
		deaths REAL NOT NULL,
		birth_rate_pct REAL NOT NULL,
		death_rate_pct REAL NOT NULL,
		last_event_label TEXT NOT NULL DEFAULT '',
		last_event_intensity REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// checkpointRow mirrors the checkpoint table.
type checkpointRow struct {
	Population         float64 `db:"population"`
	VegetationPct      float64 `db:"vegetation_pct"`
	WaterPct           float64 `db:"water_pct"`
	Deaths             float64 `db:"deaths"`
	BirthRatePct       float64 `db:"birth_rate_pct"`
	DeathRatePct       float64 `db:"death_rate_pct"`
	LastEventLabel     string  `db:"last_event_label"`
	LastEventIntensity float64 `db:"last_event_intensity"`
}

// SaveCheckpoint replaces the stored snapshot and tick in one transaction.
func (db *DB) SaveCheckpoint(s ecosystem.Snapshot, tick uint64) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := checkpointRow{
		Population:         s.Population,
		VegetationPct:      s.VegetationPct,
		WaterPct:           s.WaterPct,
		Deaths:             s.Deaths,
		BirthRatePct:       s.BirthRatePct,
		DeathRatePct:       s.DeathRatePct,
		LastEventLabel:     s.LastEventLabel,
		LastEventIntensity: s.LastEventIntensity,
	}
	_, err = tx.NamedExec(`INSERT OR REPLACE INTO checkpoint
		(id, population, vegetation_pct, water_pct, deaths, birth_rate_pct, death_rate_pct,
		 last_event_label, last_event_intensity)
		VALUES (1, :population, :vegetation_pct, :water_pct, :deaths, :birth_rate_pct, :death_rate_pct,
		 :last_event_label, :last_event_intensity)`, row)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		"last_tick", strconv.FormatUint(tick, 10),
	); err != nil {
		return fmt.Errorf("write last_tick: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("checkpoint saved", "tick", tick)
	return nil
}

// LoadCheckpoint returns the stored snapshot and tick.
func (db *DB) LoadCheckpoint() (ecosystem.Snapshot, uint64, error) {
	var row checkpointRow
	err := db.conn.Get(&row, `SELECT population, vegetation_pct, water_pct, deaths,
		birth_rate_pct, death_rate_pct, last_event_label, last_event_intensity
		FROM checkpoint WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return ecosystem.Snapshot{}, 0, ErrNoCheckpoint
	}
	if err != nil {
		return ecosystem.Snapshot{}, 0, fmt.Errorf("read checkpoint: %w", err)
	}

	var tick uint64
	if tickStr, err := db.GetMeta("last_tick"); err == nil {
		if t, err := strconv.ParseUint(tickStr, 10, 64); err == nil {
			tick = t
		}
	}

	return ecosystem.Snapshot{
		Population:         row.Population,
		VegetationPct:      row.VegetationPct,
		WaterPct:           row.WaterPct,
		Deaths:             row.Deaths,
		BirthRatePct:       row.BirthRatePct,
		DeathRatePct:       row.DeathRatePct,
		LastEventLabel:     row.LastEventLabel,
		LastEventIntensity: row.LastEventIntensity,
	}, tick, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
