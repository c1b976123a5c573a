// Package statushistory persists periodic snapshots of a
// transformer.TransformerStatus to SQLite, external to the engine itself:
// the engine stays single-threaded and in-memory, and whatever drives its
// Step loop decides when (if ever) to call Record. Grounded on the
// reference server's embedded-SQLite-plus-migrations pattern.
package statushistory

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	transformer "github.com/saarnold/drivers-transformer"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed append-only log of TransformationStatus
// snapshots.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and applies
// any pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("statushistory: open %s: %w", path, err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	srcDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("statushistory: load embedded migrations: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("statushistory: create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("statushistory: create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("statushistory: migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { log.Printf("[statushistory] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Record appends one row per handle in status. Every row is tagged with a
// fresh random id rather than an auto-increment primary key, since a single
// snapshot can contain duplicate (source_global, target_global) pairs if the
// caller registered more than one handle for the same mapped frame pair.
func (s *Store) Record(status transformer.TransformerStatus) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statushistory: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO transformation_status (
			id, recorded_at, source_local, target_local, source_global, target_global,
			valid, chain_length, last_generated_value,
			generated, failed_no_chain, failed_no_sample, failed_interpolation_impossible
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("statushistory: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ts := range status.Transformations {
		var lastGenerated interface{}
		if !ts.LastGeneratedValue.IsZero() {
			lastGenerated = ts.LastGeneratedValue
		}
		_, err := stmt.Exec(
			uuid.NewString(), status.Time,
			string(ts.SourceLocal), string(ts.TargetLocal), string(ts.SourceGlobal), string(ts.TargetGlobal),
			ts.Valid, ts.ChainLength, lastGenerated,
			ts.GeneratedTransformations, ts.FailedNoChain, ts.FailedNoSample, ts.FailedInterpolationImpossible,
		)
		if err != nil {
			return fmt.Errorf("statushistory: insert row: %w", err)
		}
	}

	return tx.Commit()
}

// Record is one persisted TransformationStatus snapshot row.
type Record struct {
	ID                            string
	RecordedAt                    time.Time
	SourceLocal, TargetLocal      string
	SourceGlobal, TargetGlobal    string
	Valid                         bool
	ChainLength                   int
	LastGeneratedValue            time.Time
	Generated                     uint64
	FailedNoChain                 uint64
	FailedNoSample                uint64
	FailedInterpolationImpossible uint64
}

// Latest returns up to limit of the most recent rows for (sourceGlobal,
// targetGlobal), newest first.
func (s *Store) Latest(sourceGlobal, targetGlobal string, limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, recorded_at, source_local, target_local, source_global, target_global,
		       valid, chain_length, last_generated_value,
		       generated, failed_no_chain, failed_no_sample, failed_interpolation_impossible
		FROM transformation_status
		WHERE source_global = ? AND target_global = ?
		ORDER BY recorded_at DESC
		LIMIT ?
	`, sourceGlobal, targetGlobal, limit)
	if err != nil {
		return nil, fmt.Errorf("statushistory: query latest: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var lastGenerated sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.RecordedAt, &r.SourceLocal, &r.TargetLocal, &r.SourceGlobal, &r.TargetGlobal,
			&r.Valid, &r.ChainLength, &lastGenerated,
			&r.Generated, &r.FailedNoChain, &r.FailedNoSample, &r.FailedInterpolationImpossible,
		); err != nil {
			return nil, fmt.Errorf("statushistory: scan row: %w", err)
		}
		if lastGenerated.Valid {
			r.LastGeneratedValue = lastGenerated.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
