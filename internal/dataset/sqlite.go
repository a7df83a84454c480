package dataset

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is stored in the metadata table of every database the sink creates.
const SchemaVersion = "1"

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	classes_dir TEXT NOT NULL,
	source_root TEXT NOT NULL,
	algorithm   TEXT NOT NULL,
	records     INTEGER NOT NULL DEFAULT 0
)`

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS records (
	run_id            TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq               INTEGER NOT NULL,
	fqn               TEXT NOT NULL,
	signature         TEXT NOT NULL,
	jimple            TEXT NOT NULL,
	callees           TEXT NOT NULL,
	method_modifiers  TEXT NOT NULL,
	class_modifiers   TEXT NOT NULL,
	javadoc           TEXT NOT NULL,
	method_body       TEXT NOT NULL,
	imports           TEXT NOT NULL,
	class_javadoc     TEXT NOT NULL,
	class_fns_ctors   TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
)`

const createRecordsIndex = `CREATE INDEX IF NOT EXISTS idx_records_fqn ON records(fqn)`

// RunInfo describes the extraction run recorded alongside the rows.
type RunInfo struct {
	ClassesDir string
	SourceRoot string
	Algorithm  string
}

// SQLiteSink mirrors records into a SQLite database. Each run gets a fresh
// run ID; rows are written in one transaction committed by Close or
// discarded by Abort.
type SQLiteSink struct {
	db    *sql.DB
	tx    *sql.Tx
	runID string
	seq   int
}

// OpenSQLite opens or creates the database at dbPath and starts a run.
func OpenSQLite(dbPath string, info RunInfo) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Enable foreign keys (required for FK constraints)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	s := &SQLiteSink{db: db, tx: tx, runID: uuid.NewString()}
	_, err = sq.Insert("runs").
		Columns("run_id", "started_at", "classes_dir", "source_root", "algorithm").
		Values(s.runID, time.Now().UTC().Format(time.RFC3339), info.ClassesDir, info.SourceRoot, info.Algorithm).
		RunWith(tx).
		Exec()
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return s, nil
}

func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	for _, ddl := range []string{createMetadataTable, createRunsTable, createRecordsTable, createRecordsIndex} {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	_, err = sq.Insert("metadata").
		Options("OR IGNORE").
		Columns("key", "value").
		Values("schema_version", SchemaVersion).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// RunID returns the identifier of the run being written.
func (s *SQLiteSink) RunID() string {
	return s.runID
}

// Write inserts one record.
func (s *SQLiteSink) Write(r Record) error {
	_, err := sq.Insert("records").
		Columns("run_id", "seq", "fqn", "signature", "jimple", "callees",
			"method_modifiers", "class_modifiers", "javadoc", "method_body",
			"imports", "class_javadoc", "class_fns_ctors").
		Values(s.runID, s.seq, r.FQN, r.Signature, r.Jimple, r.Callees,
			r.MethodModifiers, r.ClassModifiers, r.JavaDoc, r.MethodBody,
			r.Imports, r.ClassJavaDoc, r.ClassFnCs).
		RunWith(s.tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", r.FQN, err)
	}
	s.seq++
	return nil
}

// Close records the row count, commits the run and closes the database.
func (s *SQLiteSink) Close() error {
	defer s.db.Close()

	_, err := sq.Update("runs").
		Set("records", s.seq).
		Where(sq.Eq{"run_id": s.runID}).
		RunWith(s.tx).
		Exec()
	if err != nil {
		s.tx.Rollback()
		return fmt.Errorf("failed to update run: %w", err)
	}

	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Abort rolls back the run, leaving neither the run row nor its records,
// and closes the database.
func (s *SQLiteSink) Abort() error {
	defer s.db.Close()

	if err := s.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back run %s: %w", s.runID, err)
	}
	return nil
}
