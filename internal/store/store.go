package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on runs.inputs_hash
const currentSchemaVersion = 1

// Store is the generation ledger.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.WithHint(errors.Wrap(err, "failed to connect to database"),
			"check that the ledger directory exists and is writable")
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply pragmas")
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "failed to execute %q", pragma)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "failed to execute schema")
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "get user_version")
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return errors.Wrap(err, "set user_version")
	}
	return nil
}

// migrateToV1 adds the inputs_hash index for ledgers created before it was
// part of schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_inputs ON runs(inputs_hash)`)
	if err != nil {
		return errors.Wrap(err, "migrate to v1")
	}
	return nil
}

// Run is one recorded generation.
type Run struct {
	ID               string `json:"id"`
	Seq              int64  `json:"seq"`
	Job              string `json:"job"`
	OutputPath       string `json:"output_path"`
	IRHash           string `json:"ir_hash"`
	TemplateHash     string `json:"template_hash"`
	InputsHash       string `json:"inputs_hash"`
	OutputHash       string `json:"output_hash"`
	InstCount        int    `json:"inst_count"`
	GeneratorVersion string `json:"generator_version"`
	IRVersion        string `json:"ir_version"`
}

// RecordRun appends a run. ID and Seq are assigned by the store when zero;
// the assigned values are returned in the result.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, errors.Wrap(err, "record run")
	}
	defer tx.Rollback()

	if run.ID == "" {
		run.ID = uuid.Must(uuid.NewV7()).String()
	}
	if run.Seq == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
			return Run{}, errors.Wrap(err, "record run: next seq")
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, job, output_path, ir_hash, template_hash, inputs_hash, output_hash,
		 inst_count, generator_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Job,
		run.OutputPath,
		run.IRHash,
		run.TemplateHash,
		run.InputsHash,
		run.OutputHash,
		run.InstCount,
		run.GeneratorVersion,
		run.IRVersion,
	)
	if err != nil {
		return Run{}, errors.Wrap(err, "record run")
	}

	if err := tx.Commit(); err != nil {
		return Run{}, errors.Wrap(err, "record run: commit")
	}
	return run, nil
}

const runColumns = `id, seq, job, output_path, ir_hash, template_hash, inputs_hash, output_hash,
	inst_count, generator_version, ir_version`

// LastRun returns the most recent run that wrote outputPath.
// Returns sql.ErrNoRows if the output has never been generated.
func (s *Store) LastRun(ctx context.Context, outputPath string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE output_path = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, outputPath)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, sql.ErrNoRows
	}
	return run, err
}

// Runs lists recorded runs in seq order. An empty outputPath lists every run.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Runs(ctx context.Context, outputPath string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if outputPath != "" {
		query += ` WHERE output_path = ?`
		args = append(args, outputPath)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Job,
		&run.OutputPath,
		&run.IRHash,
		&run.TemplateHash,
		&run.InputsHash,
		&run.OutputHash,
		&run.InstCount,
		&run.GeneratorVersion,
		&run.IRVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, errors.Wrap(err, "scan run")
	}
	return run, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return errors.Wrapf(err, "failed to query %s", name)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
