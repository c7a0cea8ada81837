package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:oscegrade.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/oscegrade?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS rubrics (
  rubric_id TEXT NOT NULL,
  version TEXT NOT NULL,
  status TEXT NOT NULL,
  body_json TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (rubric_id, version)
);

CREATE TABLE IF NOT EXISTS gradings (
  id TEXT PRIMARY KEY,
  rubric_id TEXT NOT NULL,
  rubric_version TEXT NOT NULL,
  transcript_id TEXT NOT NULL,
  overall_score REAL NOT NULL,
  result_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gradings_transcript ON gradings(transcript_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS rubrics (
  rubric_id TEXT NOT NULL,
  version TEXT NOT NULL,
  status TEXT NOT NULL,
  body_json TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (rubric_id, version)
);

CREATE TABLE IF NOT EXISTS gradings (
  id TEXT PRIMARY KEY,
  rubric_id TEXT NOT NULL,
  rubric_version TEXT NOT NULL,
  transcript_id TEXT NOT NULL,
  overall_score DOUBLE PRECISION NOT NULL,
  result_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gradings_transcript ON gradings(transcript_id);
`
