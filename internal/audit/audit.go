// Package audit implements the optional rotation-history sink of
// SPEC_FULL §4.4a: a durable, non-authoritative Postgres log of every job
// firing. Its absence or failure never affects engine correctness -- a
// write error here is logged at WARNING and swallowed by the caller.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" sql.DB driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Outcome is the recorded result of one job firing.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRetryable Outcome = "retryable"
	OutcomeFatal     Outcome = "fatal"
)

// Entry is one RotationHistory row (SPEC_FULL §3). ExecutionID identifies
// the row; Record fills in a random UUID when it is empty. The engine
// leaves it empty and does not include it in its log lines, so rows are
// not linked to specific log lines.
type Entry struct {
	ExecutionID string
	JobID       string
	FiredAt     time.Time
	Outcome     Outcome
	OldValues   []string
	NewValues   []string
	ErrorDetail string
}

// Sink writes Entry rows to Postgres. The zero value is unusable; build
// one with Open.
type Sink struct {
	db *sql.DB
}

// Open connects to dsn, applies pending migrations, and returns a ready
// Sink. Callers that don't configure an audit DSN should simply not call
// Open -- every engine code path treats a nil *Sink as "audit disabled".
func Open(dsn string) (*Sink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("migrate audit database: %w", err)
	}
	return &Sink{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Record appends one Entry. Failures are returned, not logged -- the
// caller (the engine) decides the WARNING-and-continue policy so this
// package stays free of a logging dependency on its hot path.
func (s *Sink) Record(ctx context.Context, e Entry) error {
	if e.ExecutionID == "" {
		e.ExecutionID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rotation_history (execution_id, job_id, fired_at, outcome, old_values, new_values, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ExecutionID, e.JobID, e.FiredAt, string(e.Outcome), pqStringArray(e.OldValues), pqStringArray(e.NewValues), e.ErrorDetail,
	)
	return err
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error {
	return s.db.Close()
}

// pqStringArray renders a Go string slice as a Postgres text[] literal.
// golang-migrate's driver stack here is database/sql based, so we avoid
// pulling in lib/pq's array helper and format the literal directly.
func pqStringArray(vals []string) string {
	if len(vals) == 0 {
		return "{}"
	}
	out := "{"
	for i, v := range vals {
		if i > 0 {
			out += ","
		}
		out += `"` + escapeArrayElem(v) + `"`
	}
	return out + "}"
}

func escapeArrayElem(v string) string {
	out := make([]byte, 0, len(v))
	for _, c := range []byte(v) {
		if c == '"' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
