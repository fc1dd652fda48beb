package sessionstore

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-playground/errors/v5"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
)

const name = "github.com/bontonsoft/hrmscore/sessionstore"

var _ KV = &PostgresDriver{}

// PostgresDriver stores the KV map in a PostgreSQL state table, for
// server-rendered deployments that keep session state out of process.
//
// Expected schema:
//
//	CREATE TABLE "SessionState" (
//	    "Key"       TEXT PRIMARY KEY,
//	    "Value"     TEXT NOT NULL,
//	    "UpdatedAt" TIMESTAMPTZ NOT NULL
//	);
type PostgresDriver struct {
	conn Queryer
}

// NewPostgresDriver creates a new PostgresDriver.
func NewPostgresDriver(conn Queryer) *PostgresDriver {
	return &PostgresDriver{
		conn: conn,
	}
}

// Get returns the value for key.
func (d *PostgresDriver) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "PostgresDriver.Get()")
	defer span.End()

	query := `
		SELECT "Value"
		FROM "SessionState"
		WHERE "Key" = $1`

	var value string
	if err := pgxscan.Get(ctx, d.conn, &value, query, key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}

		return "", false, errors.Wrapf(err, "failed to scan row for key %q", key)
	}

	return value, true, nil
}

// Set stores value under key.
func (d *PostgresDriver) Set(ctx context.Context, key, value string) error {
	ctx, span := otel.Tracer(name).Start(ctx, "PostgresDriver.Set()")
	defer span.End()

	query := `
		INSERT INTO "SessionState" ("Key", "Value", "UpdatedAt")
		VALUES ($1, $2, $3)
		ON CONFLICT ("Key") DO UPDATE
		SET "Value" = EXCLUDED."Value", "UpdatedAt" = EXCLUDED."UpdatedAt"`

	if _, err := d.conn.Exec(ctx, query, key, value, time.Now()); err != nil {
		return errors.Wrapf(err, "failed to upsert SessionState for key %q", key)
	}

	return nil
}

// Delete removes all given keys in one statement.
func (d *PostgresDriver) Delete(ctx context.Context, keys ...string) error {
	ctx, span := otel.Tracer(name).Start(ctx, "PostgresDriver.Delete()")
	defer span.End()

	if len(keys) == 0 {
		return nil
	}

	query := `
		DELETE FROM "SessionState"
		WHERE "Key" = ANY($1)`

	if _, err := d.conn.Exec(ctx, query, keys); err != nil {
		return errors.Wrapf(err, "failed to delete SessionState keys %v", keys)
	}

	return nil
}
