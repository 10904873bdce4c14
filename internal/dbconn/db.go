// Package dbconn wires a pooled Postgres connection into the planner's
// Connection contract, adapted from the teacher's sqlgen.DB: a context-
// carried transaction key so call sites never thread a *pgx.Tx by hand,
// and a QueryExecer-style indirection that resolves to whichever of pool
// or transaction is live on the context.
package dbconn

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samsarahq/go/oops"

	"github.com/opencrud/queryplanner/internal/planner"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx; it is the minimal
// surface the planner's Connection needs (spec §6.1).
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// DB owns the pooled connection for the process; it assumes the pool is
// established and alive for the lifetime of the object.
type DB struct {
	Pool *pgxpool.Pool
}

// New wraps an already-established pool.
func New(pool *pgxpool.Pool) *DB {
	return &DB{Pool: pool}
}

type txKey struct{}

// WithTx opens a new serializable, read-only transaction and returns a
// derived Context carrying it (spec §5: "each GraphQL request is handled
// inside one serializable read-only transaction ... opened at request
// start and committed at response end"). It is an error to call this on a
// Context that already carries a transaction for this DB.
func (db *DB) WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	if ctx.Value(txKey{}) != nil {
		return ctx, nil, errors.New("dbconn: already in a tx")
	}
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return ctx, nil, oops.Wrapf(err, "dbconn: opening transaction")
	}
	return context.WithValue(ctx, txKey{}, tx), tx, nil
}

// HasTx reports whether ctx carries a transaction opened by WithTx.
func (db *DB) HasTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// Querier resolves the live pgx.Tx on ctx, falling back to the pool
// itself when no transaction is open (e.g. a health check).
func (db *DB) Querier(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.Pool
}

// Query implements planner.Connection by delegating to whichever Querier
// is live on ctx and adapting pgx.Rows to planner.RowSource.
func (db *DB) Query(ctx context.Context, sql string, args []interface{}) (planner.RowSource, error) {
	rows, err := db.Querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, oops.Wrapf(err, "dbconn: query failed")
	}
	return &RowSource{rows: rows}, nil
}

var _ planner.Connection = (*DB)(nil)

// RowSource adapts pgx.Rows to the planner's RowSource contract. pgx's
// native Rows.Values() decodes Postgres arrays, jsonb, and composite types
// directly into Go interface{}/slice/map values, which is exactly the
// pre-typed row contract the planner needs (spec §6.1) — no manual
// database/sql scanning layer in between.
type RowSource struct {
	rows pgx.Rows
}

func (r *RowSource) Next() bool { return r.rows.Next() }

func (r *RowSource) Values() ([]interface{}, error) { return r.rows.Values() }

func (r *RowSource) Err() error { return r.rows.Err() }

func (r *RowSource) Close() { r.rows.Close() }
