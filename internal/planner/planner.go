package planner

import (
	"context"

	"github.com/opencrud/queryplanner/internal/codec"
	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/model"
	"github.com/opencrud/queryplanner/internal/queryargs"
	"github.com/opencrud/queryplanner/internal/sqlbuild"
	"github.com/opencrud/queryplanner/logger"
)

// RowSource is the per-statement result stream the Connection returns: a
// forward-only cursor over rows of pre-typed values (spec §6.1 — pgx's
// native Rows.Values() decoding satisfies this directly, with no manual
// database/sql scanning layer in between).
type RowSource interface {
	Next() bool
	Values() ([]interface{}, error)
	Err() error
	Close()
}

// Connection is the external collaborator the Transport Layer binds to one
// serializable read-only transaction and hands the planner for the
// lifetime of one request (spec §1, §5). The planner never opens,
// commits, or rolls back a transaction itself.
type Connection interface {
	Query(ctx context.Context, sql string, args []interface{}) (RowSource, error)
}

// Planner is bound to exactly one request and one Connection; it is never
// shared or reused across requests (spec §3.3, §5).
type Planner struct {
	model    *model.Model
	registry *codec.Registry
	quoter   sqlbuild.IdentifierQuoter
	conn     Connection
	log      logger.Logger
}

// New builds a Planner over the process-wide Model and Scalar Codec
// Registry, bound to a single request's Connection. log may be nil, in
// which case the planner does not log.
func New(m *model.Model, registry *codec.Registry, quoter sqlbuild.IdentifierQuoter, conn Connection, log logger.Logger) *Planner {
	return &Planner{model: m, registry: registry, quoter: quoter, conn: conn, log: log}
}

func (p *Planner) newPC() *planContext {
	return newPlanContext(p.model, p.registry, p.quoter)
}

// runQuery executes sql/params over the bound Connection and drains the
// result into in-memory rows. Plan generation is pure CPU work; this is
// the only suspension point (spec §5).
func (p *Planner) runQuery(ctx context.Context, sql string, params []interface{}) ([]Row, error) {
	// Query text is logged at debug only: it never carries bound literal
	// values (those travel as $N parameters), but it can still reveal
	// schema/shape detail not appropriate for a default-visible info log.
	if p.log != nil {
		p.log.Debug("planner: executing query", "sql", sql, "paramCount", len(params))
	}

	src, err := p.conn.Query(ctx, sql, params)
	if err != nil {
		if p.log != nil {
			p.log.Error("planner: query failed", "err", err)
		}
		return nil, wrapIO(err, "planner: query failed")
	}
	defer src.Close()

	var rows []Row
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return nil, wrapIO(err, "planner: reading row values")
		}
		rows = append(rows, Row(vals))
	}
	if err := src.Err(); err != nil {
		if p.log != nil {
			p.log.Error("planner: row iteration failed", "err", err)
		}
		return nil, wrapIO(err, "planner: row iteration")
	}
	return rows, nil
}

// ExecuteSelect is the top-level list operation (spec §4.4.3):
// `executeSelect(entity, args, fields) → rows[]`.
func (p *Planner) ExecuteSelect(ctx context.Context, entityName string, raw *fieldtree.ListArgs, fields map[string][]*fieldtree.Field) ([]map[string]interface{}, error) {
	pc := p.newPC()
	sa, err := resolveListArgs(pc.model, entityName, raw)
	if err != nil {
		return nil, err
	}
	sql, err := composeSelect(pc, entityName, sa, fields, variantNormal, nil, "", "")
	if err != nil {
		return nil, err
	}
	rows, err := p.runQuery(ctx, sql, pc.params.Values)
	if err != nil {
		return nil, err
	}
	return shapeRows(rows, fields), nil
}

// ExecuteSelectCount is `executeSelectCount(entity, where?) → number`.
func (p *Planner) ExecuteSelectCount(ctx context.Context, entityName string, where interface{}) (int64, error) {
	pc := p.newPC()
	w, err := queryargs.ParseWhere(where)
	if err != nil {
		return 0, NewUserError("where: %s", err)
	}
	return p.countWith(ctx, pc, entityName, &selectArgs{Where: w})
}

// ExecuteListCount is `executeListCount(entity, args) → number`: it counts
// the rows matching args' where. orderBy is validated, but orderBy, limit
// and offset are not applied, so the count is not capped by pagination.
func (p *Planner) ExecuteListCount(ctx context.Context, entityName string, raw *fieldtree.ListArgs) (int64, error) {
	pc := p.newPC()
	sa, err := resolveListArgs(pc.model, entityName, raw)
	if err != nil {
		return 0, err
	}
	return p.countWith(ctx, pc, entityName, &selectArgs{Where: sa.Where})
}

func (p *Planner) countWith(ctx context.Context, pc *planContext, entityName string, sa *selectArgs) (int64, error) {
	cur, err := NewRootCursor(pc, entityName)
	if err != nil {
		return 0, err
	}
	var whereSQL string
	if sa.Where != nil {
		w, err := generateWhere(pc, cur, sa.Where)
		if err != nil {
			return 0, err
		}
		whereSQL = w
	}
	sql := "SELECT count(*) FROM " + pc.quote(model.TableName(entityName)) + " " + pc.quote(cur.TableAlias())
	sql += pc.joins.Render(pc.quoter)
	if whereSQL != "" {
		sql += " WHERE " + whereSQL
	}
	rows, err := p.runQuery(ctx, sql, pc.params.Values)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, newSchemaError("planner: count query returned no rows")
	}
	return toInt64(rows[0][0])
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, newSchemaError("planner: unexpected count column type %T", v)
	}
}
