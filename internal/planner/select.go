package planner

import (
	"fmt"
	"strings"

	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/model"
	"github.com/opencrud/queryplanner/internal/queryargs"
	"github.com/opencrud/queryplanner/internal/sqlbuild"
)

// selectVariant picks the SELECT-head shape composeSelect renders (spec
// §4.4.3 step 3).
type selectVariant int

const (
	variantNormal selectVariant = iota
	variantListSubquery
	variantFTS
)

// selectArgs are the fully resolved list arguments for one select call:
// where/orderBy already parsed into structured trees, limit/offset already
// coerced Go values ready to bind as parameters.
type selectArgs struct {
	Where   *queryargs.Where
	OrderBy []*queryargs.OrderBy
	Limit   interface{}
	Offset  interface{}
}

// resolveListArgs parses a requested-field's raw list arguments against
// entityName.
func resolveListArgs(m *model.Model, entityName string, raw *fieldtree.ListArgs) (*selectArgs, error) {
	sa := &selectArgs{}
	if raw == nil {
		return sa, nil
	}
	w, err := queryargs.ParseWhere(raw.Where)
	if err != nil {
		return nil, NewUserError("where: %s", err)
	}
	sa.Where = w

	ob, err := queryargs.ParseOrderByList(m, entityName, raw.OrderBy)
	if err != nil {
		return nil, NewUserError("orderBy: %s", err)
	}
	sa.OrderBy = ob

	sa.Limit = raw.Limit
	sa.Offset = raw.Offset
	return sa, nil
}

// composeSelect is the single entry point of the Query Builder (spec
// §4.4.3). pc must own a join set scoped to this exact statement (the
// top-level pc, or a fresh pc.sub() for a nested list-subquery or an fts
// source arm). correlation, when non-nil, names a parent-correlating fk
// property on entityName and the parent row's native id expression; it is
// rendered as `<fk column> = <parentIDExpr>` and ANDed into the WHERE
// clause (a list-subquery's correlation predicate, spec §4.4.3 step 5).
// ftsQueryName/ftsTextParam are only consulted when variant == variantFTS.
func composeSelect(pc *planContext, entityName string, sa *selectArgs, fields map[string][]*fieldtree.Field, variant selectVariant, correlation *correlationSpec, ftsQueryName, ftsTextParam string) (string, error) {
	cur, err := NewRootCursor(pc, entityName)
	if err != nil {
		return "", err
	}

	cols := sqlbuild.NewColumnSet()
	if fields != nil {
		if err := populateColumns(pc, cur, cols, fields, buildListRelationSubSelect); err != nil {
			return "", err
		}
	}

	headSQL, err := selectHead(pc, cur, cols, variant, entityName, ftsQueryName, ftsTextParam)
	if err != nil {
		return "", err
	}

	fromSQL := fmt.Sprintf(" FROM %s %s", pc.quote(model.TableName(entityName)), pc.quote(cur.TableAlias()))

	var whereParts []string
	if sa != nil && sa.Where != nil {
		w, err := generateWhere(pc, cur, sa.Where)
		if err != nil {
			return "", err
		}
		if w != "" {
			whereParts = append(whereParts, w)
		}
	}
	if correlation != nil {
		fkExpr, err := cur.FK(correlation.FKProp)
		if err != nil {
			return "", err
		}
		whereParts = append(whereParts, fmt.Sprintf("%s = %s", fkExpr, correlation.ParentIDExpr))
	}
	if variant == variantFTS {
		tsv, err := cur.TSV(ftsQueryName)
		if err != nil {
			return "", err
		}
		whereParts = append(whereParts, fmt.Sprintf("phraseto_tsquery('english', %s) @@ %s", ftsTextParam, tsv))
	}

	orderSQL := ""
	if sa != nil && len(sa.OrderBy) > 0 {
		terms, err := populateOrderBy(cur, sa.OrderBy)
		if err != nil {
			return "", err
		}
		orderSQL = " ORDER BY " + strings.Join(terms, ", ")
	}

	// Rendered after the WHERE and ORDER BY walks, so every fk join either
	// of them registered is included.
	joinSQL := pc.joins.Render(pc.quoter)

	whereSQL := ""
	if len(whereParts) > 0 {
		whereSQL = " WHERE " + strings.Join(whereParts, " AND ")
	}

	limitOffsetSQL := ""
	if sa != nil {
		limitOffsetSQL = limitOffsetClause(pc, sa.Limit, sa.Offset)
	}

	sql := headSQL + fromSQL + joinSQL + whereSQL + orderSQL + limitOffsetSQL
	if variant == variantListSubquery {
		sql = collapseWhitespace(sql)
	}
	return sql, nil
}

func selectHead(pc *planContext, cur *Cursor, cols *sqlbuild.ColumnSet, variant selectVariant, entityName, ftsQueryName, ftsTextParam string) (string, error) {
	switch variant {
	case variantNormal:
		if cols.Len() == 0 {
			return "SELECT 1", nil
		}
		return "SELECT " + strings.Join(cols.Expressions(), ", "), nil

	case variantListSubquery:
		if cols.Len() == 0 {
			return "SELECT json_build_array()", nil
		}
		return "SELECT json_build_array(" + strings.Join(cols.Expressions(), ", ") + ")", nil

	case variantFTS:
		itemExpr := "'[]'::json"
		if cols.Len() > 0 {
			itemExpr = "json_build_array(" + strings.Join(cols.Expressions(), ", ") + ")"
		}
		tsv, err := cur.TSV(ftsQueryName)
		if err != nil {
			return "", err
		}
		doc, err := cur.Doc(ftsQueryName)
		if err != nil {
			return "", err
		}
		rank := fmt.Sprintf("ts_rank(%s, phraseto_tsquery('english', %s))", tsv, ftsTextParam)
		headline := fmt.Sprintf("ts_headline(%s, phraseto_tsquery('english', %s))", doc, ftsTextParam)
		return fmt.Sprintf("SELECT %s AS %s, %s AS rank, %s AS highlight, %s AS item",
			sqlStringLiteral(entityName), pc.quote("isTypeOf"), rank, headline, itemExpr), nil

	default:
		panic("planner: unreachable select variant")
	}
}

// correlationSpec names the parent-correlating predicate for a nested
// statement: the fk property on the nested entity, and the SQL expression
// for the parent row's id in the enclosing statement's scope.
type correlationSpec struct {
	FKProp       string
	ParentIDExpr string
}

// buildListRelationSubSelect implements subSelectFunc: it renders the
// correlated `array(...)`-embedded SELECT for one listRelation request
// (spec §4.4.3 step 2, last bullet).
func buildListRelationSubSelect(outerPC *planContext, entityName string, req *fieldtree.Field, parentIDExpr string) (string, error) {
	subPC := outerPC.sub()

	sa, err := resolveListArgs(subPC.model, entityName, req.Args)
	if err != nil {
		return "", err
	}

	correlation := &correlationSpec{FKProp: req.PropType.Field, ParentIDExpr: parentIDExpr}
	return composeSelect(subPC, entityName, sa, req.Children, variantListSubquery, correlation, "", "")
}

func limitOffsetClause(pc *planContext, limit, offset interface{}) string {
	var sb strings.Builder
	if limit != nil {
		fmt.Fprintf(&sb, " LIMIT %s", pc.params.Bind(limit))
	}
	if offset != nil {
		fmt.Fprintf(&sb, " OFFSET %s", pc.params.Bind(offset))
	}
	return sb.String()
}

func sqlStringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// collapseWhitespace rewrites sql onto a single line, required for a
// list-subquery statement since it is spliced inline as `array(<sql>)`
// inside the parent's column list (spec §4.4.3 step 3).
func collapseWhitespace(sql string) string {
	fields := strings.Fields(sql)
	return strings.Join(fields, " ")
}
