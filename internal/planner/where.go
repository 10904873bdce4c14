package planner

import (
	"fmt"

	"github.com/opencrud/queryplanner/internal/codec"
	"github.com/opencrud/queryplanner/internal/model"
	"github.com/opencrud/queryplanner/internal/queryargs"
)

// generateWhere renders a parsed Where tree as a SQL boolean expression
// rooted at cur, returning "" when w carries no conditions (spec §4.4.4,
// §8 invariant 5: an empty where-input contributes no WHERE clause at
// all, never a vacuous `1=1`).
func generateWhere(pc *planContext, cur *Cursor, w *queryargs.Where) (string, error) {
	if !queryargs.HasConditions(w) {
		return "", nil
	}

	var andParts []string
	for _, cond := range w.Conditions {
		part, err := addPropCondition(pc, cur, cond.Field, cond.Op, cond.Value)
		if err != nil {
			return "", err
		}
		if part != "" {
			andParts = append(andParts, part)
		}
	}
	for _, sub := range w.And {
		part, err := generateWhere(pc, cur, sub)
		if err != nil {
			return "", err
		}
		if part != "" {
			andParts = append(andParts, part)
		}
	}
	andGroup := joinParens(andParts, " AND ")

	if len(w.Or) == 0 {
		return andGroup, nil
	}

	orParts := make([]string, 0, len(w.Or)+1)
	if andGroup != "" {
		orParts = append(orParts, andGroup)
	}
	for _, alt := range w.Or {
		part, err := generateWhere(pc, cur, alt)
		if err != nil {
			return "", err
		}
		if part != "" {
			orParts = append(orParts, part)
		}
	}
	return joinParens(orParts, " OR "), nil
}

func joinParens(parts []string, sep string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		out := "(" + parts[0] + ")"
		for _, p := range parts[1:] {
			out += sep + "(" + p + ")"
		}
		return out
	}
}

// addPropCondition renders one field-level condition, dispatching on the
// kind of property it targets (spec §4.4.4).
func addPropCondition(pc *planContext, cur *Cursor, field, op string, value interface{}) (string, error) {
	prop, err := cur.Property(field)
	if err != nil {
		return "", err
	}

	switch prop.Type.Kind {
	case model.PTScalar, model.PTEnum:
		return scalarCondition(pc, cur, field, prop.Type, op, value)

	case model.PTList:
		return listCondition(pc, cur, field, op, value)

	case model.PTObject, model.PTUnion:
		if op != "eq" {
			return "", NewUserError("operator %q is not valid on object/union field %q", op, field)
		}
		return objectCondition(pc, cur, field, value)

	case model.PTFK:
		if op != "eq" {
			return "", NewUserError("operator %q is not valid on relation field %q", op, field)
		}
		return fkCondition(pc, cur, field, value)

	case model.PTListRelation:
		return listRelationCondition(pc, cur, field, op, value)

	default:
		panic("planner: unreachable property type kind in addPropCondition")
	}
}

func scalarCondition(pc *planContext, cur *Cursor, field string, pt *model.PropertyType, op string, value interface{}) (string, error) {
	lhs, err := cur.Native(field)
	if err != nil {
		return "", err
	}
	scalar, err := cur.scalarLike(pt)
	if err != nil {
		return "", err
	}

	switch op {
	case "eq", "not_eq", "gt", "gte", "lt", "lte":
		sqlOp, ok := whereOpToSQLOperator[op]
		if !ok {
			panic("planner: missing SQL operator mapping for " + op)
		}
		wire, ok := value.(string)
		if !ok {
			return "", NewUserError("%s: expected a scalar literal, got %T", field, value)
		}
		native, err := scalar.FromTransport(wire)
		if err != nil {
			return "", NewUserError("%s: %s", field, err)
		}
		ph := pc.params.Bind(native)
		return fmt.Sprintf("%s %s %s", lhs, sqlOp, scalar.FromTransportCast(ph)), nil

	case "in", "not_in":
		items, err := asStringList(value, field)
		if err != nil {
			return "", err
		}
		phs := make([]string, 0, len(items))
		for _, wire := range items {
			native, err := scalar.FromTransport(wire)
			if err != nil {
				return "", NewUserError("%s: %s", field, err)
			}
			phs = append(phs, scalar.FromTransportCast(pc.params.Bind(native)))
		}
		kw := "IN"
		if op == "not_in" {
			kw = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", lhs, kw, joinCSV(phs)), nil

	case "contains", "not_contains":
		ph, err := bindScalarLiteral(pc, scalar, field, value)
		if err != nil {
			return "", err
		}
		if op == "contains" {
			return fmt.Sprintf("position(%s in %s) > 0", ph, lhs), nil
		}
		return fmt.Sprintf("position(%s in %s) = 0", ph, lhs), nil

	case "startsWith", "not_startsWith":
		ph, err := bindScalarLiteral(pc, scalar, field, value)
		if err != nil {
			return "", err
		}
		if op == "startsWith" {
			return fmt.Sprintf("starts_with(%s, %s)", lhs, ph), nil
		}
		return fmt.Sprintf("NOT starts_with(%s, %s)", lhs, ph), nil

	case "endsWith", "not_endsWith":
		ph, err := bindScalarLiteral(pc, scalar, field, value)
		if err != nil {
			return "", err
		}
		if op == "endsWith" {
			return fmt.Sprintf("right(%s, length(%s)) = %s", lhs, ph, ph), nil
		}
		return fmt.Sprintf("right(%s, length(%s)) != %s", lhs, ph, ph), nil

	default:
		return "", NewUserError("operator %q is not valid on scalar field %q", op, field)
	}
}

func bindScalarLiteral(pc *planContext, scalar *codec.Scalar, field string, value interface{}) (string, error) {
	wire, ok := value.(string)
	if !ok {
		return "", NewUserError("%s: expected a scalar literal, got %T", field, value)
	}
	native, err := scalar.FromTransport(wire)
	if err != nil {
		return "", NewUserError("%s: %s", field, err)
	}
	return scalar.FromTransportCast(pc.params.Bind(native)), nil
}

var whereOpToSQLOperator = map[string]string{
	"eq":     "=",
	"not_eq": "!=",
	"gt":     ">",
	"gte":    ">=",
	"lt":     "<",
	"lte":    "<=",
}

func asStringList(value interface{}, field string) ([]string, error) {
	list, ok := value.([]interface{})
	if !ok {
		return nil, NewUserError("%s: expected a list literal, got %T", field, value)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, NewUserError("%s: expected a list of scalar literals, got element of type %T", field, item)
		}
		out = append(out, s)
	}
	return out, nil
}

func listCondition(pc *planContext, cur *Cursor, field, op string, value interface{}) (string, error) {
	arrExpr, itemScalar, err := cur.NativeArray(field)
	if err != nil {
		return "", err
	}
	items, err := asStringList(value, field)
	if err != nil {
		return "", err
	}
	natives := make([]interface{}, 0, len(items))
	for _, wire := range items {
		v, err := itemScalar.FromTransport(wire)
		if err != nil {
			return "", NewUserError("%s: %s", field, err)
		}
		natives = append(natives, v)
	}
	ph := pc.params.Bind(natives)
	arrLit := itemScalar.FromTransportArrayCast(ph)

	switch op {
	case "containsAll":
		return fmt.Sprintf("%s @> %s", arrExpr, arrLit), nil
	case "containsAny":
		return fmt.Sprintf("%s && %s", arrExpr, arrLit), nil
	default:
		return "", NewUserError("operator %q is not valid on list field %q", op, field)
	}
}

func joinCSV(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	out := items[0]
	for _, it := range items[1:] {
		out += ", " + it
	}
	return out
}

func objectCondition(pc *planContext, cur *Cursor, field string, value interface{}) (string, error) {
	sub, ok := value.(map[string]interface{})
	if !ok {
		return "", NewUserError("%s: expected an object literal, got %T", field, value)
	}
	inner, err := queryargs.ParseWhere(sub)
	if err != nil {
		return "", NewUserError("%s: %s", field, err)
	}
	if !queryargs.HasConditions(inner) {
		return "", nil
	}
	child, err := cur.Child(field)
	if err != nil {
		return "", err
	}
	return generateWhere(pc, child, inner)
}

func fkCondition(pc *planContext, cur *Cursor, field string, value interface{}) (string, error) {
	if value == nil {
		fkExpr, err := cur.FK(field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s IS NULL", fkExpr), nil
	}
	return objectCondition(pc, cur, field, value)
}

// listRelationCondition implements some/every/none (spec §4.4.4). value is
// the nested where-input applied to the related entity's rows.
func listRelationCondition(pc *planContext, cur *Cursor, field, op string, value interface{}) (string, error) {
	prop, err := cur.Property(field)
	if err != nil {
		return "", err
	}
	if prop.Type.Kind != model.PTListRelation {
		return "", NewUserError("operator %q is only valid on a list-relation field, not %q", op, field)
	}

	var sub map[string]interface{}
	if value != nil {
		var ok bool
		sub, ok = value.(map[string]interface{})
		if !ok {
			return "", NewUserError("%s: expected an object literal, got %T", field, value)
		}
	}
	innerWhere, err := queryargs.ParseWhere(sub)
	if err != nil {
		return "", NewUserError("%s: %s", field, err)
	}

	if op == "every" && !queryargs.HasConditions(innerWhere) {
		return "", nil
	}

	subPC := pc.sub()
	relCur, err := NewRootCursor(subPC, prop.Type.Entity)
	if err != nil {
		return "", err
	}
	fkExpr, err := relCur.FK(prop.Type.Field)
	if err != nil {
		return "", err
	}
	parentID, err := cur.Native("id")
	if err != nil {
		return "", err
	}
	correlation := fmt.Sprintf("%s = %s", fkExpr, parentID)

	innerSQL, err := generateWhere(subPC, relCur, innerWhere)
	if err != nil {
		return "", err
	}
	whereClause := correlation
	if innerSQL != "" {
		whereClause = correlation + " AND (" + innerSQL + ")"
	}

	table := model.TableName(prop.Type.Entity)
	alias := relCur.TableAlias()
	from := fmt.Sprintf("%s %s", pc.quote(table), pc.quote(alias))
	joins := subPC.joins.Render(pc.quoter)

	switch op {
	case "some":
		return fmt.Sprintf("(SELECT true FROM %s%s WHERE %s LIMIT 1)", from, joins, whereClause), nil

	case "every":
		matched := fmt.Sprintf("(SELECT count(*) FROM %s%s WHERE %s)", from, joins, whereClause)
		total := fmt.Sprintf("(SELECT count(*) FROM %s%s WHERE %s)", from, joins, correlation)
		return fmt.Sprintf("%s = %s", matched, total), nil

	case "none":
		return fmt.Sprintf("(SELECT count(*) FROM (SELECT true FROM %s%s WHERE %s LIMIT 1) AS _a) = 0", from, joins, whereClause), nil

	default:
		return "", NewUserError("operator %q is not valid on list-relation field %q", op, field)
	}
}
