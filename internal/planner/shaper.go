package planner

import (
	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/model"
)

// Row is one flat result row as pgx decodes it: pre-typed Go values, one
// per ColumnSet entry (spec §6.1).
type Row []interface{}

// shapeRows walks fields against each row, producing the nested response
// objects the Row Shaper reconstructs (spec §4.4.5).
func shapeRows(rows []Row, fields map[string][]*fieldtree.Field) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		out = append(out, shapeOne(row, fields))
	}
	return out
}

// shapeOne reconstructs one nested object from row using fields.
func shapeOne(row Row, fields map[string][]*fieldtree.Field) map[string]interface{} {
	obj := make(map[string]interface{})
	for _, reqs := range fields {
		for _, req := range reqs {
			v, present := shapeField(row, req)
			if present {
				obj[req.Alias] = v
			} else if req.Nullable {
				obj[req.Alias] = nil
			}
		}
	}
	return obj
}

// shapeField reads req's value out of row, returning (value, present).
// present is false when an object/union/fk field is null — in that case
// the caller writes an explicit nil for nullable fields and omits the key
// otherwise, matching GraphQL null-vs-absent semantics for the shapes the
// planner itself controls.
func shapeField(row Row, req *fieldtree.Field) (interface{}, bool) {
	switch req.PropType.Kind {
	case model.PTScalar, model.PTEnum, model.PTList:
		return row[req.Index], true

	case model.PTObject:
		isNull, _ := row[req.Index].(bool)
		if isNull {
			return nil, false
		}
		return shapeOne(row, req.Children), true

	case model.PTUnion:
		discVal := row[req.Index]
		if discVal == nil {
			return nil, false
		}
		discriminator, _ := discVal.(string)
		result := shapeUnion(row, req.Children, discriminator)
		result["isTypeOf"] = discriminator
		return result, true

	case model.PTFK:
		idVal := row[req.Index]
		if idVal == nil {
			return nil, false
		}
		return shapeOne(row, req.Children), true

	case model.PTListRelation:
		cell := row[req.Index]
		items, _ := cell.([]interface{})
		shaped := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			itemRow, _ := item.([]interface{})
			shaped = append(shaped, shapeOne(Row(itemRow), req.Children))
		}
		return shaped, true

	default:
		panic("planner: unreachable property type kind in shapeField")
	}
}

// shapeUnion reconstructs a union field's value: every shared (no IfType)
// child request applies unconditionally, while per-variant requests apply
// only when their IfType matches discriminator (spec §4.4.5).
func shapeUnion(row Row, children map[string][]*fieldtree.Field, discriminator string) map[string]interface{} {
	obj := make(map[string]interface{})
	for _, reqs := range children {
		for _, req := range reqs {
			if req.IfType != "" && req.IfType != discriminator {
				continue
			}
			v, present := shapeField(row, req)
			if present {
				obj[req.Alias] = v
			} else if req.Nullable {
				obj[req.Alias] = nil
			}
		}
	}
	return obj
}
