package planner

import (
	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/model"
	"github.com/opencrud/queryplanner/internal/sqlbuild"
)

// subSelectFunc renders a correlated list-relation subquery for one
// listRelation request, returning the `array(...)`-ready SELECT text.
// Supplied by select.go so columns.go never has to know about statement
// assembly.
type subSelectFunc func(pc *planContext, entityName string, req *fieldtree.Field, parentIDExpr string) (string, error)

// populateColumns walks fields (as produced by fieldtree.Build) against
// cur, registering each leaf's SQL expression in cols and recording the
// row index it will read from (spec §4.4.3 step 2).
func populateColumns(pc *planContext, cur *Cursor, cols *sqlbuild.ColumnSet, fields map[string][]*fieldtree.Field, buildSubSelect subSelectFunc) error {
	for propName, reqs := range fields {
		for _, req := range reqs {
			if err := populateOne(pc, cur, cols, propName, req, buildSubSelect); err != nil {
				return err
			}
		}
	}
	return nil
}

func populateOne(pc *planContext, cur *Cursor, cols *sqlbuild.ColumnSet, propName string, req *fieldtree.Field, buildSubSelect subSelectFunc) error {
	switch req.PropType.Kind {
	case model.PTScalar, model.PTEnum, model.PTList:
		expr, err := cur.Transport(propName)
		if err != nil {
			return err
		}
		req.Index = cols.Add(expr)
		return nil

	case model.PTObject:
		fieldExpr, err := cur.Field(propName)
		if err != nil {
			return err
		}
		req.Index = cols.Add(fieldExpr + " IS NULL")
		child, err := cur.Child(propName)
		if err != nil {
			return err
		}
		return populateColumns(pc, child, cols, req.Children, buildSubSelect)

	case model.PTUnion:
		child, err := cur.Child(propName)
		if err != nil {
			return err
		}
		discExpr, err := child.Transport("isTypeOf")
		if err != nil {
			return err
		}
		req.Index = cols.Add(discExpr)
		return populateColumns(pc, child, cols, req.Children, buildSubSelect)

	case model.PTFK:
		child, err := cur.Child(propName)
		if err != nil {
			return err
		}
		idExpr, err := child.Transport("id")
		if err != nil {
			return err
		}
		req.Index = cols.Add(idExpr)
		return populateColumns(pc, child, cols, req.Children, buildSubSelect)

	case model.PTListRelation:
		parentID, err := cur.Native("id")
		if err != nil {
			return err
		}
		sub, err := buildSubSelect(pc, req.PropType.Entity, req, parentID)
		if err != nil {
			return err
		}
		expr := "array(" + sub + ")"
		req.Index = cols.Add(expr)
		return nil

	default:
		panic("planner: unreachable property type kind in populateColumns")
	}
}
