// Package graphqlio is a thin graphql-go/graphql bridge between a hand-
// assembled schema and the query planner: it turns a resolver's AST
// selection set into the planner's requested-field trees and wraps the
// planner's list/connection/fulltext-search operations as
// graphql.FieldResolveFn values a schema's field configs can reference
// directly. It is not a schema generator and not a resolver engine — the
// schema itself (Schema Loader, API Schema Generator) is an external
// collaborator; this package only carries requests across the boundary.
package graphqlio

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/model"
	"github.com/opencrud/queryplanner/internal/planner"
)

// flattenSelectionSet resolves fragment spreads and inline fragments into a
// flat list of ast.Field, the way fieldtree.Build expects to receive a
// union field's merged sub-selections (spec §4.2): type-condition scoping
// is enforced later, by fieldtree.Build rejecting a name that no union
// variant declares.
func flattenSelectionSet(ss *ast.SelectionSet, info graphql.ResolveInfo) []*ast.Field {
	if ss == nil {
		return nil
	}
	var out []*ast.Field
	for _, sel := range ss.Selections {
		switch s := sel.(type) {
		case *ast.Field:
			out = append(out, s)
		case *ast.InlineFragment:
			out = append(out, flattenSelectionSet(s.SelectionSet, info)...)
		case *ast.FragmentSpread:
			def, ok := info.Fragments[s.Name.Value].(*ast.FragmentDefinition)
			if !ok {
				continue
			}
			out = append(out, flattenSelectionSet(def.SelectionSet, info)...)
		}
	}
	return out
}

// typedSelectionSet is a selection-set fragment scoped to one GraphQL type
// condition (an "... on Entity { ... }" inline fragment, or a fragment
// spread with one), used to route a full-text search result's per-source
// field requests (spec §4.4.7's item is effectively a union of the
// configured source entities).
func typedSelectionSet(ss *ast.SelectionSet, info graphql.ResolveInfo) map[string][]*ast.Field {
	byType := make(map[string][]*ast.Field)
	if ss == nil {
		return byType
	}
	var walk func(ss *ast.SelectionSet, onType string)
	walk = func(ss *ast.SelectionSet, onType string) {
		for _, sel := range ss.Selections {
			switch s := sel.(type) {
			case *ast.Field:
				if onType == "" {
					continue
				}
				byType[onType] = append(byType[onType], s)
			case *ast.InlineFragment:
				cond := onType
				if s.TypeCondition != nil {
					cond = s.TypeCondition.Name.Value
				}
				walk(s.SelectionSet, cond)
			case *ast.FragmentSpread:
				def, ok := info.Fragments[s.Name.Value].(*ast.FragmentDefinition)
				if !ok {
					continue
				}
				cond := onType
				if def.TypeCondition != nil {
					cond = def.TypeCondition.Name.Value
				}
				walk(def.SelectionSet, cond)
			}
		}
	}
	walk(ss, "")
	return byType
}

// toSelection converts one resolved ast.Field (and, recursively, its
// flattened sub-selections) into a fieldtree.Selection.
func toSelection(f *ast.Field, info graphql.ResolveInfo) *fieldtree.Selection {
	name := f.Name.Value
	alias := name
	if f.Alias != nil {
		alias = f.Alias.Value
	}
	var args map[string]interface{}
	if len(f.Arguments) > 0 {
		args = make(map[string]interface{}, len(f.Arguments))
		for _, a := range f.Arguments {
			args[a.Name.Value] = valueFromAST(a.Value, info.VariableValues)
		}
	}
	flat := flattenSelectionSet(f.SelectionSet, info)
	var subs []*fieldtree.Selection
	for _, sub := range flat {
		subs = append(subs, toSelection(sub, info))
	}
	return &fieldtree.Selection{Name: name, Alias: alias, Args: args, SubSelections: subs}
}

// valueFromAST coerces a literal (or variable reference) out of a parsed
// argument value, the way an _Any-style custom scalar's ParseLiteral does
// in the federation pack example this is grounded on.
func valueFromAST(v ast.Value, vars map[string]interface{}) interface{} {
	switch val := v.(type) {
	case *ast.Variable:
		return vars[val.Name.Value]
	case *ast.IntValue:
		n, err := strconv.Atoi(val.Value)
		if err != nil {
			return val.Value
		}
		return n
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(val.Value, 64)
		if err != nil {
			return val.Value
		}
		return f
	case *ast.StringValue:
		return val.Value
	case *ast.BooleanValue:
		return val.Value
	case *ast.EnumValue:
		return val.Value
	case *ast.NullValue:
		return nil
	case *ast.ListValue:
		out := make([]interface{}, 0, len(val.Values))
		for _, item := range val.Values {
			out = append(out, valueFromAST(item, vars))
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(val.Fields))
		for _, field := range val.Fields {
			out[field.Name.Value] = valueFromAST(field.Value, vars)
		}
		return out
	default:
		return nil
	}
}

// requestedFields builds the requested-field tree for entityName off of
// p's current resolved field selection (spec §3.2, §4.2).
func requestedFields(m *model.Model, entityName string, p graphql.ResolveParams) (map[string][]*fieldtree.Field, error) {
	if len(p.Info.FieldASTs) == 0 {
		return nil, fmt.Errorf("graphqlio: resolver has no field AST")
	}
	var selections []*fieldtree.Selection
	for _, f := range flattenSelectionSet(p.Info.FieldASTs[0].SelectionSet, p.Info) {
		selections = append(selections, toSelection(f, p.Info))
	}
	return fieldtree.Build(m, entityName, selections)
}

// rawListArgs lifts where/orderBy/offset/limit straight off the resolver's
// already-coerced top-level Args.
func rawListArgs(p graphql.ResolveParams) *fieldtree.ListArgs {
	return &fieldtree.ListArgs{
		Where:   p.Args["where"],
		OrderBy: p.Args["orderBy"],
		Offset:  p.Args["offset"],
		Limit:   p.Args["limit"],
	}
}

// JSONScalar is a ready-made graphql-go Scalar for the planner's loosely
// typed where/orderBy-shaped arguments (spec §6.1 hands the planner
// pre-validated args as plain interface{} trees; the concrete Where/OrderBy
// input types are themselves the out-of-scope Schema Loader's concern).
// Grounded on the same ParseLiteral-over-ast.Value pattern used for custom
// passthrough scalars elsewhere in the retrieved graphql-go pack.
var JSONScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "An arbitrary JSON-shaped value (where/orderBy input, etc).",
	Serialize:   func(value interface{}) interface{} { return value },
	ParseValue:  func(value interface{}) interface{} { return value },
	ParseLiteral: func(valueAST ast.Value) interface{} {
		return valueFromAST(valueAST, nil)
	},
})

// Executor resolves a request-scoped *planner.Planner off of a resolve
// context; the (out of scope) Transport Layer is expected to stash one
// Planner per request (bound to the request's serializable read-only
// transaction) and supply it here.
type Executor func(p graphql.ResolveParams) (*planner.Planner, error)

// SelectResolver wraps Planner.ExecuteSelect as a field resolver for a
// top-level list field (spec §4.4.3).
func SelectResolver(m *model.Model, entityName string, exec Executor) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		pl, err := exec(p)
		if err != nil {
			return nil, err
		}
		fields, err := requestedFields(m, entityName, p)
		if err != nil {
			return nil, err
		}
		return pl.ExecuteSelect(p.Context, entityName, rawListArgs(p), fields)
	}
}

// SelectCountResolver wraps Planner.ExecuteSelectCount as a field resolver
// (spec §4.4.4).
func SelectCountResolver(entityName string, exec Executor) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		pl, err := exec(p)
		if err != nil {
			return nil, err
		}
		return pl.ExecuteSelectCount(p.Context, entityName, p.Args["where"])
	}
}

// ListCountResolver wraps Planner.ExecuteListCount as a field resolver
// (spec §4.4.4).
func ListCountResolver(entityName string, exec Executor) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		pl, err := exec(p)
		if err != nil {
			return nil, err
		}
		return pl.ExecuteListCount(p.Context, entityName, rawListArgs(p))
	}
}

// connectionFields walks a connection field's flattened selection into
// planner.ConnectionFields (spec §4.4.6): totalCount, pageInfo, and
// edges.node/edges.cursor, the last of which drives which entity fields
// get requested.
func connectionFields(m *model.Model, entityName string, p graphql.ResolveParams) (planner.ConnectionFields, error) {
	var out planner.ConnectionFields
	if len(p.Info.FieldASTs) == 0 {
		return out, fmt.Errorf("graphqlio: resolver has no field AST")
	}
	for _, f := range flattenSelectionSet(p.Info.FieldASTs[0].SelectionSet, p.Info) {
		switch f.Name.Value {
		case "totalCount":
			out.TotalCount = true
		case "pageInfo":
			out.PageInfo = true
		case "edges":
			for _, edgeField := range flattenSelectionSet(f.SelectionSet, p.Info) {
				switch edgeField.Name.Value {
				case "cursor":
					out.WantCursor = true
				case "node":
					var nodeSelections []*fieldtree.Selection
					for _, nf := range flattenSelectionSet(edgeField.SelectionSet, p.Info) {
						nodeSelections = append(nodeSelections, toSelection(nf, p.Info))
					}
					nodeFields, err := fieldtree.Build(m, entityName, nodeSelections)
					if err != nil {
						return out, err
					}
					out.NodeFields = nodeFields
				}
			}
		}
	}
	return out, nil
}

// ConnectionResolver wraps Planner.ExecuteConnection as a field resolver
// for a Relay-style connection field (spec §4.4.6).
func ConnectionResolver(m *model.Model, entityName string, exec Executor) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		pl, err := exec(p)
		if err != nil {
			return nil, err
		}
		fields, err := connectionFields(m, entityName, p)
		if err != nil {
			return nil, err
		}
		args := planner.ConnectionArgs{
			First:   p.Args["first"],
			After:   p.Args["after"],
			Where:   p.Args["where"],
			OrderBy: p.Args["orderBy"],
		}
		return pl.ExecuteConnection(p.Context, entityName, args, fields)
	}
}

// ftsFields walks a full-text search field's flattened selection into
// planner.FtsFields (spec §4.4.7): rank, highlight, and item's per-source
// entity sub-selections (item is a union over the query's configured
// source entities).
func ftsFields(m *model.Model, sourceEntities []string, p graphql.ResolveParams) (planner.FtsFields, error) {
	var out planner.FtsFields
	if len(p.Info.FieldASTs) == 0 {
		return out, fmt.Errorf("graphqlio: resolver has no field AST")
	}
	for _, f := range flattenSelectionSet(p.Info.FieldASTs[0].SelectionSet, p.Info) {
		switch f.Name.Value {
		case "rank":
			out.Rank = true
		case "highlight":
			out.Highlight = true
		case "item":
			byType := typedSelectionSet(f.SelectionSet, p.Info)
			out.Item = make(map[string]map[string][]*fieldtree.Field, len(sourceEntities))
			for _, entity := range sourceEntities {
				var selections []*fieldtree.Selection
				for _, tf := range byType[entity] {
					selections = append(selections, toSelection(tf, p.Info))
				}
				built, err := fieldtree.Build(m, entity, selections)
				if err != nil {
					return out, err
				}
				out.Item[entity] = built
			}
		}
	}
	return out, nil
}

// FulltextSearchResolver wraps Planner.ExecuteFulltextSearch as a field
// resolver (spec §4.4.7). sourceEntities must list the query's configured
// source entities in the order the (out of scope) schema declares the
// item union's variants.
func FulltextSearchResolver(m *model.Model, queryName string, sourceEntities []string, exec Executor) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		pl, err := exec(p)
		if err != nil {
			return nil, err
		}
		fields, err := ftsFields(m, sourceEntities, p)
		if err != nil {
			return nil, err
		}
		args := planner.FtsArgs{
			Limit:  p.Args["limit"],
			Offset: p.Args["offset"],
		}
		if text, ok := p.Args["text"]; ok {
			args.Text = text
		}
		if where, ok := p.Args["where"].(map[string]interface{}); ok {
			args.Where = where
		}
		return pl.ExecuteFulltextSearch(p.Context, queryName, args, fields)
	}
}
