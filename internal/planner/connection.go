package planner

import (
	"context"
	"fmt"

	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/queryargs"
)

// ConnectionArgs are the Relay pagination arguments on a connection field
// (spec §4.4.6). OrderBy is required and non-empty.
type ConnectionArgs struct {
	First   interface{}
	After   interface{}
	Where   interface{}
	OrderBy interface{}
}

// ConnectionFields are the requested sub-selections of a connection field
// (spec §4.2's ConnectionRequestedFields): NodeFields is nil exactly when
// "node" was not requested under edges, in which case ExecuteConnection
// issues executeListCount instead of materializing any nodes.
type ConnectionFields struct {
	TotalCount bool
	PageInfo   bool
	WantCursor bool
	NodeFields map[string][]*fieldtree.Field
}

// PageInfo is the Relay PageInfo object.
type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     *string
	EndCursor       *string
}

// Edge pairs a shaped node with its outbound pagination cursor.
type Edge struct {
	Node   map[string]interface{}
	Cursor string
}

// ConnectionResult is the fully planned Relay connection response.
type ConnectionResult struct {
	Edges      []Edge
	PageInfo   PageInfo
	TotalCount *int64
}

// ExecuteConnection plans and executes one Relay connection field (spec
// §4.4.6).
func (p *Planner) ExecuteConnection(ctx context.Context, entityName string, args ConnectionArgs, fields ConnectionFields) (*ConnectionResult, error) {
	orderByStrs, err := orderByStringList(args.OrderBy)
	if err != nil {
		return nil, err
	}
	if len(orderByStrs) == 0 {
		return nil, NewUserError("orderBy is required on a connection field")
	}

	first, err := requiredPositiveInt(args.First, "first")
	if err != nil {
		return nil, err
	}

	offsetIn := 0
	if args.After != nil {
		afterWire, ok := args.After.(string)
		if !ok {
			return nil, NewUserError("after: expected a string cursor, got %T", args.After)
		}
		c, err := queryargs.DecodeCursor(afterWire)
		if err != nil {
			return nil, InvalidCursorValue(err.Error())
		}
		if !c.MatchesOrderBy(orderByStrs) {
			return nil, InvalidCursorValue("cursor orderBy does not match the query's orderBy")
		}
		offsetIn = c.Offset
	}

	if fields.NodeFields == nil {
		// Only cursor/pageInfo was requested: no nodes to materialize.
		return p.executeConnectionCountOnly(ctx, entityName, args, orderByStrs, offsetIn, first, fields)
	}

	raw := &fieldtree.ListArgs{
		Where:   args.Where,
		OrderBy: args.OrderBy,
		Offset:  offsetIn,
		Limit:   first + 1,
	}
	nodes, err := p.ExecuteSelect(ctx, entityName, raw, fields.NodeFields)
	if err != nil {
		return nil, err
	}

	returned := len(nodes)
	hasNextPage := returned > first
	if hasNextPage {
		nodes = nodes[:first]
		returned = first
	}

	edges := make([]Edge, 0, returned)
	for i, node := range nodes {
		cursor := queryargs.EncodeCursor(queryargs.Cursor{OrderBy: orderByStrs, Offset: offsetIn + i + 1})
		edges = append(edges, Edge{Node: node, Cursor: cursor})
	}

	pageInfo := PageInfo{
		HasNextPage:     hasNextPage,
		HasPreviousPage: offsetIn > 0 && returned > 0,
	}
	if returned > 0 {
		start := edges[0].Cursor
		end := edges[len(edges)-1].Cursor
		pageInfo.StartCursor = &start
		pageInfo.EndCursor = &end
	}

	result := &ConnectionResult{Edges: edges, PageInfo: pageInfo}
	if fields.TotalCount {
		if !hasNextPage {
			total := int64(offsetIn + returned)
			result.TotalCount = &total
		} else {
			total, err := p.ExecuteSelectCount(ctx, entityName, args.Where)
			if err != nil {
				return nil, err
			}
			result.TotalCount = &total
		}
	}
	return result, nil
}

// executeConnectionCountOnly handles a connection field whose selection
// never reaches "node" (only cursor/pageInfo/totalCount): no list rows are
// materialized, only counts (spec §4.4.6 last bullet).
func (p *Planner) executeConnectionCountOnly(ctx context.Context, entityName string, args ConnectionArgs, orderByStrs []string, offsetIn, first int, fields ConnectionFields) (*ConnectionResult, error) {
	raw := &fieldtree.ListArgs{Where: args.Where, OrderBy: args.OrderBy, Offset: offsetIn, Limit: first + 1}
	matched, err := p.ExecuteListCount(ctx, entityName, raw)
	if err != nil {
		return nil, err
	}

	remaining := matched - int64(offsetIn)
	if remaining < 0 {
		remaining = 0
	}

	returned := remaining
	if returned > int64(first)+1 {
		returned = int64(first) + 1
	}
	hasNextPage := returned > int64(first)
	if hasNextPage {
		returned = int64(first)
	}

	result := &ConnectionResult{PageInfo: PageInfo{
		HasNextPage:     hasNextPage,
		HasPreviousPage: offsetIn > 0 && returned > 0,
	}}
	if fields.TotalCount {
		if !hasNextPage {
			total := int64(offsetIn) + returned
			result.TotalCount = &total
		} else {
			total, err := p.ExecuteSelectCount(ctx, entityName, args.Where)
			if err != nil {
				return nil, err
			}
			result.TotalCount = &total
		}
	}
	return result, nil
}

func requiredPositiveInt(v interface{}, name string) (int, error) {
	switch n := v.(type) {
	case int:
		if n <= 0 {
			return 0, NewUserError("%s must be a positive integer", name)
		}
		return n, nil
	case int32:
		return requiredPositiveInt(int(n), name)
	case int64:
		return requiredPositiveInt(int(n), name)
	case nil:
		return 0, NewUserError("%s is required", name)
	default:
		return 0, NewUserError("%s must be a positive integer, got %T", name, v)
	}
}

// orderByStringList normalizes a raw orderBy argument (a single string or a
// list of strings) into the flat string form the Relay cursor compares
// against.
func orderByStringList(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("orderBy entries must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("orderBy must be a string or list of strings, got %T", raw)
	}
}
