package planner

import (
	"context"
	"strings"

	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/queryargs"
)

// FtsArgs are the arguments to a full-text search root field (spec
// §4.4.7): the search text, an optional per-source-entity where-input
// keyed by entity name, and pagination.
type FtsArgs struct {
	Text   interface{}
	Where  map[string]interface{}
	Limit  interface{}
	Offset interface{}
}

// FtsFields are the requested sub-selections of an fts root field (spec
// §4.2's FtsRequestedFields): rank/highlight flags, and item's per-entity
// field trees keyed by entity name.
type FtsFields struct {
	Rank      bool
	Highlight bool
	Item      map[string]map[string][]*fieldtree.Field
}

// FtsItem is one shaped full-text search result.
type FtsItem struct {
	Rank      float64
	Highlight *string
	Item      map[string]interface{}
}

// ExecuteFulltextSearch is `executeFulltextSearch(query, args, fields) →
// FtsItem[]` (spec §4.4.7).
func (p *Planner) ExecuteFulltextSearch(ctx context.Context, queryName string, args FtsArgs, fields FtsFields) ([]FtsItem, error) {
	fq, ok := p.model.FtsQuery(queryName)
	if !ok {
		return nil, newSchemaError("planner: unknown fts query %q", queryName)
	}
	text, ok := args.Text.(string)
	if !ok {
		return nil, NewUserError("text is required for full-text search")
	}

	pc := p.newPC()
	textParam := pc.params.Bind(text)

	arms := make([]string, 0, len(fq.Sources))
	for _, src := range fq.Sources {
		subPC := pc.sub()
		var sa *selectArgs
		if w, ok := args.Where[src.Entity]; ok {
			parsed, err := queryargs.ParseWhere(w)
			if err != nil {
				return nil, NewUserError("where%s: %s", src.Entity, err)
			}
			sa = &selectArgs{Where: parsed}
		}
		var itemFields map[string][]*fieldtree.Field
		if fields.Item != nil {
			itemFields = fields.Item[src.Entity]
		}
		arm, err := composeSelect(subPC, src.Entity, sa, itemFields, variantFTS, nil, queryName, textParam)
		if err != nil {
			return nil, err
		}
		arms = append(arms, arm)
	}

	sql := "SELECT * FROM (" + strings.Join(arms, " UNION ALL ") + ") AS fts ORDER BY rank DESC"
	sql += limitOffsetClause(pc, args.Limit, args.Offset)

	rows, err := p.runQuery(ctx, sql, pc.params.Values)
	if err != nil {
		return nil, err
	}

	out := make([]FtsItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, shapeFtsRow(row, fields))
	}
	return out, nil
}

// fts row layout: isTypeOf, rank, highlight, item (matches selectHead's
// variantFTS column order).
func shapeFtsRow(row Row, fields FtsFields) FtsItem {
	discriminator, _ := row[0].(string)
	var result FtsItem
	if fields.Rank {
		switch r := row[1].(type) {
		case float64:
			result.Rank = r
		case float32:
			result.Rank = float64(r)
		}
	}
	if fields.Highlight {
		if hl, ok := row[2].(string); ok {
			result.Highlight = &hl
		}
	}
	itemFields := fields.Item[discriminator]
	itemRow, _ := row[3].([]interface{})
	item := shapeOne(Row(itemRow), itemFields)
	item["isTypeOf"] = discriminator
	result.Item = item
	return result
}
