package planner

import (
	"fmt"

	"github.com/opencrud/queryplanner/internal/queryargs"
)

// populateOrderBy renders a parsed order-by list as SQL ORDER BY terms
// rooted at cur (spec §4.4.3 step 7): each entry walks object/union/fk
// steps with cursor.child and emits `<native(leaf)> ASC|DESC` for its
// scalar/enum terminal.
func populateOrderBy(cur *Cursor, entries []*queryargs.OrderBy) ([]string, error) {
	terms := make([]string, 0, len(entries))
	for _, entry := range entries {
		term, err := orderByTerm(cur, entry)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func orderByTerm(cur *Cursor, entry *queryargs.OrderBy) (string, error) {
	walker := cur
	for i, step := range entry.Path {
		last := i == len(entry.Path)-1
		if last {
			native, err := walker.Native(step)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %s", native, entry.Direction), nil
		}
		next, err := walker.Child(step)
		if err != nil {
			return "", err
		}
		walker = next
	}
	return "", newSchemaError("planner: empty order-by path")
}
