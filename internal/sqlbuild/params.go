package sqlbuild

import "fmt"

// Params accumulates the positional bound parameters for one planning pass
// (spec §6.4: all literal values are bound, never interpolated). Owned by a
// single Planner pass; never shared across requests.
type Params struct {
	Values []interface{}
}

// NewParams creates an empty parameter vector.
func NewParams() *Params { return &Params{} }

// Bind appends v and returns its Postgres positional placeholder ($1, $2, ...).
func (p *Params) Bind(v interface{}) string {
	p.Values = append(p.Values, v)
	return fmt.Sprintf("$%d", len(p.Values))
}
