// Package queryargs holds the pure translators from OpenCRUD argument
// literals to the structured trees the planner walks: where-input -> Where,
// orderBy-input -> OrderBy entries, and the Relay pagination cursor. None of
// these functions touch SQL or the database; they only validate and
// restructure already-coerced argument values (spec §4.3).
package queryargs

import (
	"fmt"
	"sort"
)

// Where is a parsed where-input: a conjunction of field conditions plus
// nested AND/OR sub-trees.
type Where struct {
	And        []*Where
	Or         []*Where
	Conditions []*Condition
}

// Condition is one field-level where clause: `<field>_<op>: <value>`.
type Condition struct {
	Field string
	Op    string
	Value interface{}
}

// suffixOp pairs a where-input key suffix with the operator it denotes.
// Ordered longest-suffix-first so that, e.g., not_in is never misread as a
// plain in with field ending in "_not", and containsAll/containsAny (the
// array-filter addition) are never misread as plain contains (spec §9
// "Where-suffix parser").
type suffixOp struct {
	suffix string
	op     string
}

var suffixTable = buildSuffixTable()

func buildSuffixTable() []suffixOp {
	raw := []suffixOp{
		{"not_eq", "not_eq"},
		{"eq", "eq"},
		{"gt", "gt"},
		{"gte", "gte"},
		{"lt", "lt"},
		{"lte", "lte"},
		{"in", "in"},
		{"not_in", "not_in"},
		{"contains", "contains"},
		{"not_contains", "not_contains"},
		{"containsAll", "containsAll"},
		{"containsAny", "containsAny"},
		{"startsWith", "startsWith"},
		{"not_startsWith", "not_startsWith"},
		{"endsWith", "endsWith"},
		{"not_endsWith", "not_endsWith"},
		{"some", "some"},
		{"every", "every"},
		{"none", "none"},
		{"not", "not_eq"},
	}
	sort.SliceStable(raw, func(i, j int) bool { return len(raw[i].suffix) > len(raw[j].suffix) })
	return raw
}

// ParseFieldOp splits a where-input key into its field and operator. A key
// with no recognized suffix defaults to op "eq" over the whole key as the
// field name.
func ParseFieldOp(key string) (field, op string) {
	for _, so := range suffixTable {
		suffix := "_" + so.suffix
		if len(key) > len(suffix) && hasSuffix(key, suffix) {
			return key[:len(key)-len(suffix)], so.op
		}
	}
	return key, "eq"
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// ParseWhere parses a where-input value (already decoded from the incoming
// literal) into a Where tree. raw is nil or a map[string]interface{}.
func ParseWhere(raw interface{}) (*Where, error) {
	if raw == nil {
		return &Where{}, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("queryargs: where must be an object, got %T", raw)
	}

	w := &Where{}
	for key, value := range obj {
		switch key {
		case "AND":
			subs, err := parseWhereList(value)
			if err != nil {
				return nil, fmt.Errorf("queryargs: AND: %w", err)
			}
			w.And = append(w.And, subs...)
		case "OR":
			subs, err := parseWhereList(value)
			if err != nil {
				return nil, fmt.Errorf("queryargs: OR: %w", err)
			}
			w.Or = append(w.Or, subs...)
		default:
			field, op := ParseFieldOp(key)
			w.Conditions = append(w.Conditions, &Condition{Field: field, Op: op, Value: value})
		}
	}
	return w, nil
}

// parseWhereList accepts both an array and a single object, per spec §9
// ("OR/AND accept both arrays and single objects in incoming where-input —
// preserve this leniency").
func parseWhereList(value interface{}) ([]*Where, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		out := make([]*Where, 0, len(v))
		for _, item := range v {
			sub, err := ParseWhere(item)
			if err != nil {
				return nil, err
			}
			out = append(out, sub)
		}
		return out, nil
	case map[string]interface{}:
		sub, err := ParseWhere(v)
		if err != nil {
			return nil, err
		}
		return []*Where{sub}, nil
	default:
		return nil, fmt.Errorf("queryargs: AND/OR must be an array or object, got %T", value)
	}
}

// HasConditions reports whether w (or any nested AND/OR branch) carries any
// field condition. Empty AND/OR arrays and an entirely empty where-input
// have no effect (spec §8 boundary behaviors) and HasConditions is false
// for them; generateWhere must emit the empty string exactly when this is
// false (spec §8 invariant 5).
func HasConditions(w *Where) bool {
	if w == nil {
		return false
	}
	if len(w.Conditions) > 0 {
		return true
	}
	for _, sub := range w.And {
		if HasConditions(sub) {
			return true
		}
	}
	for _, sub := range w.Or {
		if HasConditions(sub) {
			return true
		}
	}
	return false
}
