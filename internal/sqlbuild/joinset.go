package sqlbuild

import "fmt"

// join is one deduplicated LEFT OUTER JOIN entry.
type join struct {
	table   string
	alias   string
	onExpr  string
	seqNum  int
}

// JoinSet dedups joins keyed by (table, onExpression): identical joins
// share one alias. Renders as a sequence of LEFT OUTER JOIN clauses in the
// order they were first registered, for deterministic SQL text (grounded on
// sqlgen/batch.go's practice of sorting grouped keys for deterministic
// tests). Owned by a single planning pass; never shared across requests.
type JoinSet struct {
	aliases *AliasAllocator
	byKey   map[string]*join
	ordered []*join
}

// NewJoinSet creates an empty join set sharing the given alias allocator
// (so join aliases and root/table aliases never collide).
func NewJoinSet(aliases *AliasAllocator) *JoinSet {
	return &JoinSet{aliases: aliases, byKey: make(map[string]*join)}
}

// Register ensures a LEFT OUTER JOIN exists for (table, onExpr) and returns
// its alias, allocating and appending a new join only the first time this
// exact (table, onExpr) pair is seen.
func (s *JoinSet) Register(table, onExprTemplate string, quoter IdentifierQuoter) string {
	key := table + "\x00" + onExprTemplate
	if existing, ok := s.byKey[key]; ok {
		return existing.alias
	}
	alias := s.aliases.Alloc(table)
	j := &join{table: table, alias: alias, seqNum: len(s.ordered)}
	onExpr := onExprTemplate
	j.onExpr = onExpr
	s.byKey[key] = j
	s.ordered = append(s.ordered, j)
	return alias
}

// RegisterFK registers (and dedups) the standard LEFT OUTER JOIN used to
// descend into a foreign-entity table: `LEFT OUTER JOIN <table> <alias> ON
// <alias>.id = <fkExpr>`.
func (s *JoinSet) RegisterFK(table, fkExpr string, quoter IdentifierQuoter) string {
	key := "fk\x00" + table + "\x00" + fkExpr
	if existing, ok := s.byKey[key]; ok {
		return existing.alias
	}
	alias := s.aliases.Alloc(table)
	j := &join{
		table:  table,
		alias:  alias,
		seqNum: len(s.ordered),
	}
	j.onExpr = fmt.Sprintf("%s.%s = %s", quoter.Quote(alias), quoter.Quote("id"), fkExpr)
	s.byKey[key] = j
	s.ordered = append(s.ordered, j)
	return alias
}

// Render emits the sequence of LEFT OUTER JOIN clauses in registration
// order.
func (s *JoinSet) Render(quoter IdentifierQuoter) string {
	var out string
	for _, j := range s.ordered {
		out += fmt.Sprintf(" LEFT OUTER JOIN %s %s ON %s", quoter.Quote(j.table), quoter.Quote(j.alias), j.onExpr)
	}
	return out
}

// Empty reports whether any joins have been registered.
func (s *JoinSet) Empty() bool { return len(s.ordered) == 0 }
