// Package sqlbuild holds the helpers the planner uses to assemble
// parameterized SQL text: identifier quoting, the alias allocator, the
// column set, join-set deduplication and rendering, and positional
// parameters; the SELECT statement itself is composed in internal/planner.
// It plays the role sqlgen.SQLQuery /
// sqlgen.SelectQuery played in the teacher package, generalized from a
// fixed MySQL dialect to the Postgres dialect the planner's scalar casts
// and full-text search (§4.5, §4.4.7) assume.
package sqlbuild

import "strings"

// IdentifierQuoter produces safe SQL identifiers from untrusted names. Per
// spec §6.1 it is supplied by the database adapter; the default here quotes
// the Postgres way: double-quoted, internal double quotes doubled.
type IdentifierQuoter interface {
	Quote(identifier string) string
}

// PostgresQuoter is the default IdentifierQuoter for a Postgres-backed
// planner.
type PostgresQuoter struct{}

func (PostgresQuoter) Quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
