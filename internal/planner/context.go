package planner

import (
	"github.com/opencrud/queryplanner/internal/codec"
	"github.com/opencrud/queryplanner/internal/model"
	"github.com/opencrud/queryplanner/internal/sqlbuild"
)

// planContext bundles the services one planning pass shares across every
// Cursor it creates: the immutable Model and Scalar Codec Registry, the
// adapter-supplied identifier quoter, and the pass-owned alias allocator,
// join set, and parameter vector (spec §3.3, §9 "Ownership"). It is never
// retained past the call to Select/Shape that created it.
type planContext struct {
	model    *model.Model
	registry *codec.Registry
	quoter   sqlbuild.IdentifierQuoter

	aliases *sqlbuild.AliasAllocator
	joins   *sqlbuild.JoinSet
	params  *sqlbuild.Params
}

func newPlanContext(m *model.Model, reg *codec.Registry, quoter sqlbuild.IdentifierQuoter) *planContext {
	aliases := sqlbuild.NewAliasAllocator()
	return &planContext{
		model:    m,
		registry: reg,
		quoter:   quoter,
		aliases:  aliases,
		joins:    sqlbuild.NewJoinSet(aliases),
		params:   sqlbuild.NewParams(),
	}
}

func (pc *planContext) quote(id string) string { return pc.quoter.Quote(id) }

// sub returns a planContext for a nested statement (a list-subquery or an
// fts source arm): it shares the alias allocator, parameter vector, model,
// and registry with pc — so aliases stay unique and bound parameters share
// one $N sequence across the whole outer statement — but owns a fresh join
// set, since each nested statement renders its own FROM/JOIN clause.
func (pc *planContext) sub() *planContext {
	return &planContext{
		model:    pc.model,
		registry: pc.registry,
		quoter:   pc.quoter,
		aliases:  pc.aliases,
		joins:    sqlbuild.NewJoinSet(pc.aliases),
		params:   pc.params,
	}
}
