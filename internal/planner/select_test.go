package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrud/queryplanner/internal/codec"
	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/model"
	"github.com/opencrud/queryplanner/internal/queryargs"
	"github.com/opencrud/queryplanner/internal/sqlbuild"
)

func accountsModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New([]*model.Type{
		{Name: "Account", Kind: model.KindEntity, Properties: map[string]*model.Property{
			"wallet":  {Name: "wallet", Type: &model.PropertyType{Kind: model.PTScalar, Name: "String"}},
			"balance": {Name: "balance", Type: &model.PropertyType{Kind: model.PTScalar, Name: "Int"}},
			"history": {Name: "history", Type: &model.PropertyType{Kind: model.PTListRelation, Entity: "HistoricalBalance", Field: "account"}},
		}},
		{Name: "HistoricalBalance", Kind: model.KindEntity, Properties: map[string]*model.Property{
			"account": {Name: "account", Type: &model.PropertyType{Kind: model.PTFK, Entity: "Account"}},
			"balance": {Name: "balance", Type: &model.PropertyType{Kind: model.PTScalar, Name: "Int"}},
		}},
	})
	require.NoError(t, err)
	return m
}

func newTestPC(m *model.Model) *planContext {
	return newPlanContext(m, codec.NewRegistry(), sqlbuild.PostgresQuoter{})
}

// TestComposeSelectAndShapeAccountsWithHistory reproduces the worked
// accounts/history example: a top-level select with a nested listRelation,
// composed into SQL and then shaped back from canned rows. Column indices
// are read back off the same *fieldtree.Field pointers composeSelect wrote
// them to, so the test does not depend on map iteration order.
func TestComposeSelectAndShapeAccountsWithHistory(t *testing.T) {
	m := accountsModel(t)
	pc := newTestPC(m)

	selections := []*fieldtree.Selection{
		{Name: "id"},
		{Name: "wallet"},
		{Name: "balance"},
		{Name: "history", SubSelections: []*fieldtree.Selection{{Name: "balance"}}},
	}
	fields, err := fieldtree.Build(m, "Account", selections)
	require.NoError(t, err)

	sql, err := composeSelect(pc, "Account", nil, fields, variantNormal, nil, "", "")
	require.NoError(t, err)
	assert.Contains(t, sql, `FROM "account" "account"`)
	assert.Contains(t, sql, "array(")
	// The history sub-select carries its own correlation WHERE; the outer
	// statement has no WHERE, ORDER BY or LIMIT after its FROM.
	assert.Regexp(t, `FROM "account" "account"$`, sql)

	idIdx := fields["id"][0].Index
	walletIdx := fields["wallet"][0].Index
	balanceIdx := fields["balance"][0].Index
	historyIdx := fields["history"][0].Index
	historyBalanceIdx := fields["history"][0].Children["balance"][0].Index

	width := idIdx
	for _, i := range []int{walletIdx, balanceIdx, historyIdx} {
		if i > width {
			width = i
		}
	}

	mkRow := func(id, wallet string, balance int, history []int) Row {
		row := make(Row, width+1)
		row[idIdx] = id
		row[walletIdx] = wallet
		row[balanceIdx] = balance
		items := make([]interface{}, 0, len(history))
		for _, h := range history {
			sub := make([]interface{}, historyBalanceIdx+1)
			sub[historyBalanceIdx] = h
			items = append(items, sub)
		}
		row[historyIdx] = items
		return row
	}

	rows := []Row{
		mkRow("1", "a", 100, []int{20, 80}),
		mkRow("2", "b", 200, []int{50, 90, 60}),
		mkRow("3", "c", 300, []int{300}),
	}

	shaped := shapeRows(rows, fields)
	expected := []map[string]interface{}{
		{"id": "1", "wallet": "a", "balance": 100, "history": []map[string]interface{}{
			{"balance": 20}, {"balance": 80},
		}},
		{"id": "2", "wallet": "b", "balance": 200, "history": []map[string]interface{}{
			{"balance": 50}, {"balance": 90}, {"balance": 60},
		}},
		{"id": "3", "wallet": "c", "balance": 300, "history": []map[string]interface{}{
			{"balance": 300},
		}},
	}
	assert.Equal(t, expected, shaped)
}

// TestComposeSelectEmptyWhereProducesNoClause asserts that an empty
// where-input contributes no WHERE clause at all, never a vacuous 1=1.
func TestComposeSelectEmptyWhereProducesNoClause(t *testing.T) {
	m := accountsModel(t)
	pc := newTestPC(m)

	fields, err := fieldtree.Build(m, "Account", []*fieldtree.Selection{{Name: "id"}})
	require.NoError(t, err)

	w, err := queryargs.ParseWhere(map[string]interface{}{})
	require.NoError(t, err)

	sql, err := composeSelect(pc, "Account", &selectArgs{Where: w}, fields, variantNormal, nil, "", "")
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
}

// TestGenerateWhereSomeEveryNone exercises the listRelation some/every/none
// operators against a nested where-input on history.balance.
func TestGenerateWhereSomeEveryNone(t *testing.T) {
	m := accountsModel(t)

	for _, tc := range []struct {
		op   string
		want string
	}{
		{"history_some", "(SELECT true FROM"},
		{"history_every", "= (SELECT count(*) FROM"},
		{"history_none", "(SELECT count(*) FROM (SELECT true FROM"},
	} {
		t.Run(tc.op, func(t *testing.T) {
			pc := newTestPC(m)
			cur, err := NewRootCursor(pc, "Account")
			require.NoError(t, err)

			w, err := queryargs.ParseWhere(map[string]interface{}{
				tc.op: map[string]interface{}{"balance_gt": "10"},
			})
			require.NoError(t, err)
			require.Len(t, w.Conditions, 1)
			assert.Equal(t, "history", w.Conditions[0].Field)

			sql, err := generateWhere(pc, cur, w)
			require.NoError(t, err)
			assert.Contains(t, sql, tc.want)
			assert.Contains(t, sql, `"historical_balance"."account_id" = "account"."id"`)
		})
	}
}

// TestScalarConditionBigIntGteCastsAndBinds reproduces the spec's BigInt
// where example: a gte comparison against a value beyond int64 range,
// passed as a decimal-string literal and cast through ::numeric.
func TestScalarConditionBigIntGteCastsAndBinds(t *testing.T) {
	m, err := model.New([]*model.Type{
		{Name: "Ledger", Kind: model.KindEntity, Properties: map[string]*model.Property{
			"amount": {Name: "amount", Type: &model.PropertyType{Kind: model.PTScalar, Name: "BigInt"}},
		}},
	})
	require.NoError(t, err)

	pc := newTestPC(m)
	cur, err := NewRootCursor(pc, "Ledger")
	require.NoError(t, err)

	w, err := queryargs.ParseWhere(map[string]interface{}{
		"amount_gte": "1000000000000000000000000000000000000",
	})
	require.NoError(t, err)

	sql, err := generateWhere(pc, cur, w)
	require.NoError(t, err)
	assert.Equal(t, `"ledger"."amount" >= ($1)::numeric`, sql)
	assert.Equal(t, []interface{}{"1000000000000000000000000000000000000"}, pc.params.Values)
}
