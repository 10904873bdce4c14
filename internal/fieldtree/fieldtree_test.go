package fieldtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrud/queryplanner/internal/fieldtree"
	"github.com/opencrud/queryplanner/internal/model"
)

func buildDemoModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New([]*model.Type{
		{
			Name: "Account",
			Kind: model.KindEntity,
			Properties: map[string]*model.Property{
				"wallet":  {Name: "wallet", Type: &model.PropertyType{Kind: model.PTScalar, Name: "String"}},
				"balance": {Name: "balance", Type: &model.PropertyType{Kind: model.PTScalar, Name: "Int"}},
				"history": {Name: "history", Type: &model.PropertyType{Kind: model.PTListRelation, Entity: "HistoricalBalance", Field: "account"}},
			},
		},
		{
			Name: "HistoricalBalance",
			Kind: model.KindEntity,
			Properties: map[string]*model.Property{
				"account": {Name: "account", Type: &model.PropertyType{Kind: model.PTFK, Entity: "Account"}},
				"balance": {Name: "balance", Type: &model.PropertyType{Kind: model.PTScalar, Name: "Int"}},
			},
		},
	})
	require.NoError(t, err)
	return m
}

func TestBuildScalarAndNestedListRelation(t *testing.T) {
	m := buildDemoModel(t)

	selections := []*fieldtree.Selection{
		{Name: "id"},
		{Name: "wallet"},
		{Name: "balance"},
		{
			Name: "history",
			SubSelections: []*fieldtree.Selection{
				{Name: "balance"},
			},
		},
	}

	children, err := fieldtree.Build(m, "Account", selections)
	require.NoError(t, err)

	require.Contains(t, children, "wallet")
	assert.Equal(t, model.PTScalar, children["wallet"][0].PropType.Kind)

	require.Contains(t, children, "history")
	historyReq := children["history"][0]
	assert.Equal(t, model.PTListRelation, historyReq.PropType.Kind)
	require.Contains(t, historyReq.Children, "balance")
}

func TestBuildSkipsTypename(t *testing.T) {
	m := buildDemoModel(t)
	selections := []*fieldtree.Selection{
		{Name: "__typename"},
		{Name: "wallet"},
	}
	children, err := fieldtree.Build(m, "Account", selections)
	require.NoError(t, err)
	assert.Len(t, children, 1)
	assert.Contains(t, children, "wallet")
}

func TestBuildRejectsUnknownProperty(t *testing.T) {
	m := buildDemoModel(t)
	_, err := fieldtree.Build(m, "Account", []*fieldtree.Selection{{Name: "nope"}})
	assert.Error(t, err)
}

func TestBuildUnionSharedScalarCollapsesAndVariantFieldsTagIfType(t *testing.T) {
	m, err := model.New([]*model.Type{
		{Name: "Dog", Kind: model.KindJsonObject, Properties: map[string]*model.Property{
			"name":  {Name: "name", Type: &model.PropertyType{Kind: model.PTScalar, Name: "String"}},
			"barks": {Name: "barks", Type: &model.PropertyType{Kind: model.PTScalar, Name: "Boolean"}},
		}},
		{Name: "Cat", Kind: model.KindJsonObject, Properties: map[string]*model.Property{
			"name": {Name: "name", Type: &model.PropertyType{Kind: model.PTScalar, Name: "String"}},
			"purr": {Name: "purr", Type: &model.PropertyType{Kind: model.PTScalar, Name: "Boolean"}},
		}},
		{Name: "Pet", Kind: model.KindUnion, Variants: []string{"Dog", "Cat"}},
		{Name: "Owner", Kind: model.KindEntity, Properties: map[string]*model.Property{
			"pet": {Name: "pet", Type: &model.PropertyType{Kind: model.PTUnion, Name: "Pet"}},
		}},
	})
	require.NoError(t, err)

	selections := []*fieldtree.Selection{
		{
			Name: "pet",
			SubSelections: []*fieldtree.Selection{
				{Name: "name"},
				{Name: "barks"},
				{Name: "purr"},
			},
		},
	}
	children, err := fieldtree.Build(m, "Owner", selections)
	require.NoError(t, err)

	petReq := children["pet"][0]
	require.Contains(t, petReq.Children, "name")
	assert.Equal(t, "", petReq.Children["name"][0].IfType)

	require.Contains(t, petReq.Children, "barks")
	assert.Equal(t, "Dog", petReq.Children["barks"][0].IfType)

	require.Contains(t, petReq.Children, "purr")
	assert.Equal(t, "Cat", petReq.Children["purr"][0].IfType)
}

func TestBuildUnionRejectsPropertyNoVariantDeclares(t *testing.T) {
	m, err := model.New([]*model.Type{
		{Name: "Dog", Kind: model.KindJsonObject, Properties: map[string]*model.Property{
			"name": {Name: "name", Type: &model.PropertyType{Kind: model.PTScalar, Name: "String"}},
		}},
		{Name: "Pet", Kind: model.KindUnion, Variants: []string{"Dog"}},
		{Name: "Owner", Kind: model.KindEntity, Properties: map[string]*model.Property{
			"pet": {Name: "pet", Type: &model.PropertyType{Kind: model.PTUnion, Name: "Pet"}},
		}},
	})
	require.NoError(t, err)

	_, err = fieldtree.Build(m, "Owner", []*fieldtree.Selection{
		{Name: "pet", SubSelections: []*fieldtree.Selection{{Name: "nope"}}},
	})
	assert.Error(t, err)
}

func TestBuildListRelationCarriesArgs(t *testing.T) {
	m := buildDemoModel(t)
	selections := []*fieldtree.Selection{
		{
			Name: "history",
			Args: map[string]interface{}{
				"where":  map[string]interface{}{"balance_gt": 10},
				"limit":  5,
				"offset": 1,
			},
			SubSelections: []*fieldtree.Selection{{Name: "balance"}},
		},
	}
	children, err := fieldtree.Build(m, "Account", selections)
	require.NoError(t, err)

	req := children["history"][0]
	require.NotNil(t, req.Args)
	assert.Equal(t, 5, req.Args.Limit)
	assert.Equal(t, 1, req.Args.Offset)
	assert.NotNil(t, req.Args.Where)
}
