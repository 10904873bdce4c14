package graphqlio

import (
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func name(v string) *ast.Name { return &ast.Name{Value: v} }

func field(fieldName string, sub *ast.SelectionSet) *ast.Field {
	return &ast.Field{Name: name(fieldName), SelectionSet: sub}
}

func selectionSet(sels ...ast.Selection) *ast.SelectionSet {
	return &ast.SelectionSet{Selections: sels}
}

// buildPetSelection assembles a "pet { name ... on Dog { barks } ...catFields }"
// selection with a fragment spread resolving to "... on Cat { purr }", the
// shape typedSelectionSet/flattenSelectionSet need to route union item
// requests by type condition.
func buildPetSelection() (*ast.SelectionSet, graphql.ResolveInfo) {
	barks := field("barks", nil)
	purr := field("purr", nil)
	plainName := field("name", nil)

	dogFragment := &ast.InlineFragment{
		TypeCondition: &ast.Named{Name: name("Dog")},
		SelectionSet:  selectionSet(barks),
	}
	catSpread := &ast.FragmentSpread{Name: name("catFields")}

	ss := selectionSet(plainName, dogFragment, catSpread)

	info := graphql.ResolveInfo{
		Fragments: map[string]ast.Definition{
			"catFields": &ast.FragmentDefinition{
				TypeCondition: &ast.Named{Name: name("Cat")},
				SelectionSet:  selectionSet(purr),
			},
		},
	}
	return ss, info
}

func TestFlattenSelectionSetResolvesInlineFragmentsAndSpreads(t *testing.T) {
	ss, info := buildPetSelection()
	flat := flattenSelectionSet(ss, info)

	require.Len(t, flat, 3)
	names := []string{flat[0].Name.Value, flat[1].Name.Value, flat[2].Name.Value}
	assert.Equal(t, []string{"name", "barks", "purr"}, names)
}

func TestFlattenSelectionSetNilIsEmpty(t *testing.T) {
	info := graphql.ResolveInfo{Fragments: map[string]ast.Definition{}}
	assert.Nil(t, flattenSelectionSet(nil, info))
}

func TestTypedSelectionSetSkipsUntypedFieldsAndRoutesByCondition(t *testing.T) {
	ss, info := buildPetSelection()
	byType := typedSelectionSet(ss, info)

	require.Contains(t, byType, "Dog")
	require.Len(t, byType["Dog"], 1)
	assert.Equal(t, "barks", byType["Dog"][0].Name.Value)

	require.Contains(t, byType, "Cat")
	require.Len(t, byType["Cat"], 1)
	assert.Equal(t, "purr", byType["Cat"][0].Name.Value)

	assert.NotContains(t, byType, "")
}

func TestToSelectionCarriesAliasArgsAndSubSelections(t *testing.T) {
	info := graphql.ResolveInfo{Fragments: map[string]ast.Definition{}}

	whereArg := &ast.Argument{
		Name: name("where"),
		Value: &ast.ObjectValue{Fields: []*ast.ObjectField{
			{Name: name("balance_gt"), Value: &ast.StringValue{Value: "10"}},
		}},
	}
	limitArg := &ast.Argument{Name: name("limit"), Value: &ast.IntValue{Value: "5"}}

	balanceField := field("balance", nil)
	f := &ast.Field{
		Name:         name("history"),
		Alias:        name("recent"),
		Arguments:    []*ast.Argument{whereArg, limitArg},
		SelectionSet: selectionSet(balanceField),
	}

	sel := toSelection(f, info)
	assert.Equal(t, "history", sel.Name)
	assert.Equal(t, "recent", sel.Alias)
	assert.Equal(t, map[string]interface{}{"balance_gt": "10"}, sel.Args["where"])
	assert.Equal(t, 5, sel.Args["limit"])
	require.Len(t, sel.SubSelections, 1)
	assert.Equal(t, "balance", sel.SubSelections[0].Name)
	assert.Equal(t, "balance", sel.SubSelections[0].Alias)
}

func TestToSelectionDefaultsAliasToName(t *testing.T) {
	info := graphql.ResolveInfo{Fragments: map[string]ast.Definition{}}
	sel := toSelection(field("wallet", nil), info)
	assert.Equal(t, "wallet", sel.Name)
	assert.Equal(t, "wallet", sel.Alias)
	assert.Nil(t, sel.Args)
}

func TestValueFromASTCoercesEveryLiteralKind(t *testing.T) {
	vars := map[string]interface{}{"x": 99}

	assert.Equal(t, 42, valueFromAST(&ast.IntValue{Value: "42"}, nil))
	assert.Equal(t, 4.5, valueFromAST(&ast.FloatValue{Value: "4.5"}, nil))
	assert.Equal(t, "s", valueFromAST(&ast.StringValue{Value: "s"}, nil))
	assert.Equal(t, true, valueFromAST(&ast.BooleanValue{Value: true}, nil))
	assert.Equal(t, "ASC", valueFromAST(&ast.EnumValue{Value: "ASC"}, nil))
	assert.Nil(t, valueFromAST(&ast.NullValue{}, nil))
	assert.Equal(t, 99, valueFromAST(&ast.Variable{Name: name("x")}, vars))

	list := &ast.ListValue{Values: []ast.Value{&ast.IntValue{Value: "1"}, &ast.IntValue{Value: "2"}}}
	assert.Equal(t, []interface{}{1, 2}, valueFromAST(list, nil))

	obj := &ast.ObjectValue{Fields: []*ast.ObjectField{
		{Name: name("balance_gt"), Value: &ast.StringValue{Value: "10"}},
	}}
	assert.Equal(t, map[string]interface{}{"balance_gt": "10"}, valueFromAST(obj, nil))
}

func TestValueFromASTIntValueFallsBackToRawStringOnOverflow(t *testing.T) {
	// A BigInt literal beyond int range must not silently coerce through a
	// lossy strconv.Atoi; it is carried as the raw wire string instead.
	v := valueFromAST(&ast.IntValue{Value: "100000000000000000000000000000000000"}, nil)
	assert.Equal(t, "100000000000000000000000000000000000", v)
}

func TestJSONScalarParseLiteralDelegatesToValueFromAST(t *testing.T) {
	v := JSONScalar.ParseLiteral(&ast.StringValue{Value: "hi"})
	assert.Equal(t, "hi", v)
}
