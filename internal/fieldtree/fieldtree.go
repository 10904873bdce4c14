// Package fieldtree builds the requested-field tree (spec §3.2, §4.2): the
// reshape plan the planner walks twice — once while composing columns
// (assigning each request its row index) and once while shaping rows back
// into nested response objects.
package fieldtree

import (
	"fmt"

	"github.com/opencrud/queryplanner/internal/model"
)

// Selection is the already-parsed, already-coerced GraphQL selection the
// (out of scope) Transport Layer hands the planner: one requested field,
// its alias, its argument literals, and its sub-selection.
type Selection struct {
	Name          string
	Alias         string
	Args          map[string]interface{}
	SubSelections []*Selection
}

// ListArgs are the list-relation arguments captured off a Selection: where,
// orderBy, offset, limit. They are carried as raw values; internal/queryargs
// parses them into structured Where/OrderBy trees when the planner walks
// this field.
type ListArgs struct {
	Where   interface{}
	OrderBy interface{}
	Offset  interface{}
	Limit   interface{}
	// Connection-only args.
	First interface{}
	After interface{}
}

// Field is one node of the requested-field tree.
type Field struct {
	Alias    string
	PropName string
	PropType *model.PropertyType
	Nullable bool

	// Children is keyed by the child property name; each key can carry
	// several requests (multiple aliases, union per-variant branches).
	Children map[string][]*Field

	// Args is non-nil only for listRelation fields with list arguments.
	Args *ListArgs

	// IfType is the union variant this request is conditional on, or "" if
	// the request applies regardless of discriminator (shared scalar/enum
	// across all variants).
	IfType string

	// Index is the column position this request's value occupies in a
	// flat result row. It is unset (-1) until the planner's populateColumns
	// pass assigns it.
	Index int
}

func newField(alias, propName string, ptype *model.PropertyType, nullable bool) *Field {
	return &Field{Alias: alias, PropName: propName, PropType: ptype, Nullable: nullable, Index: -1}
}

// addChild appends req under key in the parent's Children map.
func addChild(parent *Field, key string, req *Field) {
	if parent.Children == nil {
		parent.Children = make(map[string][]*Field)
	}
	parent.Children[key] = append(parent.Children[key], req)
}

// Build parses a selection set requested on typeName (an Entity, JsonObject,
// Interface, or the merged properties of a Union) into a requested-field
// tree, returning the root's Children map (there is no single root Field;
// the root "object" is the entity/object itself).
func Build(m *model.Model, typeName string, selections []*Selection) (map[string][]*Field, error) {
	props, err := propertiesOf(m, typeName)
	if err != nil {
		return nil, err
	}
	root := &Field{Index: -1}
	for _, sel := range selections {
		if sel.Name == "__typename" {
			continue
		}
		if err := buildOne(m, props, root, sel, ""); err != nil {
			return nil, err
		}
	}
	return root.Children, nil
}

// propertiesOf resolves the property map driving selection validation for
// typeName: Entity/JsonObject/Interface properties, or a Union's merged
// variant properties.
func propertiesOf(m *model.Model, typeName string) (map[string]*model.Property, error) {
	if t, ok := m.Any(typeName); ok {
		switch t.Kind {
		case model.KindEntity, model.KindJsonObject, model.KindInterface:
			return t.Properties, nil
		case model.KindUnion:
			return m.UnionVariantProperties(typeName)
		}
	}
	return nil, fmt.Errorf("fieldtree: unknown or non-selectable type %q", typeName)
}

func buildOne(m *model.Model, props map[string]*model.Property, parent *Field, sel *Selection, ifType string) error {
	prop, ok := props[sel.Name]
	if !ok {
		return fmt.Errorf("fieldtree: unknown property %q", sel.Name)
	}
	alias := sel.Alias
	if alias == "" {
		alias = sel.Name
	}

	switch prop.Type.Kind {
	case model.PTScalar, model.PTEnum, model.PTList:
		req := newField(alias, sel.Name, prop.Type, prop.Nullable)
		req.IfType = ifType
		addChild(parent, sel.Name, req)
		return nil

	case model.PTObject:
		req := newField(alias, sel.Name, prop.Type, prop.Nullable)
		req.IfType = ifType
		childProps, err := propertiesOf(m, prop.Type.Name)
		if err != nil {
			return err
		}
		for _, sub := range sel.SubSelections {
			if sub.Name == "__typename" {
				continue
			}
			if err := buildOne(m, childProps, req, sub, ""); err != nil {
				return err
			}
		}
		addChild(parent, sel.Name, req)
		return nil

	case model.PTFK:
		req := newField(alias, sel.Name, prop.Type, prop.Nullable)
		req.IfType = ifType
		entity, ok := m.Entity(prop.Type.Entity)
		if !ok {
			return fmt.Errorf("fieldtree: fk property %q references unknown entity %q", sel.Name, prop.Type.Entity)
		}
		for _, sub := range sel.SubSelections {
			if sub.Name == "__typename" {
				continue
			}
			if err := buildOne(m, entity.Properties, req, sub, ""); err != nil {
				return err
			}
		}
		addChild(parent, sel.Name, req)
		return nil

	case model.PTListRelation:
		req := newField(alias, sel.Name, prop.Type, prop.Nullable)
		req.IfType = ifType
		req.Args = listArgsFrom(sel.Args)
		entity, ok := m.Entity(prop.Type.Entity)
		if !ok {
			return fmt.Errorf("fieldtree: listRelation %q references unknown entity %q", sel.Name, prop.Type.Entity)
		}
		for _, sub := range sel.SubSelections {
			if sub.Name == "__typename" {
				continue
			}
			if err := buildOne(m, entity.Properties, req, sub, ""); err != nil {
				return err
			}
		}
		addChild(parent, sel.Name, req)
		return nil

	case model.PTUnion:
		req := newField(alias, sel.Name, prop.Type, prop.Nullable)
		req.IfType = ifType
		u, _ := m.Union(prop.Type.Name)
		for _, sub := range sel.SubSelections {
			if sub.Name == "__typename" {
				continue
			}
			if err := buildUnionSub(m, u, req, sub); err != nil {
				return err
			}
		}
		addChild(parent, sel.Name, req)
		return nil

	default:
		panic(fmt.Sprintf("fieldtree: unreachable property type kind %v", prop.Type.Kind))
	}
}

func hasProp(props map[string]*model.Property, name string) bool {
	_, ok := props[name]
	return ok
}

// buildUnionSub resolves one sub-selection requested on a union field
// against the union's variants: a scalar/enum identical across every
// variant collapses into a single shared child with no IfType; anything
// else gets one child per variant that actually declares it, tagged with
// that variant's IfType (spec §4.2).
func buildUnionSub(m *model.Model, u *model.Type, parent *Field, sub *Selection) error {
	mergedProps, err := m.UnionVariantProperties(u.Name)
	if err != nil {
		return err
	}
	mergedProp, ok := mergedProps[sub.Name]
	if !ok {
		return fmt.Errorf("fieldtree: unknown property %q on union %q", sub.Name, u.Name)
	}

	if (mergedProp.Type.Kind == model.PTScalar || mergedProp.Type.Kind == model.PTEnum) && sharedAcrossAllVariants(m, u, sub.Name) {
		req := newField(sub.Alias, sub.Name, mergedProp.Type, mergedProp.Nullable)
		if req.Alias == "" {
			req.Alias = sub.Name
		}
		addChild(parent, sub.Name, req)
		return nil
	}

	found := false
	for _, variantName := range u.Variants {
		variant, ok := m.Object(variantName)
		if !ok {
			return fmt.Errorf("fieldtree: union %q references unknown variant %q", u.Name, variantName)
		}
		if _, ok := variant.Properties[sub.Name]; !ok {
			continue
		}
		found = true
		if err := buildOne(m, variant.Properties, parent, sub, variantName); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("fieldtree: property %q not declared on any variant of union %q", sub.Name, u.Name)
	}
	return nil
}

func sharedAcrossAllVariants(m *model.Model, u *model.Type, name string) bool {
	for _, variantName := range u.Variants {
		variant, ok := m.Object(variantName)
		if !ok {
			return false
		}
		if _, ok := variant.Properties[name]; !ok {
			return false
		}
	}
	return true
}

func listArgsFrom(args map[string]interface{}) *ListArgs {
	if len(args) == 0 {
		return nil
	}
	return &ListArgs{
		Where:   args["where"],
		OrderBy: args["orderBy"],
		Offset:  args["offset"],
		Limit:   args["limit"],
		First:   args["first"],
		After:   args["after"],
	}
}
