// Package model holds the in-memory, immutable description of the entity
// schema the query planner compiles against. It is built once by the
// (out-of-scope) Schema Loader and only ever read afterwards; see
// sqlgen.Schema in the teacher package for the struct-reflection analogue
// this package replaces with data-driven descriptions.
package model

import "fmt"

// Kind tags the variant a Type carries. The switch over Kind is exhaustive
// everywhere it appears; hitting default is a programmer error.
type Kind int

const (
	KindEntity Kind = iota
	KindJsonObject
	KindInterface
	KindUnion
	KindEnum
	KindFtsQuery
)

// Type is one named member of the Model: an Entity, JsonObject, Interface,
// Union, Enum, or FtsQuery.
type Type struct {
	Name string
	Kind Kind

	// Entity / JsonObject / Interface
	Properties map[string]*Property

	// Union
	Variants []string // ordered JsonObject type names

	// Enum
	EnumValues []string

	// FtsQuery
	Sources []FtsSource

	// memoized merged property set for unions; built lazily and cached on
	// the Type itself since the Model is immutable after construction and
	// single-lived.
	mergedUnionProps map[string]*Property
}

// FtsSource binds one entity and the list of its string fields indexed by a
// named full-text-search query.
type FtsSource struct {
	Entity       string
	StringFields []string
}

// PropertyTypeKind tags the variant of a PropertyType. Like Kind, switches
// over it must be exhaustive.
type PropertyTypeKind int

const (
	PTScalar PropertyTypeKind = iota
	PTEnum
	PTList
	PTObject
	PTUnion
	PTFK
	PTListRelation
)

// PropertyType is the recursive tagged union describing a property's shape.
type PropertyType struct {
	Kind PropertyTypeKind

	// scalar / enum
	Name string

	// list
	Item *Property

	// fk / listRelation
	Entity string

	// listRelation
	Field string // the fk property name on Entity that points back here
}

// Property describes one field of an Entity, JsonObject, Interface, or union
// variant.
type Property struct {
	Name        string
	Type        *PropertyType
	Nullable    bool
	Description string
}

// IsArrayCapable reports whether a list-of-scalar/enum property is stored as
// a native SQL array column (true) rather than JSON (false), per the §3.1
// invariant: Int, BigInt, DateTime, Bytes, String, ID, and enums are
// array-capable; everything else (object, union, nested list) is not.
func IsArrayCapable(item *PropertyType) bool {
	switch item.Kind {
	case PTEnum:
		return true
	case PTScalar:
		switch item.Name {
		case "Int", "BigInt", "DateTime", "Bytes", "String", "ID":
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// Model is the immutable, process-wide, name-indexed description of the
// schema. Traversal is always by name, never by structural reference, so
// cyclic type graphs (entity -> fk -> entity -> ...) need no cycle
// detection at planning time.
type Model struct {
	types map[string]*Type
}

// New builds a Model from a flat collection of types. The implicit `id: ID!`
// primary key property is added to every Entity that doesn't declare one.
func New(types []*Type) (*Model, error) {
	m := &Model{types: make(map[string]*Type, len(types))}
	for _, t := range types {
		if _, exists := m.types[t.Name]; exists {
			return nil, fmt.Errorf("model: duplicate type %q", t.Name)
		}
		m.types[t.Name] = t
	}
	for _, t := range m.types {
		if t.Kind == KindEntity {
			if t.Properties == nil {
				t.Properties = map[string]*Property{}
			}
			if _, ok := t.Properties["id"]; !ok {
				t.Properties["id"] = &Property{
					Name:     "id",
					Type:     &PropertyType{Kind: PTScalar, Name: "ID"},
					Nullable: false,
				}
			}
		}
	}
	return m, nil
}

func (m *Model) lookup(name string, kind Kind) (*Type, bool) {
	t, ok := m.types[name]
	if !ok || t.Kind != kind {
		return nil, false
	}
	return t, true
}

// Entity looks up an entity type by name.
func (m *Model) Entity(name string) (*Type, bool) { return m.lookup(name, KindEntity) }

// Object looks up an embedded JsonObject type by name.
func (m *Model) Object(name string) (*Type, bool) { return m.lookup(name, KindJsonObject) }

// Union looks up a union type by name.
func (m *Model) Union(name string) (*Type, bool) { return m.lookup(name, KindUnion) }

// Enum looks up an enum type by name.
func (m *Model) Enum(name string) (*Type, bool) { return m.lookup(name, KindEnum) }

// FtsQuery looks up a named full-text search definition.
func (m *Model) FtsQuery(name string) (*Type, bool) { return m.lookup(name, KindFtsQuery) }

// Any looks up a type regardless of kind, for generic traversal code (order
// by / where parsing) that descends through object/union/fk properties.
func (m *Model) Any(name string) (*Type, bool) {
	t, ok := m.types[name]
	return t, ok
}

// UnionVariantProperties returns the merged property set of all of a
// union's variants plus the synthetic non-null String discriminator
// isTypeOf. The result is memoized on the Type the first time it is
// computed, since the Model is immutable and single-lived for the process.
func (m *Model) UnionVariantProperties(unionName string) (map[string]*Property, error) {
	u, ok := m.Union(unionName)
	if !ok {
		return nil, fmt.Errorf("model: unknown union %q", unionName)
	}
	if u.mergedUnionProps != nil {
		return u.mergedUnionProps, nil
	}

	merged := map[string]*Property{
		"isTypeOf": {Name: "isTypeOf", Type: &PropertyType{Kind: PTScalar, Name: "String"}, Nullable: false},
	}
	for _, variantName := range u.Variants {
		variant, ok := m.Object(variantName)
		if !ok {
			return nil, fmt.Errorf("model: union %q references unknown object variant %q", unionName, variantName)
		}
		for propName, prop := range variant.Properties {
			if existing, ok := merged[propName]; ok {
				if !propTypesAgree(existing.Type, prop.Type) {
					return nil, fmt.Errorf("model: union %q variants disagree on type of property %q", unionName, propName)
				}
				continue
			}
			merged[propName] = prop
		}
	}
	u.mergedUnionProps = merged
	return merged, nil
}

func propTypesAgree(a, b *PropertyType) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case PTScalar, PTEnum:
		return a.Name == b.Name
	case PTObject, PTUnion:
		return a.Name == b.Name
	case PTFK:
		return a.Entity == b.Entity
	case PTList:
		return propTypesAgree(a.Item.Type, b.Item.Type)
	case PTListRelation:
		return a.Entity == b.Entity && a.Field == b.Field
	default:
		return false
	}
}
