package planner

import (
	"fmt"

	"github.com/opencrud/queryplanner/internal/codec"
	"github.com/opencrud/queryplanner/internal/model"
)

// position tags which SQL space a Cursor occupies: a table alias (Entity)
// or a JSON-path prefix (JsonObject / merged Union properties).
type position int

const (
	posEntity position = iota
	posObject
)

// Cursor is the positional walker used during SQL assembly (spec §4.4.1):
// it knows the object it is currently on, where that object lives in SQL
// space, and how to descend into a child property, registering joins as
// needed. Owned by a single planning pass; never shared across requests.
type Cursor struct {
	pc *planContext

	pos      position
	typeName string // Entity name (posEntity) or JsonObject/Union name (posObject)

	tableAlias string // valid when pos == posEntity
	jsonExpr   string // valid when pos == posObject
}

// NewRootCursor opens a Cursor on entityName with a freshly allocated table
// alias.
func NewRootCursor(pc *planContext, entityName string) (*Cursor, error) {
	if _, ok := pc.model.Entity(entityName); !ok {
		return nil, newSchemaError("planner: unknown entity %q", entityName)
	}
	alias := pc.aliases.Alloc(model.TableName(entityName))
	return &Cursor{pc: pc, pos: posEntity, typeName: entityName, tableAlias: alias}, nil
}

// TableAlias returns the current entity-rooted alias; only valid when the
// cursor is entity-rooted (IsEntity).
func (c *Cursor) TableAlias() string { return c.tableAlias }

// IsEntity reports whether the cursor is positioned on an Entity (as
// opposed to a JsonObject/merged-Union JSON position).
func (c *Cursor) IsEntity() bool { return c.pos == posEntity }

// TypeName returns the Entity/JsonObject/Union name the cursor is
// currently positioned on.
func (c *Cursor) TypeName() string { return c.typeName }

// properties resolves the property map for the cursor's current type,
// covering Entity, JsonObject, and merged Union variant properties.
func (c *Cursor) properties() (map[string]*model.Property, error) {
	t, ok := c.pc.model.Any(c.typeName)
	if !ok {
		return nil, newSchemaError("planner: unknown type %q", c.typeName)
	}
	switch t.Kind {
	case model.KindEntity, model.KindJsonObject, model.KindInterface:
		return t.Properties, nil
	case model.KindUnion:
		return c.pc.model.UnionVariantProperties(c.typeName)
	default:
		return nil, newSchemaError("planner: type %q is not an object", c.typeName)
	}
}

// Property looks up prop by name on the cursor's current type.
func (c *Cursor) Property(name string) (*model.Property, error) {
	props, err := c.properties()
	if err != nil {
		return nil, err
	}
	p, ok := props[name]
	if !ok {
		return nil, NewUserError("unknown property %q on %q", name, c.typeName)
	}
	return p, nil
}

// scalarLike returns the codec.Scalar for a scalar or enum PropertyType;
// enums are carried exactly like String (their values are validated
// against the enum's allowed set upstream, by the Schema Loader / API
// layer, not by the planner).
func (c *Cursor) scalarLike(pt *model.PropertyType) (*codec.Scalar, error) {
	switch pt.Kind {
	case model.PTScalar:
		return c.pc.registry.Lookup(pt.Name)
	case model.PTEnum:
		return c.pc.registry.Lookup("String")
	default:
		panic(fmt.Sprintf("planner: scalarLike called on non-scalar/enum kind %v", pt.Kind))
	}
}

// Field returns the raw column reference or JSON extraction for prop,
// without any cast. Used for the null-object presence sentinel and as the
// extraction target fed to codec JSON helpers.
func (c *Cursor) Field(propName string) (string, error) {
	prop, err := c.Property(propName)
	if err != nil {
		return "", err
	}
	return c.fieldExpr(prop), nil
}

func (c *Cursor) fieldExpr(prop *model.Property) string {
	if c.pos == posEntity {
		col := model.ColumnName(prop.Name)
		if prop.Type.Kind == model.PTFK {
			col = model.FKColumnName(prop.Name)
		}
		return c.pc.quote(c.tableAlias) + "." + c.pc.quote(col)
	}
	return fmt.Sprintf("(%s->'%s')", c.jsonExpr, prop.Name)
}

// Native returns the SQL expression yielding propName's native SQL value.
// Only valid for scalar/enum properties.
func (c *Cursor) Native(propName string) (string, error) {
	prop, err := c.Property(propName)
	if err != nil {
		return "", err
	}
	if prop.Type.Kind != model.PTScalar && prop.Type.Kind != model.PTEnum {
		return "", newSchemaError("planner: Native called on non-scalar/enum property %q", propName)
	}
	scalar, err := c.scalarLike(prop.Type)
	if err != nil {
		return "", err
	}
	if c.pos == posEntity {
		return c.fieldExpr(prop), nil
	}
	return scalar.FromJSONCast(c.jsonExpr, prop.Name), nil
}

// Transport returns the SQL expression yielding propName in its canonical
// wire string representation, including list-of-scalar columns.
func (c *Cursor) Transport(propName string) (string, error) {
	prop, err := c.Property(propName)
	if err != nil {
		return "", err
	}
	switch prop.Type.Kind {
	case model.PTScalar, model.PTEnum:
		scalar, err := c.scalarLike(prop.Type)
		if err != nil {
			return "", err
		}
		if c.pos == posEntity {
			return scalar.ToTransportCast(c.fieldExpr(prop)), nil
		}
		return scalar.FromJSONToTransport(c.jsonExpr, prop.Name), nil

	case model.PTList:
		return c.transportList(prop)

	default:
		return "", newSchemaError("planner: Transport called on non-leaf property %q", propName)
	}
}

func (c *Cursor) transportList(prop *model.Property) (string, error) {
	item := prop.Type.Item
	if (item.Type.Kind == model.PTScalar || item.Type.Kind == model.PTEnum) && model.IsArrayCapable(item.Type) {
		scalar, err := c.scalarLike(item.Type)
		if err != nil {
			return "", err
		}
		if c.pos == posEntity {
			return scalar.ToTransportArrayCast(c.fieldExpr(prop)), nil
		}
		// Embedded array-capable list stored as a JSON array: cast the
		// extracted JSON value to a native array type, then defer to the
		// same array transport cast as a column of that type.
		native := fmt.Sprintf("(SELECT array_agg(value) FROM jsonb_array_elements_text(%s) AS value)", c.fieldExpr(prop))
		return scalar.ToTransportArrayCast(scalar.FromTransportArrayCast(native)), nil
	}
	// List of object/union/nested-list: stored and returned as JSON as-is;
	// the row shaper walks its elements against the item's requested
	// sub-fields the same way it walks listRelation results.
	return c.fieldExpr(prop), nil
}

// NativeArray returns the native-array SQL expression for an array-capable
// list property together with its item scalar, for use by array where
// operators (containsAll/containsAny). Only valid for list properties
// whose item is an array-capable scalar/enum (model.IsArrayCapable).
func (c *Cursor) NativeArray(propName string) (string, *codec.Scalar, error) {
	prop, err := c.Property(propName)
	if err != nil {
		return "", nil, err
	}
	if prop.Type.Kind != model.PTList || !model.IsArrayCapable(prop.Type.Item.Type) {
		return "", nil, newSchemaError("planner: NativeArray called on non-array-capable-list property %q", propName)
	}
	scalar, err := c.scalarLike(prop.Type.Item.Type)
	if err != nil {
		return "", nil, err
	}
	if c.pos == posEntity {
		return c.fieldExpr(prop), scalar, nil
	}
	// Embedded array-capable list stored as a JSON array: aggregate it back
	// into a native array, matching transportList's embedded-array path.
	native := fmt.Sprintf("(SELECT array_agg(value) FROM jsonb_array_elements_text(%s) AS value)", c.fieldExpr(prop))
	return scalar.FromTransportArrayCast(native), scalar, nil
}

// FK returns the referencing expression for an fk property: the `<prop>_id`
// column for entities, or a JSON-extracted-and-cast ID for embedded
// objects.
func (c *Cursor) FK(propName string) (string, error) {
	prop, err := c.Property(propName)
	if err != nil {
		return "", err
	}
	if prop.Type.Kind != model.PTFK {
		return "", newSchemaError("planner: FK called on non-fk property %q", propName)
	}
	if c.pos == posEntity {
		return c.fieldExpr(prop), nil
	}
	idScalar, err := c.pc.registry.Lookup("ID")
	if err != nil {
		return "", err
	}
	return idScalar.FromJSONCast(c.jsonExpr, prop.Name), nil
}

// TSV returns the tsvector column expression for a named full-text search
// query. Only valid at an entity-rooted cursor.
func (c *Cursor) TSV(queryName string) (string, error) {
	if c.pos != posEntity {
		return "", newSchemaError("planner: TSV is only valid at an entity root")
	}
	tsv, _ := model.FTSColumnNames(queryName)
	return c.pc.quote(c.tableAlias) + "." + c.pc.quote(tsv), nil
}

// Doc returns the concatenated-document column expression for a named
// full-text search query. Only valid at an entity-rooted cursor.
func (c *Cursor) Doc(queryName string) (string, error) {
	if c.pos != posEntity {
		return "", newSchemaError("planner: Doc is only valid at an entity root")
	}
	_, doc := model.FTSColumnNames(queryName)
	return c.pc.quote(c.tableAlias) + "." + c.pc.quote(doc), nil
}

// Child descends into propName, returning a new Cursor. For object/union
// properties the JSON-path prefix grows; for fk properties, a LEFT OUTER
// JOIN to the foreign entity's table is registered (deduplicated by the
// shared join set) and the cursor becomes entity-rooted again on the
// foreign entity.
func (c *Cursor) Child(propName string) (*Cursor, error) {
	prop, err := c.Property(propName)
	if err != nil {
		return nil, err
	}
	switch prop.Type.Kind {
	case model.PTObject:
		return &Cursor{pc: c.pc, pos: posObject, typeName: prop.Type.Name, jsonExpr: c.fieldExpr(prop)}, nil

	case model.PTUnion:
		return &Cursor{pc: c.pc, pos: posObject, typeName: prop.Type.Name, jsonExpr: c.fieldExpr(prop)}, nil

	case model.PTFK:
		fkExpr, err := c.FK(propName)
		if err != nil {
			return nil, err
		}
		table := model.TableName(prop.Type.Entity)
		alias := c.pc.joins.RegisterFK(table, fkExpr, c.pc.quoter)
		return &Cursor{pc: c.pc, pos: posEntity, typeName: prop.Type.Entity, tableAlias: alias}, nil

	default:
		return nil, newSchemaError("planner: Child called on non-descendable property %q (kind %v)", propName, prop.Type.Kind)
	}
}
