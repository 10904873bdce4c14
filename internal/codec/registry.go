// Package codec is the Scalar Codec Registry (spec §4.5): per-scalar wire
// (transport) coercion plus the SQL snippets the planner splices into
// generated statements. It plays the role the teacher's sqlgen.TypeConverter
// played for Go-value <-> SQL-value marshaling, except the planner never
// materializes scalars into Go values of a specific static type — it only
// ever emits SQL expressions and parses/serializes transport strings.
package codec

import "fmt"

// Scalar is the per-type contract the planner uses to emit casts and to
// coerce between the wire (transport) string representation and bound SQL
// parameter values.
type Scalar struct {
	Name string

	// FromTransport parses a wire string into the Go value bound as a SQL
	// parameter (used for WHERE literals, e.g. eq/gt/in).
	FromTransport func(wire string) (interface{}, error)

	// ToTransportCast wraps a native SQL column/expression so it yields the
	// scalar's canonical wire string.
	ToTransportCast func(expr string) string

	// FromTransportCast wraps a SQL parameter placeholder so it casts the
	// bound (already-parsed) value to the scalar's native SQL type. Most
	// scalars are identity here since FromTransport already produced a
	// native Go value of the right driver type; BigInt/DateTime/Bytes need
	// an explicit cast because they are carried as strings end-to-end.
	FromTransportCast func(placeholder string) string

	// Array variants, for native-array columns (see model.IsArrayCapable).
	ToTransportArrayCast   func(expr string) string
	FromTransportArrayCast func(placeholder string) string

	// JSON-extract helpers, used when the scalar lives inside an embedded
	// JsonObject rather than as a dedicated column.
	FromJSONCast        func(obj, prop string) string // extract + cast to native
	FromJSONToTransport func(obj, prop string) string // extract as wire string
}

// Registry is the process-wide, immutable set of known scalars.
type Registry struct {
	scalars map[string]*Scalar
}

// NewRegistry builds a registry containing the canonical built-ins plus any
// caller-supplied extensions (custom scalars contributed by the Schema
// Loader are out of scope here, but the registry is open to them).
func NewRegistry(extra ...*Scalar) *Registry {
	r := &Registry{scalars: make(map[string]*Scalar)}
	for _, s := range builtins() {
		r.scalars[s.Name] = s
	}
	for _, s := range extra {
		r.scalars[s.Name] = s
	}
	return r
}

// Lookup returns the named scalar, or an error if it is unknown (a model
// referencing an unregistered scalar is a schema error).
func (r *Registry) Lookup(name string) (*Scalar, error) {
	s, ok := r.scalars[name]
	if !ok {
		return nil, fmt.Errorf("codec: unknown scalar %q", name)
	}
	return s, nil
}

func identity(expr string) string { return expr }

func builtins() []*Scalar {
	return []*Scalar{
		simpleScalar("ID"),
		simpleScalar("String"),
		simpleScalar("Boolean"),
		numericScalar("Int", false),
		numericScalar("Float", true),
		bigIntScalar(),
		dateTimeScalar(),
		bytesScalar(),
	}
}

// simpleScalar covers ID/String/Boolean: identity casts, wire == native
// text representation.
func simpleScalar(name string) *Scalar {
	return &Scalar{
		Name:                   name,
		FromTransport:          func(wire string) (interface{}, error) { return wire, nil },
		ToTransportCast:        identity,
		FromTransportCast:      identity,
		ToTransportArrayCast:   identity,
		FromTransportArrayCast: identity,
		FromJSONCast: func(obj, prop string) string {
			return fmt.Sprintf("(%s->>'%s')", obj, prop)
		},
		FromJSONToTransport: func(obj, prop string) string {
			return fmt.Sprintf("(%s->>'%s')", obj, prop)
		},
	}
}
