package codec

import (
	"fmt"
	"regexp"
	"strconv"
)

// numericScalar covers Int and Float. Native JSON extraction uses `->`
// (numeric) rather than `->>` (text), per spec §4.5.
func numericScalar(name string, isFloat bool) *Scalar {
	parse := func(wire string) (interface{}, error) {
		if isFloat {
			v, err := strconv.ParseFloat(wire, 64)
			if err != nil {
				return nil, fmt.Errorf("codec: invalid Float literal %q: %w", wire, err)
			}
			return v, nil
		}
		v, err := strconv.ParseInt(wire, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("codec: invalid Int literal %q: %w", wire, err)
		}
		return v, nil
	}
	return &Scalar{
		Name:                   name,
		FromTransport:          parse,
		ToTransportCast:        func(expr string) string { return fmt.Sprintf("(%s)::text", expr) },
		FromTransportCast:      identity,
		ToTransportArrayCast:   func(expr string) string { return fmt.Sprintf("(%s)::text[]", expr) },
		FromTransportArrayCast: identity,
		FromJSONCast: func(obj, prop string) string {
			return fmt.Sprintf("(%s->'%s')", obj, prop)
		},
		FromJSONToTransport: func(obj, prop string) string {
			return fmt.Sprintf("(%s->'%s')::text", obj, prop)
		},
	}
}

var bigIntPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)

// bigIntScalar: wire is a decimal-digit string (optional sign); native is
// numeric; carried as a string end-to-end to avoid precision loss (spec §9
// "Transport strings for arbitrary-precision / temporal values").
func bigIntScalar() *Scalar {
	return &Scalar{
		Name: "BigInt",
		FromTransport: func(wire string) (interface{}, error) {
			if !bigIntPattern.MatchString(wire) {
				return nil, fmt.Errorf("codec: invalid BigInt literal %q", wire)
			}
			return wire, nil
		},
		ToTransportCast:   func(expr string) string { return fmt.Sprintf("(%s)::text", expr) },
		FromTransportCast: func(placeholder string) string { return fmt.Sprintf("(%s)::numeric", placeholder) },
		ToTransportArrayCast: func(expr string) string {
			return fmt.Sprintf("(SELECT array_agg(v::text) FROM unnest(%s) AS v)", expr)
		},
		FromTransportArrayCast: func(placeholder string) string {
			return fmt.Sprintf("(SELECT array_agg(v::numeric) FROM unnest(%s::text[]) AS v)", placeholder)
		},
		FromJSONCast: func(obj, prop string) string {
			return fmt.Sprintf("((%s->>'%s')::numeric)", obj, prop)
		},
		FromJSONToTransport: func(obj, prop string) string {
			return fmt.Sprintf("(%s->>'%s')", obj, prop)
		},
	}
}

var rfc3339Pattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)

// dateTimeScalar: wire is RFC 3339; native is timestamptz; serialized back
// out as ISO 8601 with milliseconds.
func dateTimeScalar() *Scalar {
	return &Scalar{
		Name: "DateTime",
		FromTransport: func(wire string) (interface{}, error) {
			if !rfc3339Pattern.MatchString(wire) {
				return nil, fmt.Errorf("codec: invalid DateTime literal %q", wire)
			}
			return wire, nil
		},
		ToTransportCast: func(expr string) string {
			return fmt.Sprintf("to_char(%s at time zone 'UTC', 'YYYY-MM-DD\"T\"HH24:MI:SS.MS\"Z\"')", expr)
		},
		FromTransportCast: func(placeholder string) string { return fmt.Sprintf("(%s)::timestamptz", placeholder) },
		ToTransportArrayCast: func(expr string) string {
			return fmt.Sprintf("(SELECT array_agg(to_char(v at time zone 'UTC', 'YYYY-MM-DD\"T\"HH24:MI:SS.MS\"Z\"')) FROM unnest(%s) AS v)", expr)
		},
		FromTransportArrayCast: func(placeholder string) string {
			return fmt.Sprintf("(%s)::timestamptz[]", placeholder)
		},
		FromJSONCast: func(obj, prop string) string {
			return fmt.Sprintf("((%s->>'%s')::timestamptz)", obj, prop)
		},
		FromJSONToTransport: func(obj, prop string) string {
			return fmt.Sprintf("to_char((%s->>'%s')::timestamptz at time zone 'UTC', 'YYYY-MM-DD\"T\"HH24:MI:SS.MS\"Z\"')", obj, prop)
		},
	}
}

var hexBytesPattern = regexp.MustCompile(`^0x[0-9a-f]*$`)

// bytesScalar: wire is lower-case 0x-prefixed hex; native is bytea.
func bytesScalar() *Scalar {
	return &Scalar{
		Name: "Bytes",
		FromTransport: func(wire string) (interface{}, error) {
			if !hexBytesPattern.MatchString(wire) {
				return nil, fmt.Errorf("codec: invalid Bytes literal %q", wire)
			}
			return wire, nil
		},
		ToTransportCast: func(expr string) string {
			return fmt.Sprintf("('0x' || encode(%s, 'hex'))", expr)
		},
		FromTransportCast: func(placeholder string) string {
			return fmt.Sprintf("decode(substr(%s, 3), 'hex')", placeholder)
		},
		ToTransportArrayCast: func(expr string) string {
			return fmt.Sprintf("(SELECT array_agg('0x' || encode(v, 'hex')) FROM unnest(%s) AS v)", expr)
		},
		FromTransportArrayCast: func(placeholder string) string {
			return fmt.Sprintf("(SELECT array_agg(decode(substr(v, 3), 'hex')) FROM unnest(%s::text[]) AS v)", placeholder)
		},
		FromJSONCast: func(obj, prop string) string {
			return fmt.Sprintf("decode(substr(%s->>'%s', 3), 'hex')", obj, prop)
		},
		FromJSONToTransport: func(obj, prop string) string {
			return fmt.Sprintf("(%s->>'%s')", obj, prop)
		},
	}
}
