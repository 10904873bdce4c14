package queryargs

import (
	"fmt"
	"strings"

	"github.com/opencrud/queryplanner/internal/model"
)

// Direction is the SQL sort direction an OrderBy step is paired with.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderBy is one parsed `<field>[_<field>...]_ASC|_DESC` entry: the
// property-name path from the root object down to a scalar/enum terminal,
// paired with a direction.
type OrderBy struct {
	Path      []string
	Direction Direction
}

// ParseOrderByList parses an orderBy argument, which may be a single string
// or a list of strings (spec §8 example: `orderBy: [account_wallet_ASC,
// balance_DESC]`). startType names the Entity/JsonObject/Union the paths
// are rooted at.
func ParseOrderByList(m *model.Model, startType string, raw interface{}) ([]*OrderBy, error) {
	if raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		ob, err := parseOrderByOne(m, startType, v)
		if err != nil {
			return nil, err
		}
		return []*OrderBy{ob}, nil
	case []interface{}:
		out := make([]*OrderBy, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("queryargs: orderBy entries must be strings, got %T", item)
			}
			ob, err := parseOrderByOne(m, startType, s)
			if err != nil {
				return nil, err
			}
			out = append(out, ob)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("queryargs: orderBy must be a string or list of strings, got %T", raw)
	}
}

func parseOrderByOne(m *model.Model, startType, raw string) (*OrderBy, error) {
	tokens := strings.Split(raw, "_")
	if len(tokens) < 2 {
		return nil, fmt.Errorf("queryargs: invalid orderBy %q: missing direction suffix", raw)
	}
	dirToken := tokens[len(tokens)-1]
	var dir Direction
	switch dirToken {
	case "ASC":
		dir = Asc
	case "DESC":
		dir = Desc
	default:
		return nil, fmt.Errorf("queryargs: invalid orderBy %q: unknown direction %q", raw, dirToken)
	}

	path := tokens[:len(tokens)-1]
	if len(path) == 0 {
		return nil, fmt.Errorf("queryargs: invalid orderBy %q: no field path", raw)
	}

	if err := validateOrderByPath(m, startType, path); err != nil {
		return nil, fmt.Errorf("queryargs: invalid orderBy %q: %w", raw, err)
	}

	return &OrderBy{Path: path, Direction: dir}, nil
}

// validateOrderByPath walks path through startType's properties, requiring
// every step but the last to be object/union/fk, and the last to be
// scalar/enum (spec §4.3).
func validateOrderByPath(m *model.Model, typeName string, path []string) error {
	props, err := sortPathProperties(m, typeName)
	if err != nil {
		return err
	}

	for i, step := range path {
		prop, ok := props[step]
		if !ok {
			return fmt.Errorf("unknown property %q", step)
		}
		last := i == len(path)-1
		switch prop.Type.Kind {
		case model.PTScalar, model.PTEnum:
			if !last {
				return fmt.Errorf("property %q is scalar/enum but path continues", step)
			}
			return nil
		case model.PTObject:
			if last {
				return fmt.Errorf("sort path must terminate on a scalar or enum, not object %q", step)
			}
			props, err = sortPathProperties(m, prop.Type.Name)
			if err != nil {
				return err
			}
		case model.PTFK:
			if last {
				return fmt.Errorf("sort path must terminate on a scalar or enum, not relation %q", step)
			}
			props, err = sortPathProperties(m, prop.Type.Entity)
			if err != nil {
				return err
			}
		case model.PTUnion:
			if last {
				return fmt.Errorf("sort path must terminate on a scalar or enum, not union %q", step)
			}
			props, err = sortPathProperties(m, prop.Type.Name)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("sort path must terminate on a scalar or enum, cannot traverse %q", step)
		}
	}
	return nil
}

func sortPathProperties(m *model.Model, typeName string) (map[string]*model.Property, error) {
	t, ok := m.Any(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown type %q", typeName)
	}
	switch t.Kind {
	case model.KindEntity, model.KindJsonObject, model.KindInterface:
		return t.Properties, nil
	case model.KindUnion:
		return m.UnionVariantProperties(typeName)
	default:
		return nil, fmt.Errorf("type %q is not a sortable object", typeName)
	}
}
