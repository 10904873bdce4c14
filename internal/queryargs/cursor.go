package queryargs

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// InvalidCursorValue is the user error spec §6.3 requires for any cursor
// that fails to decode into {orderBy: non-empty string array, offset:
// positive integer}.
var InvalidCursorValue = errors.New("InvalidCursorValue")

// Cursor is the decoded Relay pagination cursor (spec §6.3): the orderBy
// strings the enclosing connection used, and the row offset it names.
type Cursor struct {
	OrderBy []string `json:"orderBy"`
	Offset  int      `json:"offset"`
}

// EncodeCursor renders c as the base64 wire cursor.
func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeCursor parses and validates a wire cursor, failing with
// InvalidCursorValue on any malformed input: bad base64, bad JSON, missing
// or empty orderBy, or a non-positive/non-finite offset.
func DecodeCursor(wire string) (Cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(wire)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %s", InvalidCursorValue, err)
	}
	var c Cursor
	// Decode into a loosely typed struct first so a non-integer offset
	// (e.g. a float or a string) is also rejected as InvalidCursorValue
	// rather than silently truncated by json.Unmarshal into int.
	var loose struct {
		OrderBy []string        `json:"orderBy"`
		Offset  json.Number     `json:"offset"`
		Extra   json.RawMessage `json:"-"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return Cursor{}, fmt.Errorf("%w: %s", InvalidCursorValue, err)
	}
	// json.Number also accepts a quoted numeric string; reject that form.
	var rawOffset struct {
		Offset json.RawMessage `json:"offset"`
	}
	if err := json.Unmarshal(raw, &rawOffset); err == nil && len(rawOffset.Offset) > 0 && rawOffset.Offset[0] == '"' {
		return Cursor{}, fmt.Errorf("%w: offset must be a number", InvalidCursorValue)
	}
	if len(loose.OrderBy) == 0 {
		return Cursor{}, fmt.Errorf("%w: orderBy must be a non-empty array", InvalidCursorValue)
	}
	offsetF, err := loose.Offset.Float64()
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: offset must be a number", InvalidCursorValue)
	}
	if offsetF != float64(int64(offsetF)) || offsetF <= 0 {
		return Cursor{}, fmt.Errorf("%w: offset must be a positive integer", InvalidCursorValue)
	}
	c.OrderBy = loose.OrderBy
	c.Offset = int(offsetF)
	return c, nil
}

// MatchesOrderBy reports whether the cursor's orderBy matches the
// enclosing query's orderBy strings exactly (spec §6.3: "The cursor's
// orderBy must match the enclosing query's orderBy when both are
// present").
func (c Cursor) MatchesOrderBy(queryOrderBy []string) bool {
	if len(c.OrderBy) != len(queryOrderBy) {
		return false
	}
	for i := range c.OrderBy {
		if c.OrderBy[i] != queryOrderBy[i] {
			return false
		}
	}
	return true
}
