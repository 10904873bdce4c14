package queryargs_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrud/queryplanner/internal/queryargs"
)

func TestEncodeDecodeCursorRoundTrip(t *testing.T) {
	c := queryargs.Cursor{OrderBy: []string{"balance_ASC"}, Offset: 3}
	wire := queryargs.EncodeCursor(c)

	decoded, err := queryargs.DecodeCursor(wire)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
	assert.True(t, decoded.MatchesOrderBy([]string{"balance_ASC"}))
	assert.False(t, decoded.MatchesOrderBy([]string{"wallet_ASC"}))
}

func TestDecodeCursorRejectsMalformedInput(t *testing.T) {
	_, err := queryargs.DecodeCursor("not-base64!!")
	assert.ErrorIs(t, err, queryargs.InvalidCursorValue)

	badJSON := base64.StdEncoding.EncodeToString([]byte("not json"))
	_, err = queryargs.DecodeCursor(badJSON)
	assert.ErrorIs(t, err, queryargs.InvalidCursorValue)

	emptyOrderBy := base64.StdEncoding.EncodeToString([]byte(`{"orderBy":[],"offset":1}`))
	_, err = queryargs.DecodeCursor(emptyOrderBy)
	assert.ErrorIs(t, err, queryargs.InvalidCursorValue)

	negativeOffset := base64.StdEncoding.EncodeToString([]byte(`{"orderBy":["id_ASC"],"offset":-1}`))
	_, err = queryargs.DecodeCursor(negativeOffset)
	assert.ErrorIs(t, err, queryargs.InvalidCursorValue)

	fractionalOffset := base64.StdEncoding.EncodeToString([]byte(`{"orderBy":["id_ASC"],"offset":1.5}`))
	_, err = queryargs.DecodeCursor(fractionalOffset)
	assert.ErrorIs(t, err, queryargs.InvalidCursorValue)
}
