package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrud/queryplanner/internal/codec"
)

func TestRegistryLookupBuiltins(t *testing.T) {
	r := codec.NewRegistry()
	for _, name := range []string{"ID", "String", "Boolean", "Int", "Float", "BigInt", "DateTime", "Bytes"} {
		s, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name)
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := codec.NewRegistry()
	_, err := r.Lookup("NotAScalar")
	assert.Error(t, err)
}

func TestBigIntRoundTripsAsDecimalString(t *testing.T) {
	r := codec.NewRegistry()
	s, err := r.Lookup("BigInt")
	require.NoError(t, err)

	v, err := s.FromTransport("1000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000000000000000000", v)

	_, err = s.FromTransport("not-a-number")
	assert.Error(t, err)

	assert.Equal(t, "($1)::numeric", s.FromTransportCast("$1"))
	assert.Equal(t, `("balance")::text`, s.ToTransportCast(`"balance"`))
}

func TestDateTimeRejectsNonRFC3339(t *testing.T) {
	r := codec.NewRegistry()
	s, err := r.Lookup("DateTime")
	require.NoError(t, err)

	_, err = s.FromTransport("not-a-date")
	assert.Error(t, err)

	v, err := s.FromTransport("2024-01-02T03:04:05.000Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05.000Z", v)
}

func TestBytesRequiresHexPrefix(t *testing.T) {
	r := codec.NewRegistry()
	s, err := r.Lookup("Bytes")
	require.NoError(t, err)

	_, err = s.FromTransport("deadbeef")
	assert.Error(t, err)

	v, err := s.FromTransport("0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", v)
}

func TestExtraScalarOverridesBuiltin(t *testing.T) {
	custom := &codec.Scalar{Name: "String", FromTransport: func(wire string) (interface{}, error) { return "custom:" + wire, nil }}
	r := codec.NewRegistry(custom)
	s, err := r.Lookup("String")
	require.NoError(t, err)
	v, err := s.FromTransport("x")
	require.NoError(t, err)
	assert.Equal(t, "custom:x", v)
}
