package domain

import (
	"crypto/ed25519"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

func TestParseAddress(t *testing.T) {
	t.Run("accepts prefixed and bare hex", func(t *testing.T) {
		a, err := ParseAddress("0x00000000000000000000000000000000000000aB")
		require.NoError(t, err)
		b, err := ParseAddress("00000000000000000000000000000000000000ab")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, "0x00000000000000000000000000000000000000ab", a.String())
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseAddress("0x1234")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-hex", func(t *testing.T) {
		_, err := ParseAddress("0x" + strings.Repeat("zz", AddressLength))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestAddressFromPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	a := AddressFromPublicKey(pub)
	assert.False(t, a.IsZero())
	assert.Equal(t, a, AddressFromPublicKey(pub), "derivation is deterministic")
}

func TestAddressJSON(t *testing.T) {
	type payload struct {
		Owner Address `json:"owner"`
	}
	in := payload{Owner: MustParseAddress("0x1111111111111111111111111111111111111111")}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"0x1111111111111111111111111111111111111111"}`, string(raw))

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestParsePropertyID(t *testing.T) {
	id, err := ParsePropertyID("42")
	require.NoError(t, err)
	assert.Equal(t, PropertyID(42), id)

	_, err = ParsePropertyID("0")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = ParsePropertyID("-1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
