package secp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	k := KeyFromSeed([]byte("alice"))
	payload := []byte("spend output 0")
	sig := k.Sign(payload)

	var v Verifier
	assert.True(t, v.Verify(k.PubKey(), payload, sig))
	assert.False(t, v.Verify(k.PubKey(), []byte("spend output 1"), sig))

	other, err := NewKey()
	require.NoError(t, err)
	assert.False(t, v.Verify(other.PubKey(), payload, sig))
}

func TestVerifyGarbage(t *testing.T) {
	k := KeyFromSeed([]byte("bob"))
	payload := []byte("payload")

	var v Verifier
	assert.False(t, v.Verify([]byte{0x02, 0x01}, payload, k.Sign(payload)))
	assert.False(t, v.Verify(k.PubKey(), payload, []byte{0x30, 0x00}))
	assert.False(t, v.Verify(k.PubKey(), payload, nil))
}

func TestKeyFromSeedDeterministic(t *testing.T) {
	assert.Equal(t, KeyFromSeed([]byte("x")).PubKey(), KeyFromSeed([]byte("x")).PubKey())
	assert.NotEqual(t, KeyFromSeed([]byte("x")).PubKey(), KeyFromSeed([]byte("y")).PubKey())
	assert.Len(t, KeyFromSeed([]byte("x")).PubKey(), 33)
}
