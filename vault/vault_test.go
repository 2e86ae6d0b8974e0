package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresKey(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestSealOpen(t *testing.T) {
	v, err := New("secret")
	require.NoError(t, err)

	payload := []byte("Jane Doe\n5551234\nj@x.com")
	sealed, err := v.Seal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "Jane")

	again, err := v.Seal(payload)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ between seals")

	plain, err := v.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, payload, plain)
}

func TestOpenRejectsTampering(t *testing.T) {
	v, err := New("secret")
	require.NoError(t, err)

	sealed, err := v.Seal([]byte("value"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = v.Open(sealed)
	assert.ErrorIs(t, err, ErrCorrupted)

	_, err = v.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestOpenWithOtherKeyFails(t *testing.T) {
	a, _ := New("one")
	b, _ := New("two")

	sealed, err := a.Seal([]byte("value"))
	require.NoError(t, err)
	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestFingerprint(t *testing.T) {
	a, _ := New("one")
	b, _ := New("two")

	assert.Equal(t, a.Fingerprint("x\ny"), a.Fingerprint("x\ny"))
	assert.NotEqual(t, a.Fingerprint("x\ny"), a.Fingerprint("x\ny "))
	assert.NotEqual(t, a.Fingerprint("x\ny"), b.Fingerprint("x\ny"))
	assert.Len(t, a.Fingerprint(""), 32)
}
