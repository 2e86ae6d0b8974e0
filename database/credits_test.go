package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditsString(t *testing.T) {
	assert.Equal(t, "25", Rights(25).String())
	assert.Equal(t, "0.5", Credits(5000).String())
	assert.Equal(t, "1.2345", Credits(12345).String())
	assert.Equal(t, "0.0001", Credits(1).String())
	assert.Equal(t, "0", Credits(0).String())
}

func TestParseCredits(t *testing.T) {
	c, err := ParseCredits("2,5")
	require.NoError(t, err)
	assert.Equal(t, Credits(25000), c)

	for _, bad := range []string{"", "abc", "1/3", "1e3", "0.00001"} {
		_, err := ParseCredits(bad)
		assert.ErrorIs(t, err, ErrInvalidDecimal, bad)
	}
}

func TestCreditsForPayment(t *testing.T) {
	price, err := ParseDecimal("10")
	require.NoError(t, err)

	amount, err := ParseDecimal("250")
	require.NoError(t, err)
	assert.Equal(t, Rights(25), CreditsForPayment(amount, price))

	// 10/3 права округляются до десятитысячной
	amount, err = ParseDecimal("33.33333")
	require.NoError(t, err)
	assert.Equal(t, Credits(33333), CreditsForPayment(amount, price))

	var sum Credits
	for i := 0; i < 10; i++ {
		one, err := ParseDecimal("1")
		require.NoError(t, err)
		sum += CreditsForPayment(one, price)
	}
	assert.Equal(t, Rights(1), sum)
}

func TestCreditsFromRatRoundsHalfAwayFromZero(t *testing.T) {
	r, err := ParseDecimal("0.00005")
	require.NoError(t, err)
	c, exact := CreditsFromRat(r)
	assert.False(t, exact)
	assert.Equal(t, Credits(1), c)

	r, err = ParseDecimal("-0.00005")
	require.NoError(t, err)
	c, _ = CreditsFromRat(r)
	assert.Equal(t, Credits(-1), c)
}
