package config

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_form_bot/database"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("SUPER_ADMIN_ID", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, database.Rights(1), cfg.SubmissionCost)
	assert.True(t, cfg.ChargeDuplicates)
	assert.Zero(t, cfg.CreditUnitPrice.Cmp(big.NewRat(10, 1)))
	assert.Equal(t, "receipts", cfg.MinIO.Bucket)
	assert.False(t, cfg.TopUp.Enabled())
	assert.Zero(t, cfg.TopUp.MinAmount.Cmp(big.NewRat(500, 1)))
	assert.Equal(t, 20*time.Minute, cfg.TopUp.PaymentTTL)
	assert.Equal(t, "USDTTRC20", cfg.TopUp.PayCurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFractionalCost(t *testing.T) {
	t.Setenv("SUBMISSION_COST", "0,25")
	t.Setenv("CREDIT_UNIT_PRICE", "7.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, database.Credits(2500), cfg.SubmissionCost)
	assert.Zero(t, cfg.CreditUnitPrice.Cmp(big.NewRat(15, 2)))
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("SUPER_ADMIN_ID", "abc")
	_, err := Load()
	assert.ErrorContains(t, err, "SUPER_ADMIN_ID")

	t.Setenv("SUPER_ADMIN_ID", "1")
	t.Setenv("SESSION_TTL", "yarım saat")
	_, err = Load()
	assert.ErrorContains(t, err, "SESSION_TTL")

	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SUBMISSION_COST", "0.00001")
	_, err = Load()
	assert.ErrorContains(t, err, "SUBMISSION_COST")

	t.Setenv("SUBMISSION_COST", "1")
	t.Setenv("TOPUP_MIN_AMOUNT", "beşyüz")
	_, err = Load()
	assert.ErrorContains(t, err, "TOPUP_MIN_AMOUNT")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		SubmissionCost:    database.Rights(1),
		CreditUnitPrice:   big.NewRat(10, 1),
		DatabaseURL:       "postgres://x",
		PaymentListenAddr: ":8080",
		TopUp:             TopUpConfig{APIKey: "key"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"BOT_TOKEN", "SUPER_ADMIN_ID", "POSTGRES_ENCRYPTION_KEY", "PAYMENT_IPN_SECRET", "TOPUP_POLL_INTERVAL"} {
		assert.ErrorContains(t, err, key)
	}

	cfg.CreditUnitPrice = nil
	assert.ErrorContains(t, cfg.Validate(), "CREDIT_UNIT_PRICE")
}
