package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"go_form_bot/database"
)

type Config struct {
	BotToken     string
	SuperAdminID int64
	LogChannelID int64

	DatabaseURL   string
	EncryptionKey string
	RedisURL      string

	// Диалоги без активности дольше SessionTTL сбрасываются
	SessionTTL time.Duration

	SubmissionCost   database.Credits
	ChargeDuplicates bool
	// CreditUnitPrice — цена одного права в валюте пополнения
	CreditUnitPrice *big.Rat

	LogLevel  string
	LogFormat string

	MinIO MinIOConfig

	PaymentListenAddr string
	PaymentIPNSecret  string

	TopUp TopUpConfig
}

// TopUpConfig — создание платежей NOWPayments по /bakiyeyukle
type TopUpConfig struct {
	APIKey        string
	APIURL        string
	PriceCurrency string
	PayCurrency   string
	// CallbackURL — адрес IPN-приёмника, передаётся в ipn_callback_url
	CallbackURL string
	MinAmount   *big.Rat
	// PaymentTTL — сколько опрашивать статус созданного платежа
	PaymentTTL   time.Duration
	PollInterval time.Duration
}

// Enabled — без API-ключа /bakiyeyukle недоступна
func (t TopUpConfig) Enabled() bool {
	return t.APIKey != ""
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

func Load() (*Config, error) {
	superAdmin, err := strconv.ParseInt(getEnv("SUPER_ADMIN_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("SUPER_ADMIN_ID: %w", err)
	}
	logChannel, err := strconv.ParseInt(getEnv("LOG_CHANNEL_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("LOG_CHANNEL_ID: %w", err)
	}
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	cost, err := database.ParseCredits(getEnv("SUBMISSION_COST", "1"))
	if err != nil {
		return nil, fmt.Errorf("SUBMISSION_COST: %w", err)
	}
	unitPrice, err := database.ParseDecimal(getEnv("CREDIT_UNIT_PRICE", "10"))
	if err != nil {
		return nil, fmt.Errorf("CREDIT_UNIT_PRICE: %w", err)
	}
	minTopUp, err := database.ParseDecimal(getEnv("TOPUP_MIN_AMOUNT", "500"))
	if err != nil {
		return nil, fmt.Errorf("TOPUP_MIN_AMOUNT: %w", err)
	}
	paymentTTL, err := time.ParseDuration(getEnv("TOPUP_PAYMENT_TTL", "20m"))
	if err != nil {
		return nil, fmt.Errorf("TOPUP_PAYMENT_TTL: %w", err)
	}
	pollInterval, err := time.ParseDuration(getEnv("TOPUP_POLL_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("TOPUP_POLL_INTERVAL: %w", err)
	}

	return &Config{
		BotToken:          getEnv("BOT_TOKEN", ""),
		SuperAdminID:      superAdmin,
		LogChannelID:      logChannel,
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		EncryptionKey:     getEnv("POSTGRES_ENCRYPTION_KEY", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		SessionTTL:        ttl,
		SubmissionCost:    cost,
		ChargeDuplicates:  getEnv("CHARGE_DUPLICATES", "true") == "true",
		CreditUnitPrice:   unitPrice,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		PaymentListenAddr: getEnv("PAYMENT_LISTEN_ADDR", ""),
		PaymentIPNSecret:  getEnv("PAYMENT_IPN_SECRET", ""),
		TopUp: TopUpConfig{
			APIKey:        getEnv("NOWPAYMENTS_API_KEY", ""),
			APIURL:        getEnv("NOWPAYMENTS_API_URL", "https://api.nowpayments.io/v1"),
			PriceCurrency: getEnv("TOPUP_PRICE_CURRENCY", "TRY"),
			PayCurrency:   getEnv("TOPUP_PAY_CURRENCY", "USDTTRC20"),
			CallbackURL:   getEnv("NOWPAYMENTS_IPN_CALLBACK_URL", ""),
			MinAmount:     minTopUp,
			PaymentTTL:    paymentTTL,
			PollInterval:  pollInterval,
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "receipts"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
	}, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN не установлен"))
	}
	if c.SuperAdminID == 0 {
		errs = append(errs, errors.New("SUPER_ADMIN_ID не установлен"))
	}
	if c.DatabaseURL != "" && c.EncryptionKey == "" {
		errs = append(errs, errors.New("POSTGRES_ENCRYPTION_KEY обязателен вместе с DATABASE_URL"))
	}
	if c.SubmissionCost <= 0 {
		errs = append(errs, errors.New("SUBMISSION_COST должен быть положительным"))
	}
	if c.CreditUnitPrice == nil || c.CreditUnitPrice.Sign() <= 0 {
		errs = append(errs, errors.New("CREDIT_UNIT_PRICE должен быть положительным"))
	}
	if c.PaymentListenAddr != "" && c.PaymentIPNSecret == "" {
		errs = append(errs, errors.New("PAYMENT_IPN_SECRET обязателен вместе с PAYMENT_LISTEN_ADDR"))
	}
	if c.TopUp.Enabled() && c.TopUp.PollInterval <= 0 {
		errs = append(errs, errors.New("TOPUP_POLL_INTERVAL должен быть положительным"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
