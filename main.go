package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go_form_bot/admission"
	"go_form_bot/attach"
	"go_form_bot/config"
	"go_form_bot/database"
	"go_form_bot/handlers"
	"go_form_bot/intake"
	"go_form_bot/payment"
	"go_form_bot/report"
	"go_form_bot/session"
	"go_form_bot/storage"
	"go_form_bot/tglog"
	"go_form_bot/vault"
)

// backend — Postgres или память, набор методов одинаковый
type backend interface {
	handlers.Store
	admission.Store
	report.Store
	payment.Ledger
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("загрузка .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("бот остановлен с ошибкой", zap.Error(err))
		cancel()
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("бот остановлен")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, secret, closeStore, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	v, err := vault.New(secret)
	if err != nil {
		return err
	}

	sessions, sweep, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}

	b, err := bot.New(cfg.BotToken, bot.WithDefaultHandler(func(context.Context, *bot.Bot, *models.Update) {}))
	if err != nil {
		return err
	}
	me, err := b.GetMe(ctx)
	if err != nil {
		return err
	}
	tglog.Init(b, cfg.LogChannelID, logger)

	uploader, err := newUploader(ctx, cfg, b, logger)
	if err != nil {
		return err
	}

	protocol := admission.New(store, v, admission.Options{
		Cost:             cfg.SubmissionCost,
		ChargeDuplicates: cfg.ChargeDuplicates,
	}, logger)
	engine := intake.New(store, protocol, uploader, sessions, logger, intake.WithTopUpMinimum(cfg.TopUp.MinAmount))
	reports := report.NewService(store, v, logger)

	h := handlers.New(b, cfg, store, engine, reports, logger, me.Username)
	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, h.OnMessage)

	// Process нужен и IPN-приёмнику, и опросу статусов
	srv := payment.NewServer(store, h, h, cfg.PaymentIPNSecret, cfg.CreditUnitPrice, logger)
	var watcher *payment.Watcher
	if cfg.TopUp.Enabled() {
		watcher = payment.NewWatcher(payment.NewClient(cfg.TopUp, nil), srv, h,
			cfg.TopUp.PaymentTTL, cfg.TopUp.PollInterval, logger)
		h.SetPayments(watcher)
	} else {
		logger.Info("NOWPAYMENTS_API_KEY не задан, /bakiyeyukle отключена")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("бот запущен", zap.String("username", me.Username))
		tglog.Send("🟢 Bot başlatıldı: @%s", tglog.Escape(me.Username))
		b.Start(gctx)
		return nil
	})
	if sweep != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if n := sweep(); n > 0 {
						logger.Debug("просроченные сессии удалены", zap.Int("count", n))
					}
				}
			}
		})
	}
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}
	if cfg.PaymentListenAddr != "" {
		g.Go(func() error {
			return srv.Run(gctx, cfg.PaymentListenAddr)
		})
	}
	return g.Wait()
}

// openBackend без DATABASE_URL работает в памяти со случайным ключом
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (backend, string, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL не задан, данные хранятся в памяти")
		secret := cfg.EncryptionKey
		if secret == "" {
			secret = uuid.NewString()
		}
		return storage.New(), secret, func() {}, nil
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, "", nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, "", nil, err
	}
	logger.Info("подключено к PostgreSQL")
	return db, cfg.EncryptionKey, db.Close, nil
}

// openSessions возвращает sweep только для хранилища в памяти
func openSessions(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, func() int, error) {
	if cfg.RedisURL == "" {
		mem := session.NewMemoryStore(cfg.SessionTTL)
		return mem, mem.Sweep, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}
	logger.Info("сессии хранятся в Redis", zap.String("addr", opts.Addr))
	return session.NewRedisStore(rdb, cfg.SessionTTL), nil, nil
}

func newUploader(ctx context.Context, cfg *config.Config, b *bot.Bot, logger *zap.Logger) (attach.Uploader, error) {
	if cfg.MinIO.Endpoint == "" {
		logger.Info("MINIO_ENDPOINT не задан, вложения хранятся ссылкой на file_id")
		return attach.FileIDUploader{}, nil
	}
	return attach.NewMinioUploader(ctx, cfg.MinIO, attach.NewTelegramSource(b))
}
