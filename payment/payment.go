// Package payment принимает IPN-уведомления платёжного шлюза и начисляет кредиты.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"go_form_bot/database"
)

const (
	SignatureHeader = "x-nowpayments-sig"
	orderPrefix     = "bakiye_"
	maxBodySize     = 1 << 20
)

var (
	ErrBadSignature = errors.New("invalid ipn signature")
	ErrBadOrder     = errors.New("order description does not carry an admin id")
)

type Ledger interface {
	RecordPayment(ctx context.Context, p database.Payment) (bool, error)
}

// Notifier сообщает плательщику и оператору о зачислении
type Notifier interface {
	PaymentCredited(ctx context.Context, p database.Payment)
}

// Namer подставляет отображаемое имя нового админа
type Namer interface {
	DisplayName(ctx context.Context, userID int64) string
}

type Notification struct {
	PaymentID        json.Number `json:"payment_id"`
	PaymentStatus    string      `json:"payment_status"`
	PriceAmount      json.Number `json:"price_amount"`
	PriceCurrency    string      `json:"price_currency"`
	OrderDescription string      `json:"order_description"`
}

func (n Notification) Completed() bool {
	return n.PaymentStatus == "confirmed" || n.PaymentStatus == "finished"
}

func (n Notification) AdminID() (int64, error) {
	raw, ok := strings.CutPrefix(n.OrderDescription, orderPrefix)
	if !ok {
		return 0, ErrBadOrder
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadOrder
	}
	return id, nil
}

type Server struct {
	ledger    Ledger
	notifier  Notifier
	namer     Namer
	secret    []byte
	unitPrice *big.Rat
	log       *zap.Logger
}

func NewServer(ledger Ledger, notifier Notifier, namer Namer, secret string, unitPrice *big.Rat, log *zap.Logger) *Server {
	return &Server{
		ledger:    ledger,
		notifier:  notifier,
		namer:     namer,
		secret:    []byte(secret),
		unitPrice: unitPrice,
		log:       log.Named("payment"),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/ipn/nowpayments", s.handleIPN)
	return r
}

// Run обслуживает addr до отмены ctx
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("ipn receiver listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIPN(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	if err := Verify(body, r.Header.Get(SignatureHeader), s.secret); err != nil {
		s.log.Warn("ipn rejected", zap.Error(err))
		http.Error(w, "bad signature", http.StatusUnauthorized)
		return
	}

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	status, err := s.Process(r.Context(), n)
	if err != nil {
		s.log.Error("ipn processing failed",
			zap.String("payment_id", n.PaymentID.String()),
			zap.Error(err))
	}
	w.WriteHeader(status)
}

// Process возвращает HTTP-статус для шлюза; 5xx приводит к повторной доставке
func (s *Server) Process(ctx context.Context, n Notification) (int, error) {
	log := s.log.With(
		zap.String("payment_id", n.PaymentID.String()),
		zap.String("status", n.PaymentStatus))

	if !n.Completed() {
		log.Info("payment not completed yet")
		return http.StatusOK, nil
	}

	adminID, err := n.AdminID()
	if err != nil {
		return http.StatusBadRequest, err
	}
	amount, err := database.ParseDecimal(n.PriceAmount.String())
	if err != nil {
		return http.StatusBadRequest, fmt.Errorf("price_amount: %w", err)
	}
	rights := database.CreditsForPayment(amount, s.unitPrice)
	if err := database.ValidateAmount(rights); err != nil {
		return http.StatusBadRequest, err
	}

	p := database.Payment{
		PaymentID: n.PaymentID.String(),
		AdminID:   adminID,
		AdminName: s.namer.DisplayName(ctx, adminID),
		Amount:    n.PriceAmount.String(),
		Currency:  n.PriceCurrency,
		Credited:  rights,
	}
	credited, err := s.ledger.RecordPayment(ctx, p)
	if err != nil {
		return http.StatusInternalServerError, fmt.Errorf("record payment: %w", err)
	}
	if !credited {
		log.Info("payment already recorded")
		return http.StatusOK, nil
	}

	log.Info("payment credited",
		zap.Int64("admin_id", adminID),
		zap.String("amount", p.Amount),
		zap.Stringer("credits", rights))
	s.notifier.PaymentCredited(ctx, p)
	return http.StatusOK, nil
}

// Verify сверяет hex HMAC-SHA512 от тела с ключами, отсортированными по алфавиту
func Verify(body []byte, signature string, secret []byte) error {
	if len(secret) == 0 || signature == "" {
		return ErrBadSignature
	}
	want, err := Sign(body, secret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(signature))) {
		return ErrBadSignature
	}
	return nil
}

func Sign(body []byte, secret []byte) (string, error) {
	canonical, err := canonicalJSON(body)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// canonicalJSON пересобирает JSON с отсортированными ключами и исходной записью чисел
func canonicalJSON(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode ipn: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
