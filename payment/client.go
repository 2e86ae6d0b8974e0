package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go_form_bot/config"
)

// Invoice — платёж NOWPayments. Поля статуса и заказа те же, что в IPN.
type Invoice struct {
	Notification
	PayAddress  string      `json:"pay_address"`
	PayAmount   json.Number `json:"pay_amount"`
	PayCurrency string      `json:"pay_currency"`
}

// Failed — платёж закрыт без оплаты, опрашивать дальше незачем
func (i *Invoice) Failed() bool {
	switch i.PaymentStatus {
	case "failed", "expired", "refunded":
		return true
	}
	return false
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nowpayments: status %d: %s", e.Status, e.Body)
}

type createRequest struct {
	PriceAmount      json.Number `json:"price_amount"`
	PriceCurrency    string      `json:"price_currency"`
	PayCurrency      string      `json:"pay_currency"`
	OrderID          string      `json:"order_id"`
	OrderDescription string      `json:"order_description"`
	IPNCallbackURL   string      `json:"ipn_callback_url,omitempty"`
}

// Client создаёт платежи и читает их статус через REST API NOWPayments
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	priceCurrency string
	payCurrency   string
	callbackURL   string
	now           func() time.Time
}

func NewClient(cfg config.TopUpConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(cfg.APIURL, "/"),
		apiKey:        cfg.APIKey,
		priceCurrency: cfg.PriceCurrency,
		payCurrency:   cfg.PayCurrency,
		callbackURL:   cfg.CallbackURL,
		now:           time.Now,
	}
}

// CreatePayment выставляет счёт на amount в валюте цены; admin id уходит в order_description
func (c *Client) CreatePayment(ctx context.Context, amount *big.Rat, adminID int64) (*Invoice, error) {
	req := createRequest{
		PriceAmount:      json.Number(amount.FloatString(2)),
		PriceCurrency:    c.priceCurrency,
		PayCurrency:      c.payCurrency,
		OrderID:          orderPrefix + c.now().Format("20060102150405"),
		OrderDescription: orderPrefix + strconv.FormatInt(adminID, 10),
		IPNCallbackURL:   c.callbackURL,
	}
	var inv Invoice
	if err := c.doRequest(ctx, http.MethodPost, "/payment", req, &inv); err != nil {
		return nil, err
	}
	if inv.PaymentID == "" || inv.PayAddress == "" {
		return nil, fmt.Errorf("nowpayments: incomplete payment response")
	}
	return &inv, nil
}

// Status перечитывает платёж по id
func (c *Client) Status(ctx context.Context, paymentID string) (*Invoice, error) {
	var inv Invoice
	if err := c.doRequest(ctx, http.MethodGet, "/payment/"+url.PathEscape(paymentID), nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	// 201 Created — тоже успех
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
