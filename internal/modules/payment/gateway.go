package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tourbooking/internal/domain"
)

var ErrGatewayNotConfigured = errors.New("payment gateway api key is not configured")

// GatewayError is a non-2xx answer from the payment provider.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway returned %d: %s", e.StatusCode, e.Body)
}

// Amount is the provider's money encoding: a decimal string plus currency.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

func NewAmount(v float64, currency string) Amount {
	return Amount{Value: strconv.FormatFloat(v, 'f', 2, 64), Currency: currency}
}

func (a Amount) Float() (float64, bool) {
	if a.Value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(a.Value, 64)
	return f, err == nil
}

// UnmarshalJSON also accepts a bare number or numeric string, which some
// webhook payloads send instead of the object form.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '{' {
		var p struct {
			Value    json.RawMessage `json:"value"`
			Currency string          `json:"currency"`
		}
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		*a = Amount{Currency: p.Currency}
		return a.setValue(p.Value)
	}
	return a.setValue(b)
}

// setValue takes the value as a JSON number or string.
func (a *Amount) setValue(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		a.Value = ""
		return nil
	}
	if raw[0] == '"' {
		return json.Unmarshal(raw, &a.Value)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("amount value: %w", err)
	}
	a.Value = n.String()
	return nil
}

type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type CreatePaymentRequest struct {
	Amount      float64
	Currency    string
	Description string
	Customer    Customer
	Metadata    map[string]interface{}
}

type CreatedPayment struct {
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId"`
}

// PaymentIntent is the provider's view of a payment.
type PaymentIntent struct {
	ID          string                 `json:"id"`
	Status      domain.PaymentStatus   `json:"status"`
	Amount      Amount                 `json:"amount"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CheckoutURL string                 `json:"checkoutUrl,omitempty"`
	Links       struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

func (p *PaymentIntent) checkout() string {
	if p.Links.Checkout.Href != "" {
		return p.Links.Checkout.Href
	}
	return p.CheckoutURL
}

type GatewayConfig struct {
	APIKey      string
	BaseURL     string
	RedirectURL string
	WebhookURL  string
}

// GatewayClient talks to the Dibsy payments API. Calls are never retried here.
type GatewayClient struct {
	cfg    GatewayConfig
	client *http.Client
}

func NewGatewayClient(cfg GatewayConfig, timeout time.Duration) *GatewayClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &GatewayClient{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

type createPaymentBody struct {
	Amount      Amount                 `json:"amount"`
	Description string                 `json:"description"`
	RedirectURL string                 `json:"redirectUrl,omitempty"`
	WebhookURL  string                 `json:"webhookUrl,omitempty"`
	Customer    *Customer              `json:"customer,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

func (g *GatewayClient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatedPayment, error) {
	body := createPaymentBody{
		Amount:      NewAmount(req.Amount, req.Currency),
		Description: req.Description,
		RedirectURL: g.redirectURL(req.Metadata),
		WebhookURL:  g.cfg.WebhookURL,
		Metadata:    req.Metadata,
	}
	if req.Customer != (Customer{}) {
		c := req.Customer
		body.Customer = &c
	}

	var intent PaymentIntent
	if err := g.do(ctx, http.MethodPost, "/payments", body, &intent); err != nil {
		return nil, err
	}
	if intent.ID == "" {
		return nil, errors.New("payment gateway response has no payment id")
	}
	return &CreatedPayment{PaymentID: intent.ID, PaymentURL: intent.checkout()}, nil
}

func (g *GatewayClient) GetPayment(ctx context.Context, paymentID string) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := g.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// redirectURL appends the booking reference so the return page can verify.
func (g *GatewayClient) redirectURL(meta map[string]interface{}) string {
	if g.cfg.RedirectURL == "" {
		return ""
	}
	ref, _ := meta["bookingReference"].(string)
	if ref == "" {
		return g.cfg.RedirectURL
	}
	u, err := url.Parse(g.cfg.RedirectURL)
	if err != nil {
		return g.cfg.RedirectURL
	}
	q := u.Query()
	q.Set("bookingReference", ref)
	u.RawQuery = q.Encode()
	return u.String()
}

func (g *GatewayClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	if g.cfg.APIKey == "" {
		return ErrGatewayNotConfigured
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment gateway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payment gateway response: %w", err)
	}
	return nil
}
