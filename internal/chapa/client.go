package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.chapa.co/v1"

// Error wraps every way a gateway call can fail: transport errors,
// non-2xx responses and malformed payloads. Callers treat all of them
// as "gateway unavailable" and decide retry policy themselves.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("chapa: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("chapa: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Client struct {
	BaseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(secretKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:   DefaultBaseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type Customization struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type InitializeRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Email         string
	FirstName     string
	LastName      string
	PhoneNumber   string
	TxRef         string
	CallbackURL   string
	ReturnURL     string
	Customization Customization
}

type initializePayload struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	PhoneNumber   string        `json:"phone_number,omitempty"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url,omitempty"`
	ReturnURL     string        `json:"return_url"`
	Customization Customization `json:"customization"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CheckoutSession is the outcome of a successful initialize call.
type CheckoutSession struct {
	CheckoutURL string
	Raw         json.RawMessage
}

// VerifyData is the transaction detail Chapa reports on verification.
type VerifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Method    string `json:"method"`
}

// VerifyResult carries both the envelope status (did the lookup work)
// and the transaction status (did the customer pay).
type VerifyResult struct {
	Status string
	Data   VerifyData
	Raw    json.RawMessage
}

// Success reports whether Chapa confirmed the transaction as paid.
func (r *VerifyResult) Success() bool {
	return r.Status == "success" && r.Data.Status == "success"
}

// Rejected reports whether Chapa answered the lookup but refused the
// reference outright.
func (r *VerifyResult) Rejected() bool {
	return r.Status != "success"
}

// Initialize creates a hosted checkout session for the given tx_ref.
// Chapa treats tx_ref as an idempotency key, so resending the same
// reference after a transport failure is safe.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*CheckoutSession, error) {
	payload := initializePayload{
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PhoneNumber:   req.PhoneNumber,
		TxRef:         req.TxRef,
		CallbackURL:   req.CallbackURL,
		ReturnURL:     req.ReturnURL,
		Customization: req.Customization,
	}

	raw, env, err := c.post(ctx, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	if env.Status != "success" {
		return nil, &Error{Op: "initialize", Err: fmt.Errorf("gateway reported %q: %s", env.Status, env.Message)}
	}

	var data struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.CheckoutURL == "" {
		return nil, &Error{Op: "initialize", Err: fmt.Errorf("missing checkout_url in response")}
	}

	return &CheckoutSession{CheckoutURL: data.CheckoutURL, Raw: raw}, nil
}

// Verify asks Chapa for the current state of a transaction. A non-2xx
// or malformed response is an *Error; a well-formed "this reference
// failed" answer is reported through the result.
func (c *Client) Verify(ctx context.Context, txRef string) (*VerifyResult, error) {
	url := fmt.Sprintf("%s/transaction/verify/%s", c.BaseURL, txRef)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Op: "verify", Err: err}
	}
	c.setHeaders(httpReq)

	raw, env, err := c.do(httpReq, "verify")
	if err != nil {
		return nil, err
	}

	result := VerifyResult{Status: env.Status, Raw: raw}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &result.Data); err != nil {
			return nil, &Error{Op: "verify", Err: fmt.Errorf("malformed data: %w", err)}
		}
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, *envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, &Error{Op: path, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, &Error{Op: path, Err: err}
	}
	c.setHeaders(httpReq)

	return c.do(httpReq, path)
}

func (c *Client) do(req *http.Request, op string) (json.RawMessage, *envelope, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, &Error{Op: op, Err: err}
	}

	c.logger.Info("chapa response received",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &Error{Op: op, StatusCode: resp.StatusCode}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, &Error{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}

	return raw, &env, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
}
