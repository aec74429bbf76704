package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dekorekillian57-star/spendo/pkg/config"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"

	maxResponseBytes = 1 << 20
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")

	// ErrGatewayUnavailable marks transport failures, timeouts and 5xx answers.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Client talks to the Paystack transaction API.
type Client struct {
	http      *http.Client
	baseURL   string
	secretKey string
	logger    *logger.Logger
	observe   func(op string, err error, d time.Duration)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver receives the duration and error of every API call.
func WithObserver(fn func(op string, err error, d time.Duration)) Option {
	return func(c *Client) { c.observe = fn }
}

func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.paystack.co"
	}
	c := &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   base,
		secretKey: secret,
		logger:    logg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if logg != nil {
		mode := "live"
		if strings.HasPrefix(secret, "sk_test_") {
			mode = "test"
		}
		logg.Info(ctx, fmt.Sprintf("paystack client initialized (%s)", mode))
	}
	return c, nil
}

// InitializeParams is the request body for /transaction/initialize.
type InitializeParams struct {
	Email       string         `json:"email"`
	AmountMinor int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// InitializeResult carries the hosted page the shopper is redirected to.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Transaction is the subset of a verified transaction the storefront needs.
type Transaction struct {
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	GatewayResponse string `json:"gateway_response"`
	Customer        struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// Succeeded reports a settled charge.
func (t Transaction) Succeeded() bool {
	return t.Status == StatusSuccess
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize opens a transaction and returns the authorization URL.
func (c *Client) Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	if params.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(params.Email) == "" || strings.TrimSpace(params.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and reference are required")
	}
	var out InitializeResult
	if err := c.do(ctx, "initialize", http.MethodPost, "/transaction/initialize", params, &out); err != nil {
		return nil, err
	}
	if out.AuthorizationURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack initialize returned no authorization url")
	}
	return &out, nil
}

// Verify fetches the authoritative transaction state for a reference.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	var out Transaction
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, "verify", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(op, err, time.Since(start))
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, marshalErr, "encode paystack request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logError(ctx, op, err)
		return mapTransportError(err, op)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("paystack %s read failed", op))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err), fmt.Sprintf("paystack %s returned invalid json", op))
	}

	if resp.StatusCode >= 300 || !env.Status {
		apiErr := fmt.Errorf("paystack %s: status %d: %s", op, resp.StatusCode, env.Message)
		code := domainCodeForStatus(resp.StatusCode)
		if code == pkgerrors.CodeDependency {
			apiErr = fmt.Errorf("%w: %w", ErrGatewayUnavailable, apiErr)
		}
		c.logError(ctx, op, apiErr)
		return pkgerrors.Wrap(code, apiErr, fmt.Sprintf("paystack %s failed", op))
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("paystack %s returned unexpected data", op))
		}
	}
	return nil
}

func (c *Client) logError(ctx context.Context, op string, err error) {
	if c.logger == nil {
		return
	}
	ctx = c.logger.WithField(ctx, "operation", op)
	c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), err)
}

func mapTransportError(err error, op string) error {
	wrapped := fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, wrapped, fmt.Sprintf("paystack %s timed out", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, wrapped, fmt.Sprintf("paystack %s failed", op))
}

// domainCodeForStatus maps gateway HTTP statuses onto domain codes. Paystack
// answers 400 for unknown or declined references.
func domainCodeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusBadRequest:
		return pkgerrors.CodePaymentFailed
	default:
		return pkgerrors.CodeDependency
	}
}

// ToMinor converts a cedi amount into pesewas, rounding half away from zero.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinor converts pesewas back to cedis.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
