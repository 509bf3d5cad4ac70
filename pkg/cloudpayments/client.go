package cloudpayments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.cloudpayments.ru"
	orderCreatePath             = "/orders/create"
	paymentFindPath             = "/v2/payments/find"
	requestBodyReadLimit  int64 = 1024
)

var errAPIKeyRequired = errors.New("cloudpayments api key is required")

// Client wraps the CloudPayments invoice APIs used for order payments.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the CloudPayments client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// CreateOrderRequest describes the payload sent to the orders/create API.
// InvoiceID is the caller's idempotency key: the provider deduplicates
// invoices on it, so retrying with the same id never creates two charges.
type CreateOrderRequest struct {
	Amount      int64  `json:"Amount"`
	Currency    string `json:"Currency"`
	Description string `json:"Description"`
	InvoiceID   string `json:"InvoiceId"`
}

// Invoice holds the mapped data returned by the orders/create API.
type Invoice struct {
	ID  string
	URL string
}

// Payment represents the raw provider view of a payment.
type Payment struct {
	ID     string
	Status string
}

// CreateOrder registers an invoice with the provider and returns the payment
// identifier plus the hosted payment page URL.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Invoice, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cloudpayments client not configured")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	if strings.TrimSpace(req.InvoiceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}

	var apiResp struct {
		Model struct {
			ID  string `json:"Id"`
			URL string `json:"Url"`
		} `json:"Model"`
		Success bool    `json:"Success"`
		Message *string `json:"Message"`
	}
	if err := c.post(ctx, orderCreatePath, req, &apiResp); err != nil {
		return nil, err
	}
	if !apiResp.Success {
		msg := "provider rejected invoice"
		if apiResp.Message != nil && strings.TrimSpace(*apiResp.Message) != "" {
			msg = *apiResp.Message
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}

	invoiceID := apiResp.Model.ID
	if invoiceID == "" {
		invoiceID = req.InvoiceID
	}
	return &Invoice{ID: invoiceID, URL: apiResp.Model.URL}, nil
}

// FindPayment looks up a payment by the invoice id it was created with.
// A missing payment is reported as NOT_FOUND; transport failures map to
// DEPENDENCY so callers retry rather than interpret them as a decline.
func (c *Client) FindPayment(ctx context.Context, invoiceID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cloudpayments client not configured")
	}
	trimmed := strings.TrimSpace(invoiceID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}

	var apiResp struct {
		Model struct {
			ID     json.Number `json:"TransactionId"`
			Status string      `json:"Status"`
		} `json:"Model"`
		Success bool `json:"Success"`
	}
	if err := c.post(ctx, paymentFindPath, map[string]string{"InvoiceId": trimmed}, &apiResp); err != nil {
		return nil, err
	}
	if !apiResp.Success {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	return &Payment{
		ID:     apiResp.Model.ID.String(),
		Status: apiResp.Model.Status,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal provider request")
	}

	url := strings.TrimRight(c.baseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build provider request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute provider request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "provider request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode provider response")
	}
	return nil
}
