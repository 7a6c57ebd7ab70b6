package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client turns a checkout payload into a persisted order. It is the single
// opaque boundary between the storefront and the orders API.
type Client interface {
	CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.OrderConfirmation, error)
}

// SubmissionError carries the orders API's failure message verbatim so the
// checkout flow can surface it for retry.
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	return e.Message
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTPClient creates an orders API client. Timeout handling is delegated
// to the underlying http.Client; the checkout flow applies none of its own.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

// CreateOrder posts the order payload. Each call carries a fresh
// Idempotency-Key so a network-level retry cannot create a duplicate order
// server-side.
func (c *HTTPClient) CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.OrderConfirmation, error) {
	ctx, span := util.StartSpan(ctx, "OrderClient.CreateOrder")
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.New().String())

	start := time.Now()
	resp, err := c.http.Do(req)
	util.OrderSubmitLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &SubmissionError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SubmissionError{
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body, resp.StatusCode),
		}
	}

	var conf models.OrderConfirmation
	if err := json.NewDecoder(resp.Body).Decode(&conf); err != nil {
		return nil, fmt.Errorf("failed to decode order confirmation: %w", err)
	}

	c.logger.Info("Order submitted",
		zap.Int64("order_id", conf.OrderID),
		zap.String("status", conf.Status))
	return &conf, nil
}

// readErrorMessage extracts the server's error message from a failed
// response. The message is surfaced to the user as-is.
func readErrorMessage(body io.Reader, status int) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil || len(raw) == 0 {
		return fmt.Sprintf("order submission failed with status %d", status)
	}

	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Message != "":
			return envelope.Message
		case envelope.Error != "":
			return envelope.Error
		case envelope.Details != "":
			return envelope.Details
		}
	}
	return strings.TrimSpace(string(raw))
}
