package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/velmart/storefront/internal/config"
	"github.com/velmart/storefront/internal/domain"
)

const guestSessionHeader = "X-Guest-Session"

var (
	ErrNetwork    = errors.New("network error")
	ErrOutOfStock = errors.New("out of stock")
	ErrValidation = errors.New("validation error")
)

// APIError is a non-2xx response from the backend. Detail carries the
// structured human-readable reason when the backend supplied one.
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// ConfirmPayload is the provider-agnostic confirm request. CorrelationID is
// the hosted-checkout session id or the local gateway order id, depending on
// the provider; the backend confirm endpoints are idempotent per that id.
type ConfirmPayload struct {
	Provider      string
	CorrelationID string
	OrderID       string
	TransactionID string
	MockOutcome   string
}

type ConfirmResult struct {
	OrderID       string `json:"order_id"`
	ReferenceCode string `json:"reference_code,omitempty"`
	Status        string `json:"status"`
}

type syncRequest struct {
	Items []domain.CartLine `json:"items"`
}

type syncResponse struct {
	ID     string            `json:"id"`
	Items  []domain.CartLine `json:"items"`
	Totals domain.Totals     `json:"totals"`
}

type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

type Client struct {
	baseURL string
	sync    *http.Client
	confirm *http.Client
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker[syncResponse]
}

func NewClient(cfg config.Backend, brk config.Breaker, logger *zap.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker[syncResponse](gobreaker.Settings{
		Name:        "cart-sync",
		MaxRequests: brk.MaxRequests,
		Interval:    brk.Interval,
		Timeout:     brk.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= brk.Threshold
		},
	})
	return &Client{
		baseURL: cfg.BaseURL,
		// Cart sync is transport-bounded. Confirm calls are not: their
		// ceiling lives in the confirm state machine, which abandons a slow
		// call without cancelling it. A transport timeout here would cancel
		// a charge the backend may still complete.
		sync:    &http.Client{Timeout: cfg.RequestTimeout},
		confirm: &http.Client{},
		logger:  logger,
		breaker: cb,
	}
}

// ConfirmHostedCheckout confirms a payment after the hosted checkout page
// redirected back. Idempotent per session correlation id: the backend returns
// the same terminal order for repeated calls.
func (c *Client) ConfirmHostedCheckout(ctx context.Context, p ConfirmPayload) (ConfirmResult, error) {
	body := map[string]string{"session_id": p.CorrelationID}
	if p.OrderID != "" {
		body["order_id"] = p.OrderID
	}
	if p.MockOutcome != "" {
		body["mock_outcome"] = p.MockOutcome
	}
	var res ConfirmResult
	err := c.doJSON(ctx, http.MethodPost, "/payments/hosted/confirm", body, &res)
	return res, err
}

// ConfirmBanklinkOrder confirms a local gateway payment. Idempotent per
// order id.
func (c *Client) ConfirmBanklinkOrder(ctx context.Context, p ConfirmPayload) (ConfirmResult, error) {
	body := map[string]string{"order_id": p.CorrelationID}
	if p.TransactionID != "" {
		body["transaction_id"] = p.TransactionID
	}
	var res ConfirmResult
	err := c.doJSON(ctx, http.MethodPost, "/payments/banklink/confirm", body, &res)
	return res, err
}

// SyncCart sends the full desired line list and returns the authoritative
// cart. The call is breaker-wrapped: a flapping backend trips the breaker and
// cart mutations fail fast instead of piling up. Confirm calls are never
// breaker-wrapped, every confirm retry must be an explicit user action.
func (c *Client) SyncCart(ctx context.Context, items []domain.CartLine, guestSessionID string) (domain.CartSession, error) {
	res, err := c.breaker.Execute(func() (syncResponse, error) {
		var out syncResponse
		err := c.doJSONWithHeaders(ctx, c.sync, http.MethodPost, "/cart/sync", syncRequest{Items: items}, &out, guestHeaders(guestSessionID))
		return out, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.CartSession{}, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		return domain.CartSession{}, classifySyncErr(err)
	}
	return domain.CartSession{
		ID:     res.ID,
		Items:  res.Items,
		Totals: res.Totals,
	}, nil
}

func guestHeaders(guestSessionID string) map[string]string {
	if guestSessionID == "" {
		return nil
	}
	return map[string]string{guestSessionHeader: guestSessionID}
}

func classifySyncErr(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == "out_of_stock":
			return fmt.Errorf("%w: %s", ErrOutOfStock, apiErr.Detail)
		case apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s", ErrValidation, apiErr.Error())
		}
		return apiErr
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// doJSON runs on the untimed confirm client. Callers bound the call with the
// context or not at all.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	return c.doJSONWithHeaders(ctx, c.confirm, method, path, in, out, nil)
}

func (c *Client) doJSONWithHeaders(ctx context.Context, hc *http.Client, method, path string, in, out any, headers map[string]string) error {
	start := time.Now()

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("path", path),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Detail = eb.Detail
			if apiErr.Detail == "" {
				apiErr.Detail = eb.Error
			}
		}
		c.logger.Warn("backend rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", apiErr.Detail),
		)
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("bad response json: %w", err)
		}
	}
	return nil
}
