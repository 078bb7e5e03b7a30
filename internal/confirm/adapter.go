package confirm

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/velmart/storefront/internal/backend"
)

// ErrMissingCorrelationID is terminal: without the provider's correlation
// parameter no confirm call is issued at all.
var ErrMissingCorrelationID = errors.New("missing correlation id")

// Adapter is everything that differs between payment providers. The state
// machine itself is identical for all of them.
type Adapter interface {
	Provider() string
	Route() string
	Timeout() time.Duration
	BuildPayload(query url.Values) (backend.ConfirmPayload, error)
	Confirm(ctx context.Context, p backend.ConfirmPayload) (backend.ConfirmResult, error)
	FallbackMessage() string
	MissingMessage() string
}

type HostedClient interface {
	ConfirmHostedCheckout(ctx context.Context, p backend.ConfirmPayload) (backend.ConfirmResult, error)
}

type BanklinkClient interface {
	ConfirmBanklinkOrder(ctx context.Context, p backend.ConfirmPayload) (backend.ConfirmResult, error)
}

// HostedCheckout is the adapter for the externally hosted checkout page
// (Stripe). The return URL carries an opaque session id that correlates the
// redirect with the payment attempt.
type HostedCheckout struct {
	client  HostedClient
	timeout time.Duration
}

func NewHostedCheckout(client HostedClient, timeout time.Duration) *HostedCheckout {
	return &HostedCheckout{client: client, timeout: timeout}
}

func (h *HostedCheckout) Provider() string       { return "stripe" }
func (h *HostedCheckout) Route() string          { return "/payment/return/stripe" }
func (h *HostedCheckout) Timeout() time.Duration { return h.timeout }

func (h *HostedCheckout) BuildPayload(query url.Values) (backend.ConfirmPayload, error) {
	sessionID := query.Get("session_id")
	if sessionID == "" {
		return backend.ConfirmPayload{}, ErrMissingCorrelationID
	}
	return backend.ConfirmPayload{
		Provider:      h.Provider(),
		CorrelationID: sessionID,
		OrderID:       query.Get("order_id"),
		MockOutcome:   mockOutcome(query),
	}, nil
}

func (h *HostedCheckout) Confirm(ctx context.Context, p backend.ConfirmPayload) (backend.ConfirmResult, error) {
	return h.client.ConfirmHostedCheckout(ctx, p)
}

func (h *HostedCheckout) FallbackMessage() string {
	return "We could not confirm your payment. If you were charged, the order will appear in your account shortly — you can retry safely."
}

func (h *HostedCheckout) MissingMessage() string {
	return "The payment session reference is missing from the return link."
}

// mockOutcome reads the test-only outcome override. Anything other than the
// two allowed values is dropped so it can never alter default behavior.
func mockOutcome(query url.Values) string {
	switch v := query.Get("mock_outcome"); v {
	case "success", "decline":
		return v
	default:
		return ""
	}
}

// Banklink is the adapter for the local bank gateway's hosted form. The
// return URL carries the order id and, on newer gateway versions, a
// transaction id under one of several historical parameter casings.
type Banklink struct {
	client  BanklinkClient
	route   string
	timeout time.Duration
}

func NewBanklink(client BanklinkClient, timeout time.Duration) *Banklink {
	return &Banklink{client: client, route: "/payment/return/banklink", timeout: timeout}
}

// NewBanklinkCancel is the cancel-route variant: same payload shape, shorter
// deadline for the best-effort reconciliation call.
func NewBanklinkCancel(client BanklinkClient, timeout time.Duration) *Banklink {
	return &Banklink{client: client, route: "/payment/cancel/banklink", timeout: timeout}
}

func (b *Banklink) Provider() string       { return "banklink" }
func (b *Banklink) Route() string          { return b.route }
func (b *Banklink) Timeout() time.Duration { return b.timeout }

func (b *Banklink) BuildPayload(query url.Values) (backend.ConfirmPayload, error) {
	orderID := query.Get("order_id")
	if orderID == "" {
		return backend.ConfirmPayload{}, ErrMissingCorrelationID
	}
	return backend.ConfirmPayload{
		Provider:      b.Provider(),
		CorrelationID: orderID,
		OrderID:       orderID,
		TransactionID: transactionID(query),
	}, nil
}

func transactionID(query url.Values) string {
	for _, key := range []string{"transaction_id", "transactionId", "TransactionId"} {
		if v := query.Get(key); v != "" {
			return v
		}
	}
	return ""
}

func (b *Banklink) Confirm(ctx context.Context, p backend.ConfirmPayload) (backend.ConfirmResult, error) {
	return b.client.ConfirmBanklinkOrder(ctx, p)
}

func (b *Banklink) FallbackMessage() string {
	return "The bank did not confirm the payment. You can retry, or check your bank statement before ordering again."
}

func (b *Banklink) MissingMessage() string {
	return "The order reference is missing from the return link."
}
