package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velmart/storefront/internal/config"
	"github.com/velmart/storefront/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(
		config.Backend{BaseURL: baseURL, RequestTimeout: 2 * time.Second},
		config.Breaker{MaxRequests: 1, Interval: time.Minute, OpenTimeout: time.Minute, Threshold: 3},
		zap.NewNop(),
	)
}

// fakeConfirmBackend honors the confirm contract: repeated calls with the
// same correlation id return the same terminal order.
type fakeConfirmBackend struct {
	mu     sync.Mutex
	orders map[string]ConfirmResult
	calls  int
}

func (f *fakeConfirmBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls++

		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		corr := req["session_id"]
		if corr == "" {
			corr = req["order_id"]
		}

		if f.orders == nil {
			f.orders = make(map[string]ConfirmResult)
		}
		res, ok := f.orders[corr]
		if !ok {
			res = ConfirmResult{OrderID: "ord_" + corr, Status: domain.StatusPaid}
			f.orders[corr] = res
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

func TestConfirm_IdempotentPerCorrelationID(t *testing.T) {
	fake := &fakeConfirmBackend{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()
	payload := ConfirmPayload{Provider: "stripe", CorrelationID: "cs_test_1"}

	first, err := c.ConfirmHostedCheckout(ctx, payload)
	require.NoError(t, err)

	second, err := c.ConfirmHostedCheckout(ctx, payload)
	require.NoError(t, err)

	require.Equal(t, first.OrderID, second.OrderID)
	require.Equal(t, 2, fake.calls)
}

func TestConfirm_MockOutcomeForwardedVerbatim(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ConfirmResult{OrderID: "ord_1", Status: domain.StatusPaid})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.ConfirmHostedCheckout(context.Background(), ConfirmPayload{
		CorrelationID: "cs_test_1",
		MockOutcome:   "decline",
	})

	require.NoError(t, err)
	require.Equal(t, "decline", got["mock_outcome"])
}

func TestConfirm_OutlivesTransportTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ConfirmResult{OrderID: "ord_1", Status: domain.StatusPaid})
	}))
	defer srv.Close()

	c := NewClient(
		config.Backend{BaseURL: srv.URL, RequestTimeout: 50 * time.Millisecond},
		config.Breaker{MaxRequests: 1, Interval: time.Minute, OpenTimeout: time.Minute, Threshold: 3},
		zap.NewNop(),
	)

	// A confirm slower than the transport timeout must still complete: the
	// confirm ceiling belongs to the caller, not the HTTP client.
	res, err := c.ConfirmHostedCheckout(context.Background(), ConfirmPayload{CorrelationID: "cs_test_1"})

	require.NoError(t, err)
	require.Equal(t, "ord_1", res.OrderID)
}

func TestConfirm_ErrorBodyDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"payment_failed","detail":"card declined by issuer"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.ConfirmBanklinkOrder(context.Background(), ConfirmPayload{CorrelationID: "ord_9"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	require.Equal(t, "card declined by issuer", apiErr.Detail)
}

func TestSyncCart(t *testing.T) {
	t.Run("guest header attached", func(t *testing.T) {
		var gotHeader string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Get("X-Guest-Session")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(syncResponse{ID: "cart_1"})
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		session, err := c.SyncCart(context.Background(), nil, "gs_abc")

		require.NoError(t, err)
		require.Equal(t, "cart_1", session.ID)
		require.Equal(t, "gs_abc", gotHeader)
	})

	t.Run("out of stock classified", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"code":"out_of_stock","detail":"only 2 left"}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		_, err := c.SyncCart(context.Background(), []domain.CartLine{{ProductID: "p1", Quantity: 99}}, "gs_abc")

		require.ErrorIs(t, err, ErrOutOfStock)
	})

	t.Run("validation classified", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"quantity must be positive"}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		_, err := c.SyncCart(context.Background(), nil, "gs_abc")

		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("bounded by request timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(300 * time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(syncResponse{ID: "cart_1"})
		}))
		defer srv.Close()

		c := NewClient(
			config.Backend{BaseURL: srv.URL, RequestTimeout: 50 * time.Millisecond},
			config.Breaker{MaxRequests: 1, Interval: time.Minute, OpenTimeout: time.Minute, Threshold: 3},
			zap.NewNop(),
		)
		_, err := c.SyncCart(context.Background(), nil, "gs_abc")

		require.ErrorIs(t, err, ErrNetwork)
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := c.SyncCart(ctx, nil, "gs_abc")
			require.Error(t, err)
		}
		require.Equal(t, 3, calls)

		// Breaker is open now: the call fails fast without hitting the server.
		_, err := c.SyncCart(ctx, nil, "gs_abc")
		require.ErrorIs(t, err, ErrNetwork)
		require.Equal(t, 3, calls)
	})
}
