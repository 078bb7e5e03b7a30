package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/velmart/storefront/internal/backend"
	"github.com/velmart/storefront/internal/cart"
	"github.com/velmart/storefront/internal/config"
	"github.com/velmart/storefront/internal/confirm"
	"github.com/velmart/storefront/internal/domain"
	"github.com/velmart/storefront/internal/handoff"
	"github.com/velmart/storefront/internal/observability"
	"github.com/velmart/storefront/internal/telemetry"
)

const (
	sessionCookie = "vm_session"
	accountHeader = "X-Account-ID"
	cancelRoute   = "/checkout/cancelled"

	// Timeout copy must be distinguishable from generic failure: a timeout
	// does not imply the payment failed.
	timedOutCopy = "Confirming your payment is taking unusually long. Your bank may still complete it — please wait a moment and retry before ordering again."
)

type Server struct {
	mux     *chi.Mux
	client  *backend.Client
	carts   *cart.Service
	backing handoff.Backing
	sink    telemetry.Sink
	metrics observability.Metrics
	logger  *zap.Logger
	stash   *summaryStash

	stripeAdapter   confirm.Adapter
	banklinkAdapter confirm.Adapter
	cancelAdapter   confirm.Adapter
}

func New(
	client *backend.Client,
	carts *cart.Service,
	backing handoff.Backing,
	sink telemetry.Sink,
	cfg config.Confirm,
	logger *zap.Logger,
	metrics observability.Metrics,
) *Server {
	s := &Server{
		mux:     chi.NewRouter(),
		client:  client,
		carts:   carts,
		backing: backing,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		stash:   newSummaryStash(),

		stripeAdapter:   confirm.NewHostedCheckout(client, cfg.ReturnTimeout),
		banklinkAdapter: confirm.NewBanklink(client, cfg.ReturnTimeout),
		cancelAdapter:   confirm.NewBanklinkCancel(client, cfg.CancelTimeout),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.mux.Get("/payment/return/stripe", s.paymentReturn(func() confirm.Adapter { return s.stripeAdapter }, ""))
	s.mux.Get("/payment/return/banklink", s.paymentReturn(func() confirm.Adapter { return s.banklinkAdapter }, ""))
	s.mux.Get("/payment/cancel/banklink", s.paymentReturn(func() confirm.Adapter { return s.cancelAdapter }, cancelRoute))

	s.mux.Get(confirm.SuccessRoute, s.orderSuccess)
	s.mux.Get(cancelRoute, s.orderCancelled)

	s.mux.Post("/cart/sync", s.cartSync)
	s.mux.Post("/cart/items", s.cartAddItem)
	s.mux.Delete("/cart/items/{lineID}", s.cartRemoveItem)
}

// scopedKV narrows the backing store to one client profile, identified by
// the session cookie. A fresh profile gets a cookie minted on first contact.
func (s *Server) scopedKV(w http.ResponseWriter, r *http.Request) (handoff.KV, string) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return handoff.Scoped(s.backing, c.Value), c.Value
	}
	scope := domain.NewOpaqueID("sc")
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    scope,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return handoff.Scoped(s.backing, scope), scope
}

type returnView struct {
	State     string `json:"state"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable"`
	BackTo    string `json:"back_to"`
}

type navRecorder struct {
	route string
}

func (n *navRecorder) Go(route string) { n.route = route }

func (s *Server) paymentReturn(adapter func() confirm.Adapter, cancel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kv, _ := s.scopedKV(w, r)
		nav := &navRecorder{}

		cf := confirm.New(confirm.Deps{
			Adapter:     adapter(),
			Promoter:    handoff.NewPromoter(kv, s.logger),
			Cart:        s.carts.ForProfile(kv, r.Header.Get(accountHeader)),
			Nav:         nav,
			Sink:        s.sink,
			Metrics:     s.metrics,
			Logger:      s.logger,
			CancelRoute: cancel,
		})

		state := cf.Activate(r.Context(), r.URL.Query())

		if nav.route != "" {
			http.Redirect(w, r, nav.route, http.StatusSeeOther)
			return
		}

		view := returnView{
			State:     state.String(),
			Message:   cf.Message(),
			Retryable: state == confirm.StateTimedOut || state == confirm.StateFailed,
			BackTo:    "/cart",
		}
		if state == confirm.StateTimedOut {
			view.Message = timedOutCopy
		}
		writeJSON(w, view)
	}
}

type successView struct {
	Summary *domain.OrderSummary `json:"summary,omitempty"`
	Source  string               `json:"source,omitempty"`
	Empty   bool                 `json:"empty"`
}

// orderSuccess renders the finalized summary with no side effects on the
// order. Priority: one-shot navigation state, then the durable last-order
// record, then a graceful empty view.
func (s *Server) orderSuccess(w http.ResponseWriter, r *http.Request) {
	kv, scope := s.scopedKV(w, r)

	if summary, ok := s.stash.pop(scope); ok {
		writeJSON(w, successView{Summary: &summary, Source: "navigation"})
		return
	}

	summary, err := handoff.GetSummary(r.Context(), kv, handoff.LastOrderKey)
	if err != nil {
		// Not an error condition: the user may have reloaded an old tab.
		writeJSON(w, successView{Empty: true})
		return
	}
	writeJSON(w, successView{Summary: &summary, Source: "storage"})
}

func (s *Server) orderCancelled(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{
		"state":   "cancelled",
		"back_to": "/checkout",
	})
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type syncRequest struct {
	Items []domain.CartLine `json:"items"`
}

func (s *Server) cartSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !s.decode(w, r, &req) {
		return
	}
	kv, _ := s.scopedKV(w, r)
	agg := s.carts.ForProfile(kv, r.Header.Get(accountHeader))

	session, err := agg.Sync(r.Context(), req.Items)
	if err != nil {
		s.cartError(w, err)
		return
	}
	writeJSON(w, session)
}

func (s *Server) cartAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	kv, _ := s.scopedKV(w, r)
	agg := s.carts.ForProfile(kv, r.Header.Get(accountHeader))

	session, err := agg.AddItem(r.Context(), req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		s.cartError(w, err)
		return
	}
	writeJSON(w, session)
}

func (s *Server) cartRemoveItem(w http.ResponseWriter, r *http.Request) {
	kv, _ := s.scopedKV(w, r)
	agg := s.carts.ForProfile(kv, r.Header.Get(accountHeader))

	session, err := agg.RemoveItem(r.Context(), chi.URLParam(r, "lineID"))
	if err != nil {
		s.cartError(w, err)
		return
	}
	writeJSON(w, session)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		s.logger.Error("Error while decoding JSON", zap.Error(err))
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) cartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrOutOfStock):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, backend.ErrValidation), errors.Is(err, domain.ErrQuantityExceedsMax):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "cart is temporarily unavailable", http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// summaryStash is the in-memory navigation-state fallback for non-redirect
// payment paths (cash on delivery). One-shot: read once, then gone.
type summaryStash struct {
	mu sync.Mutex
	m  map[string]domain.OrderSummary
}

func newSummaryStash() *summaryStash {
	return &summaryStash{m: make(map[string]domain.OrderSummary)}
}

func (st *summaryStash) put(scope string, s domain.OrderSummary) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.m[scope] = s
}

func (st *summaryStash) pop(scope string) (domain.OrderSummary, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.m[scope]
	if ok {
		delete(st.m, scope)
	}
	return s, ok
}

// AttachSummary lets non-redirect checkout paths hand a summary straight to
// the success screen without touching durable storage.
func (s *Server) AttachSummary(scope string, summary domain.OrderSummary) {
	s.stash.put(scope, summary)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	handler := otelhttp.NewHandler(ServerTimingApp(s.metrics)(s.mux), "storefront")

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}

func (s *Server) Handler() http.Handler { return s.mux }
