package cart

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/velmart/storefront/internal/domain"
	"github.com/velmart/storefront/internal/handoff"
	"github.com/velmart/storefront/internal/observability"
)

//go:generate mockgen -source internal/cart/cart.go -destination=internal/cart/cart_mock_test.go -package=cart

// Syncer sends the full desired line list and returns the authoritative cart.
type Syncer interface {
	SyncCart(ctx context.Context, items []domain.CartLine, guestSessionID string) (domain.CartSession, error)
}

type SessionCache interface {
	Get(identity domain.Identity) (domain.CartSession, bool)
	Set(session domain.CartSession)
	Remove(identity domain.Identity)
}

// Service holds the dependencies shared by all cart aggregates.
type Service struct {
	client  Syncer
	cache   SessionCache
	logger  *zap.Logger
	metrics observability.Metrics
}

func NewService(client Syncer, cache SessionCache, logger *zap.Logger, metrics observability.Metrics) *Service {
	return &Service{
		client:  client,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

// ForProfile binds the service to one browser profile. accountID is empty for
// guests; when set, the guest session id is still attached so the backend can
// merge guest items into the account cart on its side.
func (s *Service) ForProfile(kv handoff.KV, accountID string) *Aggregate {
	return &Aggregate{
		svc:       s,
		kv:        kv,
		accountID: accountID,
	}
}

// Aggregate is the per-profile cart view. Totals are server-derived, the
// local cache is never authoritative beyond optimistic display.
type Aggregate struct {
	svc       *Service
	kv        handoff.KV
	accountID string
}

// Identify returns the active identity, minting and durably persisting a new
// opaque guest identifier on first contact. Idempotent thereafter.
func (a *Aggregate) Identify(ctx context.Context) domain.Identity {
	if a.accountID != "" {
		return domain.AccountIdentity(a.accountID)
	}

	raw, err := a.kv.Get(ctx, handoff.GuestSessionKey)
	if err == nil && len(raw) > 0 {
		return domain.GuestIdentity(string(raw))
	}
	if err != nil && !errors.Is(err, handoff.ErrNotFound) {
		// Storage is down: hand out an ephemeral id so the session keeps
		// working, the cart just won't survive a restart.
		a.svc.logger.Warn("guest id read failed, using ephemeral id", zap.Error(err))
		return domain.GuestIdentity(domain.NewOpaqueID("gs"))
	}

	id := domain.NewOpaqueID("gs")
	if err := a.kv.Put(ctx, handoff.GuestSessionKey, []byte(id)); err != nil {
		a.svc.logger.Warn("guest id persist failed", zap.Error(err))
	}
	return domain.GuestIdentity(id)
}

// Sync replaces the local cache wholesale with the backend's authoritative
// view. There is no client-side merge logic.
func (a *Aggregate) Sync(ctx context.Context, items []domain.CartLine) (domain.CartSession, error) {
	identity := a.Identify(ctx)

	t0 := time.Now()
	session, err := a.svc.client.SyncCart(ctx, items, a.guestSessionID(ctx, identity))
	durMs := float64(time.Since(t0).Microseconds()) / 1000.0
	if err != nil {
		a.svc.metrics.ObserveSync(durMs, false)
		a.svc.logger.Error("cart sync failed",
			zap.String("identity", identity.Key()),
			zap.Error(err),
		)
		return domain.CartSession{}, err
	}

	session.Identity = identity
	a.svc.cache.Set(session)
	a.svc.metrics.ObserveSync(durMs, true)
	a.svc.logger.Info("cart synced",
		zap.String("identity", identity.Key()),
		zap.Int("items", len(session.Items)),
		zap.Float64("sync_ms", durMs),
	)
	return session, nil
}

// AddItem adds the requested quantity, bumping the existing line when the
// same product/variant is already in the cart. Fails with
// backend.ErrOutOfStock when the server rejects the quantity.
func (a *Aggregate) AddItem(ctx context.Context, productID, variantID string, quantity int) (domain.CartSession, error) {
	line := domain.CartLine{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
	}
	if err := line.Validate(); err != nil {
		return domain.CartSession{}, err
	}

	items := a.cachedItems(ctx)
	merged := false
	for i := range items {
		if items[i].ProductID == productID && items[i].VariantID == variantID {
			items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, line)
	}
	return a.Sync(ctx, items)
}

// RemoveItem is idempotent: removing an absent line is not an error and does
// not issue a backend call.
func (a *Aggregate) RemoveItem(ctx context.Context, lineID string) (domain.CartSession, error) {
	items := a.cachedItems(ctx)
	kept := items[:0]
	for _, it := range items {
		if it.LineID != lineID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		session, _ := a.svc.cache.Get(a.Identify(ctx))
		return session, nil
	}
	return a.Sync(ctx, kept)
}

// Clear empties the local cache only. Callers resync afterward, relying on
// Clear to touch the backend would be wrong: post-payment the backend has
// already consumed the cart.
func (a *Aggregate) Clear(ctx context.Context) {
	a.svc.cache.Remove(a.Identify(ctx))
}

// Cached returns the cached session without touching the backend.
func (a *Aggregate) Cached(ctx context.Context) (domain.CartSession, bool) {
	return a.svc.cache.Get(a.Identify(ctx))
}

// guestSessionID returns the id attached to backend calls. Authenticated
// profiles still attach a previously stored guest id, best effort, so the
// backend can merge guest items into the account cart on the next sync.
func (a *Aggregate) guestSessionID(ctx context.Context, identity domain.Identity) string {
	if identity.IsGuest() {
		return identity.GuestSessionID
	}
	raw, err := a.kv.Get(ctx, handoff.GuestSessionKey)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (a *Aggregate) cachedItems(ctx context.Context) []domain.CartLine {
	session, ok := a.svc.cache.Get(a.Identify(ctx))
	if !ok {
		a.svc.metrics.IncCacheMiss()
		return nil
	}
	a.svc.metrics.IncCacheHit()
	items := make([]domain.CartLine, len(session.Items))
	copy(items, session.Items)
	return items
}
