package handoff

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Promoter moves a pending handoff record into the last-order slot once the
// backend has confirmed the payment. Everything here is best-effort: a broken
// store must never block success navigation, the non-redirect payment paths
// carry an in-memory fallback summary anyway.
type Promoter struct {
	kv     KV
	logger *zap.Logger
}

func NewPromoter(kv KV, logger *zap.Logger) *Promoter {
	return &Promoter{kv: kv, logger: logger}
}

// Promote copies the pending record verbatim under the last-order key and
// deletes the pending key. Reports whether a record was promoted.
func (p *Promoter) Promote(ctx context.Context, provider string) bool {
	raw, err := p.kv.Get(ctx, PendingKey(provider))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("pending handoff read failed",
				zap.String("provider", provider),
				zap.Error(err),
			)
		}
		return false
	}

	if err := p.kv.Put(ctx, LastOrderKey, raw); err != nil {
		p.logger.Warn("last-order write failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return false
	}

	if err := p.kv.Delete(ctx, PendingKey(provider)); err != nil {
		// The promoted record is already durable, a stale pending key is
		// harmless: the next checkout overwrites it.
		p.logger.Warn("pending handoff delete failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
	}
	return true
}

// Discard drops the pending record for a provider. Used by the cancel route
// when the payment did not go through.
func (p *Promoter) Discard(ctx context.Context, provider string) {
	if err := p.kv.Delete(ctx, PendingKey(provider)); err != nil {
		p.logger.Warn("pending handoff discard failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
	}
}
