package handoff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velmart/storefront/internal/domain"
)

func TestPromote_MovesPendingVerbatim(t *testing.T) {
	ctx := context.Background()
	kv := Scoped(NewMemory(), "profile-1")
	summary := domain.OrderSummary{OrderID: "ord_1", PaymentMethod: "stripe"}
	require.NoError(t, PutSummary(ctx, kv, PendingKey("stripe"), summary))

	p := NewPromoter(kv, zap.NewNop())
	require.True(t, p.Promote(ctx, "stripe"))

	last, err := GetSummary(ctx, kv, LastOrderKey)
	require.NoError(t, err)
	require.Equal(t, summary, last)

	_, err = kv.Get(ctx, PendingKey("stripe"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPromote_NothingPending(t *testing.T) {
	ctx := context.Background()
	kv := Scoped(NewMemory(), "profile-1")

	p := NewPromoter(kv, zap.NewNop())
	require.False(t, p.Promote(ctx, "stripe"))
}

func TestPromote_OverwritesPreviousLastOrder(t *testing.T) {
	ctx := context.Background()
	kv := Scoped(NewMemory(), "profile-1")
	p := NewPromoter(kv, zap.NewNop())

	require.NoError(t, PutSummary(ctx, kv, PendingKey("stripe"), domain.OrderSummary{OrderID: "ord_1"}))
	require.True(t, p.Promote(ctx, "stripe"))

	require.NoError(t, PutSummary(ctx, kv, PendingKey("banklink"), domain.OrderSummary{OrderID: "ord_2"}))
	require.True(t, p.Promote(ctx, "banklink"))

	last, err := GetSummary(ctx, kv, LastOrderKey)
	require.NoError(t, err)
	require.Equal(t, "ord_2", last.OrderID)
}

func TestPromote_BrokenStoreIsBestEffort(t *testing.T) {
	p := NewPromoter(brokenKV{}, zap.NewNop())

	// Must not panic and must not report a promotion.
	require.False(t, p.Promote(context.Background(), "stripe"))
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	kv := Scoped(NewMemory(), "profile-1")
	require.NoError(t, PutSummary(ctx, kv, PendingKey("banklink"), domain.OrderSummary{OrderID: "ord_2"}))

	p := NewPromoter(kv, zap.NewNop())
	p.Discard(ctx, "banklink")

	_, err := kv.Get(ctx, PendingKey("banklink"))
	require.ErrorIs(t, err, ErrNotFound)

	// The last-order slot is untouched by a discard.
	_, err = kv.Get(ctx, LastOrderKey)
	require.ErrorIs(t, err, ErrNotFound)
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("storage down")
}

func (brokenKV) Put(context.Context, string, []byte) error {
	return errors.New("storage down")
}

func (brokenKV) Delete(context.Context, string) error {
	return errors.New("storage down")
}
