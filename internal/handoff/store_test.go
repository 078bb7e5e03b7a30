package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velmart/storefront/internal/domain"
)

func TestMemory_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	kv := Scoped(NewMemory(), "profile-1")

	require.NoError(t, kv.Put(ctx, "k", []byte("first")))
	require.NoError(t, kv.Put(ctx, "k", []byte("second")))

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
}

func TestMemory_MissingKey(t *testing.T) {
	ctx := context.Background()
	kv := Scoped(NewMemory(), "profile-1")

	_, err := kv.Get(ctx, "absent")
	require.ErrorIs(t, err, ErrNotFound)

	// Delete of an absent key is not an error.
	require.NoError(t, kv.Delete(ctx, "absent"))
}

func TestScoped_ProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	backing := NewMemory()

	a := Scoped(backing, "profile-a")
	b := Scoped(backing, "profile-b")

	require.NoError(t, a.Put(ctx, GuestSessionKey, []byte("gs_a")))

	_, err := b.Get(ctx, GuestSessionKey)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := a.Get(ctx, GuestSessionKey)
	require.NoError(t, err)
	require.Equal(t, "gs_a", string(got))
}

func TestSummaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := Scoped(NewMemory(), "profile-1")

	summary := domain.OrderSummary{
		OrderID:       "ord_1",
		ReferenceCode: "REF-42",
		PaymentMethod: "stripe",
		Courier:       "omniva",
		DeliveryType:  "locker",
		LockerName:    "Central Station",
		Totals:        domain.Totals{Subtotal: 2500, Shipping: 300, Total: 2800},
		Items: []domain.OrderLineSnapshot{
			{ProductID: "p1", Name: "Mug", Quantity: 2, UnitPrice: 1250},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, PutSummary(ctx, kv, PendingKey("stripe"), summary))

	got, err := GetSummary(ctx, kv, PendingKey("stripe"))
	require.NoError(t, err)
	require.Equal(t, summary, got)
}
