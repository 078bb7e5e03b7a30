package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/velmart/storefront/internal/domain"
)

// Storage keys. Pending records are per payment provider, the last-order slot
// is single and overwritten by each new checkout.
const (
	GuestSessionKey = "guest_session_id"
	LastOrderKey    = "last_order"
)

func PendingKey(provider string) string { return "pending_payment:" + provider }

var ErrNotFound = errors.New("key not found")

// KV is durable client-scoped key/value storage. Last-writer-wins, no
// locking: the data is single-profile UX state, not a system of record.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Backing stores keep values per browser profile (scope) so one BFF instance
// serves many clients. Scoped narrows a backing store to a single profile.
type Backing interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Put(ctx context.Context, scope, key string, value []byte) error
	Delete(ctx context.Context, scope, key string) error
}

type scoped struct {
	b     Backing
	scope string
}

func Scoped(b Backing, scope string) KV {
	return &scoped{b: b, scope: scope}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.b.Get(ctx, s.scope, key)
}

func (s *scoped) Put(ctx context.Context, key string, value []byte) error {
	return s.b.Put(ctx, s.scope, key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.b.Delete(ctx, s.scope, key)
}

// Memory is an in-process backing store. Used in tests and as a degraded
// fallback when Postgres is unavailable at startup.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, scope, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[scope+"\x00"+key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Put(_ context.Context, scope, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[scope+"\x00"+key] = v
	return nil
}

func (m *Memory) Delete(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, scope+"\x00"+key)
	return nil
}

// PutSummary and GetSummary are the typed accessors for order summary
// records; everything else in the store is opaque bytes.
func PutSummary(ctx context.Context, kv KV, key string, s domain.OrderSummary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return kv.Put(ctx, key, raw)
}

func GetSummary(ctx context.Context, kv KV, key string) (domain.OrderSummary, error) {
	var s domain.OrderSummary
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, err
	}
	return s, nil
}
