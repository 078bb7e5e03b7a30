package telemetry

import (
	"context"
	"sync"
)

// EventName is the fixed event name for confirm-timeout reports. Consumers
// key dashboards off it, do not change.
const EventName = "payment_confirm_timeout"

type TimeoutEvent struct {
	Provider  string `json:"provider"`
	Route     string `json:"route"`
	TimeoutMs int64  `json:"timeout_ms"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Sink receives anomalous confirmation reports. Implementations must never
// block the confirm path.
type Sink interface {
	ReportTimeout(ctx context.Context, ev TimeoutEvent)
}

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) ReportTimeout(context.Context, TimeoutEvent) {}

// Inmem collects events for tests.
type Inmem struct {
	mu     sync.Mutex
	events []TimeoutEvent
}

func NewInmem() *Inmem { return &Inmem{} }

func (m *Inmem) ReportTimeout(_ context.Context, ev TimeoutEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *Inmem) Events() []TimeoutEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TimeoutEvent, len(m.events))
	copy(out, m.events)
	return out
}
