package confirm

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/velmart/storefront/internal/backend"
	"github.com/velmart/storefront/internal/domain"
	"github.com/velmart/storefront/internal/observability"
	"github.com/velmart/storefront/internal/telemetry"
)

type State int

const (
	StateIdle State = iota
	StateConfirming
	StateConfirmed
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfirming:
		return "confirming"
	case StateConfirmed:
		return "confirmed"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Promoter interface {
	Promote(ctx context.Context, provider string) bool
	Discard(ctx context.Context, provider string)
}

type CartClearer interface {
	Clear(ctx context.Context)
}

type Navigator interface {
	Go(route string)
}

const SuccessRoute = "/order/success"

// Deps wires one confirmer instance. CancelRoute switches the confirmer into
// the cancel-path variant: failures and timeouts fall through silently to
// that route and the pending handoff is discarded, since cancellation is the
// expected outcome there.
type Deps struct {
	Adapter     Adapter
	Promoter    Promoter
	Cart        CartClearer
	Nav         Navigator
	Sink        telemetry.Sink
	Metrics     observability.Metrics
	Logger      *zap.Logger
	CancelRoute string
}

// Confirmer runs the post-redirect confirmation for one return visit.
//
//	Idle → Confirming → {Confirmed, TimedOut, Failed}
//
// TimedOut and Failed re-enter Confirming only through an explicit Retry.
// At most one confirm call is in flight at a time.
type Confirmer struct {
	adapter     Adapter
	promoter    Promoter
	cart        CartClearer
	nav         Navigator
	sink        telemetry.Sink
	metrics     observability.Metrics
	logger      *zap.Logger
	cancelRoute string

	mu      sync.Mutex
	state   State
	payload backend.ConfirmPayload
	attempt domain.ConfirmationAttempt
	result  backend.ConfirmResult
	message string
}

func New(d Deps) *Confirmer {
	return &Confirmer{
		adapter:     d.Adapter,
		promoter:    d.Promoter,
		cart:        d.Cart,
		nav:         d.Nav,
		sink:        d.Sink,
		metrics:     d.Metrics,
		logger:      d.Logger,
		cancelRoute: d.CancelRoute,
	}
}

func (c *Confirmer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Message is the user-facing failure text. Empty unless state is Failed on a
// non-cancel route.
func (c *Confirmer) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

func (c *Confirmer) Result() backend.ConfirmResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *Confirmer) Attempt() domain.ConfirmationAttempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Activate restarts evaluation from Idle with the return URL's query. A
// missing correlation parameter is terminal and issues no network call.
func (c *Confirmer) Activate(ctx context.Context, query url.Values) State {
	c.mu.Lock()
	if c.state == StateConfirming {
		c.mu.Unlock()
		return StateConfirming
	}
	c.state = StateIdle
	c.message = ""
	c.result = backend.ConfirmResult{}

	payload, err := c.adapter.BuildPayload(query)
	if err != nil {
		c.state = StateFailed
		c.message = c.adapter.MissingMessage()
		c.attempt = domain.ConfirmationAttempt{
			Provider:  c.adapter.Provider(),
			StartedAt: time.Now(),
			Outcome:   domain.OutcomeFailed,
		}
		c.mu.Unlock()

		c.logger.Warn("return visit without correlation parameter",
			zap.String("provider", c.adapter.Provider()),
			zap.String("route", c.adapter.Route()),
		)
		if c.cancelRoute != "" {
			c.fallThroughToCancel(ctx)
		}
		return StateFailed
	}

	c.payload = payload
	c.state = StateConfirming
	c.attempt = domain.ConfirmationAttempt{
		CorrelationID: payload.CorrelationID,
		Provider:      payload.Provider,
		MockOutcome:   payload.MockOutcome,
		StartedAt:     time.Now(),
		Outcome:       domain.OutcomePending,
	}
	c.mu.Unlock()

	return c.run(ctx)
}

// Retry re-issues the identical confirm payload. Rejected outright while a
// confirm is already in flight, never queued behind it. The HTTP handlers
// build a fresh confirmer per return visit, so a user-driven retry arrives
// there as a new Activate; Retry serves callers that hold one confirmer
// across attempts.
func (c *Confirmer) Retry(ctx context.Context) State {
	c.mu.Lock()
	if c.state == StateConfirming {
		c.mu.Unlock()
		return StateConfirming
	}
	if c.payload.CorrelationID == "" {
		// Nothing to retry: the activation never built a payload.
		st := c.state
		c.mu.Unlock()
		return st
	}
	c.state = StateConfirming
	c.message = ""
	c.attempt.StartedAt = time.Now()
	c.attempt.Outcome = domain.OutcomePending
	c.mu.Unlock()

	return c.run(ctx)
}

type outcome struct {
	res backend.ConfirmResult
	err error
}

func (c *Confirmer) run(ctx context.Context) State {
	c.mu.Lock()
	payload := c.payload
	c.mu.Unlock()

	start := time.Now()
	done := make(chan outcome, 1)

	// The request context is detached on purpose: a timed-out confirm is
	// abandoned client-side, not cancelled. The backend may still complete
	// it, and a hard cancellation would lose that late success.
	reqCtx := context.WithoutCancel(ctx)
	go func() {
		res, err := c.adapter.Confirm(reqCtx, payload)
		done <- outcome{res: res, err: err}
	}()

	timer := time.NewTimer(c.adapter.Timeout())
	defer timer.Stop()

	select {
	case o := <-done:
		elapsed := time.Since(start)
		if o.err != nil {
			return c.fail(ctx, o.err, elapsed)
		}
		if !domain.RecognizedStatus(o.res.Status) {
			c.logger.Warn("confirm returned unrecognized status",
				zap.String("provider", payload.Provider),
				zap.String("status", o.res.Status),
				zap.String("correlation_id", payload.CorrelationID),
			)
			return c.failWithMessage(ctx, c.adapter.FallbackMessage(), elapsed)
		}
		return c.confirmed(ctx, o.res, elapsed)

	case <-timer.C:
		return c.timedOut(ctx, start, done)
	}
}

// confirmed applies the success side effects as one strictly ordered unit:
// durable promotion first, cart cache clear second, navigation last. The
// success screen cannot recover line items any other way once the hard
// navigation boundary is crossed.
func (c *Confirmer) confirmed(ctx context.Context, res backend.ConfirmResult, elapsed time.Duration) State {
	promoted := c.promoter.Promote(ctx, c.adapter.Provider())
	c.cart.Clear(ctx)

	c.mu.Lock()
	c.state = StateConfirmed
	c.result = res
	c.attempt.Outcome = domain.OutcomeConfirmed
	c.mu.Unlock()

	c.metrics.ObserveConfirm(c.adapter.Provider(), "confirmed", toMs(elapsed))
	c.logger.Info("payment confirmed",
		zap.String("provider", c.adapter.Provider()),
		zap.String("order_id", res.OrderID),
		zap.String("status", res.Status),
		zap.Bool("handoff_promoted", promoted),
		zap.Duration("elapsed", elapsed),
	)

	c.nav.Go(SuccessRoute)
	return StateConfirmed
}

func (c *Confirmer) timedOut(ctx context.Context, start time.Time, done chan outcome) State {
	elapsed := time.Since(start)

	c.mu.Lock()
	c.state = StateTimedOut
	c.attempt.Outcome = domain.OutcomeTimedOut
	c.mu.Unlock()

	c.sink.ReportTimeout(ctx, telemetry.TimeoutEvent{
		Provider:  c.adapter.Provider(),
		Route:     c.adapter.Route(),
		TimeoutMs: c.adapter.Timeout().Milliseconds(),
		ElapsedMs: elapsed.Milliseconds(),
	})
	c.metrics.ObserveConfirm(c.adapter.Provider(), "timed_out", toMs(elapsed))
	c.logger.Warn("confirm call exceeded deadline, abandoned",
		zap.String("provider", c.adapter.Provider()),
		zap.String("route", c.adapter.Route()),
		zap.Duration("timeout", c.adapter.Timeout()),
		zap.Duration("elapsed", elapsed),
	)

	// Drain the abandoned call for the log. A late success here means the
	// charge went through after the client gave up.
	go func() {
		o := <-done
		if o.err == nil {
			c.logger.Warn("abandoned confirm completed after deadline",
				zap.String("provider", c.adapter.Provider()),
				zap.String("order_id", o.res.OrderID),
				zap.String("status", o.res.Status),
			)
			return
		}
		c.logger.Debug("abandoned confirm failed after deadline",
			zap.String("provider", c.adapter.Provider()),
			zap.Error(o.err),
		)
	}()

	if c.cancelRoute != "" {
		c.fallThroughToCancel(ctx)
	}
	return StateTimedOut
}

func (c *Confirmer) fail(ctx context.Context, err error, elapsed time.Duration) State {
	return c.failWithMessage(ctx, resolveMessage(err, c.adapter.FallbackMessage()), elapsed)
}

func (c *Confirmer) failWithMessage(ctx context.Context, msg string, elapsed time.Duration) State {
	c.mu.Lock()
	c.state = StateFailed
	c.message = msg
	c.attempt.Outcome = domain.OutcomeFailed
	c.mu.Unlock()

	c.metrics.ObserveConfirm(c.adapter.Provider(), "failed", toMs(elapsed))
	c.logger.Warn("confirm rejected",
		zap.String("provider", c.adapter.Provider()),
		zap.String("message", msg),
		zap.Duration("elapsed", elapsed),
	)

	if c.cancelRoute != "" {
		c.fallThroughToCancel(ctx)
	}
	return StateFailed
}

// fallThroughToCancel is the cancel-route epilogue: the pending handoff is
// discarded and the user lands on the cancellation screen with no surfaced
// error, since cancellation is what they asked for.
func (c *Confirmer) fallThroughToCancel(ctx context.Context) {
	c.mu.Lock()
	c.message = ""
	c.mu.Unlock()

	c.promoter.Discard(ctx, c.adapter.Provider())
	c.nav.Go(c.cancelRoute)
}

// resolveMessage picks the most specific user-facing reason:
// structured detail from the error body, then the raw error text unless it is
// a generic transport phrase, then the provider fallback.
func resolveMessage(err error, fallback string) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Detail) != "" {
		return apiErr.Detail
	}
	if err != nil && !genericTransportError(err) {
		return err.Error()
	}
	return fallback
}

func genericTransportError(err error) bool {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func toMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
