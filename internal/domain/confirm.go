package domain

import "time"

type AttemptOutcome string

const (
	OutcomePending   AttemptOutcome = "pending"
	OutcomeConfirmed AttemptOutcome = "confirmed"
	OutcomeTimedOut  AttemptOutcome = "timed_out"
	OutcomeFailed    AttemptOutcome = "failed"
)

// ConfirmationAttempt is the ephemeral record of one post-redirect confirm
// round. It is never persisted.
type ConfirmationAttempt struct {
	CorrelationID string
	Provider      string
	MockOutcome   string
	StartedAt     time.Time
	Outcome       AttemptOutcome
}
