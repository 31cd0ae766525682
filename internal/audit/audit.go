// Package audit records the account lifecycle trail: registrations, OTP
// outcomes, logins, lockouts. Events are append-only and transport-agnostic
// so stores can be swapped in tests.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"greengate/pkg/requestcontext"
)

// Actions emitted by the account flows.
const (
	ActionUserInitiated    = "user_initiated"
	ActionOtpSent          = "otp_sent"
	ActionOtpVerified      = "otp_verified"
	ActionOtpRejected      = "otp_rejected"
	ActionUserSaved        = "user_saved"
	ActionLoginSucceeded   = "login_succeeded"
	ActionLoginFailed      = "login_failed"
	ActionAccountLocked    = "account_locked"
	ActionAccountActivated = "account_activated"
)

// Event is one recorded lifecycle action.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time
	AccountID uuid.UUID
	Username  string
	Action    string
	Reason    string
	RequestID string
}

// Store persists events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Event, error)
}

// Publisher captures structured audit events. It uses the storage layer for
// persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit records the event, filling in identity and request context the caller
// left blank.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, accountID uuid.UUID) ([]Event, error) {
	return p.store.ListByAccount(ctx, accountID)
}
