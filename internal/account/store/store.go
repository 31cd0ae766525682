// Package store persists account records. Implementations are pure I/O:
// lifecycle rules (attempt budgets, status gates) live in the service layer.
// The one exception is atomicity — counter increments and status flips are
// single conditional statements so concurrent requests cannot bypass a
// budget check between read and write.
package store

import (
	"context"

	"github.com/google/uuid"

	"greengate/internal/account/models"
)

// AccountStore is the durable store contract the lifecycle engine depends
// on. Find* lookups return (nil, nil) when no record matches; errors are
// reserved for storage faults.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	// FindByNaturalKey returns every account matching ANY of the three
	// natural-key fields; the caller reconciles the result set.
	FindByNaturalKey(ctx context.Context, nic, mobile, email string) ([]*models.Account, error)

	// IncrementVerifyAttempts atomically bumps the OTP verify counter and
	// returns the new value.
	IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// IncrementLoginAttempts atomically bumps the login counter and returns
	// the new value.
	IncrementLoginAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// ResetLoginAttempts zeroes the login counter after a successful
	// credential check.
	ResetLoginAttempts(ctx context.Context, id uuid.UUID) error

	// MarkOtpVerified flips the current issuance to VERIFIED and resets both
	// OTP counters, but only while the delivery status is still SENT.
	// Returns whether the flip applied, giving at-most-one-success semantics
	// under concurrent verification.
	MarkOtpVerified(ctx context.Context, id uuid.UUID) (bool, error)
	// DisableIfActive transitions ACTIVE -> DISABLED with the given reason.
	// Returns whether the transition applied, so the lockout notification
	// fires exactly once.
	DisableIfActive(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}
