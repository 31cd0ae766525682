package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "greengate/pkg/domain-errors"
)

// Status is the account lifecycle state. It only moves forward under normal
// operation; DISABLED is reachable from ACTIVE alone, via login-attempt
// exhaustion.
type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusPending   Status = "PENDING"
	StatusVerified  Status = "VERIFIED"
	StatusSaved     Status = "SAVED"
	StatusActive    Status = "ACTIVE"
	StatusDisabled  Status = "DISABLED"
)

// OtpStatus tracks the current OTP issuance.
type OtpStatus string

const (
	OtpStatusSent     OtpStatus = "SENT"
	OtpStatusFailed   OtpStatus = "FAILED"
	OtpStatusVerified OtpStatus = "VERIFIED"
)

// Role names attached to accounts.
const (
	RoleAppUser        = "ROLE_APP_USER"
	RoleGovernmentUser = "ROLE_GOVERNMENT_USER"
)

// RoleSet is an unordered collection of role names with membership tests.
type RoleSet map[string]struct{}

func NewRoleSet(roles ...string) RoleSet {
	rs := make(RoleSet, len(roles))
	for _, r := range roles {
		rs[r] = struct{}{}
	}
	return rs
}

func (rs RoleSet) Has(role string) bool {
	_, ok := rs[role]
	return ok
}

func (rs RoleSet) Empty() bool { return len(rs) == 0 }

// Names returns the member role names. Order is unspecified.
func (rs RoleSet) Names() []string {
	names := make([]string, 0, len(rs))
	for r := range rs {
		names = append(names, r)
	}
	return names
}

// Account is the central entity: identity, lifecycle state, OTP state,
// retry budgets, and profile fields captured at setup.
type Account struct {
	ID       uuid.UUID
	Username string
	NIC      string
	Mobile   string
	Email    string
	GovID    *int64
	Roles    RoleSet
	Status   Status

	OtpHash        string
	OtpStatus      OtpStatus
	OtpSentAt      time.Time
	OtpAttempts    int // send counter
	VerifyAttempts int

	LoginAttempts  int
	DisabledReason string

	FullName      string
	AddressNo     string
	AddressStreet string
	City          string
	PostalCode    string
	DateOfBirth   string
	ProfilePic    string
	PasswordHash  string
	RegisteredAt  time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount creates an account entering the registration flow. The username
// is the system-assigned handle; natural-key fields are assumed normalized
// by the caller.
func NewAccount(nic, mobile, email string, govID *int64, role string, now time.Time) (*Account, error) {
	if nic == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "nic is required")
	}
	if mobile == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "mobile is required")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if role == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "role is required")
	}
	id := uuid.New()
	return &Account{
		ID:        id,
		Username:  "usr_" + id.String(),
		NIC:       nic,
		Mobile:    mobile,
		Email:     email,
		GovID:     govID,
		Roles:     NewRoleSet(role),
		Status:    StatusInitiated,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MatchesNaturalKey reports whether the account's full natural key (and gov
// ID, when requested) equals the supplied values. Used to decide whether
// partially-overlapping records collapse to the same logical person.
func (a *Account) MatchesNaturalKey(nic, mobile, email string, govID *int64) bool {
	if a.NIC != nic || a.Mobile != mobile || a.Email != email {
		return false
	}
	if govID == nil {
		return a.GovID == nil
	}
	return a.GovID != nil && *a.GovID == *govID
}

// RecordOtpIssued stores a fresh OTP issuance: hash, delivery status,
// incremented send counter, issue timestamp, and the PENDING status. A new
// issuance always resets the verify budget.
func (a *Account) RecordOtpIssued(hash string, delivered bool, now time.Time) {
	a.OtpHash = hash
	if delivered {
		a.OtpStatus = OtpStatusSent
	} else {
		a.OtpStatus = OtpStatusFailed
	}
	a.OtpSentAt = now
	a.OtpAttempts++
	a.VerifyAttempts = 0
	a.Status = StatusPending
	a.UpdatedAt = now
}

// MarkOtpVerified applies a successful verification: the OTP becomes
// single-use spent and both OTP counters reset.
func (a *Account) MarkOtpVerified(now time.Time) {
	a.OtpStatus = OtpStatusVerified
	a.Status = StatusVerified
	a.OtpAttempts = 0
	a.VerifyAttempts = 0
	a.UpdatedAt = now
}

// OtpExpired reports whether the issuance is past its lifetime. Equality is
// not expiry: the code remains valid at exactly issuedAt+expiry.
func (a *Account) OtpExpired(now time.Time, expiry time.Duration) bool {
	return now.After(a.OtpSentAt.Add(expiry))
}

// Disable locks the account out, recording why.
func (a *Account) Disable(reason string, now time.Time) {
	a.Status = StatusDisabled
	a.DisabledReason = reason
	a.UpdatedAt = now
}

// Activate moves a SAVED account into service.
func (a *Account) Activate(now time.Time) error {
	if a.Status != StatusSaved {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot activate account in status %s", a.Status)
	}
	a.Status = StatusActive
	a.UpdatedAt = now
	return nil
}
