package service

import (
	"context"

	"greengate/internal/account/models"
	"greengate/internal/audit"
	"greengate/internal/threshold"
	"greengate/internal/token"
	dErrors "greengate/pkg/domain-errors"
	"greengate/pkg/requestcontext"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleType string `json:"role_type"`
}

type LoginResult struct {
	Tokens            token.Pair     `json:"tokens"`
	User              ProfileSummary `json:"user"`
	RemainingAttempts int            `json:"remaining_attempts,omitempty"`
}

const lockoutReason = "login attempts exceeded"

// Login admits a password login. Non-ACTIVE accounts are rejected before
// the password is even looked at, so a disabled account gives nothing away.
// Each bad password burns one attempt from the login budget; crossing the
// budget disables the account and sends the lockout notice exactly once.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up account")
	}
	if account == nil {
		s.metrics.Logins.WithLabelValues("not_found").Inc()
		return nil, dErrors.New(dErrors.CodeNotFound, "app user not found")
	}

	if account.Status != models.StatusActive {
		s.metrics.Logins.WithLabelValues("inactive").Inc()
		s.emit(ctx, account, audit.ActionLoginFailed, "account not active")
		return nil, dErrors.New(dErrors.CodeDisabled, "user is not active, please contact the support center")
	}

	if err := s.auth.Authenticate(ctx, account, req.Password); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidCredentials) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "authenticate")
		}
		return s.recordLoginFailure(ctx, account)
	}

	if err := s.accounts.ResetLoginAttempts(ctx, account.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reset login attempts")
	}

	now := requestcontext.Now(ctx)
	pair, err := s.tokens.Issue(account.Username, req.RoleType, now)
	if err != nil {
		return nil, err
	}

	s.metrics.Logins.WithLabelValues("success").Inc()
	s.emit(ctx, account, audit.ActionLoginSucceeded, "")
	s.logger.InfoContext(ctx, "login succeeded",
		"username", account.Username,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &LoginResult{
		Tokens: pair,
		User: ProfileSummary{
			FullName: account.FullName,
			Email:    account.Email,
			GovID:    account.GovID,
			City:     account.City,
			Status:   string(account.Status),
		},
	}, nil
}

// recordLoginFailure burns one attempt and, when the budget runs out,
// performs the lockout. The DISABLED flip is conditional on the account
// still being ACTIVE, which makes the transition and its SMS fire once
// even under racing failures.
func (s *Service) recordLoginFailure(ctx context.Context, account *models.Account) (*LoginResult, error) {
	maxAttempts, err := threshold.Int(ctx, s.thresholds, threshold.LoginAttempts)
	if err != nil {
		return nil, err
	}

	attempts, err := s.accounts.IncrementLoginAttempts(ctx, account.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record failed login")
	}

	remaining := maxAttempts - attempts
	if remaining >= 1 {
		s.metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		s.emit(ctx, account, audit.ActionLoginFailed, "invalid credentials")
		s.logger.InfoContext(ctx, "login failed",
			"username", account.Username,
			"remaining_attempts", remaining,
			"request_id", requestcontext.RequestID(ctx),
		)
		return &LoginResult{RemainingAttempts: remaining},
			dErrors.Newf(dErrors.CodeInvalidCredentials, "login failed, you have %d more attempts", remaining)
	}

	applied, err := s.accounts.DisableIfActive(ctx, account.ID, lockoutReason)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "disable account")
	}
	if applied {
		s.metrics.AccountLockouts.Inc()
		s.emit(ctx, account, audit.ActionAccountLocked, lockoutReason)
		s.logger.WarnContext(ctx, "account disabled after exhausting login attempts",
			"username", account.Username,
			"request_id", requestcontext.RequestID(ctx),
		)

		message, err := s.thresholds.Get(ctx, threshold.LoginAttemptsExceededMessage)
		if err != nil {
			return nil, err
		}
		if err := s.gateway.SendSMS(ctx, account.Mobile, message); err != nil {
			s.logger.ErrorContext(ctx, "failed to send lockout notice",
				"username", account.Username,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	s.metrics.Logins.WithLabelValues("locked").Inc()
	return nil, dErrors.New(dErrors.CodeAttemptsExceeded, "login attempts exceeded, please contact support")
}

// Activate moves a SAVED account into service. This is the approval step
// performed by an operator, not the account holder.
func (s *Service) Activate(ctx context.Context, username string) (*ProfileSummary, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up account")
	}
	if account == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "cannot find user")
	}

	now := requestcontext.Now(ctx)
	if err := account.Activate(now); err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist activation")
	}

	s.emit(ctx, account, audit.ActionAccountActivated, "")
	s.logger.InfoContext(ctx, "account activated",
		"username", account.Username,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &ProfileSummary{
		Username: account.Username,
		FullName: account.FullName,
		Status:   string(account.Status),
	}, nil
}
