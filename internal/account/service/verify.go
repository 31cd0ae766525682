package service

import (
	"context"
	"time"

	"greengate/internal/account/models"
	"greengate/internal/audit"
	"greengate/internal/threshold"
	dErrors "greengate/pkg/domain-errors"
	"greengate/pkg/requestcontext"
)

type VerifyOtpRequest struct {
	Username string `json:"username"`
	Otp      string `json:"otp"`
}

type VerifyOtpResult struct {
	Username          string `json:"user_id"`
	Status            string `json:"user_status"`
	RemainingAttempts int    `json:"remaining_attempts"`
}

// VerifyOtp checks a submitted code against the current issuance. The
// preconditions run in a fixed order and the first failure wins: the
// account exists, the issuance is still SENT, the verify budget is not
// exhausted, and the code has not expired. Only then is the code compared.
// A mismatch burns one attempt; the returned result carries how many
// remain.
func (s *Service) VerifyOtp(ctx context.Context, req VerifyOtpRequest) (*VerifyOtpResult, error) {
	account, err := s.accounts.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up account")
	}
	if account == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "cannot find user")
	}

	expirySeconds, err := threshold.Int(ctx, s.thresholds, threshold.OtpExpiredTime)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := threshold.Int(ctx, s.thresholds, threshold.OtpVerifyAttempts)
	if err != nil {
		return nil, err
	}

	if account.OtpStatus != models.OtpStatusSent {
		s.reject(ctx, account, "already_verified")
		return nil, dErrors.New(dErrors.CodeAlreadyVerified, "otp already verified")
	}
	if account.VerifyAttempts >= maxAttempts {
		s.reject(ctx, account, "attempts_exceeded")
		return nil, dErrors.New(dErrors.CodeAttemptsExceeded, "otp verification attempts exceeded")
	}

	now := requestcontext.Now(ctx)
	if account.OtpExpired(now, time.Duration(expirySeconds)*time.Second) {
		s.reject(ctx, account, "expired")
		return nil, dErrors.New(dErrors.CodeExpired, "otp has expired, please request a new one")
	}

	if !s.otpHasher.Verify(account.OtpHash, req.Otp) {
		attempts, err := s.accounts.IncrementVerifyAttempts(ctx, account.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record failed otp attempt")
		}
		remaining := maxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		s.reject(ctx, account, "invalid")
		s.logger.InfoContext(ctx, "otp verification failed",
			"username", account.Username,
			"remaining_attempts", remaining,
			"request_id", requestcontext.RequestID(ctx),
		)
		return &VerifyOtpResult{Username: account.Username, RemainingAttempts: remaining},
			dErrors.Newf(dErrors.CodeInvalidOtp, "invalid otp, %d attempts remaining", remaining)
	}

	// The flip is conditional on the issuance still being SENT, so two
	// racing submissions of the correct code cannot both succeed.
	applied, err := s.accounts.MarkOtpVerified(ctx, account.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mark otp verified")
	}
	if !applied {
		s.reject(ctx, account, "already_verified")
		return nil, dErrors.New(dErrors.CodeAlreadyVerified, "otp already verified")
	}

	s.metrics.OtpVerified.Inc()
	s.emit(ctx, account, audit.ActionOtpVerified, "")
	s.logger.InfoContext(ctx, "otp verified",
		"username", account.Username,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &VerifyOtpResult{
		Username: account.Username,
		Status:   string(models.StatusVerified),
	}, nil
}

func (s *Service) reject(ctx context.Context, account *models.Account, reason string) {
	s.metrics.OtpRejected.WithLabelValues(reason).Inc()
	s.emit(ctx, account, audit.ActionOtpRejected, reason)
}
