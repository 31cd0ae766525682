package service

import (
	"context"
	"strings"
	"time"

	"greengate/internal/account/models"
	"greengate/internal/audit"
	"greengate/internal/threshold"
	dErrors "greengate/pkg/domain-errors"
	"greengate/pkg/phone"
	"greengate/pkg/requestcontext"
)

type RegisterInitRequest struct {
	NIC      string `json:"nic"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
	GovID    *int64 `json:"gov_id,omitempty"`
	RoleType string `json:"role_type"`
}

type RegisterInitResult struct {
	Username     string   `json:"app_user_id"`
	Mobile       string   `json:"mobile"`
	Roles        []string `json:"user_role"`
	OtpDelivered bool     `json:"otp_delivered"`
}

// RegisterInit starts (or restarts) a registration: it reconciles the
// natural key against existing accounts, then issues and dispatches an OTP.
// Re-submitting the same identity reuses the existing account, so the
// caller always gets the same handle back.
func (s *Service) RegisterInit(ctx context.Context, req RegisterInitRequest) (*RegisterInitResult, error) {
	if req.RoleType != models.RoleAppUser && req.RoleType != models.RoleGovernmentUser {
		return nil, dErrors.New(dErrors.CodeNoSuchRole, "unknown role: "+req.RoleType)
	}
	if req.RoleType == models.RoleGovernmentUser && req.GovID == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "gov_id is required for government users")
	}
	mobile, err := phone.Normalize(req.Mobile)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	account, created, err := s.reconcile(ctx, req, mobile, now)
	if err != nil {
		return nil, err
	}
	if created {
		s.metrics.AccountsRegistered.Inc()
		s.emit(ctx, account, audit.ActionUserInitiated, "")
		s.logger.InfoContext(ctx, "account initiated",
			"username", account.Username,
			"role", req.RoleType,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	if err := s.issueOtp(ctx, account, now); err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist otp issuance")
	}

	return &RegisterInitResult{
		Username:     account.Username,
		Mobile:       account.Mobile,
		Roles:        account.Roles.Names(),
		OtpDelivered: account.OtpStatus == models.OtpStatusSent,
	}, nil
}

// reconcile maps the requested natural key onto an account. Any overlap
// that does not collapse to a single identical identity is a conflict
// between distinct people and must not create or mutate anything.
func (s *Service) reconcile(ctx context.Context, req RegisterInitRequest, mobile string, now time.Time) (*models.Account, bool, error) {
	matches, err := s.accounts.FindByNaturalKey(ctx, req.NIC, mobile, req.Email)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "look up existing accounts")
	}

	if len(matches) == 0 {
		account, err := models.NewAccount(req.NIC, mobile, req.Email, req.GovID, req.RoleType, now)
		if err != nil {
			return nil, false, err
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "create account")
		}
		return account, true, nil
	}

	var exact *models.Account
	for _, candidate := range matches {
		if candidate.MatchesNaturalKey(req.NIC, mobile, req.Email, req.GovID) {
			exact = candidate
			break
		}
	}
	if exact == nil {
		s.logger.WarnContext(ctx, "registration details overlap another account",
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, false, dErrors.New(dErrors.CodeConflict,
			"entered details already exist for another customer, please recheck the details you entered")
	}
	return exact, false, nil
}

// issueOtp generates, dispatches, and records a fresh code on the account.
// Gateway failure is recorded as FAILED delivery, not raised: the caller
// can re-request delivery, and the registration itself has not failed.
func (s *Service) issueOtp(ctx context.Context, account *models.Account, now time.Time) error {
	length, err := threshold.Int(ctx, s.thresholds, threshold.OtpLength)
	if err != nil {
		return err
	}
	template, err := s.thresholds.Get(ctx, threshold.OtpMessage)
	if err != nil {
		return err
	}

	code, err := s.otpGen.Generate(length)
	if err != nil {
		return err
	}
	hash, err := s.otpHasher.Hash(code)
	if err != nil {
		return err
	}
	message := strings.ReplaceAll(template, "<otp>", code)

	delivered := true
	if err := s.gateway.SendSMS(ctx, account.Mobile, message); err != nil {
		delivered = false
		s.logger.WarnContext(ctx, "otp dispatch failed",
			"username", account.Username,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	account.RecordOtpIssued(hash, delivered, now)

	status := "sent"
	if !delivered {
		status = "failed"
	}
	s.metrics.OtpSent.WithLabelValues(status).Inc()
	s.emit(ctx, account, audit.ActionOtpSent, status)
	return nil
}

// ResendOtp re-issues a code for an account still waiting on verification.
// A spent OTP cannot be resent: the account has already moved past this
// stage.
func (s *Service) ResendOtp(ctx context.Context, username string) (*RegisterInitResult, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up account")
	}
	if account == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "cannot find user")
	}
	if account.OtpStatus == models.OtpStatusVerified {
		return nil, dErrors.New(dErrors.CodeAlreadyVerified, "otp already verified")
	}

	now := requestcontext.Now(ctx)
	if err := s.issueOtp(ctx, account, now); err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist otp issuance")
	}

	return &RegisterInitResult{
		Username:     account.Username,
		Mobile:       account.Mobile,
		Roles:        account.Roles.Names(),
		OtpDelivered: account.OtpStatus == models.OtpStatusSent,
	}, nil
}
