// Package service is the account lifecycle engine: registration initiation,
// OTP issuance and verification, credential setup, government-user signup,
// login admission, and activation. It orchestrates the stores and gateways
// and owns every status transition.
package service

import (
	"context"
	"errors"
	"log/slog"

	"greengate/internal/account/models"
	"greengate/internal/account/store"
	"greengate/internal/audit"
	"greengate/internal/notify"
	"greengate/internal/otp"
	"greengate/internal/password"
	"greengate/internal/platform/metrics"
	"greengate/internal/threshold"
	"greengate/internal/token"
	"greengate/pkg/requestcontext"
)

type Service struct {
	accounts   store.AccountStore
	thresholds threshold.Store
	gateway    notify.Gateway
	tokens     token.Issuer

	otpGen    otp.Generator
	otpHasher otp.Hasher
	passwords password.Hasher
	auth      password.Authenticator

	auditPublisher *audit.Publisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher *audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithOtpGenerator(gen otp.Generator) Option {
	return func(s *Service) {
		s.otpGen = gen
	}
}

func WithOtpHasher(hasher otp.Hasher) Option {
	return func(s *Service) {
		s.otpHasher = hasher
	}
}

func WithPasswordHasher(hasher password.Hasher) Option {
	return func(s *Service) {
		s.passwords = hasher
	}
}

func WithAuthenticator(auth password.Authenticator) Option {
	return func(s *Service) {
		s.auth = auth
	}
}

func New(accounts store.AccountStore, thresholds threshold.Store, gateway notify.Gateway, tokens token.Issuer, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	if thresholds == nil {
		return nil, errors.New("threshold store is required")
	}
	if gateway == nil {
		return nil, errors.New("notification gateway is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}

	bc := password.NewBcrypt()
	svc := &Service{
		accounts:   accounts,
		thresholds: thresholds,
		gateway:    gateway,
		tokens:     tokens,
		otpGen:     otp.NewGenerator(),
		otpHasher:  otp.NewBcryptHasher(),
		passwords:  bc,
		auth:       bc,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.metrics == nil {
		m, _ := metrics.New()
		svc.metrics = m
	}
	return svc, nil
}

// ProfileSummary is the public slice of an account returned alongside
// tokens. Which fields are populated depends on the operation.
type ProfileSummary struct {
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name"`
	NIC      string `json:"nic,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
	Email    string `json:"email,omitempty"`
	City     string `json:"city,omitempty"`
	GovID    *int64 `json:"gov_id,omitempty"`
	Status   string `json:"status"`
}

func (s *Service) emit(ctx context.Context, account *models.Account, action, reason string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		AccountID: account.ID,
		Username:  account.Username,
		Action:    action,
		Reason:    reason,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", action,
			"username", account.Username,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}
