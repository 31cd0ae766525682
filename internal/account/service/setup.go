package service

import (
	"context"

	"greengate/internal/account/models"
	"greengate/internal/audit"
	"greengate/internal/token"
	dErrors "greengate/pkg/domain-errors"
	"greengate/pkg/requestcontext"
)

type SetupDetailsRequest struct {
	Username      string `json:"username"`
	RoleType      string `json:"role_type"`
	FullName      string `json:"full_name"`
	AddressNo     string `json:"address_no"`
	AddressStreet string `json:"address_street"`
	City          string `json:"city"`
	PostalCode    string `json:"postal_code"`
	DateOfBirth   string `json:"birth_of_date"`
	ProfilePic    string `json:"profile"`
	Password      string `json:"password"`
}

type SetupResult struct {
	Tokens token.Pair     `json:"tokens"`
	User   ProfileSummary `json:"user"`
}

// SetupDetails stores the profile and credential for an account and moves
// it to SAVED, returning a token pair bound to the activated role. Repeat
// calls overwrite the profile and mint fresh tokens.
func (s *Service) SetupDetails(ctx context.Context, req SetupDetailsRequest) (*SetupResult, error) {
	account, err := s.requireRole(ctx, req.Username, req.RoleType)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	pair, err := s.tokens.Issue(account.Username, req.RoleType, now)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	account.FullName = req.FullName
	account.AddressNo = req.AddressNo
	account.AddressStreet = req.AddressStreet
	account.City = req.City
	account.PostalCode = req.PostalCode
	account.DateOfBirth = req.DateOfBirth
	account.ProfilePic = req.ProfilePic
	account.PasswordHash = hash
	account.Status = models.StatusSaved
	account.RegisteredAt = now
	account.UpdatedAt = now
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist account details")
	}

	s.emit(ctx, account, audit.ActionUserSaved, "")
	s.logger.InfoContext(ctx, "account details saved",
		"username", account.Username,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &SetupResult{
		Tokens: pair,
		User: ProfileSummary{
			Username: account.Username,
			FullName: account.FullName,
			NIC:      account.NIC,
			Mobile:   account.Mobile,
			Status:   string(account.Status),
		},
	}, nil
}

type GovSignUpRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Password string `json:"password"`
}

// GovSignUp is credential setup for government users: the role is fixed
// and the captured profile is narrower.
func (s *Service) GovSignUp(ctx context.Context, req GovSignUpRequest) (*SetupResult, error) {
	account, err := s.requireRole(ctx, req.Username, models.RoleGovernmentUser)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	pair, err := s.tokens.Issue(account.Username, models.RoleGovernmentUser, now)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	account.FullName = req.Name
	account.City = req.City
	account.PasswordHash = hash
	account.Status = models.StatusSaved
	account.RegisteredAt = now
	account.UpdatedAt = now
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist account details")
	}

	s.emit(ctx, account, audit.ActionUserSaved, "government")
	s.logger.InfoContext(ctx, "government account saved",
		"username", account.Username,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &SetupResult{
		Tokens: pair,
		User: ProfileSummary{
			FullName: account.FullName,
			Email:    account.Email,
			City:     account.City,
			GovID:    account.GovID,
			Status:   string(account.Status),
		},
	}, nil
}

// requireRole loads an account and checks the role being activated is
// attached to it.
func (s *Service) requireRole(ctx context.Context, username, role string) (*models.Account, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up account")
	}
	if account == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "cannot find user")
	}
	if account.Roles.Empty() {
		return nil, dErrors.New(dErrors.CodeNoSuchRole, "user does not have any roles")
	}
	if !account.Roles.Has(role) {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "user does not have "+role+" privileges")
	}
	return account, nil
}
