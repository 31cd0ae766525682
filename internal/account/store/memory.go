package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"greengate/internal/account/models"
	dErrors "greengate/pkg/domain-errors"
)

// InMemoryAccountStore is the test and development implementation. It copies
// records on the way in and out so callers cannot mutate stored state.
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*models.Account
}

func NewInMemory() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[uuid.UUID]*models.Account)}
}

func (s *InMemoryAccountStore) Create(_ context.Context, account *models.Account) error {
	if account == nil {
		return dErrors.New(dErrors.CodeInternal, "account is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "account id already exists")
	}
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *InMemoryAccountStore) Update(_ context.Context, account *models.Account) error {
	if account == nil {
		return dErrors.New(dErrors.CodeInternal, "account is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; !exists {
		return dErrors.New(dErrors.CodeNotFound, "account does not exist")
	}
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[id]; ok {
		return clone(a), nil
	}
	return nil, nil
}

func (s *InMemoryAccountStore) FindByUsername(_ context.Context, username string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Username == username {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (s *InMemoryAccountStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (s *InMemoryAccountStore) FindByNaturalKey(_ context.Context, nic, mobile, email string) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []*models.Account
	for _, a := range s.accounts {
		if a.NIC == nic || a.Mobile == mobile || a.Email == email {
			matches = append(matches, clone(a))
		}
	}
	return matches, nil
}

func (s *InMemoryAccountStore) IncrementVerifyAttempts(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return 0, dErrors.New(dErrors.CodeNotFound, "account does not exist")
	}
	a.VerifyAttempts++
	a.UpdatedAt = time.Now()
	return a.VerifyAttempts, nil
}

func (s *InMemoryAccountStore) IncrementLoginAttempts(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return 0, dErrors.New(dErrors.CodeNotFound, "account does not exist")
	}
	a.LoginAttempts++
	a.UpdatedAt = time.Now()
	return a.LoginAttempts, nil
}

func (s *InMemoryAccountStore) ResetLoginAttempts(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "account does not exist")
	}
	a.LoginAttempts = 0
	a.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryAccountStore) MarkOtpVerified(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return false, dErrors.New(dErrors.CodeNotFound, "account does not exist")
	}
	if a.OtpStatus != models.OtpStatusSent {
		return false, nil
	}
	a.MarkOtpVerified(time.Now())
	return true, nil
}

func (s *InMemoryAccountStore) DisableIfActive(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return false, dErrors.New(dErrors.CodeNotFound, "account does not exist")
	}
	if a.Status != models.StatusActive {
		return false, nil
	}
	a.Disable(reason, time.Now())
	return true, nil
}

func clone(a *models.Account) *models.Account {
	cp := *a
	cp.Roles = models.NewRoleSet(a.Roles.Names()...)
	if a.GovID != nil {
		gov := *a.GovID
		cp.GovID = &gov
	}
	return &cp
}
