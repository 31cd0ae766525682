// Package password hashes login credentials and checks them at login.
package password

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"greengate/internal/account/models"
	dErrors "greengate/pkg/domain-errors"
)

// Hasher converts plaintext credentials to stored form.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Authenticator checks a submitted password against an account's stored
// credential.
type Authenticator interface {
	Authenticate(ctx context.Context, account *models.Account, plain string) error
}

// BcryptHasher is the production Hasher and Authenticator.
type BcryptHasher struct {
	cost int
}

func NewBcrypt() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Authenticate(_ context.Context, account *models.Account, plain string) error {
	if account.PasswordHash == "" {
		return dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(plain)) != nil {
		return dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
	}
	return nil
}
