// Package otp generates and checks one-time passcodes. Codes are numeric,
// fixed-length, and stored only as bcrypt hashes.
package otp

import (
	"crypto/rand"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "greengate/pkg/domain-errors"
)

// Generator produces a fresh code of the requested length.
type Generator interface {
	Generate(length int) (string, error)
}

// Hasher turns codes into stored form and checks submissions against it.
type Hasher interface {
	Hash(code string) (string, error)
	Verify(hash, code string) bool
}

// RandomGenerator draws codes from crypto/rand. Leading zeros are kept, so
// a 6-digit code space is the full 000000..999999.
type RandomGenerator struct{}

func NewGenerator() RandomGenerator { return RandomGenerator{} }

func (RandomGenerator) Generate(length int) (string, error) {
	if length < 1 || length > 12 {
		return "", dErrors.New(dErrors.CodeConfigurationMissing, "otp length must be between 1 and 12")
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "draw otp")
	}
	code := n.String()
	if pad := length - len(code); pad > 0 {
		code = strings.Repeat("0", pad) + code
	}
	return code, nil
}

// BcryptHasher hashes codes with bcrypt at the given cost.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() BcryptHasher { return BcryptHasher{cost: bcrypt.DefaultCost} }

func (h BcryptHasher) Hash(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "hash otp")
	}
	return string(hashed), nil
}

func (h BcryptHasher) Verify(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
