// Package threshold serves operator-tuned limits and message templates. The
// values steering registration and login (OTP length, expiry, retry budgets,
// SMS copy) live in a table so they can change without a deploy.
package threshold

import (
	"context"
	"strconv"

	dErrors "greengate/pkg/domain-errors"
)

// Names of the thresholds the account flows depend on.
const (
	OtpLength                    = "OTP_LENGTH"
	OtpMessage                   = "OTP_MESSAGE"
	OtpExpiredTime               = "OTP_EXPIRED_TIME"
	OtpVerifyAttempts            = "OTP_VERIFY_ATTEMPTS"
	LoginAttempts                = "LOGIN_ATTEMPTS"
	LoginAttemptsExceededMessage = "LOGIN_ATTEMPTS_EXCEEDED_MESSAGE"
)

// Store resolves a threshold by name. A missing name is a configuration
// fault, not a default: callers must fail the operation rather than guess a
// limit. An empty stored value is still a present value.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// Int resolves a threshold and parses it as a base-10 integer.
func Int(ctx context.Context, store Store, name string) (int, error) {
	raw, err := store.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeConfigurationMissing, "threshold "+name+" is not an integer")
	}
	return n, nil
}
