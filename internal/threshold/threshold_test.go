package threshold

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "greengate/pkg/domain-errors"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(map[string]string{
		OtpLength:  "6",
		OtpMessage: "",
	})

	t.Run("present value", func(t *testing.T) {
		got, err := store.Get(ctx, OtpLength)
		require.NoError(t, err)
		assert.Equal(t, "6", got)
	})

	t.Run("empty value is still present", func(t *testing.T) {
		got, err := store.Get(ctx, OtpMessage)
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("missing name is a configuration fault", func(t *testing.T) {
		_, err := store.Get(ctx, LoginAttempts)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfigurationMissing))
	})
}

func TestInt(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(map[string]string{
		OtpVerifyAttempts: "3",
		LoginAttempts:     "not-a-number",
	})

	t.Run("parses integer thresholds", func(t *testing.T) {
		n, err := Int(ctx, store, OtpVerifyAttempts)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("non-numeric value is a configuration fault", func(t *testing.T) {
		_, err := Int(ctx, store, LoginAttempts)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfigurationMissing))
	})

	t.Run("missing name propagates", func(t *testing.T) {
		_, err := Int(ctx, store, OtpExpiredTime)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfigurationMissing))
	})
}
