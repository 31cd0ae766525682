package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomGenerator(t *testing.T) {
	gen := NewGenerator()

	t.Run("codes have the requested length and are numeric", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			code, err := gen.Generate(6)
			require.NoError(t, err)
			require.Len(t, code, 6)
			for _, r := range code {
				assert.True(t, r >= '0' && r <= '9', "code %q contains non-digit", code)
			}
		}
	})

	t.Run("length bounds are enforced", func(t *testing.T) {
		_, err := gen.Generate(0)
		assert.Error(t, err)
		_, err = gen.Generate(13)
		assert.Error(t, err)
	})
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher()

	hash, err := h.Hash("482913")
	require.NoError(t, err)
	assert.NotEqual(t, "482913", hash)

	assert.True(t, h.Verify(hash, "482913"))
	assert.False(t, h.Verify(hash, "482914"))
	assert.False(t, h.Verify("not-a-hash", "482913"))
}
