package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOtpCode_Format(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOtpCode()
		require.NoError(t, err)
		assert.Len(t, code, OtpCodeLength)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code must be numeric, got %q", code)
		}
	}
}

func TestHashOtpCode_RoundTrip(t *testing.T) {
	hash, err := HashOtpCode("482913")
	require.NoError(t, err)
	assert.NotEqual(t, "482913", hash)

	assert.NoError(t, CompareOtpCode(hash, "482913"))
	assert.Error(t, CompareOtpCode(hash, "482914"))
}

func TestHashOtpCode_EmptyCode(t *testing.T) {
	_, err := HashOtpCode("")
	assert.Error(t, err)
}
