package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	BcryptCost = bcrypt.MinCost

	hash, err := HashPassword("Secret123")
	require.NoError(t, err)
	assert.True(t, CheckPassword("Secret123", hash))
	assert.False(t, CheckPassword("secret123", hash))
	assert.False(t, CheckPassword("anything", ""))
}

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		want     error
	}{
		{"short1", ErrPasswordTooShort},
		{"password123", ErrPasswordCommon},
		{"12345677", ErrPasswordNoLetter},
		{"abcdefgh", ErrPasswordNoDigit},
		{"runway2026", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidatePasswordStrength(tc.password), tc.password)
	}
}
