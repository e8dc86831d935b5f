package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	require.True(t, VerifyPassword(hash, "secret"))
	require.False(t, VerifyPassword(hash, "incorrect"))
}

func TestUnusablePasswordNeverVerifies(t *testing.T) {
	placeholder, err := UnusablePassword()
	require.NoError(t, err)

	require.True(t, IsUnusablePassword(placeholder))
	require.True(t, IsUnusablePassword(""))
	require.False(t, VerifyPassword(placeholder, placeholder))
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(42)
	require.NoError(t, err)
	require.Len(t, token, 56)
}

func TestRandomPassword(t *testing.T) {
	pw, err := RandomPassword(24)
	require.NoError(t, err)
	require.Len(t, pw, 24)
	for _, r := range pw {
		require.True(t, strings.ContainsRune(passwordAlphabet, r))
	}

	other, err := RandomPassword(24)
	require.NoError(t, err)
	require.NotEqual(t, pw, other)

	_, err = RandomPassword(0)
	require.Error(t, err)
}
