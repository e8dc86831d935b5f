package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// UnusablePasswordPrefix marks a stored hash that can never verify.
const UnusablePasswordPrefix = "!"

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#%^_+=-"

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
func VerifyPassword(hashedPassword, password string) bool {
	if IsUnusablePassword(hashedPassword) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// UnusablePassword returns a credential placeholder that VerifyPassword always rejects.
func UnusablePassword() (string, error) {
	suffix, err := GenerateToken(30)
	if err != nil {
		return "", err
	}
	return UnusablePasswordPrefix + suffix, nil
}

// IsUnusablePassword reports whether hash was produced by UnusablePassword.
func IsUnusablePassword(hash string) bool {
	return hash == "" || strings.HasPrefix(hash, UnusablePasswordPrefix)
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// RandomPassword draws length characters uniformly from a mixed alphabet.
func RandomPassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("crypto: password length must be positive")
	}

	limit := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
