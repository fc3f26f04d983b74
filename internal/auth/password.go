package auth

import (
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with the stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrUnauthenticated
	}
	return nil
}
