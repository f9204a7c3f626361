package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with bcrypt, cost 10.
func HashPassword(password string) (string, error) {
	const HASH_ROUNDS = 10
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), HASH_ROUNDS)
	return string(bytes), err
}

// ComparePasswords reports whether the plaintext matches the stored hash.
// A malformed hash is treated as a mismatch, never an error.
func ComparePasswords(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
