// Package auth implements the credential primitives of the system:
// password hashing, session token issuance and verification, and
// password-reset token generation.
package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost matches the adaptive-hash work factor used for every stored
// credential.
const bcryptCost = 10

// HashPassword produces a salted bcrypt digest of the plaintext password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// hash. A mismatch is not an error.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
