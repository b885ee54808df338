package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResetTokenTTL bounds the exposure window of an outstanding reset token.
const ResetTokenTTL = 10 * time.Minute

// ResetToken pairs a raw password-reset token with the values that may be
// persisted. Only Hash and ExpiresAt are ever stored; Raw is delivered to
// the user once and discarded.
type ResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// NewResetToken generates a cryptographically random 32-byte token.
func NewResetToken(now time.Time) (ResetToken, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ResetToken{}, err
	}
	raw := hex.EncodeToString(buf[:])
	return ResetToken{
		Raw:       raw,
		Hash:      HashResetToken(raw),
		ExpiresAt: now.Add(ResetTokenTTL),
	}, nil
}

// HashResetToken returns the hex SHA-256 digest of a raw reset token, the
// only form the store ever sees.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
