package types

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Known user roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultImage is assigned to accounts that never uploaded an avatar.
const DefaultImage = "default.jpg"

// User represents an account in the system.
// It contains identity, credentials, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID bson.ObjectID `json:"id" bson:"_id,omitempty"`

	// Name is the user's display or full name.
	Name string `json:"name" bson:"name"`

	// Email is the user's email address, stored lowercase and trimmed.
	// A unique index on this field enforces one account per address.
	Email string `json:"email" bson:"email"`

	// Role indicates the user's authorization level within the system
	// (e.g., "admin", "user").
	Role string `json:"role" bson:"role"`

	// Image is the object-storage key of the user's avatar.
	Image string `json:"image" bson:"image"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" bson:"password_hash"`

	// PasswordChangedAt is set whenever the password is mutated after
	// signup. Session tokens issued before this instant are stale.
	PasswordChangedAt *time.Time `json:"-" bson:"password_changed_at,omitempty"`

	// PasswordResetToken holds the SHA-256 hash of the outstanding
	// password-reset token. The raw token is never persisted.
	PasswordResetToken string `json:"-" bson:"password_reset_token,omitempty"`

	// PasswordResetExpires bounds the reset token's validity window.
	// Present exactly when PasswordResetToken is present.
	PasswordResetExpires *time.Time `json:"-" bson:"password_reset_expires,omitempty"`

	// Active is false for soft-deleted accounts. Inactive users are
	// excluded from lookups.
	Active bool `json:"-" bson:"active"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ChangedPasswordAfter reports whether the password was mutated after the
// given token issuance time. Comparison is at whole-second resolution to
// match the JWT iat claim.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Truncate(time.Second).Before(u.PasswordChangedAt.Truncate(time.Second))
}

// ClearResetToken removes the outstanding reset token. The hash and expiry
// are present or absent together.
func (u *User) ClearResetToken() {
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
}

// SetResetToken records a new outstanding reset token hash and expiry.
func (u *User) SetResetToken(hash string, expires time.Time) {
	u.PasswordResetToken = hash
	u.PasswordResetExpires = &expires
}
