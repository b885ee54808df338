package types

import (
	"testing"
	"time"
)

func TestChangedPasswordAfter(t *testing.T) {
	t.Parallel()

	changed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		changedAt *time.Time
		issuedAt  time.Time
		want      bool
	}{
		{"never changed", nil, changed, false},
		{"issued before change", &changed, changed.Add(-time.Hour), true},
		{"issued after change", &changed, changed.Add(time.Hour), false},
		{"issued same second", &changed, changed.Add(500 * time.Millisecond), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := User{PasswordChangedAt: tc.changedAt}
			if got := u.ChangedPasswordAfter(tc.issuedAt); got != tc.want {
				t.Fatalf("ChangedPasswordAfter(%v) = %v, want %v", tc.issuedAt, got, tc.want)
			}
		})
	}
}

func TestResetTokenFieldsTogether(t *testing.T) {
	t.Parallel()

	var u User
	expires := time.Now().Add(10 * time.Minute)

	u.SetResetToken("deadbeef", expires)
	if u.PasswordResetToken == "" || u.PasswordResetExpires == nil {
		t.Fatalf("both reset fields must be set together")
	}

	u.ClearResetToken()
	if u.PasswordResetToken != "" || u.PasswordResetExpires != nil {
		t.Fatalf("both reset fields must be cleared together")
	}
}
