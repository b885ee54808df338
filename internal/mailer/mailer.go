// Package mailer handles outbound transactional mail. The API process
// only enqueues mail jobs; actual delivery happens in the worker process,
// keeping the SMTP round-trip out of the request path.
package mailer

import (
	"context"

	"github.com/userhub/apiserver/types"
)

// Mail job kinds.
const (
	KindWelcome       = "welcome"
	KindPasswordReset = "password_reset"
)

// Job describes one piece of transactional mail to deliver.
type Job struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	To   string `json:"to"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Mailer dispatches transactional mail for a user.
type Mailer interface {
	// SendWelcome greets a freshly signed-up user.
	SendWelcome(ctx context.Context, user types.User, url string) error

	// SendPasswordReset delivers the one-time reset link. The raw token
	// inside url exists nowhere else.
	SendPasswordReset(ctx context.Context, user types.User, url string) error
}
