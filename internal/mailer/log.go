package mailer

import (
	"context"
	"log/slog"

	"github.com/userhub/apiserver/types"
)

// LogMailer writes mail to the log instead of a queue. Used in development
// when no broker is configured.
type LogMailer struct {
	log *slog.Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendWelcome(ctx context.Context, user types.User, url string) error {
	m.log.InfoContext(ctx, "welcome mail", "to", user.Email, "url", url)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, user types.User, url string) error {
	m.log.InfoContext(ctx, "password reset mail", "to", user.Email, "url", url)
	return nil
}
