package mailer

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/userhub/apiserver/types"
)

// Publisher is the queue operation QueueMailer depends on.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// QueueMailer enqueues mail jobs on a message queue for the delivery
// worker to pick up.
type QueueMailer struct {
	queue     Publisher
	queueName string
}

var _ Mailer = (*QueueMailer)(nil)

// NewQueueMailer constructs a QueueMailer publishing to the named queue.
func NewQueueMailer(queue Publisher, queueName string) *QueueMailer {
	return &QueueMailer{queue: queue, queueName: queueName}
}

func (m *QueueMailer) SendWelcome(ctx context.Context, user types.User, url string) error {
	return m.enqueue(ctx, KindWelcome, user, url)
}

func (m *QueueMailer) SendPasswordReset(ctx context.Context, user types.User, url string) error {
	return m.enqueue(ctx, KindPasswordReset, user, url)
}

func (m *QueueMailer) enqueue(ctx context.Context, kind string, user types.User, url string) error {
	job := Job{
		ID:   uuid.NewString(),
		Kind: kind,
		To:   user.Email,
		Name: user.Name,
		URL:  url,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = m.queue.Publish(ctx, m.queueName, data, map[string]string{"kind": kind})
	return err
}
