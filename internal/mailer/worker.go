package mailer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/userhub/apiserver/internal/mq"
)

// Worker consumes mail jobs from the queue and delivers them over SMTP.
type Worker struct {
	queue     *mq.MQ
	queueName string
	sender    *SMTPSender
	log       *slog.Logger
}

// NewWorker constructs a mail delivery worker.
func NewWorker(queue *mq.MQ, queueName string, sender *SMTPSender, log *slog.Logger) *Worker {
	return &Worker{
		queue:     queue,
		queueName: queueName,
		sender:    sender,
		log:       log,
	}
}

// Run blocks consuming the mail queue until ctx is done. Delivery errors
// nack the message for redelivery by the broker.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("mail worker started", "queue", w.queueName)
	return w.queue.Subscribe(ctx, w.queueName, func(ctx context.Context, msg mq.Message) error {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			// Malformed jobs can never succeed; ack and log instead
			// of poisoning the queue.
			w.log.Error("dropping malformed mail job", "message_id", msg.ID, "error", err)
			return nil
		}
		if err := w.sender.Deliver(job); err != nil {
			w.log.Error("mail delivery failed", "job_id", job.ID, "kind", job.Kind, "error", err)
			return err
		}
		w.log.Info("mail delivered", "job_id", job.ID, "kind", job.Kind)
		return nil
	})
}
