/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/userhub/apiserver/config"
	"github.com/userhub/apiserver/internal/mailer"
	"github.com/userhub/apiserver/internal/mq"
)

// workerCmd represents the worker command.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the mail delivery worker",
	Long: `Consumes queued mail jobs and delivers them over SMTP. Usage:

	apiserver worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := slog.New(slog.NewTextHandler(os.Stderr, nil))

		backend, err := queueBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		queue := mq.New(backend)
		defer queue.Close()

		sender := mailer.NewSMTPSender(cfg.Mail)
		worker := mailer.NewWorker(queue, cfg.Mail.Queue, sender, log)

		if err := worker.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func queueBackend(ctx context.Context, cfg config.Config) (mq.Backend, error) {
	switch cfg.Mail.Backend {
	case "rabbitmq":
		return mq.NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return mq.NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("mail backend %q has no queue to consume", cfg.Mail.Backend)
	}
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
