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

	"github.com/fitkit/authserver/config"
	"github.com/fitkit/authserver/internal/notify"
	"github.com/spf13/cobra"
)

// mailerCmd runs the worker that drains queued reset-code jobs and
// delivers them over SMTP. Only meaningful with a queue notifier backend.
var mailerCmd = &cobra.Command{
	Use:   "mailer",
	Short: "Runs the reset-email delivery worker",
	Long: `Runs the reset-email delivery worker. It consumes the reset-code
queue (RabbitMQ or Pub/Sub, per NOTIFIER_BACKEND) and delivers each
job via SMTP. Usage:

	authserver mailer
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		broker, err := notify.NewBrokerFromConfig(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("init broker failed: %w", err)
		}
		defer func() {
			_ = broker.Close()
		}()

		log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		worker := notify.NewWorker(broker, cfg.Notifier.Queue, notify.NewSMTPSender(cfg.SMTP), log)

		if err := worker.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mailerCmd)
}
