package notify

import (
	"context"
	"log/slog"
)

// Worker drains queued reset-code jobs and delivers each one through the
// given sender. Run by the mailer command.
type Worker struct {
	broker Broker
	queue  string
	sender Sender
	log    *slog.Logger
}

func NewWorker(broker Broker, queue string, sender Sender, log *slog.Logger) *Worker {
	return &Worker{broker: broker, queue: queue, sender: sender, log: log}
}

// Run blocks consuming the queue until ctx is done. Delivery failures are
// logged and nacked for redelivery.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("mailer worker started", "queue", w.queue)
	return w.broker.Consume(ctx, w.queue, func(ctx context.Context, job ResetCodeJob) error {
		if err := w.sender.SendResetCode(ctx, job.Email, job.Code); err != nil {
			w.log.Error("reset email delivery failed", "email", job.Email, "error", err)
			return err
		}
		w.log.Info("reset email delivered", "email", job.Email)
		return nil
	})
}
