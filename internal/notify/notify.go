// Package notify delivers password-reset codes to users out of band.
//
// The service depends only on the Sender interface. The SMTP backend
// delivers inline; the RabbitMQ and Pub/Sub backends enqueue a typed job
// that the mailer worker consumes and delivers via SMTP.
package notify

import (
	"context"
	"fmt"

	"github.com/fitkit/authserver/config"
)

// Sender delivers a reset code to the given email address. A nil return
// means the code was handed off: either delivered (SMTP) or durably
// enqueued (queue backends).
type Sender interface {
	SendResetCode(ctx context.Context, email, code string) error
	Close() error
}

// NewSenderFromConfig builds the Sender selected by cfg.Notifier.Backend.
func NewSenderFromConfig(ctx context.Context, cfg config.Config) (Sender, error) {
	switch cfg.Notifier.Backend {
	case "smtp":
		return NewSMTPSender(cfg.SMTP), nil
	case "rabbitmq", "pubsub":
		broker, err := NewBrokerFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewQueueSender(broker, cfg.Notifier.Queue), nil
	default:
		return nil, fmt.Errorf("unknown notifier backend %q", cfg.Notifier.Backend)
	}
}

// NewBrokerFromConfig builds the queue broker selected by
// cfg.Notifier.Backend. Used by queue-backed senders and the mailer worker.
func NewBrokerFromConfig(ctx context.Context, cfg config.Config) (Broker, error) {
	switch cfg.Notifier.Backend {
	case "rabbitmq":
		return NewRabbitBroker(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubBroker(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("notifier backend %q has no queue broker", cfg.Notifier.Backend)
	}
}
