package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fitkit/authserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitBroker moves reset-code jobs through a RabbitMQ queue.
type RabbitBroker struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queueDurable bool
}

// NewRabbitBroker dials RabbitMQ and opens a channel with the configured
// prefetch.
func NewRabbitBroker(cfg config.RabbitMQConfig) (*RabbitBroker, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	return &RabbitBroker{
		conn:         conn,
		channel:      ch,
		queueDurable: cfg.QueueDurable,
	}, nil
}

func (b *RabbitBroker) Publish(ctx context.Context, queue string, job ResetCodeJob) (string, error) {
	if strings.TrimSpace(queue) == "" {
		return "", errors.New("queue name is required")
	}
	if _, err := b.declareQueue(queue); err != nil {
		return "", err
	}

	body, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	messageID := newMessageID()
	err = b.channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   messageID,
		Body:        body,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

func (b *RabbitBroker) Consume(ctx context.Context, queue string, handler JobHandler) error {
	if strings.TrimSpace(queue) == "" {
		return errors.New("queue name is required")
	}
	if _, err := b.declareQueue(queue); err != nil {
		return err
	}

	consumerTag := fmt.Sprintf("mailer-%s", newMessageID())
	deliveries, err := b.channel.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = b.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			var job ResetCodeJob
			if err := json.Unmarshal(delivery.Body, &job); err != nil {
				// Malformed payloads can never succeed; drop them.
				_ = delivery.Nack(false, false)
				continue
			}
			if err := handler(ctx, job); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (b *RabbitBroker) Close() error {
	if b.channel != nil {
		_ = b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *RabbitBroker) declareQueue(name string) (amqp.Queue, error) {
	return b.channel.QueueDeclare(name, b.queueDurable, false, false, false, nil)
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
