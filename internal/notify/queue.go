package notify

import "context"

// ResetCodeJob is the payload enqueued for the mailer worker.
type ResetCodeJob struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// JobHandler processes a dequeued job. Return an error to signal a
// redelivery/nack.
type JobHandler func(ctx context.Context, job ResetCodeJob) error

// Broker moves reset-code jobs through a named queue. Implementations:
// RabbitBroker, PubSubBroker.
type Broker interface {
	// Publish enqueues a job and returns the broker-assigned message ID.
	Publish(ctx context.Context, queue string, job ResetCodeJob) (string, error)

	// Consume blocks, delivering jobs to handler until ctx is done.
	Consume(ctx context.Context, queue string, handler JobHandler) error

	Close() error
}

// QueueSender satisfies Sender by enqueueing jobs instead of delivering
// inline. ForgotPassword still fails loudly when the enqueue fails, so the
// caller-visible semantics match direct delivery.
type QueueSender struct {
	broker Broker
	queue  string
}

func NewQueueSender(broker Broker, queue string) *QueueSender {
	return &QueueSender{broker: broker, queue: queue}
}

func (s *QueueSender) SendResetCode(ctx context.Context, email, code string) error {
	_, err := s.broker.Publish(ctx, s.queue, ResetCodeJob{Email: email, Code: code})
	return err
}

func (s *QueueSender) Close() error {
	return s.broker.Close()
}
