package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	published []ResetCodeJob
	queue     string
	failNext  bool
}

func (b *fakeBroker) Publish(_ context.Context, queue string, job ResetCodeJob) (string, error) {
	if b.failNext {
		b.failNext = false
		return "", errors.New("broker down")
	}
	b.queue = queue
	b.published = append(b.published, job)
	return "msg-1", nil
}

func (b *fakeBroker) Consume(ctx context.Context, _ string, handler JobHandler) error {
	for _, job := range b.published {
		if err := handler(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeBroker) Close() error { return nil }

type countingSender struct {
	delivered []ResetCodeJob
	err       error
}

func (s *countingSender) SendResetCode(_ context.Context, email, code string) error {
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, ResetCodeJob{Email: email, Code: code})
	return nil
}

func (s *countingSender) Close() error { return nil }

func TestQueueSenderPublishesJob(t *testing.T) {
	broker := &fakeBroker{}
	sender := NewQueueSender(broker, "password-reset-emails")

	require.NoError(t, sender.SendResetCode(context.Background(), "alice@example.com", "123456"))

	require.Len(t, broker.published, 1)
	assert.Equal(t, "password-reset-emails", broker.queue)
	assert.Equal(t, ResetCodeJob{Email: "alice@example.com", Code: "123456"}, broker.published[0])
}

func TestQueueSenderSurfacesPublishFailure(t *testing.T) {
	broker := &fakeBroker{failNext: true}
	sender := NewQueueSender(broker, "password-reset-emails")

	err := sender.SendResetCode(context.Background(), "alice@example.com", "123456")
	assert.Error(t, err)
	assert.Empty(t, broker.published)
}

func TestWorkerDeliversQueuedJobs(t *testing.T) {
	broker := &fakeBroker{published: []ResetCodeJob{
		{Email: "alice@example.com", Code: "123456"},
		{Email: "bob@example.com", Code: "654321"},
	}}
	delivery := &countingSender{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	worker := NewWorker(broker, "password-reset-emails", delivery, log)
	require.NoError(t, worker.Run(context.Background()))

	assert.Equal(t, broker.published, delivery.delivered)
}

func TestWorkerPropagatesDeliveryFailure(t *testing.T) {
	broker := &fakeBroker{published: []ResetCodeJob{{Email: "alice@example.com", Code: "123456"}}}
	delivery := &countingSender{err: errors.New("smtp unreachable")}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	worker := NewWorker(broker, "password-reset-emails", delivery, log)
	assert.Error(t, worker.Run(context.Background()))
}

func TestResetBodyContainsCode(t *testing.T) {
	body := resetBody("123456")
	assert.True(t, strings.Contains(body, "123456"))
	assert.True(t, strings.Contains(body, "expire in 10 minutes"))
}
