// Package queue_publisher publishes asset cleanup events to RabbitMQ.
// Errors are logged and returned so callers can ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	q "github.com/zinlatt/courseware/internal/queue"
)

const cleanupQueueName = "asset.cleanup"

// Publisher satisfies asset.CleanupPublisher. It dials per publish: the
// event volume is failed deletions only, so connection churn is not a
// concern and the process holds no broker state between requests.
type Publisher struct {
	Log zerolog.Logger
}

func NewPublisher(log zerolog.Logger) *Publisher { return &Publisher{Log: log} }

// PublishCleanup enqueues one failed blob deletion for background retry.
// Messages are marked persistent so they survive broker restarts. The
// function never panics; any error is logged and returned so the caller
// can choose to ignore it.
func (p *Publisher) PublishCleanup(ctx context.Context, deletionKey, url string) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		p.Log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive
	// broker restarts.
	if _, err := ch.QueueDeclare(cleanupQueueName, true, false, false, false, nil); err != nil {
		p.Log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	payload, err := json.Marshal(q.AssetCleanupEvent{
		DeletionKey: deletionKey,
		URL:         url,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ch.PublishWithContext(pubCtx, "", cleanupQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	}); err != nil {
		p.Log.Warn().Err(err).Str("key", deletionKey).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}
