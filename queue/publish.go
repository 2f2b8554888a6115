// Package queue moves verification work through RabbitMQ. Submitting a
// transaction hash publishes a message; a consumer pool verifies each
// delivery and acknowledges it exactly once.
package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/types"
)

// Publisher enqueues verification messages on a durable queue.
type Publisher struct {
	ch    *amqp.Channel
	queue string
	log   logger.Logger
}

func NewPublisher(conn *amqp.Connection, queueName string, log logger.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.NoopLogger{}
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, types.Internal("failed to open channel: %v", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, types.Internal("failed to declare queue %s: %v", queueName, err)
	}

	return &Publisher{ch: ch, queue: queueName, log: log}, nil
}

// Publish enqueues one verification message as persistent JSON.
func (p *Publisher) Publish(ctx context.Context, msg types.TransactionVerificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return types.Internal("failed to encode verification message: %v", err)
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return types.Internal("failed to publish verification message: %v", err)
	}

	p.log.Info("queued transaction for verification", map[string]any{
		"pending_payment_id": msg.PendingPaymentID,
		"tx_hash":            msg.TxHash,
		"network":            msg.Network,
	})
	return nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
