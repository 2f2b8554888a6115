package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/metrics"
	"github.com/tosynthegeek/stabuse/types"
)

// Verifier checks one queued transaction and settles its payment.
type Verifier interface {
	Verify(ctx context.Context, msg types.TransactionVerificationMessage) (*types.Settlement, error)
}

// Notifier delivers the settlement webhook.
type Notifier interface {
	Notify(ctx context.Context, url string, payload types.WebhookPayload) error
}

// Consumer drains the verification queue. Every delivery is either
// acked (verified and settled), nacked with requeue (transient
// failure) or nacked without requeue (the transaction can never
// verify), never more than one of those.
type Consumer struct {
	ch       *amqp.Channel
	queue    string
	verifier Verifier
	notifier Notifier
	log      logger.Logger
	rec      metrics.Recorder
	now      func() time.Time
}

func NewConsumer(conn *amqp.Connection, queueName string, verifier Verifier, notifier Notifier, log logger.Logger, rec metrics.Recorder) (*Consumer, error) {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, types.Internal("failed to open channel: %v", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, types.Internal("failed to declare queue %s: %v", queueName, err)
	}

	return &Consumer{
		ch:       ch,
		queue:    queueName,
		verifier: verifier,
		notifier: notifier,
		log:      log,
		rec:      rec,
		now:      time.Now,
	}, nil
}

// Run consumes deliveries until the context is cancelled or the
// channel closes. Each delivery is handled on its own goroutine since
// EVM verification can block on confirmations for minutes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return types.Internal("failed to start consuming %s: %v", c.queue, err)
	}

	c.log.Info("verification consumer started", map[string]any{"queue": c.queue})
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return types.Internal("delivery channel for %s closed", c.queue)
			}
			go c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var msg types.TransactionVerificationMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.log.Error("discarding malformed verification message", map[string]any{"error": err.Error()})
		c.nack(d, false)
		return
	}

	settlement, err := c.verifier.Verify(ctx, msg)
	if err != nil {
		requeue := types.Retryable(err)
		c.log.Error("verification failed", map[string]any{
			"pending_payment_id": msg.PendingPaymentID,
			"tx_hash":            msg.TxHash,
			"requeue":            requeue,
			"error":              err.Error(),
		})
		c.nack(d, requeue)
		return
	}

	if err := d.Ack(false); err != nil {
		c.log.Error("failed to ack delivery", map[string]any{"error": err.Error()})
	}

	payload := types.WebhookPayload{
		PaymentID: int(settlement.PaymentID),
		Status:    types.StatusCompleted,
		TxHash:    msg.TxHash,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}
	if err := c.notifier.Notify(ctx, settlement.WebhookURL, payload); err != nil {
		// the payment is settled either way
		c.rec.IncCounter(metrics.EventWebhookFailed, map[string]string{"network": msg.Network})
		c.log.Warn("webhook delivery failed", map[string]any{
			"payment_id": settlement.PaymentID,
			"url":        settlement.WebhookURL,
			"error":      err.Error(),
		})
		return
	}
	c.rec.IncCounter(metrics.EventWebhookDelivered, map[string]string{"network": msg.Network})
}

func (c *Consumer) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		c.log.Error("failed to nack delivery", map[string]any{"error": err.Error()})
	}
}

func (c *Consumer) Close() error {
	return c.ch.Close()
}
