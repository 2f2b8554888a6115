package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/metrics"
	"github.com/tosynthegeek/stabuse/types"
)

type fakeAcknowledger struct {
	acked         bool
	nacked        bool
	nackedRequeue bool
	calls         int
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	f.calls++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.nackedRequeue = requeue
	f.calls++
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.calls++
	return nil
}

type fakeVerifier struct {
	settlement *types.Settlement
	err        error
	got        types.TransactionVerificationMessage
}

func (f *fakeVerifier) Verify(ctx context.Context, msg types.TransactionVerificationMessage) (*types.Settlement, error) {
	f.got = msg
	return f.settlement, f.err
}

type fakeNotifier struct {
	url     string
	payload types.WebhookPayload
	err     error
	called  bool
}

func (f *fakeNotifier) Notify(ctx context.Context, url string, payload types.WebhookPayload) error {
	f.called = true
	f.url = url
	f.payload = payload
	return f.err
}

func delivery(t *testing.T, ack *fakeAcknowledger, msg any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func testConsumer(verifier Verifier, notifier Notifier) *Consumer {
	return &Consumer{
		verifier: verifier,
		notifier: notifier,
		log:      logger.NoopLogger{},
		rec:      metrics.NoopRecorder{},
		now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestHandleAcksAndNotifiesOnSuccess(t *testing.T) {
	verifier := &fakeVerifier{settlement: &types.Settlement{PaymentID: 42, WebhookURL: "https://hooks.example/7/tag"}}
	notifier := &fakeNotifier{}
	ack := &fakeAcknowledger{}

	c := testConsumer(verifier, notifier)
	c.handle(context.Background(), delivery(t, ack, types.TransactionVerificationMessage{
		PendingPaymentID: 7,
		TxHash:           "0xabc",
		RPCURL:           "https://rpc.example",
		Network:          "ethereum",
	}))

	require.True(t, ack.acked)
	require.Equal(t, 1, ack.calls, "delivery must be acknowledged exactly once")

	require.True(t, notifier.called)
	require.Equal(t, "https://hooks.example/7/tag", notifier.url)
	require.Equal(t, types.WebhookPayload{
		PaymentID: 42,
		Status:    types.StatusCompleted,
		TxHash:    "0xabc",
		Timestamp: "2025-06-01T12:00:00Z",
	}, notifier.payload)
}

func TestHandleRequeuesRetryableFailure(t *testing.T) {
	verifier := &fakeVerifier{err: types.Internal("rpc unavailable")}
	notifier := &fakeNotifier{}
	ack := &fakeAcknowledger{}

	c := testConsumer(verifier, notifier)
	c.handle(context.Background(), delivery(t, ack, types.TransactionVerificationMessage{PendingPaymentID: 7}))

	require.True(t, ack.nacked)
	require.True(t, ack.nackedRequeue)
	require.Equal(t, 1, ack.calls)
	require.False(t, notifier.called)
}

func TestHandleDropsTerminalFailure(t *testing.T) {
	for name, err := range map[string]error{
		"invalid data": types.InvalidData("amount mismatch"),
		"not found":    types.NotFound("no such pending payment"),
		"unauthorized": types.Unauthorized("bad credential"),
	} {
		t.Run(name, func(t *testing.T) {
			verifier := &fakeVerifier{err: err}
			notifier := &fakeNotifier{}
			ack := &fakeAcknowledger{}

			c := testConsumer(verifier, notifier)
			c.handle(context.Background(), delivery(t, ack, types.TransactionVerificationMessage{PendingPaymentID: 7}))

			require.True(t, ack.nacked)
			require.False(t, ack.nackedRequeue)
			require.Equal(t, 1, ack.calls)
			require.False(t, notifier.called)
		})
	}
}

func TestHandleDropsMalformedMessage(t *testing.T) {
	verifier := &fakeVerifier{}
	ack := &fakeAcknowledger{}

	c := testConsumer(verifier, &fakeNotifier{})
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")})

	require.True(t, ack.nacked)
	require.False(t, ack.nackedRequeue)
	require.Equal(t, 1, ack.calls)
}

func TestHandleAcksEvenWhenWebhookFails(t *testing.T) {
	verifier := &fakeVerifier{settlement: &types.Settlement{PaymentID: 42, WebhookURL: "https://hooks.example/7/tag"}}
	notifier := &fakeNotifier{err: types.Internal("endpoint down")}
	ack := &fakeAcknowledger{}

	c := testConsumer(verifier, notifier)
	c.handle(context.Background(), delivery(t, ack, types.TransactionVerificationMessage{PendingPaymentID: 7}))

	require.True(t, ack.acked)
	require.False(t, ack.nacked)
	require.Equal(t, 1, ack.calls)
}
