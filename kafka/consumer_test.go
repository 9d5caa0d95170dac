package kafka

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonos/payments/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("kafka-test", false)
	os.Exit(m.Run())
}

func deliver(t *testing.T, h *consumerGroupHandler, event PaymentEvent) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	h.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicPaymentEvents,
		Value: payload,
	})
}

func TestHandleMessageSkipsSelfOriginatedEvents(t *testing.T) {
	var handled []PaymentEvent
	h := &consumerGroupHandler{handlers: map[string]EventHandler{
		EventTypePaymentCompleted: func(ctx context.Context, event PaymentEvent) error {
			handled = append(handled, event)
			return nil
		},
	}}

	event := PaymentEvent{
		EventID:   "evt-1",
		EventType: EventTypePaymentCompleted,
		TenantID:  "salon-1",
		PaymentID: uuid.New(),
	}

	// An event this process published is already in its own payment log.
	event.Origin = processOrigin
	deliver(t, h, event)
	assert.Empty(t, handled)

	// The same event from another instance is ingested.
	event.EventID = "evt-2"
	event.Origin = "f2a4c9d1-0000-0000-0000-000000000000"
	deliver(t, h, event)
	require.Len(t, handled, 1)
	assert.Equal(t, "evt-2", handled[0].EventID)
	assert.Equal(t, "salon-1", handled[0].TenantID)
}

func TestHandleMessageIgnoresUnknownEventType(t *testing.T) {
	var handled int
	h := &consumerGroupHandler{handlers: map[string]EventHandler{
		EventTypePaymentFailed: func(ctx context.Context, event PaymentEvent) error {
			handled++
			return nil
		},
	}}

	deliver(t, h, PaymentEvent{
		EventID:   "evt-3",
		EventType: "payment.unknown",
		TenantID:  "salon-1",
		Origin:    "other-instance",
	})
	assert.Zero(t, handled)
}
