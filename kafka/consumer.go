package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/salonos/payments/pkg/logger"
)

// EventHandler processes one decoded payment event
type EventHandler func(ctx context.Context, event PaymentEvent) error

// Consumer subscribes to the payment events topic and dispatches by
// event type. The monitoring side uses it to ingest lifecycle events
// into the payment log.
type Consumer struct {
	group    sarama.ConsumerGroup
	handlers map[string]EventHandler
	topics   []string
}

// NewConsumer creates a consumer group member
func NewConsumer(brokers []string, groupID string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Msg("Kafka consumer initialized")

	return &Consumer{
		group:    group,
		handlers: make(map[string]EventHandler),
		topics:   []string{TopicPaymentEvents},
	}, nil
}

// RegisterHandler binds a handler to an event type
func (c *Consumer) RegisterHandler(eventType string, handler EventHandler) {
	c.handlers[eventType] = handler
}

// Start consumes until the context is cancelled. Consume returns on
// rebalance, so it runs in a loop.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{handlers: c.handlers}

	go func() {
		for err := range c.group.Errors() {
			logger.Logger.Error().Err(err).Msg("Kafka consumer group error")
		}
	}()

	for {
		if err := c.group.Consume(ctx, c.topics, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Logger.Error().Err(err).Msg("Kafka consume failed, retrying")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close closes the consumer group
func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handlers map[string]EventHandler
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h.handleMessage(session.Context(), msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

func (h *consumerGroupHandler) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	// Extract trace context propagated through the message headers
	carrier := propagation.MapCarrier{}
	for _, header := range msg.Headers {
		carrier[string(header.Key)] = string(header.Value)
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	tracer := otel.Tracer("kafka-consumer")
	ctx, span := tracer.Start(ctx, "kafka.consume.payment_event",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.kafka.partition", int(msg.Partition)),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		span.RecordError(err)
		logger.Error(ctx).
			Err(err).
			Str("topic", msg.Topic).
			Msg("Failed to decode payment event, skipping")
		return
	}

	// Self-originated events are already reflected in the local payment
	// log; ingesting them again would double-count lifecycle activity.
	if event.Origin == processOrigin {
		logger.Debug(ctx).
			Str("event_id", event.EventID).
			Str("event_type", event.EventType).
			Msg("Skipping self-originated payment event")
		return
	}

	handler, ok := h.handlers[event.EventType]
	if !ok {
		logger.Debug(ctx).
			Str("event_type", event.EventType).
			Msg("No handler for event type, skipping")
		return
	}

	if err := handler(ctx, event); err != nil {
		span.RecordError(err)
		logger.Error(ctx).
			Err(err).
			Str("event_id", event.EventID).
			Str("event_type", event.EventType).
			Str("tenant_id", event.TenantID).
			Msg("Payment event handler failed")
		return
	}

	logger.Info(ctx).
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("tenant_id", event.TenantID).
		Msg("Payment event processed")
}
