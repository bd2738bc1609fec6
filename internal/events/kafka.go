package events

import (
	"context"
	"fmt"
	"rental/config"
	"rental/infras/kafka"
	"rental/infras/otel"
	"rental/shared/constant"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

// Kafka publishes lifecycle events to a topic keyed by booking id.
type Kafka struct {
	client kafka.Client
	topic  string
	otel   otel.Otel
}

func NewKafka(client kafka.Client, topic string, otel otel.Otel) *Kafka {
	return &Kafka{
		client: client,
		topic:  topic,
		otel:   otel,
	}
}

// Publish implements Publisher.
func (k *Kafka) Publish(ctx context.Context, event LifecycleEvent) (err error) {
	ctx, scope := k.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Publish")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttributes(map[string]any{
		"event.id":   event.ID,
		"event.type": string(event.Type),
		"booking.id": event.BookingID,
	})

	err = k.client.SendMessages(ctx, k.topic, kafka.Message{Key: event.BookingID, Value: event})
	if err != nil {
		return fmt.Errorf("failed to publish lifecycle event: %w", err)
	}

	return nil
}

// Consumer feeds lifecycle events from a Kafka topic into a Handler.
type Consumer struct {
	client  kafka.Client
	group   string
	topic   string
	handler Handler
	otel    otel.Otel
}

func NewConsumer(client kafka.Client, group, topic string, handler Handler, otel otel.Otel) *Consumer {
	return &Consumer{
		client:  client,
		group:   group,
		topic:   topic,
		handler: handler,
		otel:    otel,
	}
}

// NewLifecycleConsumer reads the configured lifecycle topic with the configured consumer group.
func NewLifecycleConsumer(cfg *config.Config, client kafka.Client, handler Handler, otel otel.Otel) *Consumer {
	return NewConsumer(client, cfg.Kafka.ConsumerGroup, cfg.Kafka.LifecycleTopic, handler, otel)
}

// Run blocks until ctx is done, the topic cannot be read or an event could not be handled.
// Messages that do not decode are skipped; they would fail the same way on every delivery.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info().Str("topic", c.topic).Str("group", c.group).Msg("Consuming lifecycle events")

	return c.client.Consume(ctx, c.group, c.topic, c.handle) //nolint:wrapcheck
}

func (c *Consumer) handle(ctx context.Context, message kafkaGo.Message) (err error) {
	ctx, scope := c.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Consume")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	event, decodeErr := kafka.Decode[LifecycleEvent](message)
	if decodeErr != nil {
		scope.TraceError(decodeErr)
		log.Error().Err(decodeErr).Str("key", string(message.Key)).Int64("offset", message.Offset).Msg("skipping undecodable lifecycle event")

		return nil
	}

	if !event.Type.Valid() {
		log.Warn().Str("eventId", event.ID).Str("eventType", string(event.Type)).Msg("skipping unknown lifecycle event")

		return nil
	}

	return c.handler.Handle(ctx, event) //nolint:wrapcheck
}

// Shutdown closes the Kafka client and flushes traces.
func (c *Consumer) Shutdown(ctx context.Context) error {
	if err := c.client.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Kafka client")
	}

	return c.otel.Shutdown(ctx) //nolint:wrapcheck
}
