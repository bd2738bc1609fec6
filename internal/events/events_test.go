package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"rental/config"
	"rental/infras/kafka"
	kafkaMocks "rental/infras/kafka/mocks"
	otelMocks "rental/infras/otel/mocks"
	"rental/internal/events"
	"rental/internal/events/mocks"
	"rental/shared/constant"
	"sync"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func sampleEvent() events.LifecycleEvent {
	return events.LifecycleEvent{
		ID:         "evt-1",
		Type:       events.EventConfirmed,
		BookingID:  "b1",
		UserID:     "u1",
		OccurredAt: time.Date(2025, 1, 9, 8, 0, 0, 0, time.UTC),
		Snapshot:   events.Snapshot{"bookingId": "b1", "carId": "C1"},
	}
}

func TestLocal_DeliversToEverySubscriber(t *testing.T) {
	bus := events.NewLocal()

	var (
		mu       sync.Mutex
		received []string
	)

	for _, name := range []string{"payment", "notification"} {
		bus.Subscribe(events.HandlerFunc(func(_ context.Context, event events.LifecycleEvent) error {
			mu.Lock()
			defer mu.Unlock()

			received = append(received, name+":"+event.ID)

			return nil
		}))
	}

	require.NoError(t, bus.Publish(context.Background(), sampleEvent()))
	require.NoError(t, bus.Drain(context.Background()))

	assert.ElementsMatch(t, []string{"payment:evt-1", "notification:evt-1"}, received)
}

func TestLocal_HandlerOutlivesPublisherContext(t *testing.T) {
	bus := events.NewLocal()
	release := make(chan struct{})
	handled := make(chan error, 1)

	bus.Subscribe(events.HandlerFunc(func(ctx context.Context, _ events.LifecycleEvent) error {
		<-release
		handled <- ctx.Err()

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, sampleEvent()))
	cancel()
	close(release)

	require.NoError(t, bus.Drain(context.Background()))
	assert.NoError(t, <-handled)
}

func TestLocal_SnapshotIsCopied(t *testing.T) {
	bus := events.NewLocal()
	seen := make(chan string, 1)
	release := make(chan struct{})

	bus.Subscribe(events.HandlerFunc(func(_ context.Context, event events.LifecycleEvent) error {
		<-release
		seen <- event.Snapshot["carId"]

		return nil
	}))

	event := sampleEvent()
	require.NoError(t, bus.Publish(context.Background(), event))

	event.Snapshot["carId"] = "C2"
	close(release)

	require.NoError(t, bus.Drain(context.Background()))
	assert.Equal(t, "C1", <-seen)
}

func TestLocal_DrainHonoursContext(t *testing.T) {
	bus := events.NewLocal()
	block := make(chan struct{})

	bus.Subscribe(events.HandlerFunc(func(_ context.Context, _ events.LifecycleEvent) error {
		<-block

		return errors.New("late")
	}))

	require.NoError(t, bus.Publish(context.Background(), sampleEvent()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, bus.Drain(ctx), context.DeadlineExceeded)

	close(block)
	require.NoError(t, bus.Drain(context.Background()))
}

func TestKafka_PublishKeysByBooking(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := kafkaMocks.NewMockClient(ctrl)
	event := sampleEvent()

	client.EXPECT().
		SendMessages(gomock.Any(), "booking.lifecycle", kafka.Message{Key: "b1", Value: event}).
		Return(nil)

	publisher := events.NewKafka(client, "booking.lifecycle", otelMocks.NewOtel())

	assert.NoError(t, publisher.Publish(context.Background(), event))
}

func TestKafka_PublishError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := kafkaMocks.NewMockClient(ctrl)
	tracer := otelMocks.NewOtel()

	client.EXPECT().SendMessages(gomock.Any(), "booking.lifecycle", gomock.Any()).Return(errors.New("broker unavailable"))

	publisher := events.NewKafka(client, "booking.lifecycle", tracer)

	assert.Error(t, publisher.Publish(context.Background(), sampleEvent()))
	assert.Len(t, tracer.Errors(), 1)
}

func TestConsumer_DecodesAndHandles(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := kafkaMocks.NewMockClient(ctrl)
	handler := mocks.NewMockHandler(ctrl)
	event := sampleEvent()

	value, err := json.Marshal(event)
	require.NoError(t, err)

	unknown, err := json.Marshal(events.LifecycleEvent{ID: "evt-2", Type: "rescheduled"})
	require.NoError(t, err)

	client.EXPECT().
		Consume(gomock.Any(), "rental-dispatcher", "booking.lifecycle", gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string, handle kafka.MessageHandler) error {
			assert.NoError(t, handle(ctx, kafkaGo.Message{Key: []byte("b1"), Value: value}))
			assert.NoError(t, handle(ctx, kafkaGo.Message{Key: []byte("b1"), Value: unknown}))
			assert.NoError(t, handle(ctx, kafkaGo.Message{Key: []byte("b1"), Value: []byte("{")}))

			return nil
		})

	handler.EXPECT().Handle(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got events.LifecycleEvent) error {
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, event.Snapshot, got.Snapshot)
		assert.True(t, event.OccurredAt.Equal(got.OccurredAt))

		return nil
	})

	consumer := events.NewConsumer(client, "rental-dispatcher", "booking.lifecycle", handler, otelMocks.NewOtel())

	assert.NoError(t, consumer.Run(context.Background()))
}

func TestConsumer_HandlerFailureIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := kafkaMocks.NewMockClient(ctrl)
	handler := mocks.NewMockHandler(ctrl)

	value, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	storeDown := errors.New("store unavailable")

	client.EXPECT().
		Consume(gomock.Any(), "rental-dispatcher", "booking.lifecycle", gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string, handle kafka.MessageHandler) error {
			return handle(ctx, kafkaGo.Message{Key: []byte("b1"), Value: value})
		})

	handler.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(storeDown)

	consumer := events.NewConsumer(client, "rental-dispatcher", "booking.lifecycle", handler, otelMocks.NewOtel())

	assert.ErrorIs(t, consumer.Run(context.Background()), storeDown)
}

func TestEventType_Valid(t *testing.T) {
	for _, eventType := range []events.EventType{events.EventCreated, events.EventConfirmed, events.EventCompleted, events.EventCancelled} {
		assert.True(t, eventType.Valid(), eventType)
	}

	assert.False(t, events.EventType("rescheduled").Valid())
}

func TestNewPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := kafkaMocks.NewMockClient(ctrl)

	t.Run("local bus delivers to the handler", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Notification.Transport = constant.TransportLocal

		handled := make(chan string, 1)
		publisher := events.NewPublisher(cfg, client, events.HandlerFunc(func(_ context.Context, event events.LifecycleEvent) error {
			handled <- event.ID

			return nil
		}), otelMocks.NewOtel())

		require.NoError(t, publisher.Publish(context.Background(), sampleEvent()))

		drainer, ok := publisher.(events.Drainer)
		require.True(t, ok)
		require.NoError(t, drainer.Drain(context.Background()))
		assert.Equal(t, "evt-1", <-handled)
	})

	t.Run("kafka publishes to the lifecycle topic", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Notification.Transport = constant.TransportKafka
		cfg.Kafka.LifecycleTopic = "booking.lifecycle"

		client.EXPECT().SendMessages(gomock.Any(), "booking.lifecycle", gomock.Any()).Return(nil)

		publisher := events.NewPublisher(cfg, client, nil, otelMocks.NewOtel())

		require.NoError(t, publisher.Publish(context.Background(), sampleEvent()))
	})
}
