package events

//go:generate go run go.uber.org/mock/mockgen -source=./publisher.go -destination=./mocks/publisher_mock.go -package=mocks

import (
	"context"
	"rental/config"
	"rental/infras/kafka"
	"rental/infras/otel"
	"rental/shared/constant"
	"sync"

	"github.com/rs/zerolog/log"
)

// Publisher hands lifecycle events to whatever consumes them. Implementations must not
// block on consumer work.
type Publisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
}

// Drainer is implemented by publishers that deliver in the background.
type Drainer interface {
	Drain(ctx context.Context) error
}

// NewPublisher selects the transport named by NOTIFICATION_TRANSPORT. The local bus hands
// events to handler in process; with kafka the worker binary consumes the topic instead.
func NewPublisher(cfg *config.Config, client kafka.Client, handler Handler, otel otel.Otel) Publisher {
	if cfg.Notification.Transport == constant.TransportKafka {
		log.Info().Str("topic", cfg.Kafka.LifecycleTopic).Msg("Publishing lifecycle events to Kafka")

		return NewKafka(client, cfg.Kafka.LifecycleTopic, otel)
	}

	bus := NewLocal()
	bus.Subscribe(handler)

	log.Info().Msg("Publishing lifecycle events on the in-process bus")

	return bus
}

// Handler consumes one lifecycle event.
type Handler interface {
	Handle(ctx context.Context, event LifecycleEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event LifecycleEvent) error

func (f HandlerFunc) Handle(ctx context.Context, event LifecycleEvent) error {
	return f(ctx, event)
}

// Local is an in-process bus. Each published event is delivered to every subscriber on
// its own goroutine, detached from the publisher's cancellation.
type Local struct {
	mu       sync.RWMutex
	handlers []Handler
	inflight sync.WaitGroup
}

func NewLocal() *Local {
	return &Local{}
}

// Subscribe registers handler for every event published afterwards.
func (l *Local) Subscribe(handler Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.handlers = append(l.handlers, handler)
}

// Publish implements Publisher.
func (l *Local) Publish(ctx context.Context, event LifecycleEvent) error {
	l.mu.RLock()
	handlers := append([]Handler(nil), l.handlers...)
	l.mu.RUnlock()

	detached := context.WithoutCancel(ctx)

	for _, handler := range handlers {
		l.inflight.Add(1)

		go func(handler Handler, event LifecycleEvent) {
			defer l.inflight.Done()

			if err := handler.Handle(detached, event); err != nil {
				log.Error().
					Err(err).
					Str("eventId", event.ID).
					Str("eventType", string(event.Type)).
					Str("bookingId", event.BookingID).
					Msg("lifecycle event handler failed")
			}
		}(handler, LifecycleEvent{
			ID:         event.ID,
			Type:       event.Type,
			BookingID:  event.BookingID,
			UserID:     event.UserID,
			OccurredAt: event.OccurredAt,
			Snapshot:   event.Snapshot.Clone(),
		})
	}

	return nil
}

// Drain waits until every delivered event has been handled or ctx is done.
func (l *Local) Drain(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		l.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
