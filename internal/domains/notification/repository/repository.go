package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"rental/config"
	"rental/infras/otel"
	"rental/infras/postgres"
	"rental/internal/domains/notification/model"
	"rental/internal/events"
	"rental/shared/constant"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
)

// Notification persists lifecycle events and the dispatch record of every notification they
// fan out to. Records are append-only and never leave a terminal outcome.
type Notification interface {
	// SaveEvent stores event unless one with the same id exists and reports whether it wrote.
	SaveEvent(ctx context.Context, event events.LifecycleEvent) (bool, error)
	// Claim inserts record as pending unless its dedup key is taken. An existing pending record
	// whose lease expired before now is taken over with record's lease instead. The record as
	// stored is returned with whether the caller now owns it.
	Claim(ctx context.Context, record model.DispatchRecord, now time.Time) (model.DispatchRecord, bool, error)
	// RecordAttempt stores a failed attempt on a pending record and extends its lease.
	RecordAttempt(ctx context.Context, dedupKey string, attempt int, lastError string, leaseUntil, now time.Time) error
	Complete(ctx context.Context, dedupKey string, attempt int, now time.Time) error
	Fail(ctx context.Context, dedupKey string, attempt int, lastError string, now time.Time) error
	Get(ctx context.Context, dedupKey string) (model.DispatchRecord, error)
	ListByBooking(ctx context.Context, bookingID string) ([]model.DispatchRecord, error)
}

// Archive keeps a copy of every lifecycle event outside the operational store.
type Archive interface {
	Store(ctx context.Context, event events.LifecycleEvent) error
}

// New picks the driver named by STORE_DRIVER.
func New(cfg *config.Config, db *postgres.Connection, client *firestore.Client, otel otel.Otel) Notification {
	switch cfg.Store.Driver {
	case constant.StoreDriverMemory:
		return NewMemory()
	case constant.StoreDriverFirestore:
		return NewFirestore(client, otel)
	case constant.StoreDriverPostgres:
		return NewPostgres(db, otel)
	default:
		log.Fatal().Str("driver", cfg.Store.Driver).Msg("unknown notification store driver")

		return nil
	}
}
