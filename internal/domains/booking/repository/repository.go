package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"rental/config"
	"rental/infras/otel"
	"rental/infras/postgres"
	"rental/internal/domains/booking/model"
	"rental/shared/constant"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
)

// Booking is the booking store. Absent documents surface as failure.NotFound and a stale
// expectedVersion as failure.VersionConflict; anything else is an infrastructure error.
type Booking interface {
	Get(ctx context.Context, userID, bookingID string) (model.Booking, error)
	Create(ctx context.Context, booking model.Booking) (string, error)
	ConditionalUpdate(ctx context.Context, userID, bookingID string, expectedVersion int64, patch model.Patch) error
	Delete(ctx context.Context, userID, bookingID string) error
}

// New picks the driver named by STORE_DRIVER.
func New(cfg *config.Config, db *postgres.Connection, client *firestore.Client, otel otel.Otel) Booking {
	switch cfg.Store.Driver {
	case constant.StoreDriverMemory:
		return NewMemory()
	case constant.StoreDriverFirestore:
		return NewFirestore(client, otel)
	case constant.StoreDriverPostgres:
		return NewPostgres(db, otel)
	default:
		log.Fatal().Str("driver", cfg.Store.Driver).Msg("unknown booking store driver")

		return nil
	}
}
