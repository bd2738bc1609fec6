package repository

import (
	"context"
	"rental/internal/domains/booking/model"
	"rental/shared/failure"
	"sync"
)

type memoryKey struct {
	userID    string
	bookingID string
}

// Memory keeps bookings in process. Every read and write copies, so callers never share state
// with the store.
type Memory struct {
	mu       sync.Mutex
	bookings map[memoryKey]model.Booking
}

func NewMemory() *Memory {
	return &Memory{bookings: map[memoryKey]model.Booking{}}
}

func (m *Memory) Get(ctx context.Context, userID, bookingID string) (model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return model.Booking{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[memoryKey{userID, bookingID}]
	if !ok {
		return model.Booking{}, failure.NotFound("booking not found") //nolint:wrapcheck
	}

	return booking.Clone(), nil
}

func (m *Memory) Create(ctx context.Context, booking model.Booking) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey{booking.UserID, booking.ID}
	if _, ok := m.bookings[key]; ok {
		return "", failure.Conflict("booking already exists") //nolint:wrapcheck
	}

	m.bookings[key] = booking.Clone()

	return booking.ID, nil
}

func (m *Memory) ConditionalUpdate(ctx context.Context, userID, bookingID string, expectedVersion int64, patch model.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey{userID, bookingID}

	current, ok := m.bookings[key]
	if !ok {
		return failure.NotFound("booking not found") //nolint:wrapcheck
	}

	if current.Version != expectedVersion {
		return failure.VersionConflict(model.EntityName) //nolint:wrapcheck
	}

	m.bookings[key] = current.Apply(patch)

	return nil
}

func (m *Memory) Delete(ctx context.Context, userID, bookingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey{userID, bookingID}
	if _, ok := m.bookings[key]; !ok {
		return failure.NotFound("booking not found") //nolint:wrapcheck
	}

	delete(m.bookings, key)

	return nil
}
