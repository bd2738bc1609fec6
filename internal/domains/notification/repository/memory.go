package repository

import (
	"context"
	"rental/internal/domains/notification/model"
	"rental/internal/events"
	"rental/shared/failure"
	"slices"
	"strings"
	"sync"
	"time"
)

// Memory keeps events and dispatch records in process. Claim is atomic under the mutex, which
// makes it the conditional insert the dispatcher relies on.
type Memory struct {
	mu      sync.Mutex
	events  map[string]events.LifecycleEvent
	records map[string]model.DispatchRecord
}

func NewMemory() *Memory {
	return &Memory{
		events:  map[string]events.LifecycleEvent{},
		records: map[string]model.DispatchRecord{},
	}
}

func (m *Memory) SaveEvent(ctx context.Context, event events.LifecycleEvent) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[event.ID]; ok {
		return false, nil
	}

	event.Snapshot = event.Snapshot.Clone()
	m.events[event.ID] = event

	return true, nil
}

func (m *Memory) Claim(ctx context.Context, record model.DispatchRecord, now time.Time) (model.DispatchRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.DispatchRecord{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[record.DedupKey]
	if !ok {
		m.records[record.DedupKey] = record

		return record, true, nil
	}

	if !existing.Claimable(now) {
		return existing, false, nil
	}

	existing.EventID = record.EventID
	existing.LeaseUntil = record.LeaseUntil
	existing.UpdatedAt = now
	m.records[record.DedupKey] = existing

	return existing, true, nil
}

// update applies fn to a pending record. Terminal records are left as they are.
func (m *Memory) update(ctx context.Context, dedupKey string, fn func(*model.DispatchRecord)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[dedupKey]
	if !ok {
		return failure.NotFound("dispatch record not found") //nolint:wrapcheck
	}

	if record.Outcome.Terminal() {
		return nil
	}

	fn(&record)
	m.records[dedupKey] = record

	return nil
}

func (m *Memory) RecordAttempt(ctx context.Context, dedupKey string, attempt int, lastError string, leaseUntil, now time.Time) error {
	return m.update(ctx, dedupKey, func(record *model.DispatchRecord) {
		record.Attempt = attempt
		record.LastError = lastError
		record.LeaseUntil = leaseUntil
		record.UpdatedAt = now
	})
}

func (m *Memory) Complete(ctx context.Context, dedupKey string, attempt int, now time.Time) error {
	return m.update(ctx, dedupKey, func(record *model.DispatchRecord) {
		record.Attempt = attempt
		record.Outcome = model.OutcomeSuccess
		record.LastError = ""
		record.UpdatedAt = now
	})
}

func (m *Memory) Fail(ctx context.Context, dedupKey string, attempt int, lastError string, now time.Time) error {
	return m.update(ctx, dedupKey, func(record *model.DispatchRecord) {
		record.Attempt = attempt
		record.Outcome = model.OutcomePermanentlyFailed
		record.LastError = lastError
		record.UpdatedAt = now
	})
}

func (m *Memory) Get(ctx context.Context, dedupKey string) (model.DispatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.DispatchRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[dedupKey]
	if !ok {
		return model.DispatchRecord{}, failure.NotFound("dispatch record not found") //nolint:wrapcheck
	}

	return record, nil
}

func (m *Memory) ListByBooking(ctx context.Context, bookingID string) ([]model.DispatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var records []model.DispatchRecord

	for _, record := range m.records {
		if record.BookingID == bookingID {
			records = append(records, record)
		}
	}

	slices.SortFunc(records, func(a, b model.DispatchRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.DedupKey, b.DedupKey)
	})

	return records, nil
}
