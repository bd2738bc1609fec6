package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"rental/infras/otel"
	"rental/infras/postgres"
	"rental/internal/domains/notification/model"
	"rental/internal/events"
	"rental/shared"
	"rental/shared/constant"
	"rental/shared/dto"
	"rental/shared/failure"
	gRepo "rental/shared/repository"
	"rental/shared/timezone"
	"time"
)

type eventRow struct {
	ID         string    `db:"event_id"`
	EventType  string    `db:"event_type"`
	BookingID  string    `db:"booking_id"`
	UserID     string    `db:"user_id"`
	OccurredAt time.Time `db:"occurred_at"`
	Snapshot   []byte    `db:"payload_snapshot"`
	CreatedAt  time.Time `db:"created_at"`
}

type postgresImpl struct {
	records gRepo.Repository[model.DispatchRecord]
	events  gRepo.Repository[eventRow]
	otel    otel.Otel
}

func NewPostgres(db *postgres.Connection, otel otel.Otel) Notification {
	return &postgresImpl{
		records: gRepo.NewRepository[model.DispatchRecord](model.EntityDispatchRecord, model.TableDispatchRecords, model.FieldDedupKey, db, otel),
		events:  gRepo.NewRepository[eventRow](model.EntityEvent, model.TableEvents, model.FieldEventID, db, otel),
		otel:    otel,
	}
}

func byDedupKey(dedupKey string) dto.FilterGroup {
	return shared.FilterByID(dedupKey, model.FieldDedupKey, model.TableDispatchRecords)
}

// pendingOnly narrows filter to records that have not reached a terminal outcome.
func pendingOnly(filter dto.FilterGroup) dto.FilterGroup {
	filter.Filters = append(filter.Filters, dto.Filter{
		ArgName:  "pending_outcome",
		Field:    model.FieldOutcome,
		Value:    string(model.OutcomePending),
		Operator: dto.FilterOperatorEq,
	})

	return filter
}

func (p *postgresImpl) SaveEvent(ctx context.Context, event events.LifecycleEvent) (bool, error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.SaveEvent")
	defer scope.End()

	snapshot, err := json.Marshal(event.Snapshot)
	if err != nil {
		scope.TraceError(err)

		return false, fmt.Errorf("failed to encode payload snapshot: %w", err)
	}

	return p.events.InsertIgnore(ctx, eventRow{ //nolint:wrapcheck
		ID:         event.ID,
		EventType:  string(event.Type),
		BookingID:  event.BookingID,
		UserID:     event.UserID,
		OccurredAt: event.OccurredAt,
		Snapshot:   snapshot,
		CreatedAt:  timezone.Now(),
	}, model.FieldEventID)
}

// Claim relies on the dedup_key primary key: only one INSERT can win, and only one UPDATE can
// move an expired lease forward because the filter pins the old lease.
func (p *postgresImpl) Claim(ctx context.Context, record model.DispatchRecord, now time.Time) (model.DispatchRecord, bool, error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.Claim")
	defer scope.End()

	inserted, err := p.records.InsertIgnore(ctx, record, model.FieldDedupKey)
	if err != nil {
		return model.DispatchRecord{}, false, err //nolint:wrapcheck
	}

	if inserted {
		return record, true, nil
	}

	filter := pendingOnly(byDedupKey(record.DedupKey))
	filter.Filters = append(filter.Filters, dto.Filter{
		ArgName:  "lease_expired_at",
		Field:    model.FieldLeaseUntil,
		Value:    now,
		Operator: dto.FilterOperatorLessEq,
	})

	affected, err := p.records.Update(ctx, map[string]any{
		model.FieldEventID:    record.EventID,
		model.FieldLeaseUntil: record.LeaseUntil,
		model.FieldUpdatedAt:  now,
	}, filter)
	if err != nil {
		return model.DispatchRecord{}, false, err //nolint:wrapcheck
	}

	stored, err := p.Get(ctx, record.DedupKey)
	if err != nil {
		return model.DispatchRecord{}, false, err
	}

	return stored, affected == 1, nil
}

func (p *postgresImpl) updatePending(ctx context.Context, dedupKey string, mod map[string]any) error {
	_, err := p.records.Update(ctx, mod, pendingOnly(byDedupKey(dedupKey)))

	return err //nolint:wrapcheck
}

func (p *postgresImpl) RecordAttempt(ctx context.Context, dedupKey string, attempt int, lastError string, leaseUntil, now time.Time) error {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.RecordAttempt")
	defer scope.End()

	return p.updatePending(ctx, dedupKey, map[string]any{
		model.FieldAttempt:    attempt,
		model.FieldLastError:  lastError,
		model.FieldLeaseUntil: leaseUntil,
		model.FieldUpdatedAt:  now,
	})
}

func (p *postgresImpl) Complete(ctx context.Context, dedupKey string, attempt int, now time.Time) error {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.Complete")
	defer scope.End()

	return p.updatePending(ctx, dedupKey, map[string]any{
		model.FieldAttempt:   attempt,
		model.FieldOutcome:   string(model.OutcomeSuccess),
		model.FieldLastError: constant.Empty,
		model.FieldUpdatedAt: now,
	})
}

func (p *postgresImpl) Fail(ctx context.Context, dedupKey string, attempt int, lastError string, now time.Time) error {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.Fail")
	defer scope.End()

	return p.updatePending(ctx, dedupKey, map[string]any{
		model.FieldAttempt:   attempt,
		model.FieldOutcome:   string(model.OutcomePermanentlyFailed),
		model.FieldLastError: lastError,
		model.FieldUpdatedAt: now,
	})
}

func (p *postgresImpl) Get(ctx context.Context, dedupKey string) (model.DispatchRecord, error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.Get")
	defer scope.End()

	record, err := p.records.Get(ctx, byDedupKey(dedupKey))
	if err != nil {
		return record, err //nolint:wrapcheck
	}

	if record.DedupKey == constant.Empty {
		return record, failure.NotFound("dispatch record not found") //nolint:wrapcheck
	}

	return record, nil
}

func (p *postgresImpl) ListByBooking(ctx context.Context, bookingID string) ([]model.DispatchRecord, error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.ListByBooking")
	defer scope.End()

	params := dto.QueryParams{SortBy: model.FieldCreatedAt, SortDir: dto.SortDirAsc}
	return p.records.GetAll(ctx, params, shared.FilterByID(bookingID, model.FieldBookingID, model.TableDispatchRecords)) //nolint:wrapcheck
}
