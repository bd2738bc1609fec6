package repository

import (
	"context"
	"errors"
	"fmt"
	"rental/infras/otel"
	"rental/internal/domains/notification/model"
	"rental/internal/events"
	"rental/shared/constant"
	"rental/shared/failure"
	"rental/shared/timezone"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionDispatchRecords = "dispatchRecords"
	collectionEvents          = "notificationEvents"
)

type eventDocument struct {
	EventType  string            `firestore:"eventType"`
	BookingID  string            `firestore:"bookingId"`
	UserID     string            `firestore:"userId"`
	OccurredAt time.Time         `firestore:"occurredAt"`
	Snapshot   map[string]string `firestore:"payloadSnapshot"`
	CreatedAt  time.Time         `firestore:"createdAt"`
}

// firestoreImpl keeps dispatch records at dispatchRecords/{dedupKey}. Document Create fails
// when the key exists, which makes it the conditional insert.
type firestoreImpl struct {
	client *firestore.Client
	otel   otel.Otel
}

func NewFirestore(client *firestore.Client, otel otel.Otel) Notification {
	return &firestoreImpl{
		client: client,
		otel:   otel,
	}
}

func (f *firestoreImpl) record(dedupKey string) *firestore.DocumentRef {
	return f.client.Collection(collectionDispatchRecords).Doc(dedupKey)
}

func (f *firestoreImpl) SaveEvent(ctx context.Context, event events.LifecycleEvent) (created bool, err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.firestore.SaveEvent")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	_, err = f.client.Collection(collectionEvents).Doc(event.ID).Create(ctx, eventDocument{
		EventType:  string(event.Type),
		BookingID:  event.BookingID,
		UserID:     event.UserID,
		OccurredAt: event.OccurredAt,
		Snapshot:   event.Snapshot.Clone(),
		CreatedAt:  timezone.Now(),
	})
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to create notification event document: %w", err)
	}

	return true, nil
}

func (f *firestoreImpl) Claim(ctx context.Context, record model.DispatchRecord, now time.Time) (stored model.DispatchRecord, claimed bool, err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.firestore.Claim")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	ref := f.record(record.DedupKey)

	_, err = ref.Create(ctx, record)
	if err == nil {
		return record, true, nil
	}

	if status.Code(err) != codes.AlreadyExists {
		return stored, false, fmt.Errorf("failed to create dispatch record document: %w", err)
	}

	err = f.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return fmt.Errorf("failed to read dispatch record document: %w", err)
		}

		if err = snap.DataTo(&stored); err != nil {
			return fmt.Errorf("failed to decode dispatch record document: %w", err)
		}

		claimed = stored.Claimable(now)
		if !claimed {
			return nil
		}

		stored.EventID = record.EventID
		stored.LeaseUntil = record.LeaseUntil
		stored.UpdatedAt = now

		return tx.Set(ref, stored) //nolint:wrapcheck
	})
	if err != nil {
		return model.DispatchRecord{}, false, fmt.Errorf("failed to take over dispatch record: %w", err)
	}

	return stored, claimed, nil
}

// updatePending runs fn against a pending record inside a transaction. Terminal records are
// left untouched.
func (f *firestoreImpl) updatePending(ctx context.Context, dedupKey string, fn func(*model.DispatchRecord)) error {
	ref := f.record(dedupKey)

	err := f.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return failure.NotFound("dispatch record not found") //nolint:wrapcheck
		}

		if err != nil {
			return fmt.Errorf("failed to read dispatch record document: %w", err)
		}

		var record model.DispatchRecord
		if err = snap.DataTo(&record); err != nil {
			return fmt.Errorf("failed to decode dispatch record document: %w", err)
		}

		if record.Outcome.Terminal() {
			return nil
		}

		fn(&record)

		return tx.Set(ref, record) //nolint:wrapcheck
	})

	var fail *failure.Failure
	if errors.As(err, &fail) {
		return fail
	}

	if err != nil {
		return fmt.Errorf("failed to update dispatch record document: %w", err)
	}

	return nil
}

func (f *firestoreImpl) RecordAttempt(ctx context.Context, dedupKey string, attempt int, lastError string, leaseUntil, now time.Time) (err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.firestore.RecordAttempt")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return f.updatePending(ctx, dedupKey, func(record *model.DispatchRecord) {
		record.Attempt = attempt
		record.LastError = lastError
		record.LeaseUntil = leaseUntil
		record.UpdatedAt = now
	})
}

func (f *firestoreImpl) Complete(ctx context.Context, dedupKey string, attempt int, now time.Time) (err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.firestore.Complete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return f.updatePending(ctx, dedupKey, func(record *model.DispatchRecord) {
		record.Attempt = attempt
		record.Outcome = model.OutcomeSuccess
		record.LastError = ""
		record.UpdatedAt = now
	})
}

func (f *firestoreImpl) Fail(ctx context.Context, dedupKey string, attempt int, lastError string, now time.Time) (err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.firestore.Fail")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return f.updatePending(ctx, dedupKey, func(record *model.DispatchRecord) {
		record.Attempt = attempt
		record.Outcome = model.OutcomePermanentlyFailed
		record.LastError = lastError
		record.UpdatedAt = now
	})
}

func (f *firestoreImpl) Get(ctx context.Context, dedupKey string) (record model.DispatchRecord, err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.firestore.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	snap, err := f.record(dedupKey).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return record, failure.NotFound("dispatch record not found") //nolint:wrapcheck
	}

	if err != nil {
		return record, fmt.Errorf("failed to get dispatch record document: %w", err)
	}

	if err = snap.DataTo(&record); err != nil {
		return record, fmt.Errorf("failed to decode dispatch record document: %w", err)
	}

	return record, nil
}

func (f *firestoreImpl) ListByBooking(ctx context.Context, bookingID string) (records []model.DispatchRecord, err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".notification.firestore.ListByBooking")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	iter := f.client.Collection(collectionDispatchRecords).
		Where("bookingId", "==", bookingID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to list dispatch records: %w", err)
		}

		var record model.DispatchRecord
		if err = snap.DataTo(&record); err != nil {
			return nil, fmt.Errorf("failed to decode dispatch record document: %w", err)
		}

		records = append(records, record)
	}

	return records, nil
}
