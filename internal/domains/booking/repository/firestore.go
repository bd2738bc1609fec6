package repository

import (
	"context"
	"errors"
	"fmt"
	"rental/infras/otel"
	"rental/internal/domains/booking/model"
	"rental/shared/constant"
	"rental/shared/failure"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionUsers    = "users"
	collectionBookings = "bookings"

	pathStatus      = "basicInfo.status"
	pathPaymentInfo = "paymentInfo"
	pathVersion     = "version"
	pathUpdatedAt   = "updatedAt"
)

// firestoreImpl stores bookings at users/{userId}/bookings/{bookingId}. Conditional updates run
// inside a transaction that re-reads the version.
type firestoreImpl struct {
	client *firestore.Client
	otel   otel.Otel
}

func NewFirestore(client *firestore.Client, otel otel.Otel) Booking {
	return &firestoreImpl{
		client: client,
		otel:   otel,
	}
}

func (f *firestoreImpl) doc(userID, bookingID string) *firestore.DocumentRef {
	return f.client.Collection(collectionUsers).Doc(userID).Collection(collectionBookings).Doc(bookingID)
}

func decodeSnapshot(snap *firestore.DocumentSnapshot, userID, bookingID string) (model.Booking, error) {
	var booking model.Booking

	if err := snap.DataTo(&booking); err != nil {
		return booking, fmt.Errorf("failed to decode booking document: %w", err)
	}

	booking.ID = bookingID
	booking.UserID = userID

	return booking, nil
}

func (f *firestoreImpl) Get(ctx context.Context, userID, bookingID string) (res model.Booking, err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.firestore.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	snap, err := f.doc(userID, bookingID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return res, failure.NotFound("booking not found") //nolint:wrapcheck
	}

	if err != nil {
		return res, fmt.Errorf("failed to get booking document: %w", err)
	}

	return decodeSnapshot(snap, userID, bookingID)
}

func (f *firestoreImpl) Create(ctx context.Context, booking model.Booking) (id string, err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.firestore.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	_, err = f.doc(booking.UserID, booking.ID).Create(ctx, booking)
	if status.Code(err) == codes.AlreadyExists {
		return "", failure.Conflict("booking already exists") //nolint:wrapcheck
	}

	if err != nil {
		return "", fmt.Errorf("failed to create booking document: %w", err)
	}

	return booking.ID, nil
}

func (f *firestoreImpl) ConditionalUpdate(ctx context.Context, userID, bookingID string, expectedVersion int64, patch model.Patch) (err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.firestore.ConditionalUpdate")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	ref := f.doc(userID, bookingID)

	err = f.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return failure.NotFound("booking not found") //nolint:wrapcheck
		}

		if err != nil {
			return fmt.Errorf("failed to read booking document: %w", err)
		}

		current, err := decodeSnapshot(snap, userID, bookingID)
		if err != nil {
			return err
		}

		if current.Version != expectedVersion {
			return failure.VersionConflict(model.EntityName) //nolint:wrapcheck
		}

		updates := []firestore.Update{
			{Path: pathVersion, Value: expectedVersion + 1},
			{Path: pathUpdatedAt, Value: patch.UpdatedAt},
		}

		if patch.Status != nil {
			updates = append(updates, firestore.Update{Path: pathStatus, Value: string(*patch.Status)})
		}

		if patch.PaymentInfo != nil {
			updates = append(updates, firestore.Update{Path: pathPaymentInfo, Value: *patch.PaymentInfo})
		}

		return tx.Update(ref, updates) //nolint:wrapcheck
	})

	var fail *failure.Failure
	if errors.As(err, &fail) {
		return fail
	}

	if err != nil {
		return fmt.Errorf("failed to update booking document: %w", err)
	}

	return nil
}

func (f *firestoreImpl) Delete(ctx context.Context, userID, bookingID string) (err error) {
	ctx, scope := f.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.firestore.Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	_, err = f.doc(userID, bookingID).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return failure.NotFound("booking not found") //nolint:wrapcheck
	}

	if err != nil {
		return fmt.Errorf("failed to delete booking document: %w", err)
	}

	return nil
}
