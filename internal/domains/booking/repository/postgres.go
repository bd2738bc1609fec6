package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"rental/infras/otel"
	"rental/infras/postgres"
	"rental/internal/domains/booking/model"
	"rental/shared"
	"rental/shared/constant"
	"rental/shared/dto"
	"rental/shared/failure"
	gRepo "rental/shared/repository"
	"strings"
	"time"
)

// bookingRow is the relational shape of a booking. Contact and payment details are
// stored as jsonb so the CAS write covers the whole record in one row.
type bookingRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	CarID       string    `db:"car_id"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	StartCity   string    `db:"start_city"`
	Status      string    `db:"status"`
	ContactInfo []byte    `db:"contact_info"`
	PaymentInfo []byte    `db:"payment_info"`
	Version     int64     `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toRow(booking model.Booking) (bookingRow, error) {
	contact, err := marshalNullable(booking.ContactInfo)
	if err != nil {
		return bookingRow{}, err
	}

	payment, err := marshalNullable(booking.PaymentInfo)
	if err != nil {
		return bookingRow{}, err
	}

	return bookingRow{
		ID:          booking.ID,
		UserID:      booking.UserID,
		CarID:       booking.BasicInfo.CarID,
		StartDate:   booking.BasicInfo.StartDate,
		EndDate:     booking.BasicInfo.EndDate,
		StartCity:   booking.BasicInfo.StartCity,
		Status:      string(booking.BasicInfo.Status),
		ContactInfo: contact,
		PaymentInfo: payment,
		Version:     booking.Version,
		CreatedAt:   booking.CreatedAt,
		UpdatedAt:   booking.UpdatedAt,
	}, nil
}

func (r bookingRow) toModel() (model.Booking, error) {
	booking := model.Booking{
		ID:     r.ID,
		UserID: r.UserID,
		BasicInfo: model.BasicInfo{
			CarID:     r.CarID,
			StartDate: r.StartDate,
			EndDate:   r.EndDate,
			StartCity: r.StartCity,
			Status:    model.Status(r.Status),
			UserID:    r.UserID,
		},
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	if len(r.ContactInfo) > 0 {
		booking.ContactInfo = &model.ContactInfo{}
		if err := json.Unmarshal(r.ContactInfo, booking.ContactInfo); err != nil {
			return booking, fmt.Errorf("failed to decode contact info: %w", err)
		}
	}

	if len(r.PaymentInfo) > 0 {
		booking.PaymentInfo = &model.PaymentInfo{}
		if err := json.Unmarshal(r.PaymentInfo, booking.PaymentInfo); err != nil {
			return booking, fmt.Errorf("failed to decode payment info: %w", err)
		}
	}

	return booking, nil
}

func marshalNullable[T any](value *T) ([]byte, error) {
	if value == nil {
		return nil, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", value, err)
	}

	return raw, nil
}

type postgresImpl struct {
	gRepo.Repository[bookingRow]
	otel otel.Otel
}

func NewPostgres(db *postgres.Connection, otel otel.Otel) Booking {
	return &postgresImpl{
		Repository: gRepo.NewRepository[bookingRow](model.EntityName, model.TableName, model.FieldID, db, otel),
		otel:       otel,
	}
}

func ownerFilter(userID, bookingID string) dto.FilterGroup {
	return shared.FilterByOwner(userID, model.FieldUserID, bookingID, model.FieldID, model.TableName)
}

func (p *postgresImpl) Get(ctx context.Context, userID, bookingID string) (model.Booking, error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.Get")
	defer scope.End()

	row, err := p.Repository.Get(ctx, ownerFilter(userID, bookingID))
	if err != nil {
		return model.Booking{}, err //nolint:wrapcheck
	}

	if row.ID == constant.Empty {
		return model.Booking{}, failure.NotFound("booking not found") //nolint:wrapcheck
	}

	return row.toModel()
}

func (p *postgresImpl) Create(ctx context.Context, booking model.Booking) (string, error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.Create")
	defer scope.End()

	row, err := toRow(booking)
	if err != nil {
		scope.TraceError(err)

		return "", err
	}

	if err = p.Repository.Insert(ctx, row); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return "", failure.Conflict("booking already exists") //nolint:wrapcheck
		}

		return "", err //nolint:wrapcheck
	}

	return booking.ID, nil
}

// ConditionalUpdate writes patch only while the row still carries expectedVersion.
// Zero affected rows means the row is gone or has moved on; a follow-up read tells which.
func (p *postgresImpl) ConditionalUpdate(ctx context.Context, userID, bookingID string, expectedVersion int64, patch model.Patch) error {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ConditionalUpdate")
	defer scope.End()

	mod := map[string]any{
		model.FieldVersion:   expectedVersion + 1,
		model.FieldUpdatedAt: patch.UpdatedAt,
	}

	if patch.Status != nil {
		mod[model.FieldStatus] = string(*patch.Status)
	}

	if patch.PaymentInfo != nil {
		payment, err := marshalNullable(patch.PaymentInfo)
		if err != nil {
			scope.TraceError(err)

			return err
		}

		mod[model.FieldPaymentInfo] = payment
	}

	filter := ownerFilter(userID, bookingID)
	filter.Filters = append(filter.Filters, dto.Filter{
		ArgName:  "expected_version",
		Field:    model.FieldVersion,
		Value:    expectedVersion,
		Operator: dto.FilterOperatorEq,
		Table:    model.TableName,
	})

	affected, err := p.Repository.Update(ctx, mod, filter)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if affected == 1 {
		return nil
	}

	if _, err = p.Get(ctx, userID, bookingID); err != nil {
		return err
	}

	return failure.VersionConflict(model.EntityName) //nolint:wrapcheck
}

func (p *postgresImpl) Delete(ctx context.Context, userID, bookingID string) error {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.Delete")
	defer scope.End()

	affected, err := p.Repository.Delete(ctx, ownerFilter(userID, bookingID))
	if err != nil {
		return err //nolint:wrapcheck
	}

	if affected == 0 {
		return failure.NotFound("booking not found") //nolint:wrapcheck
	}

	return nil
}
