package dto_test

import (
	"rental/internal/domains/booking/model"
	"rental/internal/domains/booking/model/dto"
	"rental/shared/failure"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingRequest_Validate(t *testing.T) {
	tests := []struct {
		name       string
		req        dto.CreateBookingRequest
		userID     string
		wantFields []string
	}{
		{
			name:   "valid",
			req:    dto.CreateBookingRequest{CarID: "C1", StartDate: "2025-01-10", EndDate: "2025-01-12"},
			userID: "u1",
		},
		{
			name:       "everything missing",
			req:        dto.CreateBookingRequest{},
			wantFields: []string{"carId", "startDate", "endDate", "userId"},
		},
		{
			name:       "blank car and reversed range",
			req:        dto.CreateBookingRequest{CarID: "  ", StartDate: "2025-01-12", EndDate: "2025-01-10"},
			userID:     "u1",
			wantFields: []string{"carId", "endDate"},
		},
		{
			name:       "malformed date",
			req:        dto.CreateBookingRequest{CarID: "C1", StartDate: "10/01/2025", EndDate: "2025-01-12"},
			userID:     "u1",
			wantFields: []string{"startDate"},
		},
		{
			name: "bad contact email",
			req: dto.CreateBookingRequest{
				CarID: "C1", StartDate: "2025-01-10", EndDate: "2025-01-12",
				ContactInfo: &dto.ContactInfoRequest{Email: "not-an-email"},
			},
			userID:     "u1",
			wantFields: []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.userID)

			if tt.wantFields == nil {
				assert.NoError(t, err)

				return
			}

			var fail *failure.Failure
			require.ErrorAs(t, err, &fail)
			assert.Equal(t, failure.KindValidation, fail.Kind)
			assert.ElementsMatch(t, tt.wantFields, fail.Fields)
		})
	}
}

func TestCreateBookingRequest_ToModel(t *testing.T) {
	req := dto.CreateBookingRequest{
		CarID:       " C1 ",
		StartDate:   "2025-01-10",
		EndDate:     "2025-01-12",
		ContactInfo: &dto.ContactInfoRequest{Name: "Ana", Phone: "+62811"},
	}

	booking := req.ToModel("u1", "b1")

	assert.Equal(t, "b1", booking.ID)
	assert.Equal(t, "C1", booking.BasicInfo.CarID)
	assert.Equal(t, model.StatusDraft, booking.BasicInfo.Status)
	assert.Equal(t, time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC), booking.BasicInfo.EndDate)
	assert.Equal(t, "+62811", booking.ContactInfo.Phone)
	assert.Nil(t, booking.PaymentInfo)
}

func TestBookingResponse_FromModel(t *testing.T) {
	verifiedAt := time.Date(2025, 1, 9, 10, 0, 0, 0, time.UTC)

	var res dto.BookingResponse
	res.FromModel(model.Booking{
		ID:          "b1",
		UserID:      "u1",
		BasicInfo:   model.BasicInfo{CarID: "C1", StartDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), Status: model.StatusConfirmed},
		PaymentInfo: &model.PaymentInfo{ReferenceID: "ref-123", Verified: true, VerifiedAt: &verifiedAt},
		Version:     3,
	})

	assert.Equal(t, "2025-01-10", res.BasicInfo.StartDate)
	assert.Equal(t, "confirmed", res.BasicInfo.Status)
	assert.True(t, res.PaymentInfo.Verified)
	assert.NotEmpty(t, res.PaymentInfo.VerifiedAt)
	assert.Empty(t, res.PaymentInfo.PaidAt)
	assert.Nil(t, res.ContactInfo)
}
