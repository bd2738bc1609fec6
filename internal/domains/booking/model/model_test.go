package model_test

import (
	"rental/internal/domains/booking/model"
	"rental/internal/events"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]model.Status]bool{
		{model.StatusDraft, model.StatusConfirmed}:     true,
		{model.StatusDraft, model.StatusCancelled}:     true,
		{model.StatusConfirmed, model.StatusCompleted}: true,
		{model.StatusConfirmed, model.StatusCancelled}: true,
	}

	statuses := []model.Status{model.StatusDraft, model.StatusConfirmed, model.StatusCompleted, model.StatusCancelled}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]model.Status{from, to}], model.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestStatus(t *testing.T) {
	assert.True(t, model.StatusCompleted.Terminal())
	assert.True(t, model.StatusCancelled.Terminal())
	assert.False(t, model.StatusConfirmed.Terminal())
	assert.False(t, model.Status("archived").Valid())

	assert.Equal(t, events.EventConfirmed, model.StatusConfirmed.EventType())
	assert.Equal(t, events.EventCompleted, model.StatusCompleted.EventType())
	assert.Equal(t, events.EventCancelled, model.StatusCancelled.EventType())
}

func TestBooking_ApplyDoesNotAlias(t *testing.T) {
	paidAt := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	booking := model.Booking{
		ID:          "b1",
		BasicInfo:   model.BasicInfo{Status: model.StatusDraft},
		PaymentInfo: &model.PaymentInfo{ReferenceID: "ref-1", PaidAt: &paidAt},
		Version:     2,
	}

	confirmed := model.StatusConfirmed
	next := booking.Apply(model.Patch{Status: &confirmed, UpdatedAt: paidAt})

	assert.Equal(t, model.StatusConfirmed, next.BasicInfo.Status)
	assert.Equal(t, model.StatusDraft, booking.BasicInfo.Status)
	assert.Equal(t, int64(3), next.Version)

	next.PaymentInfo.ReferenceID = "ref-2"
	*next.PaymentInfo.PaidAt = paidAt.Add(time.Hour)

	assert.Equal(t, "ref-1", booking.PaymentInfo.ReferenceID)
	assert.Equal(t, paidAt, *booking.PaymentInfo.PaidAt)
}

func TestBooking_Snapshot(t *testing.T) {
	booking := model.Booking{
		ID:     "b1",
		UserID: "u1",
		BasicInfo: model.BasicInfo{
			CarID:     "C1",
			StartDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
			Status:    model.StatusConfirmed,
		},
		ContactInfo: &model.ContactInfo{Name: "Ana", Phone: "+62811"},
		PaymentInfo: &model.PaymentInfo{TokenAmount: 1000, TotalAmount: 5000},
	}

	snapshot := booking.Snapshot()

	assert.Equal(t, "2025-01-10", snapshot["startDate"])
	assert.Equal(t, "Ana", snapshot["customerName"])
	assert.Equal(t, "1000", snapshot["tokenAmount"])

	_, hasEmail := snapshot.Lookup("customerEmail")
	assert.False(t, hasEmail)

	_, hasCity := snapshot.Lookup("startCity")
	assert.False(t, hasCity)

	booking.ContactInfo.Name = "Bea"
	assert.Equal(t, "Ana", snapshot["customerName"])
}

func TestPaymentInfo_SameCharge(t *testing.T) {
	recorded := model.PaymentInfo{ReferenceID: "ref-1", PaymentMethod: "transfer", TokenAmount: 1000, TotalAmount: 5000}

	assert.True(t, recorded.SameCharge(model.PaymentInfo{ReferenceID: "ref-1", PaymentMethod: "transfer", TokenAmount: 1000, TotalAmount: 5000, Verified: true}))
	assert.False(t, recorded.SameCharge(model.PaymentInfo{ReferenceID: "ref-1", PaymentMethod: "transfer", TokenAmount: 2000, TotalAmount: 5000}))
}
