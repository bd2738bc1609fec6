package dto

import (
	"rental/internal/domains/booking/model"
	"rental/shared/constant"
	"rental/shared/timezone"
	"rental/shared/validator"
	"strings"
	"time"
)

type ContactInfoRequest struct {
	Name            string `json:"name"            validate:"omitempty,max=100"`
	Email           string `json:"email"           validate:"omitempty,email,max=100"`
	Phone           string `json:"phone"           validate:"omitempty,max=20"`
	StartCity       string `json:"startCity"       validate:"omitempty,max=100"`
	SpecialRequests string `json:"specialRequests" validate:"omitempty,max=500"`
}

type CreateBookingRequest struct {
	CarID       string              `json:"carId"       validate:"required,notblank"`
	StartDate   string              `json:"startDate"   validate:"required,datetime=2006-01-02"`
	EndDate     string              `json:"endDate"     validate:"required,datetime=2006-01-02"`
	StartCity   string              `json:"startCity"   validate:"omitempty,max=100"`
	ContactInfo *ContactInfoRequest `json:"contactInfo" validate:"omitempty"`
}

// Validate reports every broken rule at once, including the owner and the date order.
func (c *CreateBookingRequest) Validate(userID string) error {
	violations := validator.Violations(c)

	if strings.TrimSpace(userID) == "" {
		violations = violations.Add("userId", "userId is required")
	}

	start, startErr := time.Parse(constant.DateFormat, c.StartDate)
	end, endErr := time.Parse(constant.DateFormat, c.EndDate)

	if startErr == nil && endErr == nil && !start.Before(end) {
		violations = violations.Add("endDate", "endDate must be after startDate")
	}

	return violations.Failure() //nolint:wrapcheck
}

// ToModel builds a draft booking. It assumes Validate passed.
func (c *CreateBookingRequest) ToModel(userID, id string) model.Booking {
	start, _ := time.Parse(constant.DateFormat, c.StartDate)
	end, _ := time.Parse(constant.DateFormat, c.EndDate)
	now := timezone.Now()

	booking := model.Booking{
		ID:     id,
		UserID: userID,
		BasicInfo: model.BasicInfo{
			CarID:     strings.TrimSpace(c.CarID),
			StartDate: start,
			EndDate:   end,
			StartCity: c.StartCity,
			Status:    model.StatusDraft,
			UserID:    userID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if c.ContactInfo != nil {
		booking.ContactInfo = &model.ContactInfo{
			Name:            c.ContactInfo.Name,
			Email:           c.ContactInfo.Email,
			Phone:           c.ContactInfo.Phone,
			StartCity:       c.ContactInfo.StartCity,
			SpecialRequests: c.ContactInfo.SpecialRequests,
		}
	}

	return booking
}

// TransitionRequest is the administrative transition body.
type TransitionRequest struct {
	Status         string `json:"status"         validate:"required,oneof=draft confirmed completed cancelled"`
	ManualOverride bool   `json:"manualOverride"`
}

type BasicInfoResponse struct {
	CarID     string `json:"carId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	StartCity string `json:"startCity,omitempty"`
	Status    string `json:"status"`
}

type PaymentInfoResponse struct {
	PaymentMethod string `json:"paymentMethod"`
	ReferenceID   string `json:"referenceId"`
	TokenAmount   int64  `json:"tokenAmount"`
	TotalAmount   int64  `json:"totalAmount"`
	FullPayment   bool   `json:"fullPayment"`
	IsPaid        bool   `json:"isPaid"`
	Verified      bool   `json:"verified"`
	PaidAt        string `json:"paidAt,omitempty"`
	VerifiedAt    string `json:"verifiedAt,omitempty"`
}

type BookingResponse struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	BasicInfo   BasicInfoResponse    `json:"basicInfo"`
	ContactInfo *ContactInfoRequest  `json:"contactInfo,omitempty"`
	PaymentInfo *PaymentInfoResponse `json:"paymentInfo,omitempty"`
	Version     int64                `json:"version"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
}

func (r *BookingResponse) FromModel(booking model.Booking) {
	r.ID = booking.ID
	r.UserID = booking.UserID
	r.BasicInfo = BasicInfoResponse{
		CarID:     booking.BasicInfo.CarID,
		StartDate: booking.BasicInfo.StartDate.Format(constant.DateFormat),
		EndDate:   booking.BasicInfo.EndDate.Format(constant.DateFormat),
		StartCity: booking.BasicInfo.StartCity,
		Status:    string(booking.BasicInfo.Status),
	}
	r.Version = booking.Version
	r.CreatedAt = timezone.Format(booking.CreatedAt, constant.DateTimeFormat)
	r.UpdatedAt = timezone.Format(booking.UpdatedAt, constant.DateTimeFormat)

	if contact := booking.ContactInfo; contact != nil {
		r.ContactInfo = &ContactInfoRequest{
			Name:            contact.Name,
			Email:           contact.Email,
			Phone:           contact.Phone,
			StartCity:       contact.StartCity,
			SpecialRequests: contact.SpecialRequests,
		}
	}

	if payment := booking.PaymentInfo; payment != nil {
		r.PaymentInfo = &PaymentInfoResponse{
			PaymentMethod: payment.PaymentMethod,
			ReferenceID:   payment.ReferenceID,
			TokenAmount:   payment.TokenAmount,
			TotalAmount:   payment.TotalAmount,
			FullPayment:   payment.FullPayment,
			IsPaid:        payment.IsPaid,
			Verified:      payment.Verified,
			PaidAt:        formatOptional(payment.PaidAt),
			VerifiedAt:    formatOptional(payment.VerifiedAt),
		}
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return constant.Empty
	}

	return timezone.Format(*t, constant.DateTimeFormat)
}
