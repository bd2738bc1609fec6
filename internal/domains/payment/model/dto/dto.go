package dto

import (
	"rental/internal/domains/booking/model"
	"strings"
)

// RecordPaymentRequest is what the payment gateway integration reports. Paid and verified
// flags are never taken from the caller.
type RecordPaymentRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,max=50"`
	ReferenceID   string `json:"referenceId"   validate:"required,notblank,max=100"`
	TokenAmount   int64  `json:"tokenAmount"   validate:"gte=0"`
	TotalAmount   int64  `json:"totalAmount"   validate:"gte=0"`
	FullPayment   bool   `json:"fullPayment"`
}

func (r *RecordPaymentRequest) ToModel() model.PaymentInfo {
	return model.PaymentInfo{
		PaymentMethod: r.PaymentMethod,
		ReferenceID:   strings.TrimSpace(r.ReferenceID),
		TokenAmount:   r.TokenAmount,
		TotalAmount:   r.TotalAmount,
		FullPayment:   r.FullPayment,
	}
}

type VerifyPaymentRequest struct {
	ReferenceID string `json:"referenceId" validate:"required,notblank"`
}
