package model

import (
	"rental/internal/events"
	"rental/shared/constant"
	"strconv"
	"time"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID          = "id"
	FieldUserID      = "user_id"
	FieldCarID       = "car_id"
	FieldStartDate   = "start_date"
	FieldEndDate     = "end_date"
	FieldStartCity   = "start_city"
	FieldStatus      = "status"
	FieldContactInfo = "contact_info"
	FieldPaymentInfo = "payment_info"
	FieldVersion     = "version"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var edges = map[Status][]Status{
	StatusDraft:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from -> to is a declared lifecycle edge.
func CanTransition(from, to Status) bool {
	for _, target := range edges[from] {
		if target == to {
			return true
		}
	}

	return false
}

// EventType maps a status reached by a transition to the lifecycle event it emits.
func (s Status) EventType() events.EventType {
	switch s {
	case StatusConfirmed:
		return events.EventConfirmed
	case StatusCompleted:
		return events.EventCompleted
	case StatusCancelled:
		return events.EventCancelled
	default:
		return events.EventCreated
	}
}

type BasicInfo struct {
	CarID     string    `json:"carId"     firestore:"carId"`
	StartDate time.Time `json:"startDate" firestore:"startDate"`
	EndDate   time.Time `json:"endDate"   firestore:"endDate"`
	StartCity string    `json:"startCity" firestore:"startCity"`
	Status    Status    `json:"status"    firestore:"status"`
	UserID    string    `json:"userId"    firestore:"userId"`
}

type ContactInfo struct {
	Name            string `json:"name"            firestore:"name"`
	Email           string `json:"email"           firestore:"email"`
	Phone           string `json:"phone"           firestore:"phone"`
	StartCity       string `json:"startCity"       firestore:"startCity"`
	SpecialRequests string `json:"specialRequests" firestore:"specialRequests"`
}

// PaymentInfo is frozen once Verified is set; only the audit timestamps and IsPaid
// may be written afterwards.
type PaymentInfo struct {
	PaymentMethod string     `json:"paymentMethod"        firestore:"paymentMethod"`
	ReferenceID   string     `json:"referenceId"          firestore:"referenceId"`
	TokenAmount   int64      `json:"tokenAmount"          firestore:"tokenAmount"`
	TotalAmount   int64      `json:"totalAmount"          firestore:"totalAmount"`
	FullPayment   bool       `json:"fullPayment"          firestore:"fullPayment"`
	IsPaid        bool       `json:"isPaid"               firestore:"isPaid"`
	Verified      bool       `json:"verified"             firestore:"verified"`
	PaidAt        *time.Time `json:"paidAt,omitempty"     firestore:"paidAt"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty" firestore:"verifiedAt"`
}

// SameCharge reports whether o describes the same recorded payment as p.
func (p PaymentInfo) SameCharge(o PaymentInfo) bool {
	return p.ReferenceID == o.ReferenceID &&
		p.PaymentMethod == o.PaymentMethod &&
		p.TokenAmount == o.TokenAmount &&
		p.TotalAmount == o.TotalAmount &&
		p.FullPayment == o.FullPayment
}

func (p *PaymentInfo) clone() *PaymentInfo {
	if p == nil {
		return nil
	}

	cp := *p

	if p.PaidAt != nil {
		paidAt := *p.PaidAt
		cp.PaidAt = &paidAt
	}

	if p.VerifiedAt != nil {
		verifiedAt := *p.VerifiedAt
		cp.VerifiedAt = &verifiedAt
	}

	return &cp
}

type Booking struct {
	ID          string       `json:"id"                    firestore:"-"`
	UserID      string       `json:"userId"                firestore:"-"`
	BasicInfo   BasicInfo    `json:"basicInfo"             firestore:"basicInfo"`
	ContactInfo *ContactInfo `json:"contactInfo,omitempty" firestore:"contactInfo"`
	PaymentInfo *PaymentInfo `json:"paymentInfo,omitempty" firestore:"paymentInfo"`
	Version     int64        `json:"version"               firestore:"version"`
	CreatedAt   time.Time    `json:"createdAt"             firestore:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"             firestore:"updatedAt"`
}

// Clone returns a deep copy so callers cannot alias stored state.
func (b Booking) Clone() Booking {
	cp := b

	if b.ContactInfo != nil {
		contact := *b.ContactInfo
		cp.ContactInfo = &contact
	}

	cp.PaymentInfo = b.PaymentInfo.clone()

	return cp
}

// Patch is the set of fields a conditional update writes. Nil fields are left untouched.
type Patch struct {
	Status      *Status
	PaymentInfo *PaymentInfo
	UpdatedAt   time.Time
}

// Apply returns the booking as it reads after patch commits on top of b.
func (b Booking) Apply(patch Patch) Booking {
	next := b.Clone()

	if patch.Status != nil {
		next.BasicInfo.Status = *patch.Status
	}

	if patch.PaymentInfo != nil {
		next.PaymentInfo = patch.PaymentInfo.clone()
	}

	next.UpdatedAt = patch.UpdatedAt
	next.Version++

	return next
}

// Guard carries the evidence a guarded edge needs.
type Guard struct {
	PaymentVerified bool `json:"paymentVerified"`
	ManualOverride  bool `json:"manualOverride"`
}

// Snapshot captures the fields notification templates may reference.
func (b Booking) Snapshot() events.Snapshot {
	snapshot := events.Snapshot{
		events.SnapshotBookingID: b.ID,
		events.SnapshotUserID:    b.UserID,
		events.SnapshotCarID:     b.BasicInfo.CarID,
		events.SnapshotStartDate: b.BasicInfo.StartDate.Format(constant.DateFormat),
		events.SnapshotEndDate:   b.BasicInfo.EndDate.Format(constant.DateFormat),
		events.SnapshotStatus:    string(b.BasicInfo.Status),
	}

	setIfPresent(snapshot, events.SnapshotStartCity, b.BasicInfo.StartCity)

	if contact := b.ContactInfo; contact != nil {
		setIfPresent(snapshot, events.SnapshotCustomerName, contact.Name)
		setIfPresent(snapshot, events.SnapshotCustomerEmail, contact.Email)
		setIfPresent(snapshot, events.SnapshotCustomerPhone, contact.Phone)
		setIfPresent(snapshot, events.SnapshotSpecialRequests, contact.SpecialRequests)
	}

	if payment := b.PaymentInfo; payment != nil {
		setIfPresent(snapshot, events.SnapshotPaymentMethod, payment.PaymentMethod)
		setIfPresent(snapshot, events.SnapshotReferenceID, payment.ReferenceID)
		snapshot[events.SnapshotTokenAmount] = strconv.FormatInt(payment.TokenAmount, 10)
		snapshot[events.SnapshotTotalAmount] = strconv.FormatInt(payment.TotalAmount, 10)
		snapshot[events.SnapshotIsPaid] = strconv.FormatBool(payment.IsPaid)
	}

	return snapshot
}

func setIfPresent(snapshot events.Snapshot, key, value string) {
	if value != "" {
		snapshot[key] = value
	}
}

// CacheKeyPrefix namespaces cached booking reads.
const CacheKeyPrefix = "booking:get"
