package events

import (
	"maps"
	"time"
)

// EventType names the lifecycle edge that produced an event.
type EventType string

const (
	EventCreated   EventType = "created"
	EventConfirmed EventType = "confirmed"
	EventCompleted EventType = "completed"
	EventCancelled EventType = "cancelled"
)

// Valid reports whether t is one of the four lifecycle event types.
func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventConfirmed, EventCompleted, EventCancelled:
		return true
	default:
		return false
	}
}

// Snapshot keys.
const (
	SnapshotBookingID       = "bookingId"
	SnapshotUserID          = "userId"
	SnapshotCarID           = "carId"
	SnapshotStartDate       = "startDate"
	SnapshotEndDate         = "endDate"
	SnapshotStatus          = "status"
	SnapshotStartCity       = "startCity"
	SnapshotCustomerName    = "customerName"
	SnapshotCustomerEmail   = "customerEmail"
	SnapshotCustomerPhone   = "customerPhone"
	SnapshotSpecialRequests = "specialRequests"
	SnapshotPaymentMethod   = "paymentMethod"
	SnapshotReferenceID     = "referenceId"
	SnapshotTokenAmount     = "tokenAmount"
	SnapshotTotalAmount     = "totalAmount"
	SnapshotIsPaid          = "isPaid"
)

// Snapshot holds the booking fields templates may reference, keyed by placeholder name.
// Fields the booking did not carry at emission time are absent, not empty.
type Snapshot map[string]string

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	return maps.Clone(s)
}

// Lookup returns the value for key and whether the booking carried it.
func (s Snapshot) Lookup(key string) (string, bool) {
	value, ok := s[key]

	return value, ok
}

// LifecycleEvent is emitted after a booking write commits. It is the only thing the
// booking state machine hands to payment and notification consumers.
type LifecycleEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"eventType"`
	BookingID  string    `json:"bookingId"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
	Snapshot   Snapshot  `json:"payloadSnapshot"`
}
