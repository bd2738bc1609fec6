package model

import (
	"crypto/sha256"
	"encoding/hex"
	"rental/internal/events"
	"strings"
	"time"
)

const (
	TableDispatchRecords = "dispatch_records"
	TableEvents          = "notification_events"

	EntityDispatchRecord = "dispatch record"
	EntityEvent          = "notification event"

	FieldDedupKey   = "dedup_key"
	FieldEventID    = "event_id"
	FieldEventType  = "event_type"
	FieldBookingID  = "booking_id"
	FieldChannel    = "channel"
	FieldRole       = "recipient_role"
	FieldAttempt    = "attempt"
	FieldOutcome    = "outcome"
	FieldLastError  = "last_error"
	FieldLeaseUntil = "lease_until"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
)

type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
)

// Channels lists every channel in dispatch order.
var Channels = []Channel{ChannelWhatsApp, ChannelSMS, ChannelEmail}

func (c Channel) Valid() bool {
	switch c {
	case ChannelWhatsApp, ChannelSMS, ChannelEmail:
		return true
	default:
		return false
	}
}

// ContactField is the snapshot key holding a user's address on this channel.
func (c Channel) ContactField() string {
	if c == ChannelEmail {
		return events.SnapshotCustomerEmail
	}

	return events.SnapshotCustomerPhone
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var Roles = []Role{RoleUser, RoleAdmin}

type Outcome string

const (
	OutcomePending           Outcome = "pending"
	OutcomeSuccess           Outcome = "success"
	OutcomePermanentlyFailed Outcome = "permanently_failed"
)

// Terminal reports whether a record with this outcome may never be dispatched again.
func (o Outcome) Terminal() bool {
	return o == OutcomeSuccess || o == OutcomePermanentlyFailed
}

// DedupKey identifies one logical notification. The event id is left out so a re-emitted
// event for the same transition maps onto the same record.
func DedupKey(eventType events.EventType, bookingID string, channel Channel, role Role) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{string(eventType), bookingID, string(channel), string(role)}, "|")))

	return hex.EncodeToString(sum[:])
}

// DispatchRecord is the persisted state of one (event, booking, channel, role) notification.
// A pending record is leased to the dispatcher that claimed it until LeaseUntil.
type DispatchRecord struct {
	DedupKey   string           `json:"dedupKey"   db:"dedup_key"      firestore:"dedupKey"`
	EventID    string           `json:"eventId"    db:"event_id"       firestore:"eventId"`
	EventType  events.EventType `json:"eventType"  db:"event_type"     firestore:"eventType"`
	BookingID  string           `json:"bookingId"  db:"booking_id"     firestore:"bookingId"`
	Channel    Channel          `json:"channel"    db:"channel"        firestore:"channel"`
	Role       Role             `json:"role"       db:"recipient_role" firestore:"role"`
	Attempt    int              `json:"attempt"    db:"attempt"        firestore:"attempt"`
	Outcome    Outcome          `json:"outcome"    db:"outcome"        firestore:"outcome"`
	LastError  string           `json:"lastError"  db:"last_error"     firestore:"lastError"`
	LeaseUntil time.Time        `json:"leaseUntil" db:"lease_until"    firestore:"leaseUntil"`
	CreatedAt  time.Time        `json:"createdAt"  db:"created_at"     firestore:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"  db:"updated_at"     firestore:"updatedAt"`
}

// Claimable reports whether a dispatcher arriving at now may take this record over.
func (r DispatchRecord) Claimable(now time.Time) bool {
	return r.Outcome == OutcomePending && !r.LeaseUntil.After(now)
}

// Pair is one (channel, role) fan-out target of an event.
type Pair struct {
	Channel Channel
	Role    Role
}

type ResultStatus string

const (
	ResultSent        ResultStatus = "sent"
	ResultSkipped     ResultStatus = "skipped"
	ResultNoRecipient ResultStatus = "no_recipient"
	ResultFailed      ResultStatus = "failed"
)

// Result is what happened to one pair during a dispatch.
type Result struct {
	Pair
	DedupKey  string       `json:"dedupKey"`
	Status    ResultStatus `json:"status"`
	Attempts  int          `json:"attempts"`
	MessageID string       `json:"messageId,omitempty"`
	Err       error        `json:"-"`
}

// Report summarises a dispatch of one lifecycle event.
type Report struct {
	EventID   string           `json:"eventId"`
	EventType events.EventType `json:"eventType"`
	BookingID string           `json:"bookingId"`
	Results   []Result         `json:"results"`
}

// Count returns how many pairs ended with status.
func (r Report) Count(status ResultStatus) int {
	n := 0

	for _, result := range r.Results {
		if result.Status == status {
			n++
		}
	}

	return n
}
