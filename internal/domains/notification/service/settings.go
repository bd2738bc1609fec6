package service

import (
	"fmt"
	"rental/config"
	"rental/internal/domains/notification/channel"
	"rental/internal/domains/notification/model"
	"rental/internal/events"
	"rental/shared/retry"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
	defaultSendTimeout    = 10 * time.Second
	defaultLease          = 5 * time.Minute
	defaultConcurrency    = 6
	defaultRateBurst      = 1
)

// TemplateKey selects the template of one (channel, event, role) notification.
type TemplateKey struct {
	Channel model.Channel
	Event   events.EventType
	Role    model.Role
}

// ParseTemplateKey reads keys of the form channel.event.role.
func ParseTemplateKey(raw string) (TemplateKey, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return TemplateKey{}, fmt.Errorf("template key %q is not channel.event.role", raw)
	}

	key := TemplateKey{
		Channel: model.Channel(parts[0]),
		Event:   events.EventType(parts[1]),
		Role:    model.Role(parts[2]),
	}

	if !key.Channel.Valid() || !key.Event.Valid() || (key.Role != model.RoleUser && key.Role != model.RoleAdmin) {
		return TemplateKey{}, fmt.Errorf("template key %q names an unknown channel, event or role", raw)
	}

	return key, nil
}

var baseTemplates = map[model.Role]map[events.EventType]string{
	model.RoleUser: {
		events.EventCreated:   "We received booking {{bookingId}} for car {{carId}} from {{startDate}} to {{endDate}}. It will be confirmed once your payment is verified.",
		events.EventConfirmed: "Booking {{bookingId}} for car {{carId}} from {{startDate}} to {{endDate}} is confirmed.",
		events.EventCompleted: "Booking {{bookingId}} is completed. Thank you for renting with us.",
		events.EventCancelled: "Booking {{bookingId}} for car {{carId}} has been cancelled.",
	},
	model.RoleAdmin: {
		events.EventCreated:   "New booking attempt {{bookingId}} by user {{userId}}: car {{carId}}, {{startDate}} to {{endDate}}.",
		events.EventConfirmed: "Booking {{bookingId}} confirmed: car {{carId}}, {{startDate}} to {{endDate}}.",
		events.EventCompleted: "Booking {{bookingId}} completed.",
		events.EventCancelled: "Booking {{bookingId}} cancelled by user {{userId}}.",
	},
}

// DefaultTemplates returns the built-in template of every (channel, event, role).
func DefaultTemplates() map[TemplateKey]string {
	templates := map[TemplateKey]string{}

	for role, byEvent := range baseTemplates {
		for event, body := range byEvent {
			for _, ch := range model.Channels {
				if ch == model.ChannelEmail {
					templates[TemplateKey{ch, event, role}] = fmt.Sprintf("Subject: Booking {{bookingId}} %s\n\n%s", event, body)

					continue
				}

				templates[TemplateKey{ch, event, role}] = body
			}
		}
	}

	return templates
}

// Settings is the dispatcher's fixed configuration. It is copied at construction and never
// changes afterwards.
type Settings struct {
	// Routing enables a role for an event type.
	Routing        map[events.EventType]map[model.Role]bool
	Templates      map[TemplateKey]string
	AdminPhone     string
	AdminEmail     string
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	SendTimeout    time.Duration
	Lease          time.Duration
	Concurrency    int
	// RateLimit is sends per second per channel; zero or less means unlimited.
	RateLimit float64
	RateBurst int
	// StoreRetry bounds the retries of record writes that decide whether a notification is sent.
	StoreRetry retry.Policy
}

func NewSettings(cfg *config.Config) Settings {
	n := cfg.Notification

	routing := map[events.EventType]map[model.Role]bool{}
	enable := func(role model.Role, names []string) {
		for _, name := range names {
			event := events.EventType(strings.TrimSpace(name))
			if !event.Valid() {
				log.Warn().Str("event", name).Str("role", string(role)).Msg("ignoring unknown event in notification routing")

				continue
			}

			if routing[event] == nil {
				routing[event] = map[model.Role]bool{}
			}

			routing[event][role] = true
		}
	}

	enable(model.RoleUser, n.UserEvents)
	enable(model.RoleAdmin, n.AdminEvents)

	templates := DefaultTemplates()

	for raw, body := range n.Templates {
		key, err := ParseTemplateKey(raw)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring template override")

			continue
		}

		templates[key] = body
	}

	return Settings{
		Routing:        routing,
		Templates:      templates,
		AdminPhone:     n.Admin.Phone,
		AdminEmail:     n.Admin.Email,
		MaxAttempts:    n.MaxAttempts,
		InitialBackoff: time.Duration(n.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(n.MaxBackoffMs) * time.Millisecond,
		SendTimeout:    time.Duration(n.SendTimeoutMs) * time.Millisecond,
		Lease:          time.Duration(n.LeaseSeconds) * time.Second,
		Concurrency:    n.Concurrency,
		RateLimit:      n.RateLimitPerSecond,
		RateBurst:      n.RateLimitBurst,
		StoreRetry:     retry.NewPolicy(cfg),
	}.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if s.MaxAttempts == 0 {
		s.MaxAttempts = defaultMaxAttempts
	}

	if s.InitialBackoff <= 0 {
		s.InitialBackoff = defaultInitialBackoff
	}

	if s.MaxBackoff < s.InitialBackoff {
		s.MaxBackoff = max(defaultMaxBackoff, s.InitialBackoff)
	}

	if s.SendTimeout <= 0 {
		s.SendTimeout = defaultSendTimeout
	}

	if s.Lease <= 0 {
		s.Lease = defaultLease
	}

	// A lease is renewed after every failed attempt, so it must outlive one send plus the
	// longest wait before the next one.
	if floor := s.SendTimeout + s.MaxBackoff; s.Lease < floor {
		log.Warn().
			Dur("lease", s.Lease).
			Dur("sendTimeout", s.SendTimeout).
			Dur("maxBackoff", s.MaxBackoff).
			Msg("notification lease is shorter than one send attempt, raising it")

		s.Lease = floor
	}

	if s.Concurrency <= 0 {
		s.Concurrency = defaultConcurrency
	}

	if s.RateBurst <= 0 {
		s.RateBurst = defaultRateBurst
	}

	if s.Templates == nil {
		s.Templates = DefaultTemplates()
	}

	s.StoreRetry = s.StoreRetry.WithDefaults()

	return s
}

// Pairs lists the (channel, role) targets of eventType among the channels that have a sender.
func (s Settings) Pairs(eventType events.EventType, senders channel.Senders) []model.Pair {
	var pairs []model.Pair

	for _, ch := range model.Channels {
		if _, ok := senders[ch]; !ok {
			continue
		}

		for _, role := range model.Roles {
			if s.Routing[eventType][role] {
				pairs = append(pairs, model.Pair{Channel: ch, Role: role})
			}
		}
	}

	return pairs
}

// Recipient resolves the address of pair. Users are reached through the contact details the
// booking carried; admins through the configured operations contact.
func (s Settings) Recipient(pair model.Pair, snapshot events.Snapshot) (string, bool) {
	if pair.Role == model.RoleAdmin {
		address := s.AdminPhone
		if pair.Channel == model.ChannelEmail {
			address = s.AdminEmail
		}

		return address, address != ""
	}

	address, ok := snapshot.Lookup(pair.Channel.ContactField())

	return address, ok && address != ""
}
