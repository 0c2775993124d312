package model

import (
	"sort"
	"time"
)

// Preference bounds enforced on write.
const (
	MaxDaysBefore          = 30
	MaxNotificationsPerDay = 10
)

// NotificationPreference configures supervisor reminders. One row per
// supervisor.
type NotificationPreference struct {
	SupervisorID        int64     `json:"supervisor_id"`
	Enabled             bool      `json:"enabled"`
	DaysBefore          int       `json:"days_before"`
	NotificationsPerDay int       `json:"notifications_per_day"`
	NotificationTimes   []string  `json:"notification_times"` // "HH:MM", ordered
	PhoneOverride       string    `json:"phone_override,omitempty"`
	Timezone            string    `json:"timezone"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Normalize clamps fields into their allowed ranges, sorts the slot times
// and drops duplicates and slots beyond the per-day cap.
func (p *NotificationPreference) Normalize() {
	if p.DaysBefore < 0 {
		p.DaysBefore = 0
	}
	if p.DaysBefore > MaxDaysBefore {
		p.DaysBefore = MaxDaysBefore
	}
	if p.NotificationsPerDay < 1 {
		p.NotificationsPerDay = 1
	}
	if p.NotificationsPerDay > MaxNotificationsPerDay {
		p.NotificationsPerDay = MaxNotificationsPerDay
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}

	seen := make(map[string]bool, len(p.NotificationTimes))
	times := p.NotificationTimes[:0]
	for _, t := range p.NotificationTimes {
		if _, err := time.Parse("15:04", t); err != nil {
			continue
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		times = append(times, t)
	}
	sort.Strings(times)
	if len(times) > p.NotificationsPerDay {
		times = times[:p.NotificationsPerDay]
	}
	p.NotificationTimes = times
}

// Delivery lifecycle of a notification history row.
const (
	DeliveryPending     = "pending"
	DeliverySent        = "sent"
	DeliveryDelivered   = "delivered"
	DeliveryFailed      = "failed"
	DeliveryUndelivered = "undelivered"
)

// NotificationHistory records one attempted reminder slot-fire. The
// (vacation_request_id, slot_date, slot_time) triple is the idempotency
// key: at most one row per slot regardless of how many ticks observe it.
type NotificationHistory struct {
	ID                int64      `json:"id"`
	SupervisorID      int64      `json:"supervisor_id"`
	VacationRequestID int64      `json:"vacation_request_id"`
	SlotDate          time.Time  `json:"slot_date"`
	SlotTime          string     `json:"slot_time"`
	Channel           string     `json:"channel"`
	Content           string     `json:"content"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	ProviderStatus    string     `json:"provider_status,omitempty"`
	Status            string     `json:"status"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
