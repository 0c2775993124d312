package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// GetPreference returns the notification preference for a supervisor.
// If none exists yet, defaults are returned (disabled until configured).
func (db *DB) GetPreference(ctx context.Context, supervisorID int64) (*model.NotificationPreference, error) {
	row := db.QueryRowContext(ctx, `
		SELECT supervisor_id, enabled, days_before, notifications_per_day, notification_times,
		       COALESCE(phone_override, ''), timezone, created_at, updated_at
		FROM notification_preferences WHERE supervisor_id = ?`, supervisorID)

	var p model.NotificationPreference
	var times string
	err := row.Scan(&p.SupervisorID, &p.Enabled, &p.DaysBefore, &p.NotificationsPerDay,
		&times, &p.PhoneOverride, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return &model.NotificationPreference{
			SupervisorID:        supervisorID,
			Enabled:             false,
			DaysBefore:          2,
			NotificationsPerDay: 1,
			NotificationTimes:   []string{"09:00"},
			Timezone:            "UTC",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	p.NotificationTimes = splitTimes(times)
	return &p, nil
}

// UpsertPreference creates or replaces the supervisor's preference. The
// value is normalized before writing.
func (db *DB) UpsertPreference(ctx context.Context, p *model.NotificationPreference) error {
	p.Normalize()
	now := time.Now().UTC()
	p.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO notification_preferences
			(supervisor_id, enabled, days_before, notifications_per_day, notification_times, phone_override, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(supervisor_id) DO UPDATE SET
			enabled = excluded.enabled,
			days_before = excluded.days_before,
			notifications_per_day = excluded.notifications_per_day,
			notification_times = excluded.notification_times,
			phone_override = excluded.phone_override,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at`,
		p.SupervisorID, p.Enabled, p.DaysBefore, p.NotificationsPerDay,
		strings.Join(p.NotificationTimes, ","), p.PhoneOverride, p.Timezone, now, now)
	return err
}

// ListEnabledPreferences returns every preference with reminders enabled.
func (db *DB) ListEnabledPreferences(ctx context.Context) ([]model.NotificationPreference, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT supervisor_id, enabled, days_before, notifications_per_day, notification_times,
		       COALESCE(phone_override, ''), timezone, created_at, updated_at
		FROM notification_preferences WHERE enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.NotificationPreference
	for rows.Next() {
		var p model.NotificationPreference
		var times string
		if err := rows.Scan(&p.SupervisorID, &p.Enabled, &p.DaysBefore, &p.NotificationsPerDay,
			&times, &p.PhoneOverride, &p.Timezone, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.NotificationTimes = splitTimes(times)
		out = append(out, p)
	}
	return out, rows.Err()
}

func splitTimes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
