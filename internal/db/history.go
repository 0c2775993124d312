package db

import (
	"context"
	"fmt"
	"time"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// CreateHistory inserts a notification history row for a slot-fire.
// Returns created=false when a row for the (request, slot date, slot time)
// triple already exists; the UNIQUE index makes this safe under
// overlapping scheduler ticks.
func (db *DB) CreateHistory(ctx context.Context, h *model.NotificationHistory) (created bool, err error) {
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now
	if h.Status == "" {
		h.Status = model.DeliveryPending
	}

	res, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notification_history
			(supervisor_id, vacation_request_id, slot_date, slot_time, channel, content, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.SupervisorID, h.VacationRequestID, dateStr(h.SlotDate), h.SlotTime,
		h.Channel, h.Content, h.Status, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	h.ID, err = res.LastInsertId()
	return true, err
}

// HistoryExists reports whether a row already exists for the slot triple.
func (db *DB) HistoryExists(ctx context.Context, requestID int64, slotDate time.Time, slotTime string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification_history
		WHERE vacation_request_id = ? AND slot_date = ? AND slot_time = ?`,
		requestID, dateStr(slotDate), slotTime,
	).Scan(&count)
	return count > 0, err
}

// MarkHistorySent records a successful dispatch.
func (db *DB) MarkHistorySent(ctx context.Context, id int64, providerMessageID, providerStatus string) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		UPDATE notification_history
		SET status = ?, provider_message_id = ?, provider_status = ?, sent_at = ?, updated_at = ?
		WHERE id = ?`,
		model.DeliverySent, providerMessageID, providerStatus, now, now, id)
	return err
}

// MarkHistoryFailed records a failed dispatch attempt.
func (db *DB) MarkHistoryFailed(ctx context.Context, id int64, providerStatus string) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		UPDATE notification_history
		SET status = ?, provider_status = ?, updated_at = ?
		WHERE id = ?`,
		model.DeliveryFailed, providerStatus, now, id)
	return err
}

// UpdateDeliveryStatus applies a provider delivery callback, matched by
// provider message id.
func (db *DB) UpdateDeliveryStatus(ctx context.Context, providerMessageID, status, providerStatus string) error {
	now := time.Now().UTC()
	var deliveredAt any
	if status == model.DeliveryDelivered {
		deliveredAt = now
	}

	res, err := db.ExecContext(ctx, `
		UPDATE notification_history
		SET status = ?, provider_status = ?, delivered_at = COALESCE(?, delivered_at), updated_at = ?
		WHERE provider_message_id = ?`,
		status, providerStatus, deliveredAt, now, providerMessageID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOldHistory removes notification history rows older than the
// given duration. Returns how many rows were deleted.
func (db *DB) DeleteOldHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := db.ExecContext(ctx,
		`DELETE FROM notification_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old history: %w", err)
	}
	return res.RowsAffected()
}

// HistoryFilter narrows ListHistoryBySupervisor results.
type HistoryFilter struct {
	Status    string
	RequestID int64
	Limit     int
	Offset    int
}

// ListHistoryBySupervisor returns history rows for a supervisor, newest
// first.
func (db *DB) ListHistoryBySupervisor(ctx context.Context, supervisorID int64, f HistoryFilter) ([]model.NotificationHistory, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	query := `
		SELECT id, supervisor_id, vacation_request_id, slot_date, slot_time, channel, content,
		       COALESCE(provider_message_id, ''), COALESCE(provider_status, ''), status,
		       sent_at, delivered_at, created_at, updated_at
		FROM notification_history
		WHERE supervisor_id = ?`
	args := []any{supervisorID}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.RequestID > 0 {
		query += " AND vacation_request_id = ?"
		args = append(args, f.RequestID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.NotificationHistory
	for rows.Next() {
		var h model.NotificationHistory
		var slotDate string
		if err := rows.Scan(&h.ID, &h.SupervisorID, &h.VacationRequestID, &slotDate, &h.SlotTime,
			&h.Channel, &h.Content, &h.ProviderMessageID, &h.ProviderStatus, &h.Status,
			&h.SentAt, &h.DeliveredAt, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		if h.SlotDate, err = parseDate(slotDate); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
