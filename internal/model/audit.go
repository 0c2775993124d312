package model

import "time"

// AuditEntry is one append-only record of a request transition. Entries are
// written in the same transaction as the status change and never updated.
type AuditEntry struct {
	ID              string    `json:"id"`
	RequestID       int64     `json:"request_id"`
	OldStatus       string    `json:"old_status"`
	NewStatus       string    `json:"new_status"`
	ConflictCount   int       `json:"conflict_count"`
	CapacityCurrent int       `json:"capacity_current"`
	CapacityMax     int       `json:"capacity_max"`
	Note            string    `json:"note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
