package model

import "time"

// AreaLimit caps concurrent approved vacations for a scope. WorkLine and
// WorkArea are optional; empty strings mean the limit applies to any value.
type AreaLimit struct {
	ID            int64     `json:"id"`
	Department    string    `json:"department"`
	WorkLine      string    `json:"work_line,omitempty"`
	WorkArea      string    `json:"work_area,omitempty"`
	MaxConcurrent int       `json:"max_concurrent"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
