package model

import "time"

// Status values a vacation request moves through.
const (
	StatusPending   = "Pending"
	StatusApproved  = "Approved"
	StatusDenied    = "Denied"
	StatusCancelled = "Cancelled"
)

// VacationRequest is a single employee vacation request.
// Dates are date-only values stored at midnight UTC.
type VacationRequest struct {
	ID           int64     `json:"id"`
	EmployeeID   int64     `json:"employee_id"`
	SupervisorID int64     `json:"supervisor_id"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	ReturnDate   time.Time `json:"return_date"`
	TotalHours   int       `json:"total_hours"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTerminal reports whether no further transitions are allowed.
func (r *VacationRequest) IsTerminal() bool {
	return r.Status == StatusDenied || r.Status == StatusCancelled
}

// IsActive reports whether the request still occupies the employee's
// calendar for conflict purposes.
func (r *VacationRequest) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

// OverlapsRange reports whether the request's date range intersects
// [start, end] inclusively. Touching boundaries count as overlap.
func (r *VacationRequest) OverlapsRange(start, end time.Time) bool {
	return DateRangesOverlap(r.StartDate, r.EndDate, start, end)
}

// DateRangesOverlap reports inclusive intersection of two date ranges.
func DateRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// BusinessDays counts Monday-Friday days in [start, end] inclusive.
// Weekends are excluded; there is no holiday calendar.
func BusinessDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

// VacationHours converts a date range into paid hours (8 per business day).
func VacationHours(start, end time.Time) int {
	return BusinessDays(start, end) * 8
}

// ReturnDateFor is the day the employee is expected back at work.
func ReturnDateFor(end time.Time) time.Time {
	return end.AddDate(0, 0, 1)
}

// DateOnly truncates a timestamp to midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
