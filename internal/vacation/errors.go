package vacation

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the service. Callers distinguish them with
// errors.Is / errors.As.
var (
	ErrNotFound         = errors.New("vacation request not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidDateRange = errors.New("invalid date range")
)

// ConflictRef identifies a conflicting request for the caller.
type ConflictRef struct {
	RequestID int64     `json:"request_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
}

// ConflictError rejects a submission or approval because the employee has
// other Pending/Approved requests overlapping the range.
type ConflictError struct {
	Conflicts []ConflictRef
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("request conflicts with %d existing request(s)", len(e.Conflicts))
}

// CapacityExceededError rejects an approval that would exceed the scope
// limit. Current is the count observed at decision time.
type CapacityExceededError struct {
	Current int
	Max     int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: %d of %d slots in use", e.Current, e.Max)
}

// InvalidTransitionError rejects a transition the state machine does not
// allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}
