// Package vacation owns the request lifecycle: validation against
// conflicts and capacity, and the approval state machine.
package vacation

import (
	"context"
	"fmt"
	"time"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/capacity"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// Store is the persistence surface the validator and service need.
// Implemented by *db.DB.
type Store interface {
	capacity.Store

	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
	GetRequest(ctx context.Context, id int64) (*model.VacationRequest, error)
	ListActiveByEmployee(ctx context.Context, employeeID int64, start, end time.Time, excludeID int64) ([]model.VacationRequest, error)

	CreateRequest(ctx context.Context, r *model.VacationRequest, entry *model.AuditEntry) error
	TransitionRequest(ctx context.Context, id int64, fromStatus, toStatus, reason string, entry *model.AuditEntry) error
	ApproveWithCapacity(ctx context.Context, id int64, dept, line, area string, start, end time.Time, max int, entry *model.AuditEntry) (current int, approved bool, err error)
}

// Result carries both validator verdicts. Conflicts and capacity are
// reported independently; callers decide policy per transition.
type Result struct {
	Conflicts []ConflictRef  `json:"conflicts,omitempty"`
	Capacity  capacity.Usage `json:"capacity"`
}

// HasConflicts reports whether any overlapping request was found.
func (r *Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Validator runs the admission checks. Both checks are pure reads.
type Validator struct {
	store  Store
	ledger *capacity.Ledger
}

// NewValidator creates a validator over the store.
func NewValidator(store Store) *Validator {
	return &Validator{store: store, ledger: capacity.NewLedger(store)}
}

// CheckDates verifies date-range legality. Dates must be set and the end
// must not precede the start.
func CheckDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidDateRange)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidDateRange,
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return nil
}

// Validate runs the conflict and capacity checks for an employee's
// prospective range. excludeID omits that request from both counts, for
// re-validating an existing request.
func (v *Validator) Validate(ctx context.Context, employee *model.Employee, start, end time.Time, excludeID int64) (*Result, error) {
	if err := CheckDates(start, end); err != nil {
		return nil, err
	}

	overlapping, err := v.store.ListActiveByEmployee(ctx, employee.ID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list overlapping requests: %w", err)
	}

	res := &Result{}
	for _, r := range overlapping {
		res.Conflicts = append(res.Conflicts, ConflictRef{
			RequestID: r.ID,
			StartDate: r.StartDate,
			EndDate:   r.EndDate,
			Status:    r.Status,
		})
	}

	usage, err := v.ledger.Usage(ctx, capacity.ScopeFor(employee), start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("scope usage: %w", err)
	}
	res.Capacity = usage
	return res, nil
}
