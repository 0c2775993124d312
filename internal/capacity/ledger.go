// Package capacity answers how many approved vacations overlap a date
// window within a scope, and which concurrency limit applies to it.
package capacity

import (
	"context"
	"time"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// DefaultLimit applies when no AreaLimit row matches a scope.
const DefaultLimit = 1

// Scope identifies one capacity bucket.
type Scope struct {
	Department string
	WorkLine   string
	WorkArea   string
}

// ScopeFor builds the capacity scope of an employee.
func ScopeFor(e *model.Employee) Scope {
	return Scope{Department: e.Department, WorkLine: e.WorkLine, WorkArea: e.WorkArea}
}

// Key returns a stable string form usable as a lock key.
func (s Scope) Key() string {
	return s.Department + "|" + s.WorkLine + "|" + s.WorkArea
}

// Usage is the current occupancy of a scope against its effective limit.
type Usage struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Exceeded reports whether one more approval would go over the limit.
func (u Usage) Exceeded() bool {
	return u.Current >= u.Max
}

// Store is the read side the ledger needs.
type Store interface {
	// ListAreaLimits returns all limits for a department.
	ListAreaLimits(ctx context.Context, department string) ([]model.AreaLimit, error)

	// CountApprovedInScope counts approved requests from employees sharing
	// the exact scope whose inclusive date ranges intersect [start, end].
	// excludeID is skipped when > 0.
	CountApprovedInScope(ctx context.Context, dept, line, area string, start, end time.Time, excludeID int64) (int, error)
}

// Ledger is a derived read model over the request store. It never mutates
// state.
type Ledger struct {
	store Store
}

// NewLedger creates a capacity ledger over the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Limit resolves the effective concurrency limit for a scope.
func (l *Ledger) Limit(ctx context.Context, scope Scope) (int, error) {
	limits, err := l.store.ListAreaLimits(ctx, scope.Department)
	if err != nil {
		return 0, err
	}
	return ResolveLimit(limits, scope), nil
}

// Usage resolves the effective limit for the scope and counts approved
// requests overlapping [start, end], excluding excludeID.
func (l *Ledger) Usage(ctx context.Context, scope Scope, start, end time.Time, excludeID int64) (Usage, error) {
	limits, err := l.store.ListAreaLimits(ctx, scope.Department)
	if err != nil {
		return Usage{}, err
	}
	max := ResolveLimit(limits, scope)

	current, err := l.store.CountApprovedInScope(ctx, scope.Department, scope.WorkLine, scope.WorkArea, start, end, excludeID)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Current: current, Max: max}, nil
}
