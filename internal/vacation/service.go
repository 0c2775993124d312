package vacation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/capacity"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/db"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/events"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/metrics"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// transitions holds the allowed status changes. Denied and Cancelled are
// terminal.
var transitions = map[string][]string{
	model.StatusPending:  {model.StatusApproved, model.StatusDenied, model.StatusCancelled},
	model.StatusApproved: {model.StatusCancelled},
}

// CanTransition checks if a status change is allowed.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// scopeLocks serializes approvals per capacity scope so the count-then-
// write sequence of two overlapping approvals cannot interleave.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[string]*sync.Mutex)}
}

func (s *scopeLocks) get(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// SubmitResult is returned by Submit. CapacityWarning is set when the
// scope is already full for the range; it does not block creation since
// only Approved requests consume capacity.
type SubmitResult struct {
	Request         *model.VacationRequest `json:"request"`
	CapacityWarning *capacity.Usage        `json:"capacity_warning,omitempty"`
}

// Service is the approval state machine over the store.
type Service struct {
	store     Store
	validator *Validator
	ledger    *capacity.Ledger
	locks     *scopeLocks
	logger    zerolog.Logger
	bus       *events.Bus
}

// NewService creates the request service.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		validator: NewValidator(store),
		ledger:    capacity.NewLedger(store),
		locks:     newScopeLocks(),
		logger:    logger.With().Str("component", "vacation").Logger(),
	}
}

// SetEventBus attaches an optional bus; state changes are published there
// after they commit.
func (s *Service) SetEventBus(bus *events.Bus) {
	s.bus = bus
}

func (s *Service) publish(eventType string, r *model.VacationRequest, oldStatus string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, Request: r, OldStatus: oldStatus})
}

// Submit creates a Pending request. Any overlap with the employee's other
// Pending/Approved requests rejects the submission; a full scope only
// produces a warning at this stage.
func (s *Service) Submit(ctx context.Context, employeeID int64, start, end time.Time) (*SubmitResult, error) {
	start = model.DateOnly(start)
	end = model.DateOnly(end)

	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}

	res, err := s.validator.Validate(ctx, emp, start, end, 0)
	if err != nil {
		return nil, err
	}
	if res.HasConflicts() {
		return nil, &ConflictError{Conflicts: res.Conflicts}
	}

	r := &model.VacationRequest{
		EmployeeID:   emp.ID,
		SupervisorID: emp.SupervisorID,
		StartDate:    start,
		EndDate:      end,
		ReturnDate:   model.ReturnDateFor(end),
		TotalHours:   model.VacationHours(start, end),
		Status:       model.StatusPending,
	}
	entry := &model.AuditEntry{
		NewStatus:       model.StatusPending,
		ConflictCount:   len(res.Conflicts),
		CapacityCurrent: res.Capacity.Current,
		CapacityMax:     res.Capacity.Max,
		Note:            "submitted",
	}
	if err := s.store.CreateRequest(ctx, r, entry); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	out := &SubmitResult{Request: r}
	if res.Capacity.Exceeded() {
		usage := res.Capacity
		out.CapacityWarning = &usage
	}
	metrics.IncRequestSubmitted()
	s.publish(events.TypeRequestSubmitted, r, "")

	s.logger.Info().
		Int64("request_id", r.ID).
		Int64("employee_id", emp.ID).
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Bool("capacity_warning", out.CapacityWarning != nil).
		Msg("request submitted")
	return out, nil
}

// Approve moves a Pending request to Approved. Conflicts are re-asserted
// and capacity becomes a hard block: the count and the status write happen
// under the scope lock inside one transaction, so of two racing approvals
// that would jointly exceed the limit exactly one succeeds.
func (s *Service) Approve(ctx context.Context, id int64) (*model.VacationRequest, error) {
	r, err := s.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(r.Status, model.StatusApproved) {
		return nil, &InvalidTransitionError{From: r.Status, To: model.StatusApproved}
	}

	emp, err := s.store.GetEmployee(ctx, r.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee %d: %w", r.EmployeeID, err)
	}

	res, err := s.validator.Validate(ctx, emp, r.StartDate, r.EndDate, r.ID)
	if err != nil {
		return nil, err
	}
	if res.HasConflicts() {
		return nil, &ConflictError{Conflicts: res.Conflicts}
	}

	scope := capacity.ScopeFor(emp)
	max, err := s.ledger.Limit(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("resolve limit: %w", err)
	}

	lock := s.locks.get(scope.Key())
	lock.Lock()
	defer lock.Unlock()

	entry := &model.AuditEntry{
		RequestID:     r.ID,
		OldStatus:     r.Status,
		NewStatus:     model.StatusApproved,
		ConflictCount: len(res.Conflicts),
	}
	current, approved, err := s.store.ApproveWithCapacity(ctx, r.ID,
		scope.Department, scope.WorkLine, scope.WorkArea, r.StartDate, r.EndDate, max, entry)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Lost a race with another transition on the same request.
			return nil, s.staleTransitionError(ctx, id, model.StatusApproved)
		}
		return nil, err
	}
	if !approved {
		metrics.IncTransition("capacity_rejected")
		return nil, &CapacityExceededError{Current: current, Max: max}
	}

	oldStatus := entry.OldStatus
	r.Status = model.StatusApproved
	metrics.IncTransition("approved")
	s.publish(events.TypeRequestApproved, r, oldStatus)
	s.logger.Info().
		Int64("request_id", r.ID).
		Str("scope", scope.Key()).
		Int("current", current+1).
		Int("max", max).
		Msg("request approved")
	return r, nil
}

// Deny moves a Pending request to Denied. No capacity effect.
func (s *Service) Deny(ctx context.Context, id int64, reason string) (*model.VacationRequest, error) {
	return s.transition(ctx, id, model.StatusDenied, reason)
}

// Cancel moves a Pending or Approved request to Cancelled, immediately
// freeing any capacity it held.
func (s *Service) Cancel(ctx context.Context, id int64) (*model.VacationRequest, error) {
	return s.transition(ctx, id, model.StatusCancelled, "")
}

func (s *Service) transition(ctx context.Context, id int64, to, reason string) (*model.VacationRequest, error) {
	r, err := s.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(r.Status, to) {
		return nil, &InvalidTransitionError{From: r.Status, To: to}
	}

	entry := &model.AuditEntry{
		RequestID: r.ID,
		OldStatus: r.Status,
		NewStatus: to,
		Note:      reason,
	}
	if err := s.store.TransitionRequest(ctx, id, r.Status, to, reason, entry); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, s.staleTransitionError(ctx, id, to)
		}
		return nil, err
	}

	r.Status = to
	if reason != "" {
		r.Reason = reason
	}
	metrics.IncTransition(to)
	switch to {
	case model.StatusDenied:
		s.publish(events.TypeRequestDenied, r, entry.OldStatus)
	case model.StatusCancelled:
		s.publish(events.TypeRequestCancelled, r, entry.OldStatus)
	}
	s.logger.Info().
		Int64("request_id", r.ID).
		Str("old_status", entry.OldStatus).
		Str("new_status", to).
		Msg("request transitioned")
	return r, nil
}

// Validate exposes the admission checks without mutating anything.
func (s *Service) Validate(ctx context.Context, employeeID int64, start, end time.Time, excludeID int64) (*Result, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return s.validator.Validate(ctx, emp, model.DateOnly(start), model.DateOnly(end), excludeID)
}

// Capacity reports current scope occupancy for a date window.
func (s *Service) Capacity(ctx context.Context, scope capacity.Scope, start, end time.Time) (capacity.Usage, error) {
	if err := CheckDates(start, end); err != nil {
		return capacity.Usage{}, err
	}
	return s.ledger.Usage(ctx, scope, model.DateOnly(start), model.DateOnly(end), 0)
}

// GetRequest returns a request by id.
func (s *Service) GetRequest(ctx context.Context, id int64) (*model.VacationRequest, error) {
	return s.getRequest(ctx, id)
}

func (s *Service) getRequest(ctx context.Context, id int64) (*model.VacationRequest, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// staleTransitionError re-reads the request to report what actually
// blocked a conditional update that matched no row.
func (s *Service) staleTransitionError(ctx context.Context, id int64, to string) error {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	return &InvalidTransitionError{From: r.Status, To: to}
}
