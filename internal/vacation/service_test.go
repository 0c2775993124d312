package vacation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/capacity"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/db"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

type fixture struct {
	db      *db.DB
	service *Service
	sup     *model.Supervisor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.NewDB("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	sup := &model.Supervisor{
		Email: "sup@example.com", FirstName: "Ana", LastName: "Reyes",
		Department: "Production", Shift: "First",
	}
	require.NoError(t, database.CreateSupervisor(context.Background(), sup))

	return &fixture{
		db:      database,
		service: NewService(database, zerolog.Nop()),
		sup:     sup,
	}
}

func (f *fixture) employee(t *testing.T, name, line, area string) *model.Employee {
	t.Helper()
	e := &model.Employee{
		FirstName: name, LastName: "Test", PhoneNumber: "+15550100",
		Department: "Production", Shift: "First", WorkLine: line, WorkArea: area,
		SupervisorID: f.sup.ID,
	}
	require.NoError(t, f.db.CreateEmployee(context.Background(), e))
	return e
}

func (f *fixture) setLimit(t *testing.T, line, area string, max int) {
	t.Helper()
	require.NoError(t, f.db.UpsertAreaLimit(context.Background(), &model.AreaLimit{
		Department: "Production", WorkLine: line, WorkArea: area, MaxConcurrent: max,
	}))
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{model.StatusPending, model.StatusApproved, true},
		{model.StatusPending, model.StatusDenied, true},
		{model.StatusPending, model.StatusCancelled, true},
		{model.StatusApproved, model.StatusCancelled, true},
		{model.StatusApproved, model.StatusDenied, false},
		{model.StatusApproved, model.StatusApproved, false},
		{model.StatusDenied, model.StatusApproved, false},
		{model.StatusCancelled, model.StatusApproved, false},
		{model.StatusDenied, model.StatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestSubmit_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.employee(t, "Luis", "Line1", "Assembly")

	res, err := f.service.Submit(ctx, emp.ID, date(2024, 3, 4), date(2024, 3, 8))
	require.NoError(t, err)
	require.NotNil(t, res.Request)
	assert.Equal(t, model.StatusPending, res.Request.Status)
	assert.Nil(t, res.CapacityWarning)

	got, err := f.service.GetRequest(ctx, res.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 4), got.StartDate)
	assert.Equal(t, date(2024, 3, 8), got.EndDate)
	assert.Equal(t, model.BusinessDays(got.StartDate, got.EndDate)*8, got.TotalHours)
	assert.Equal(t, date(2024, 3, 9), got.ReturnDate)
}

func TestSubmit_ConflictHardBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.employee(t, "Luis", "Line1", "Assembly")

	first, err := f.service.Submit(ctx, emp.ID, date(2024, 3, 4), date(2024, 3, 8))
	require.NoError(t, err)

	// Touching boundary is a conflict.
	_, err = f.service.Submit(ctx, emp.ID, date(2024, 3, 8), date(2024, 3, 12))
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, first.Request.ID, conflictErr.Conflicts[0].RequestID)
	assert.Equal(t, model.StatusPending, conflictErr.Conflicts[0].Status)

	// Disjoint range is fine.
	_, err = f.service.Submit(ctx, emp.ID, date(2024, 3, 11), date(2024, 3, 12))
	require.NoError(t, err)
}

func TestSubmit_CapacityIsWarningOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setLimit(t, "Line1", "Assembly", 1)

	a := f.employee(t, "Luis", "Line1", "Assembly")
	b := f.employee(t, "Mara", "Line1", "Assembly")

	resA, err := f.service.Submit(ctx, a.ID, date(2024, 3, 4), date(2024, 3, 8))
	require.NoError(t, err)
	_, err = f.service.Approve(ctx, resA.Request.ID)
	require.NoError(t, err)

	resB, err := f.service.Submit(ctx, b.ID, date(2024, 3, 5), date(2024, 3, 7))
	require.NoError(t, err)
	require.NotNil(t, resB.CapacityWarning)
	assert.Equal(t, 1, resB.CapacityWarning.Current)
	assert.Equal(t, 1, resB.CapacityWarning.Max)
	assert.Equal(t, model.StatusPending, resB.Request.Status)
}

func TestSubmit_InvalidDates(t *testing.T) {
	f := newFixture(t)
	emp := f.employee(t, "Luis", "Line1", "Assembly")

	_, err := f.service.Submit(context.Background(), emp.ID, date(2024, 3, 8), date(2024, 3, 4))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = f.service.Submit(context.Background(), 999, date(2024, 3, 4), date(2024, 3, 8))
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestApprove_CapacityScenario(t *testing.T) {
	// AreaLimit(Production, Line1, Assembly, max=2): two overlapping
	// approvals fill the scope, the third is rejected with counts.
	f := newFixture(t)
	ctx := context.Background()
	f.setLimit(t, "Line1", "Assembly", 2)

	a := f.employee(t, "Luis", "Line1", "Assembly")
	b := f.employee(t, "Mara", "Line1", "Assembly")
	c := f.employee(t, "Joel", "Line1", "Assembly")

	resA, err := f.service.Submit(ctx, a.ID, date(2024, 3, 1), date(2024, 3, 5))
	require.NoError(t, err)
	resB, err := f.service.Submit(ctx, b.ID, date(2024, 3, 3), date(2024, 3, 8))
	require.NoError(t, err)
	resC, err := f.service.Submit(ctx, c.ID, date(2024, 3, 4), date(2024, 3, 6))
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, resA.Request.ID)
	require.NoError(t, err)
	_, err = f.service.Approve(ctx, resB.Request.ID)
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, resC.Request.ID)
	var capErr *CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.Current)
	assert.Equal(t, 2, capErr.Max)

	got, err := f.service.GetRequest(ctx, resC.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestApprove_ConcurrentRace(t *testing.T) {
	// Two concurrent approvals that would jointly exceed the limit:
	// exactly one Approved, one CapacityExceeded.
	f := newFixture(t)
	ctx := context.Background()
	f.setLimit(t, "Line1", "Assembly", 1)

	a := f.employee(t, "Luis", "Line1", "Assembly")
	b := f.employee(t, "Mara", "Line1", "Assembly")

	resA, err := f.service.Submit(ctx, a.ID, date(2024, 3, 1), date(2024, 3, 5))
	require.NoError(t, err)
	resB, err := f.service.Submit(ctx, b.ID, date(2024, 3, 3), date(2024, 3, 8))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int64{resA.Request.ID, resB.Request.ID} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = f.service.Approve(ctx, id)
		}(i, id)
	}
	wg.Wait()

	var approved, rejected int
	for _, err := range errs {
		var capErr *CapacityExceededError
		switch {
		case err == nil:
			approved++
		case errors.As(err, &capErr):
			rejected++
			assert.Equal(t, 1, capErr.Current)
			assert.Equal(t, 1, capErr.Max)
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, rejected)
}

func TestApprove_DefaultLimitIsOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.employee(t, "Luis", "Line1", "Assembly")
	b := f.employee(t, "Mara", "Line1", "Assembly")

	resA, err := f.service.Submit(ctx, a.ID, date(2024, 3, 1), date(2024, 3, 5))
	require.NoError(t, err)
	resB, err := f.service.Submit(ctx, b.ID, date(2024, 3, 3), date(2024, 3, 8))
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, resA.Request.ID)
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, resB.Request.ID)
	var capErr *CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 1, capErr.Max)
}

func TestDenyAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.employee(t, "Luis", "Line1", "Assembly")

	res, err := f.service.Submit(ctx, emp.ID, date(2024, 3, 1), date(2024, 3, 5))
	require.NoError(t, err)

	denied, err := f.service.Deny(ctx, res.Request.ID, "short staffed")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDenied, denied.Status)
	assert.Equal(t, "short staffed", denied.Reason)

	// Terminal: nothing more is allowed.
	_, err = f.service.Cancel(ctx, res.Request.ID)
	var transErr *InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, model.StatusDenied, transErr.From)
}

func TestCancel_FreesCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setLimit(t, "Line1", "Assembly", 1)

	a := f.employee(t, "Luis", "Line1", "Assembly")
	b := f.employee(t, "Mara", "Line1", "Assembly")

	resA, err := f.service.Submit(ctx, a.ID, date(2024, 3, 1), date(2024, 3, 5))
	require.NoError(t, err)
	resB, err := f.service.Submit(ctx, b.ID, date(2024, 3, 3), date(2024, 3, 8))
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, resA.Request.ID)
	require.NoError(t, err)
	_, err = f.service.Approve(ctx, resB.Request.ID)
	require.Error(t, err)

	_, err = f.service.Cancel(ctx, resA.Request.ID)
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, resB.Request.ID)
	require.NoError(t, err)
}

func TestApprove_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Approve(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCapacityQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setLimit(t, "Line1", "Assembly", 2)

	emp := f.employee(t, "Luis", "Line1", "Assembly")
	res, err := f.service.Submit(ctx, emp.ID, date(2024, 3, 1), date(2024, 3, 5))
	require.NoError(t, err)
	_, err = f.service.Approve(ctx, res.Request.ID)
	require.NoError(t, err)

	scope := capacity.Scope{Department: "Production", WorkLine: "Line1", WorkArea: "Assembly"}
	usage, err := f.service.Capacity(ctx, scope, date(2024, 3, 4), date(2024, 3, 6))
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Current)
	assert.Equal(t, 2, usage.Max)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.employee(t, "Luis", "Line1", "Assembly")

	res, err := f.service.Submit(ctx, emp.ID, date(2024, 3, 1), date(2024, 3, 5))
	require.NoError(t, err)
	_, err = f.service.Approve(ctx, res.Request.ID)
	require.NoError(t, err)
	_, err = f.service.Cancel(ctx, res.Request.ID)
	require.NoError(t, err)

	entries, err := f.db.ListAuditEntries(ctx, res.Request.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.StatusPending, entries[0].NewStatus)
	assert.Equal(t, model.StatusApproved, entries[1].NewStatus)
	assert.Equal(t, model.StatusCancelled, entries[2].NewStatus)
	assert.Equal(t, model.StatusApproved, entries[2].OldStatus)
}
