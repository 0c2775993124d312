package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func seedPeople(t *testing.T, database *DB) (*model.Supervisor, *model.Employee) {
	t.Helper()
	ctx := context.Background()

	sup := &model.Supervisor{
		Email: "sup@example.com", FirstName: "Ana", LastName: "Reyes",
		Department: "Production", Shift: "First", ChatID: 1001,
	}
	require.NoError(t, database.CreateSupervisor(ctx, sup))

	emp := &model.Employee{
		FirstName: "Luis", LastName: "Ortega", PhoneNumber: "+15550100",
		Department: "Production", Shift: "First", WorkLine: "Line1", WorkArea: "Assembly",
		SupervisorID: sup.ID,
	}
	require.NoError(t, database.CreateEmployee(ctx, emp))
	return sup, emp
}

func seedRequest(t *testing.T, database *DB, emp *model.Employee, start, end time.Time, status string) *model.VacationRequest {
	t.Helper()
	ctx := context.Background()

	r := &model.VacationRequest{
		EmployeeID:   emp.ID,
		SupervisorID: emp.SupervisorID,
		StartDate:    start,
		EndDate:      end,
		ReturnDate:   model.ReturnDateFor(end),
		TotalHours:   model.VacationHours(start, end),
		Status:       model.StatusPending,
	}
	entry := &model.AuditEntry{OldStatus: "", NewStatus: model.StatusPending}
	require.NoError(t, database.CreateRequest(ctx, r, entry))

	if status != model.StatusPending {
		e := &model.AuditEntry{RequestID: r.ID, OldStatus: model.StatusPending, NewStatus: status}
		require.NoError(t, database.TransitionRequest(ctx, r.ID, model.StatusPending, status, "", e))
		r.Status = status
	}
	return r
}

func TestCreateAndGetRequest(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	_, emp := seedPeople(t, database)

	r := seedRequest(t, database, emp, date(2024, 3, 4), date(2024, 3, 8), model.StatusPending)

	got, err := database.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 4), got.StartDate)
	assert.Equal(t, date(2024, 3, 8), got.EndDate)
	assert.Equal(t, date(2024, 3, 9), got.ReturnDate)
	assert.Equal(t, 40, got.TotalHours)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())

	entries, err := database.ListAuditEntries(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusPending, entries[0].NewStatus)
}

func TestGetRequest_NotFound(t *testing.T) {
	database := testDB(t)
	_, err := database.GetRequest(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActiveByEmployee_InclusiveOverlap(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	_, emp := seedPeople(t, database)

	seedRequest(t, database, emp, date(2024, 3, 1), date(2024, 3, 5), model.StatusApproved)
	seedRequest(t, database, emp, date(2024, 3, 10), date(2024, 3, 12), model.StatusDenied)

	// Touching boundary counts as overlap.
	got, err := database.ListActiveByEmployee(ctx, emp.ID, date(2024, 3, 5), date(2024, 3, 7), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Denied requests never conflict.
	got, err = database.ListActiveByEmployee(ctx, emp.ID, date(2024, 3, 10), date(2024, 3, 12), 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Disjoint window.
	got, err = database.ListActiveByEmployee(ctx, emp.ID, date(2024, 3, 6), date(2024, 3, 7), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCountApprovedInScope(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	sup, emp := seedPeople(t, database)

	other := &model.Employee{
		FirstName: "Mara", LastName: "Silva", PhoneNumber: "+15550101",
		Department: "Production", Shift: "First", WorkLine: "Line1", WorkArea: "Assembly",
		SupervisorID: sup.ID,
	}
	require.NoError(t, database.CreateEmployee(ctx, other))

	elsewhere := &model.Employee{
		FirstName: "Joel", LastName: "Nunez", PhoneNumber: "+15550102",
		Department: "Production", Shift: "First", WorkLine: "Line2", WorkArea: "Assembly",
		SupervisorID: sup.ID,
	}
	require.NoError(t, database.CreateEmployee(ctx, elsewhere))

	seedRequest(t, database, emp, date(2024, 3, 1), date(2024, 3, 5), model.StatusApproved)
	seedRequest(t, database, other, date(2024, 3, 3), date(2024, 3, 8), model.StatusApproved)
	seedRequest(t, database, elsewhere, date(2024, 3, 1), date(2024, 3, 8), model.StatusApproved)

	count, err := database.CountApprovedInScope(ctx, "Production", "Line1", "Assembly",
		date(2024, 3, 4), date(2024, 3, 6), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = database.CountApprovedInScope(ctx, "Production", "Line1", "Assembly",
		date(2024, 3, 9), date(2024, 3, 10), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestApproveWithCapacity(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	_, emp := seedPeople(t, database)

	seedRequest(t, database, emp, date(2024, 3, 1), date(2024, 3, 5), model.StatusApproved)
	second := seedRequest(t, database, emp, date(2024, 3, 3), date(2024, 3, 8), model.StatusPending)

	entry := &model.AuditEntry{RequestID: second.ID, OldStatus: model.StatusPending, NewStatus: model.StatusApproved}
	current, approved, err := database.ApproveWithCapacity(ctx, second.ID,
		"Production", "Line1", "Assembly", second.StartDate, second.EndDate, 1, entry)
	require.NoError(t, err)
	assert.False(t, approved)
	assert.Equal(t, 1, current)

	got, err := database.GetRequest(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)

	current, approved, err = database.ApproveWithCapacity(ctx, second.ID,
		"Production", "Line1", "Assembly", second.StartDate, second.EndDate, 2, entry)
	require.NoError(t, err)
	assert.True(t, approved)
	assert.Equal(t, 1, current)

	got, err = database.GetRequest(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
}

func TestTransitionRequest_StaleStatus(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	_, emp := seedPeople(t, database)

	r := seedRequest(t, database, emp, date(2024, 3, 1), date(2024, 3, 5), model.StatusDenied)

	entry := &model.AuditEntry{RequestID: r.ID, OldStatus: model.StatusPending, NewStatus: model.StatusCancelled}
	err := database.TransitionRequest(ctx, r.ID, model.StatusPending, model.StatusCancelled, "", entry)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAreaLimits_UpsertAndList(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	require.NoError(t, database.UpsertAreaLimit(ctx, &model.AreaLimit{
		Department: "Production", WorkLine: "Line1", WorkArea: "Assembly", MaxConcurrent: 2,
	}))
	require.NoError(t, database.UpsertAreaLimit(ctx, &model.AreaLimit{
		Department: "Production", MaxConcurrent: 5,
	}))
	// Upsert overwrites max for the same scope.
	require.NoError(t, database.UpsertAreaLimit(ctx, &model.AreaLimit{
		Department: "Production", WorkLine: "Line1", WorkArea: "Assembly", MaxConcurrent: 3,
	}))

	limits, err := database.ListAreaLimits(ctx, "Production")
	require.NoError(t, err)
	require.Len(t, limits, 2)
	assert.Equal(t, 3, limits[0].MaxConcurrent)

	err = database.UpsertAreaLimit(ctx, &model.AreaLimit{Department: "Production", MaxConcurrent: 0})
	assert.Error(t, err)
}

func TestPreferences_Roundtrip(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	sup, _ := seedPeople(t, database)

	p := &model.NotificationPreference{
		SupervisorID:        sup.ID,
		Enabled:             true,
		DaysBefore:          2,
		NotificationsPerDay: 3,
		NotificationTimes:   []string{"14:00", "09:00", "18:30"},
		Timezone:            "America/Chicago",
	}
	require.NoError(t, database.UpsertPreference(ctx, p))

	got, err := database.GetPreference(ctx, sup.ID)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.Equal(t, 2, got.DaysBefore)
	assert.Equal(t, []string{"09:00", "14:00", "18:30"}, got.NotificationTimes)
	assert.Equal(t, "America/Chicago", got.Timezone)

	enabled, err := database.ListEnabledPreferences(ctx)
	require.NoError(t, err)
	assert.Len(t, enabled, 1)
}

func TestPreferences_DefaultWhenMissing(t *testing.T) {
	database := testDB(t)

	got, err := database.GetPreference(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "UTC", got.Timezone)
}

func TestHistory_SlotIdempotency(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	sup, emp := seedPeople(t, database)
	r := seedRequest(t, database, emp, date(2024, 4, 10), date(2024, 4, 12), model.StatusApproved)

	h := &model.NotificationHistory{
		SupervisorID:      sup.ID,
		VacationRequestID: r.ID,
		SlotDate:          date(2024, 4, 8),
		SlotTime:          "09:00",
		Channel:           "telegram",
		Content:           "reminder",
	}
	created, err := database.CreateHistory(ctx, h)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, h.ID)

	dup := &model.NotificationHistory{
		SupervisorID:      sup.ID,
		VacationRequestID: r.ID,
		SlotDate:          date(2024, 4, 8),
		SlotTime:          "09:00",
		Channel:           "telegram",
		Content:           "reminder again",
	}
	created, err = database.CreateHistory(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := database.HistoryExists(ctx, r.ID, date(2024, 4, 8), "09:00")
	require.NoError(t, err)
	assert.True(t, exists)

	// A different slot time on the same day is a new slot.
	other := &model.NotificationHistory{
		SupervisorID:      sup.ID,
		VacationRequestID: r.ID,
		SlotDate:          date(2024, 4, 8),
		SlotTime:          "15:00",
		Channel:           "telegram",
		Content:           "reminder",
	}
	created, err = database.CreateHistory(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestHistory_StatusLifecycle(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	sup, emp := seedPeople(t, database)
	r := seedRequest(t, database, emp, date(2024, 4, 10), date(2024, 4, 12), model.StatusApproved)

	h := &model.NotificationHistory{
		SupervisorID:      sup.ID,
		VacationRequestID: r.ID,
		SlotDate:          date(2024, 4, 8),
		SlotTime:          "09:00",
		Channel:           "telegram",
		Content:           "reminder",
	}
	_, err := database.CreateHistory(ctx, h)
	require.NoError(t, err)

	require.NoError(t, database.MarkHistorySent(ctx, h.ID, "prov-123", "queued"))

	list, err := database.ListHistoryBySupervisor(ctx, sup.ID, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.DeliverySent, list[0].Status)
	assert.Equal(t, "prov-123", list[0].ProviderMessageID)
	require.NotNil(t, list[0].SentAt)

	require.NoError(t, database.UpdateDeliveryStatus(ctx, "prov-123", model.DeliveryDelivered, "delivered"))
	list, err = database.ListHistoryBySupervisor(ctx, sup.ID, HistoryFilter{Status: model.DeliveryDelivered})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].DeliveredAt)

	err = database.UpdateDeliveryStatus(ctx, "unknown", model.DeliveryDelivered, "delivered")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDashboardQueries(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	sup, emp := seedPeople(t, database)

	seedRequest(t, database, emp, date(2030, 3, 1), date(2030, 3, 5), model.StatusApproved)
	seedRequest(t, database, emp, date(2030, 4, 1), date(2030, 4, 5), model.StatusPending)
	seedRequest(t, database, emp, date(2030, 5, 1), date(2030, 5, 5), model.StatusDenied)

	counts, err := database.CountRequestsByStatus(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.StatusApproved])
	assert.Equal(t, 1, counts[model.StatusPending])
	assert.Equal(t, 1, counts[model.StatusDenied])

	upcoming, err := database.ListUpcomingApproved(ctx, sup.ID, date(2030, 1, 1), 10)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, date(2030, 3, 1), upcoming[0].StartDate)

	all, err := database.ListRequestsBySupervisor(ctx, sup.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListApprovedStartingOn(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	_, emp := seedPeople(t, database)

	seedRequest(t, database, emp, date(2024, 4, 10), date(2024, 4, 12), model.StatusApproved)
	seedRequest(t, database, emp, date(2024, 4, 11), date(2024, 4, 12), model.StatusPending)

	got, err := database.ListApprovedStartingOn(ctx, date(2024, 4, 10))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = database.ListApprovedStartingOn(ctx, date(2024, 4, 11))
	require.NoError(t, err)
	assert.Empty(t, got)
}
