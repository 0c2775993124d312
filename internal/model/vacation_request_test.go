package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestBusinessDays(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"full week mon-fri", date(2024, 3, 4), date(2024, 3, 8), 5},
		{"mon-sun counts weekdays only", date(2024, 3, 4), date(2024, 3, 10), 5},
		{"single weekday", date(2024, 3, 6), date(2024, 3, 6), 1},
		{"single saturday", date(2024, 3, 9), date(2024, 3, 9), 0},
		{"weekend only", date(2024, 3, 9), date(2024, 3, 10), 0},
		{"two weeks", date(2024, 3, 4), date(2024, 3, 15), 10},
		{"end before start", date(2024, 3, 8), date(2024, 3, 4), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BusinessDays(tt.start, tt.end))
		})
	}
}

func TestVacationHours(t *testing.T) {
	assert.Equal(t, 40, VacationHours(date(2024, 3, 4), date(2024, 3, 8)))
	assert.Equal(t, 8, VacationHours(date(2024, 3, 6), date(2024, 3, 6)))
}

func TestReturnDateFor(t *testing.T) {
	assert.Equal(t, date(2024, 3, 9), ReturnDateFor(date(2024, 3, 8)))
}

func TestDateRangesOverlap(t *testing.T) {
	tests := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"disjoint before", date(2024, 3, 1), date(2024, 3, 5), date(2024, 3, 6), date(2024, 3, 10), false},
		{"disjoint after", date(2024, 3, 6), date(2024, 3, 10), date(2024, 3, 1), date(2024, 3, 5), false},
		{"touching end boundary", date(2024, 3, 1), date(2024, 3, 5), date(2024, 3, 5), date(2024, 3, 10), true},
		{"touching start boundary", date(2024, 3, 5), date(2024, 3, 10), date(2024, 3, 1), date(2024, 3, 5), true},
		{"contained", date(2024, 3, 1), date(2024, 3, 10), date(2024, 3, 3), date(2024, 3, 4), true},
		{"identical single day", date(2024, 3, 5), date(2024, 3, 5), date(2024, 3, 5), date(2024, 3, 5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DateRangesOverlap(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}

func TestVacationRequest_IsActive(t *testing.T) {
	assert.True(t, (&VacationRequest{Status: StatusPending}).IsActive())
	assert.True(t, (&VacationRequest{Status: StatusApproved}).IsActive())
	assert.False(t, (&VacationRequest{Status: StatusDenied}).IsActive())
	assert.False(t, (&VacationRequest{Status: StatusCancelled}).IsActive())
}

func TestNotificationPreference_Normalize(t *testing.T) {
	p := NotificationPreference{
		DaysBefore:          45,
		NotificationsPerDay: 2,
		NotificationTimes:   []string{"14:00", "09:00", "09:00", "bogus", "17:30"},
	}
	p.Normalize()

	assert.Equal(t, MaxDaysBefore, p.DaysBefore)
	assert.Equal(t, "UTC", p.Timezone)
	assert.Equal(t, []string{"09:00", "14:00"}, p.NotificationTimes)
}

func TestNotificationPreference_NormalizeDefaults(t *testing.T) {
	p := NotificationPreference{DaysBefore: -1, NotificationsPerDay: 0}
	p.Normalize()

	assert.Equal(t, 0, p.DaysBefore)
	assert.Equal(t, 1, p.NotificationsPerDay)
	assert.Empty(t, p.NotificationTimes)
}
