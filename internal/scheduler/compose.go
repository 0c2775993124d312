package scheduler

import (
	"fmt"
	"strconv"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// ComposeReminder renders the reminder body for one approved request.
func ComposeReminder(emp *model.Employee, req *model.VacationRequest, daysBefore int) string {
	lead := "today"
	switch daysBefore {
	case 1:
		lead = "tomorrow"
	default:
		if daysBefore > 1 {
			lead = fmt.Sprintf("in %d days", daysBefore)
		}
	}

	return fmt.Sprintf(
		"🌴 Vacation reminder\n\n%s (%s, line %s) starts vacation %s.\n\nDates: %s to %s\nBack at work: %s\nPaid hours: %d",
		emp.FullName(),
		emp.Department,
		emp.WorkLine,
		lead,
		req.StartDate.Format("2006-01-02"),
		req.EndDate.Format("2006-01-02"),
		req.ReturnDate.Format("2006-01-02"),
		req.TotalHours,
	)
}

// Recipient picks the delivery address for a supervisor. A per-preference
// override wins over the supervisor's own chat id and phone.
func Recipient(pref *model.NotificationPreference, sup *model.Supervisor) string {
	if pref.PhoneOverride != "" {
		return pref.PhoneOverride
	}
	if sup.ChatID != 0 {
		return strconv.FormatInt(sup.ChatID, 10)
	}
	return sup.Phone
}
