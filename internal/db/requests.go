package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

const requestColumns = `id, employee_id, supervisor_id, start_date, end_date, return_date,
	total_hours, status, COALESCE(reason, ''), created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (*model.VacationRequest, error) {
	var r model.VacationRequest
	var start, end, ret string
	err := row.Scan(&r.ID, &r.EmployeeID, &r.SupervisorID, &start, &end, &ret,
		&r.TotalHours, &r.Status, &r.Reason, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if r.StartDate, err = parseDate(start); err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	if r.EndDate, err = parseDate(end); err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}
	if r.ReturnDate, err = parseDate(ret); err != nil {
		return nil, fmt.Errorf("return_date: %w", err)
	}
	return &r, nil
}

// CreateRequest inserts a new vacation request together with its audit
// entry in one transaction.
func (db *DB) CreateRequest(ctx context.Context, r *model.VacationRequest, entry *model.AuditEntry) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO vacation_requests
				(employee_id, supervisor_id, start_date, end_date, return_date, total_hours, status, reason, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.EmployeeID, r.SupervisorID, dateStr(r.StartDate), dateStr(r.EndDate), dateStr(r.ReturnDate),
			r.TotalHours, r.Status, r.Reason, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		r.ID = id
		entry.RequestID = id
		return insertAuditEntry(ctx, tx, entry)
	})
}

// GetRequest returns a request by id.
func (db *DB) GetRequest(ctx context.Context, id int64) (*model.VacationRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM vacation_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// ListActiveByEmployee returns Pending and Approved requests for an
// employee whose ranges intersect [start, end] inclusively, excluding
// excludeID when > 0.
func (db *DB) ListActiveByEmployee(ctx context.Context, employeeID int64, start, end time.Time, excludeID int64) ([]model.VacationRequest, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM vacation_requests
		WHERE employee_id = ?
		  AND status IN (?, ?)
		  AND id != ?
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date`,
		employeeID, model.StatusPending, model.StatusApproved, excludeID,
		dateStr(end), dateStr(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// CountApprovedInScope counts approved requests from employees sharing the
// exact scope whose ranges intersect [start, end] inclusively.
func (db *DB) CountApprovedInScope(ctx context.Context, dept, line, area string, start, end time.Time, excludeID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, countApprovedQuery,
		model.StatusApproved, dept, line, area, excludeID, dateStr(end), dateStr(start),
	).Scan(&count)
	return count, err
}

const countApprovedQuery = `
	SELECT COUNT(*)
	FROM vacation_requests vr
	JOIN employees e ON vr.employee_id = e.id
	WHERE vr.status = ?
	  AND e.department = ? AND e.work_line = ? AND e.work_area = ?
	  AND vr.id != ?
	  AND vr.start_date <= ? AND vr.end_date >= ?`

// ApproveWithCapacity re-counts scope usage and flips the request to
// Approved inside one transaction. Returns the count observed and whether
// the approval was committed; approved=false means the scope was full.
// The caller holds the per-scope lock, the transaction makes the
// count-then-write pair atomic against every other writer.
func (db *DB) ApproveWithCapacity(ctx context.Context, id int64, dept, line, area string, start, end time.Time, max int, entry *model.AuditEntry) (current int, approved bool, err error) {
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, countApprovedQuery,
			model.StatusApproved, dept, line, area, id, dateStr(end), dateStr(start),
		).Scan(&current); err != nil {
			return fmt.Errorf("count scope usage: %w", err)
		}
		if current >= max {
			return nil
		}

		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE vacation_requests SET status = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			model.StatusApproved, now, id, model.StatusPending)
		if err != nil {
			return fmt.Errorf("approve request: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		approved = true
		entry.CapacityCurrent = current
		entry.CapacityMax = max
		return insertAuditEntry(ctx, tx, entry)
	})
	return current, approved, err
}

// TransitionRequest updates the status of a request and appends the audit
// entry in the same transaction. The update only applies when the request
// is still in fromStatus; otherwise ErrNotFound is returned and the caller
// re-reads to distinguish a missing row from a stale transition.
func (db *DB) TransitionRequest(ctx context.Context, id int64, fromStatus, toStatus, reason string, entry *model.AuditEntry) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE vacation_requests
			SET status = ?, reason = COALESCE(NULLIF(?, ''), reason), updated_at = ?
			WHERE id = ? AND status = ?`,
			toStatus, reason, now, id, fromStatus)
		if err != nil {
			return fmt.Errorf("transition request: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return insertAuditEntry(ctx, tx, entry)
	})
}

// ListApprovedStartingOn returns approved requests whose vacation begins on
// the given date.
func (db *DB) ListApprovedStartingOn(ctx context.Context, start time.Time) ([]model.VacationRequest, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM vacation_requests
		WHERE status = ? AND start_date = ?
		ORDER BY id`,
		model.StatusApproved, dateStr(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListRequestsBySupervisor returns all requests owned by a supervisor,
// newest first.
func (db *DB) ListRequestsBySupervisor(ctx context.Context, supervisorID int64) ([]model.VacationRequest, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM vacation_requests
		WHERE supervisor_id = ?
		ORDER BY created_at DESC`,
		supervisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// CountRequestsByStatus returns request counts per status for a supervisor.
func (db *DB) CountRequestsByStatus(ctx context.Context, supervisorID int64) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM vacation_requests
		WHERE supervisor_id = ?
		GROUP BY status`,
		supervisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ListAllActiveRequests returns every Pending and Approved request,
// ordered by start date. Used by the spreadsheet sync.
func (db *DB) ListAllActiveRequests(ctx context.Context) ([]model.VacationRequest, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM vacation_requests
		WHERE status IN (?, ?)
		ORDER BY start_date, id`,
		model.StatusPending, model.StatusApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListUpcomingApproved returns the next approved vacations starting on or
// after the given date for a supervisor, earliest first.
func (db *DB) ListUpcomingApproved(ctx context.Context, supervisorID int64, from time.Time, limit int) ([]model.VacationRequest, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM vacation_requests
		WHERE supervisor_id = ? AND status = ? AND start_date >= ?
		ORDER BY start_date
		LIMIT ?`,
		supervisorID, model.StatusApproved, dateStr(from), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func collectRequests(rows *sql.Rows) ([]model.VacationRequest, error) {
	var out []model.VacationRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
