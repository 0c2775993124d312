// Package db implements the relational store on sqlite. All mutating
// operations set updated_at explicitly; nothing relies on write-time
// triggers.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the vacation manager.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS supervisors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			department TEXT NOT NULL,
			shift TEXT NOT NULL,
			phone TEXT,
			chat_id INTEGER,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS employees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			department TEXT NOT NULL,
			shift TEXT NOT NULL,
			work_line TEXT NOT NULL,
			work_area TEXT NOT NULL,
			supervisor_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (supervisor_id) REFERENCES supervisors(id)
		)`,

		// Dates are stored as YYYY-MM-DD text so range comparisons and
		// equality behave the same everywhere.
		`CREATE TABLE IF NOT EXISTS vacation_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_id INTEGER NOT NULL,
			supervisor_id INTEGER NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			return_date TEXT NOT NULL,
			total_hours INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'Pending',
			reason TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (employee_id) REFERENCES employees(id),
			FOREIGN KEY (supervisor_id) REFERENCES supervisors(id)
		)`,

		`CREATE TABLE IF NOT EXISTS area_limits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			department TEXT NOT NULL,
			work_line TEXT NOT NULL DEFAULT '',
			work_area TEXT NOT NULL DEFAULT '',
			max_concurrent INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (department, work_line, work_area)
		)`,

		`CREATE TABLE IF NOT EXISTS notification_preferences (
			supervisor_id INTEGER PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT 1,
			days_before INTEGER NOT NULL DEFAULT 2,
			notifications_per_day INTEGER NOT NULL DEFAULT 1,
			notification_times TEXT NOT NULL DEFAULT '09:00',
			phone_override TEXT,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (supervisor_id) REFERENCES supervisors(id)
		)`,

		`CREATE TABLE IF NOT EXISTS notification_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			supervisor_id INTEGER NOT NULL,
			vacation_request_id INTEGER NOT NULL,
			slot_date TEXT NOT NULL,
			slot_time TEXT NOT NULL,
			channel TEXT NOT NULL,
			content TEXT NOT NULL,
			provider_message_id TEXT,
			provider_status TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			sent_at DATETIME,
			delivered_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (supervisor_id) REFERENCES supervisors(id),
			FOREIGN KEY (vacation_request_id) REFERENCES vacation_requests(id),
			UNIQUE (vacation_request_id, slot_date, slot_time)
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			request_id INTEGER NOT NULL,
			old_status TEXT NOT NULL,
			new_status TEXT NOT NULL,
			conflict_count INTEGER NOT NULL DEFAULT 0,
			capacity_current INTEGER NOT NULL DEFAULT 0,
			capacity_max INTEGER NOT NULL DEFAULT 0,
			note TEXT,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_requests_employee ON vacation_requests(employee_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_dates ON vacation_requests(status, start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_supervisor ON vacation_requests(supervisor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_employees_supervisor ON employees(supervisor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_supervisor ON notification_history(supervisor_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_request ON audit_log(request_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const (
	txRetries    = 3
	txRetryDelay = 50 * time.Millisecond
)

// IsTransient reports whether an error is worth retrying at the
// transaction boundary (lock contention, busy database).
func IsTransient(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// withTx runs fn inside a transaction, retrying transient failures with
// a short backoff. Permanent errors are surfaced to the caller.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * txRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			lastErr = err
			if IsTransient(err) {
				continue
			}
			return err
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			lastErr = err
			if IsTransient(err) {
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			lastErr = err
			if IsTransient(err) {
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", txRetries, lastErr)
}

// dateStr formats a date-only column value.
func dateStr(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// parseDate reads a date-only column value back into midnight UTC.
func parseDate(s string) (time.Time, error) {
	// Older rows may carry a full timestamp.
	if len(s) > 10 {
		s = s[:10]
	}
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}
