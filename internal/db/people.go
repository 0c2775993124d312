package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// CreateSupervisor inserts a supervisor.
func (db *DB) CreateSupervisor(ctx context.Context, s *model.Supervisor) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	res, err := db.ExecContext(ctx, `
		INSERT INTO supervisors (email, first_name, last_name, department, shift, phone, chat_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Email, s.FirstName, s.LastName, s.Department, s.Shift, s.Phone, s.ChatID, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert supervisor: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

// GetSupervisor returns a supervisor by id.
func (db *DB) GetSupervisor(ctx context.Context, id int64) (*model.Supervisor, error) {
	var s model.Supervisor
	var phone sql.NullString
	var chatID sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, department, shift, phone, chat_id, created_at, updated_at
		FROM supervisors WHERE id = ?`, id,
	).Scan(&s.ID, &s.Email, &s.FirstName, &s.LastName, &s.Department, &s.Shift,
		&phone, &chatID, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Phone = phone.String
	s.ChatID = chatID.Int64
	return &s, nil
}

// CreateEmployee inserts an employee.
func (db *DB) CreateEmployee(ctx context.Context, e *model.Employee) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	res, err := db.ExecContext(ctx, `
		INSERT INTO employees (first_name, last_name, phone_number, department, shift, work_line, work_area, supervisor_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FirstName, e.LastName, e.PhoneNumber, e.Department, e.Shift, e.WorkLine, e.WorkArea,
		e.SupervisorID, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// GetEmployee returns an employee by id.
func (db *DB) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	var e model.Employee
	err := db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, phone_number, department, shift, work_line, work_area, supervisor_id, created_at, updated_at
		FROM employees WHERE id = ?`, id,
	).Scan(&e.ID, &e.FirstName, &e.LastName, &e.PhoneNumber, &e.Department, &e.Shift,
		&e.WorkLine, &e.WorkArea, &e.SupervisorID, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEmployeesBySupervisor returns all employees owned by a supervisor.
func (db *DB) ListEmployeesBySupervisor(ctx context.Context, supervisorID int64) ([]model.Employee, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, first_name, last_name, phone_number, department, shift, work_line, work_area, supervisor_id, created_at, updated_at
		FROM employees WHERE supervisor_id = ? ORDER BY last_name, first_name`,
		supervisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.PhoneNumber, &e.Department, &e.Shift,
			&e.WorkLine, &e.WorkArea, &e.SupervisorID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
