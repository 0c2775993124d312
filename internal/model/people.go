package model

import "time"

// Supervisor owns a group of employees and a single notification preference.
type Supervisor struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Department string    `json:"department"`
	Shift      string    `json:"shift"`
	Phone      string    `json:"phone,omitempty"`
	ChatID     int64     `json:"chat_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Employee belongs to a supervisor and carries the scope attributes used
// for capacity accounting.
type Employee struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	Department   string    `json:"department"`
	Shift        string    `json:"shift"`
	WorkLine     string    `json:"work_line"`
	WorkArea     string    `json:"work_area"`
	SupervisorID int64     `json:"supervisor_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins first and last name for display in messages.
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}
