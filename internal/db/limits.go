package db

import (
	"context"
	"fmt"
	"time"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// ListAreaLimits returns all limits for a department in insertion order.
func (db *DB) ListAreaLimits(ctx context.Context, department string) ([]model.AreaLimit, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, department, work_line, work_area, max_concurrent, created_at, updated_at
		FROM area_limits WHERE department = ? ORDER BY id`,
		department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AreaLimit
	for rows.Next() {
		var l model.AreaLimit
		if err := rows.Scan(&l.ID, &l.Department, &l.WorkLine, &l.WorkArea,
			&l.MaxConcurrent, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertAreaLimit creates or updates the limit for a scope.
func (db *DB) UpsertAreaLimit(ctx context.Context, l *model.AreaLimit) error {
	if l.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be >= 1, got %d", l.MaxConcurrent)
	}
	now := time.Now().UTC()

	_, err := db.ExecContext(ctx, `
		INSERT INTO area_limits (department, work_line, work_area, max_concurrent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(department, work_line, work_area) DO UPDATE SET
			max_concurrent = excluded.max_concurrent,
			updated_at = excluded.updated_at`,
		l.Department, l.WorkLine, l.WorkArea, l.MaxConcurrent, now, now)
	return err
}
