// Package audit produces the monthly activity report: every table
// exported to a workbook, delivered to the plant managers, followed by
// retention cleanup of old notification history.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"
)

// TableExporter provides access to database tables for export.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
	GetDB() *sql.DB
}

// ReportWriter writes tabular data to a workbook.
type ReportWriter interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []interface{}) error
	Save(w io.Writer) error
	SaveToFile(path string) error
}

// Notifier delivers the finished report to the managers.
type Notifier interface {
	SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error
}

// HistoryCleaner deletes notification history past the retention window.
type HistoryCleaner interface {
	DeleteOldHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ReportFilename names the workbook for the month containing t.
func ReportFilename(t time.Time) string {
	return fmt.Sprintf("vacation_report_%s.xlsx", t.Format("2006_January"))
}

// PreviousMonthFilename names the workbook for the month that just ended.
func PreviousMonthFilename() string {
	return ReportFilename(time.Now().AddDate(0, -1, 0))
}
