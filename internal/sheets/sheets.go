// Package sheets mirrors vacation requests into a shared Google
// Spreadsheet so plant managers can see the schedule without touching
// the service itself.
package sheets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// requestHeader is the fixed column layout of the requests sheet.
var requestHeader = []interface{}{
	"ID", "Employee", "Department", "Line", "Area",
	"Start", "End", "Return", "Hours", "Status",
}

// SheetsService pushes request rows to one spreadsheet tab. Row
// positions are cached per request id so repeated syncs update in place
// instead of re-scanning the sheet.
type SheetsService struct {
	srv           *sheetsapi.Service
	spreadsheetID string
	sheetName     string
	logger        zerolog.Logger

	cacheMu  sync.RWMutex
	rowCache map[int64]int
}

// NewSheetsService authenticates with a service-account credentials file
// and targets one spreadsheet tab.
func NewSheetsService(ctx context.Context, credentialsPath, spreadsheetID, sheetName string, logger zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	srv, err := sheetsapi.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	if sheetName == "" {
		sheetName = "Requests"
	}

	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.With().Str("component", "sheets").Logger(),
		rowCache:      make(map[int64]int),
	}, nil
}

// SyncRequest writes or updates the row for one request.
func (s *SheetsService) SyncRequest(ctx context.Context, req *model.VacationRequest, emp *model.Employee) error {
	values := requestRowValues(req, emp)

	if row, ok := s.getCachedRow(req.ID); ok {
		return s.updateRow(ctx, row, values)
	}

	row, err := s.findRowByID(ctx, req.ID)
	if err != nil {
		return err
	}
	if row > 0 {
		s.setCachedRow(req.ID, row)
		return s.updateRow(ctx, row, values)
	}
	return s.appendRow(ctx, req.ID, values)
}

// SyncAll rewrites the whole sheet from scratch: header plus one row per
// active request. Terminal requests are dropped from the view.
func (s *SheetsService) SyncAll(ctx context.Context, requests []model.VacationRequest, employees map[int64]*model.Employee) error {
	active := filterActive(requests)
	rows := [][]interface{}{requestHeader}
	for i := range active {
		rows = append(rows, requestRowValues(&active[i], employees[active[i].EmployeeID]))
	}

	if _, err := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetName, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, s.sheetName+"!A1",
		&sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.ClearCache()
	for i := range active {
		s.setCachedRow(active[i].ID, i+2)
	}
	s.logger.Info().Int("rows", len(active)).Msg("spreadsheet rebuilt")
	return nil
}

func (s *SheetsService) updateRow(ctx context.Context, row int, values []interface{}) error {
	rangeRef := fmt.Sprintf("%s!A%d", s.sheetName, row)
	_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, rangeRef,
		&sheetsapi.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d: %w", row, err)
	}
	return nil
}

func (s *SheetsService) appendRow(ctx context.Context, requestID int64, values []interface{}) error {
	res, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!A1",
		&sheetsapi.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	if res.Updates != nil && res.Updates.UpdatedRange != "" {
		if row := parseRowFromRange(res.Updates.UpdatedRange); row > 0 {
			s.setCachedRow(requestID, row)
		}
	}
	return nil
}

// findRowByID scans column A for the request id. Returns 0 when absent.
func (s *SheetsService) findRowByID(ctx context.Context, requestID int64) (int, error) {
	res, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A:A").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read id column: %w", err)
	}
	want := fmt.Sprintf("%d", requestID)
	for i, row := range res.Values {
		if len(row) > 0 && fmt.Sprintf("%v", row[0]) == want {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (s *SheetsService) getCachedRow(requestID int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[requestID]
	return row, ok
}

func (s *SheetsService) setCachedRow(requestID int64, row int) {
	s.cacheMu.Lock()
	s.rowCache[requestID] = row
	s.cacheMu.Unlock()
}

func (s *SheetsService) deleteCachedRow(requestID int64) {
	s.cacheMu.Lock()
	delete(s.rowCache, requestID)
	s.cacheMu.Unlock()
}

// ClearCache drops all cached row positions.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	s.rowCache = make(map[int64]int)
	s.cacheMu.Unlock()
}

// filterActive keeps Pending and Approved requests.
func filterActive(requests []model.VacationRequest) []model.VacationRequest {
	out := make([]model.VacationRequest, 0, len(requests))
	for _, r := range requests {
		if r.IsActive() {
			out = append(out, r)
		}
	}
	return out
}

// requestRowValues flattens one request into the sheet's column layout.
func requestRowValues(req *model.VacationRequest, emp *model.Employee) []interface{} {
	name, dept, line, area := "", "", "", ""
	if emp != nil {
		name = emp.FullName()
		dept = emp.Department
		line = emp.WorkLine
		area = emp.WorkArea
	}
	return []interface{}{
		req.ID,
		name,
		dept,
		line,
		area,
		req.StartDate.Format("2006-01-02"),
		req.EndDate.Format("2006-01-02"),
		req.ReturnDate.Format("2006-01-02"),
		req.TotalHours,
		req.Status,
	}
}

// parseRowFromRange extracts the row number from a range like
// "Requests!A5:J5".
func parseRowFromRange(rangeRef string) int {
	row := 0
	inDigits := false
	for _, c := range rangeRef {
		switch {
		case c >= '0' && c <= '9':
			row = row*10 + int(c-'0')
			inDigits = true
		case c == ':':
			if inDigits {
				return row
			}
		default:
			row = 0
			inDigits = false
		}
	}
	return row
}
