package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/capacity"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/db"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/metrics"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// handleCapacity reports current usage against the resolved limit.
// GET /api/capacity?department=D&work_line=L&work_area=A&start_date=...&end_date=...
func (s *HTTPServer) handleCapacity(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("capacity")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	scope := capacity.Scope{
		Department: q.Get("department"),
		WorkLine:   q.Get("work_line"),
		WorkArea:   q.Get("work_area"),
	}
	if scope.Department == "" {
		writeError(w, http.StatusBadRequest, "department is required")
		return
	}

	start, err := parseDateParam(q.Get("start_date"), "start_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam(q.Get("end_date"), "end_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if start.After(end) {
		writeError(w, http.StatusBadRequest, "start_date must be before or equal to end_date")
		return
	}

	usage, err := s.svc.Capacity(r.Context(), scope, start, end)
	if err != nil {
		s.log.Error().Err(err).Msg("capacity query")
		writeError(w, http.StatusInternalServerError, "failed to compute capacity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scope":   scope,
		"current": usage.Current,
		"max":     usage.Max,
		"full":    usage.Exceeded(),
	})
}

// handlePreferences reads or replaces a supervisor's reminder settings.
// GET /api/preferences?supervisor_id=N
// PUT /api/preferences
func (s *HTTPServer) handlePreferences(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("preferences")

	switch r.Method {
	case http.MethodGet:
		supervisorID, err := strconv.ParseInt(r.URL.Query().Get("supervisor_id"), 10, 64)
		if err != nil || supervisorID <= 0 {
			writeError(w, http.StatusBadRequest, "supervisor_id is required")
			return
		}
		pref, err := s.db.GetPreference(r.Context(), supervisorID)
		if err != nil {
			s.log.Error().Err(err).Msg("get preference")
			writeError(w, http.StatusInternalServerError, "failed to load preference")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"preference": pref})

	case http.MethodPut:
		var pref model.NotificationPreference
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&pref); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if pref.SupervisorID <= 0 {
			writeError(w, http.StatusBadRequest, "supervisor_id is required")
			return
		}
		if _, err := s.db.GetSupervisor(r.Context(), pref.SupervisorID); err != nil {
			if err == db.ErrNotFound {
				writeError(w, http.StatusNotFound, "supervisor not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load supervisor")
			return
		}
		if err := s.db.UpsertPreference(r.Context(), &pref); err != nil {
			s.log.Error().Err(err).Msg("upsert preference")
			writeError(w, http.StatusInternalServerError, "failed to save preference")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"preference": pref})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleHistory lists notification history for a supervisor.
// GET /api/history?supervisor_id=N&status=sent&request_id=M&limit=50&offset=0
func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("history")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	supervisorID, err := strconv.ParseInt(q.Get("supervisor_id"), 10, 64)
	if err != nil || supervisorID <= 0 {
		writeError(w, http.StatusBadRequest, "supervisor_id is required")
		return
	}

	filter := db.HistoryFilter{Status: q.Get("status")}
	filter.RequestID, _ = strconv.ParseInt(q.Get("request_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	rows, err := s.db.ListHistoryBySupervisor(r.Context(), supervisorID, filter)
	if err != nil {
		s.log.Error().Err(err).Msg("list history")
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": rows})
}

// handleDashboard summarizes a supervisor's team activity.
// GET /api/dashboard?supervisor_id=N
func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dashboard")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	supervisorID, err := strconv.ParseInt(r.URL.Query().Get("supervisor_id"), 10, 64)
	if err != nil || supervisorID <= 0 {
		writeError(w, http.StatusBadRequest, "supervisor_id is required")
		return
	}

	counts, err := s.db.CountRequestsByStatus(r.Context(), supervisorID)
	if err != nil {
		s.log.Error().Err(err).Msg("count requests")
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	upcoming, err := s.db.ListUpcomingApproved(r.Context(), supervisorID, model.DateOnly(time.Now()), 10)
	if err != nil {
		s.log.Error().Err(err).Msg("list upcoming")
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status_counts": counts,
		"upcoming":      upcoming,
	})
}
