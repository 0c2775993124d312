package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/db"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/metrics"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/vacation"
)

// SubmitRequest is the request body for POST /api/requests.
type SubmitRequest struct {
	EmployeeID int64  `json:"employee_id"`
	StartDate  string `json:"start_date"` // Format: YYYY-MM-DD
	EndDate    string `json:"end_date"`   // Format: YYYY-MM-DD
}

// TransitionBody carries an optional reason for deny.
type TransitionBody struct {
	Reason string `json:"reason,omitempty"`
}

// handleRequests submits a new vacation request.
// POST /api/requests
// GET  /api/requests?supervisor_id=N
func (s *HTTPServer) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.submitRequest(w, r)
	case http.MethodGet:
		s.listRequests(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) submitRequest(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("submit_request")

	var req SubmitRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.EmployeeID <= 0 {
		writeError(w, http.StatusBadRequest, "employee_id is required")
		return
	}
	start, err := parseDateParam(req.StartDate, "start_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam(req.EndDate, "end_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.svc.Submit(r.Context(), req.EmployeeID, start, end)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := map[string]any{"request": result.Request}
	if result.CapacityWarning != nil {
		resp["capacity_warning"] = result.CapacityWarning
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *HTTPServer) listRequests(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_requests")

	supervisorID, err := strconv.ParseInt(r.URL.Query().Get("supervisor_id"), 10, 64)
	if err != nil || supervisorID <= 0 {
		writeError(w, http.StatusBadRequest, "supervisor_id is required")
		return
	}

	requests, err := s.db.ListRequestsBySupervisor(r.Context(), supervisorID)
	if err != nil {
		s.log.Error().Err(err).Msg("list requests")
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// handleRequestByID handles per-request operations.
// GET  /api/requests/{id}
// POST /api/requests/{id}/approve
// POST /api/requests/{id}/deny
// POST /api/requests/{id}/cancel
func (s *HTTPServer) handleRequestByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/requests/")
	parts := strings.SplitN(rest, "/", 2)

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		metrics.IncHTTP("get_request")
		req, err := s.svc.GetRequest(r.Context(), id)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"request": req})
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var body TransitionBody
	if r.Body != nil {
		// Body is optional for transitions.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	switch parts[1] {
	case "approve":
		metrics.IncHTTP("approve_request")
		req, err := s.svc.Approve(r.Context(), id)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"request": req})
	case "deny":
		metrics.IncHTTP("deny_request")
		req, err := s.svc.Deny(r.Context(), id, body.Reason)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"request": req})
	case "cancel":
		metrics.IncHTTP("cancel_request")
		req, err := s.svc.Cancel(r.Context(), id)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"request": req})
	default:
		writeError(w, http.StatusNotFound, "unknown operation")
	}
}

// writeDomainError maps service errors onto HTTP statuses.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	var conflictErr *vacation.ConflictError
	var capacityErr *vacation.CapacityExceededError
	var transitionErr *vacation.InvalidTransitionError

	switch {
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "overlapping requests exist",
			"conflicts": conflictErr.Conflicts,
		})
	case errors.As(err, &capacityErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   err.Error(),
			"current": capacityErr.Current,
			"max":     capacityErr.Max,
		})
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, vacation.ErrInvalidDateRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vacation.ErrEmployeeNotFound),
		errors.Is(err, vacation.ErrNotFound),
		errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error().Err(err).Msg("request operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
