package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/petal-labs/devtools/store"
)

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitResponse is the success envelope for event submission.
type submitResponse struct {
	Success   bool         `json:"success"`
	Persisted *bool        `json:"persisted,omitempty"`
	Event     store.Record `json:"event,omitempty"`
}

// handleSubmitEvent accepts one event for persistence.
func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isMaxBytesError(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "PARSE_ERROR", err.Error())
		return
	}

	result, err := s.service.Submit(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if !result.Persisted {
		persisted := false
		writeJSON(w, http.StatusOK, submitResponse{Success: true, Persisted: &persisted})
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{Success: true, Event: result.Event})
}

// handlePerformanceMetrics returns performance events within a day window.
func (s *Server) handlePerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	days := DefaultMetricsWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}

	metrics, err := s.service.PerformanceMetrics(r.Context(), days)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// handleStatus returns the static service descriptor.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

// writeServiceError maps service errors onto the HTTP error envelope.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	var storeErr *StoreError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", validation.Error())
	case errors.Is(err, ErrUnconfigured):
		writeError(w, http.StatusServiceUnavailable, "STORE_UNCONFIGURED", err.Error())
	case errors.As(err, &storeErr):
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", storeErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func isMaxBytesError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
