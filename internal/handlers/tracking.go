package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dagma-cali/reportes-360/internal/tracking"
)

// RecordProgressHandler appends a progress entry to a report's tracking
// history and advances its state.
// POST /api/v1/reports/{id}/progress
func (h *Handler) RecordProgressHandler(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["id"]

	var in tracking.ProgressInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", "")
		return
	}

	entry, info, err := h.tracking.RecordProgress(r.Context(), reportID, in)
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, map[string]interface{}{
		"entry":    entry,
		"tracking": info,
	}, "progress recorded")
}

// AssignManagerHandler sets the official and management center responsible
// for a report.
// PATCH /api/v1/reports/{id}/assignee
func (h *Handler) AssignManagerHandler(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["id"]

	var body struct {
		Manager          string `json:"manager"`
		ManagementCenter string `json:"management_center"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", "")
		return
	}

	info, err := h.tracking.AssignManager(r.Context(), reportID, body.Manager, body.ManagementCenter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, info)
}

// SetPriorityHandler changes a report's priority level.
// PATCH /api/v1/reports/{id}/priority
func (h *Handler) SetPriorityHandler(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["id"]

	var body struct {
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", "")
		return
	}

	info, err := h.tracking.SetPriority(r.Context(), reportID, body.Priority)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, info)
}

// ProgressHistoryHandler lists a report's progress entries, newest first.
// GET /api/v1/reports/{id}/progress
func (h *Handler) ProgressHistoryHandler(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["id"]

	entries, err := h.tracking.History(r.Context(), reportID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, entries, len(entries))
}

// TrackingStatsHandler serves aggregates over all tracked reports.
// GET /api/v1/tracking/stats
func (h *Handler) TrackingStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tracking.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}
