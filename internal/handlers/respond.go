package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dagma-cali/reportes-360/internal/auth"
	"github.com/dagma-cali/reportes-360/internal/reports"
	"github.com/dagma-cali/reportes-360/internal/tracking"
)

// envelope is the uniform response shape shared by every endpoint:
// {success, data, timestamp} plus operation-specific metadata. Success and
// error are mutually exclusive; a failed request never carries data.
type envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Filters    interface{} `json:"filters,omitempty"`
	Error      *apiError   `json:"error,omitempty"`
	Timestamp  string      `json:"timestamp"`
}

type pagination struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, envelope{Success: true, Data: data})
}

func respondCreated(w http.ResponseWriter, data interface{}, message string) {
	writeEnvelope(w, http.StatusCreated, envelope{Success: true, Data: data, Message: message})
}

func respondList(w http.ResponseWriter, data interface{}, count int) {
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

func respondPage(w http.ResponseWriter, page *reports.PageResult) {
	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Data:    page.Reports,
		Pagination: &pagination{
			Total:      page.TotalItems,
			Page:       page.Page,
			Limit:      page.PageSize,
			TotalPages: page.TotalPages,
			HasNext:    page.HasNext,
			HasPrev:    page.HasPrev,
		},
		Filters: page.Filters,
	})
}

func respondErrorCode(w http.ResponseWriter, status int, code, message, field string) {
	writeEnvelope(w, status, envelope{
		Success: false,
		Error:   &apiError{Code: code, Message: message, Field: field},
	})
}

// respondError maps domain errors onto the error envelope. Validation errors
// fail with the offending field named; store failures propagate unchanged as
// service errors.
func respondError(w http.ResponseWriter, err error) {
	var invalidParam *reports.InvalidParameterError
	var storeErr *reports.StoreUnavailableError
	var transitionErr *tracking.InvalidTransitionError
	var validationErr *tracking.ValidationError

	switch {
	case errors.As(err, &invalidParam):
		respondErrorCode(w, http.StatusBadRequest, "INVALID_PARAMETER", invalidParam.Message, invalidParam.Field)
	case errors.As(err, &storeErr):
		log.Error().Err(storeErr.Err).Msg("Report store query failed")
		respondErrorCode(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "report store is unavailable", "")
	case errors.Is(err, tracking.ErrReportNotFound):
		respondErrorCode(w, http.StatusNotFound, "REPORT_NOT_FOUND", "no report with that id", "")
	case errors.As(err, &transitionErr):
		respondErrorCode(w, http.StatusBadRequest, "INVALID_STATE_TRANSITION", transitionErr.Error(), "")
	case errors.As(err, &validationErr):
		respondErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message, validationErr.Field)
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondErrorCode(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "email or password is incorrect", "")
	case errors.Is(err, auth.ErrInvalidToken):
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token", "")
	default:
		log.Error().Err(err).Msg("Unhandled error")
		respondErrorCode(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", "")
	}
}
