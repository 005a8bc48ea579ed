package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dagma-cali/reportes-360/internal/models"
	"github.com/dagma-cali/reportes-360/internal/reports"
)

const maxUploadSize = 32 << 20 // 32 MB across all photos

// HistoryHandler serves the filterable, paginated report history.
// GET /api/v1/reports?year=&month=&search=&type=&page=&limit=
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuerySpec(r)
	if err != nil {
		respondError(w, err)
		return
	}

	page, err := h.reports.History(r.Context(), spec)
	if err != nil {
		respondError(w, err)
		return
	}
	respondPage(w, page)
}

// RecentHandler serves the recent-activity feed.
// GET /api/v1/reports/recent?limit=
func (h *Handler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	limit := reports.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, &reports.InvalidParameterError{Field: "limit", Message: "must be an integer"})
			return
		}
		limit = v
	}

	items, err := h.reports.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, items, len(items))
}

// StatsHandler serves the dashboard aggregates.
// GET /api/v1/stats
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

// CreateReportHandler registers a field visit captured by the crew: multipart
// form fields plus photo files. Photos go to object storage first; the stored
// document carries their public URLs.
// POST /api/v1/reports
func (h *Handler) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_PARAMETER", "failed to parse multipart form", "")
		return
	}

	interventionType := strings.TrimSpace(r.FormValue("intervention_type"))
	description := strings.TrimSpace(r.FormValue("description"))
	address := strings.TrimSpace(r.FormValue("address"))
	observations := strings.TrimSpace(r.FormValue("observations"))

	for field, value := range map[string]string{
		"intervention_type": interventionType,
		"description":       description,
		"address":           address,
	} {
		if value == "" {
			respondErrorCode(w, http.StatusBadRequest, "INVALID_PARAMETER", "required field is missing", field)
			return
		}
	}

	lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_PARAMETER", "must be a number", "latitude")
		return
	}
	lng, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_PARAMETER", "must be a number", "longitude")
		return
	}

	reportID := uuid.New().String()
	var photoURLs []string

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["photos"] {
			if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
				respondErrorCode(w, http.StatusBadRequest, "INVALID_PARAMETER", "only image files are allowed", "photos")
				return
			}
			if h.photos == nil {
				respondErrorCode(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "photo storage is not configured", "")
				return
			}

			file, err := header.Open()
			if err != nil {
				log.Error().Err(err).Msg("Failed to open uploaded photo")
				respondErrorCode(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to read photo", "")
				return
			}
			url, err := h.photos.UploadPhoto(r.Context(), file, reportID,
				header.Filename, header.Header.Get("Content-Type"), header.Size)
			file.Close()
			if err != nil {
				log.Error().Err(err).Msg("Failed to upload photo")
				respondErrorCode(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to upload photo", "")
				return
			}
			photoURLs = append(photoURLs, url)
		}
	}

	report := &models.Report{
		ID:               reportID,
		InterventionType: interventionType,
		Description:      description,
		Address:          address,
		Observations:     observations,
		Latitude:         lat,
		Longitude:        lng,
		PhotoURLs:        photoURLs,
		PhotoCount:       len(photoURLs),
		CreatedAt:        time.Now().UTC(),
	}

	if err := h.store.SaveReport(r.Context(), report); err != nil {
		log.Error().Err(err).Msg("Failed to save report")
		respondErrorCode(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "failed to save report", "")
		return
	}

	if h.events != nil {
		event := models.ReportSubmittedEvent{
			ID:               report.ID,
			InterventionType: report.InterventionType,
			Description:      report.Description,
			Address:          report.Address,
			Latitude:         report.Latitude,
			Longitude:        report.Longitude,
			PhotoURLs:        report.PhotoURLs,
			Timestamp:        report.CreatedAt,
		}
		if err := h.events.PublishReportSubmitted(r.Context(), event); err != nil {
			// The report is stored; a lost event is not worth failing the request.
			log.Error().Err(err).Str("id", report.ID).Msg("Failed to publish report.submitted")
		}
	}

	log.Info().
		Str("id", report.ID).
		Str("intervention_type", report.InterventionType).
		Int("photos", report.PhotoCount).
		Msg("Report created")

	respondCreated(w, report, "report registered")
}

// DeleteReportHandler removes a report and its photos.
// DELETE /api/v1/reports/{id}
func (h *Handler) DeleteReportHandler(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["id"]

	if _, exists := h.store.GetReport(r.Context(), reportID); !exists {
		respondErrorCode(w, http.StatusNotFound, "REPORT_NOT_FOUND", "no report with that id", "")
		return
	}

	photosDeleted := 0
	if h.photos != nil {
		n, err := h.photos.DeleteReportPhotos(r.Context(), reportID)
		photosDeleted = n
		if err != nil {
			// Orphaned objects are cheaper than a half-deleted report; carry on.
			log.Error().Err(err).Str("id", reportID).Msg("Failed to delete some report photos")
		}
	}

	if _, err := h.store.DeleteReport(r.Context(), reportID); err != nil {
		log.Error().Err(err).Str("id", reportID).Msg("Failed to delete report")
		respondErrorCode(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "failed to delete report", "")
		return
	}

	if h.events != nil {
		if err := h.events.PublishReportDeleted(r.Context(), map[string]string{"id": reportID}); err != nil {
			log.Error().Err(err).Str("id", reportID).Msg("Failed to publish report.deleted")
		}
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"id":             reportID,
		"photos_deleted": photosDeleted,
	})
}

// ParksHandler serves the parks catalog the capture client seeds its forms
// with.
// GET /api/v1/parks
func (h *Handler) ParksHandler(w http.ResponseWriter, r *http.Request) {
	parks, err := h.store.ListParks(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list parks")
		respondErrorCode(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "failed to list parks", "")
		return
	}
	if parks == nil {
		parks = []*models.Park{}
	}
	respondList(w, parks, len(parks))
}

// parseQuerySpec normalizes history query parameters. Integer parse failures
// report the same InvalidParameter error as range violations.
func parseQuerySpec(r *http.Request) (reports.QuerySpec, error) {
	q := r.URL.Query()
	spec := reports.QuerySpec{
		Page:     1,
		PageSize: reports.DefaultPageSize,
	}

	if raw := q.Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return spec, &reports.InvalidParameterError{Field: "year", Message: "must be an integer"}
		}
		spec.Year = &v
	}
	if raw := q.Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return spec, &reports.InvalidParameterError{Field: "month", Message: "must be an integer"}
		}
		spec.Month = &v
	}
	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return spec, &reports.InvalidParameterError{Field: "page", Message: "must be an integer"}
		}
		spec.Page = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return spec, &reports.InvalidParameterError{Field: "limit", Message: "must be an integer"}
		}
		spec.PageSize = v
	}
	if q.Has("search") {
		s := q.Get("search")
		spec.Search = &s
	}
	if raw := q.Get("type"); raw != "" {
		spec.InterventionType = &raw
	}

	return spec, nil
}
