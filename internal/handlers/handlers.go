package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dagma-cali/reportes-360/internal/auth"
	"github.com/dagma-cali/reportes-360/internal/reports"
	"github.com/dagma-cali/reportes-360/internal/services"
	"github.com/dagma-cali/reportes-360/internal/storage"
	"github.com/dagma-cali/reportes-360/internal/tracking"
)

// Handler contains all HTTP handlers
type Handler struct {
	reports  *reports.Service
	tracking *tracking.Service
	store    *storage.PostgresStorage
	photos   *storage.PhotoStorage
	events   *services.ReportPublisher
	identity *services.IdentityService
	verifier auth.TokenVerifier
}

// NewHandler creates a new handler instance. The publisher and photo storage
// may be nil when those collaborators are not configured; the affected
// endpoints degrade (no events, no photo handling) rather than fail startup.
func NewHandler(
	reportSvc *reports.Service,
	trackingSvc *tracking.Service,
	store *storage.PostgresStorage,
	photos *storage.PhotoStorage,
	events *services.ReportPublisher,
	identity *services.IdentityService,
	verifier auth.TokenVerifier,
) *Handler {
	return &Handler{
		reports:  reportSvc,
		tracking: trackingSvc,
		store:    store,
		photos:   photos,
		events:   events,
		identity: identity,
		verifier: verifier,
	}
}

// HealthCheckHandler reports liveness and the state of each dependency.
func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.store.HealthCheck(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.photos != nil {
		if err := h.photos.HealthCheck(ctx); err != nil {
			checks["object_storage"] = err.Error()
			healthy = false
		} else {
			checks["object_storage"] = "ok"
		}
	}

	if h.events != nil {
		if err := h.events.HealthCheck(); err != nil {
			checks["rabbitmq"] = err.Error()
			healthy = false
		} else {
			checks["rabbitmq"] = "ok"
		}
	}

	if h.identity != nil {
		if err := h.identity.HealthCheck(ctx); err != nil {
			checks["identity_provider"] = err.Error()
			healthy = false
		} else {
			checks["identity_provider"] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeEnvelope(w, status, envelope{
		Success: healthy,
		Data:    map[string]interface{}{"status": state, "checks": checks},
	})
}
