package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagma-cali/reportes-360/internal/auth"
	"github.com/dagma-cali/reportes-360/internal/handlers"
	"github.com/dagma-cali/reportes-360/internal/models"
	"github.com/dagma-cali/reportes-360/internal/reports"
	"github.com/dagma-cali/reportes-360/internal/services"
	"github.com/dagma-cali/reportes-360/internal/tracking"
)

type fakeReportStore struct {
	items []*models.Report
	err   error
}

func (f *fakeReportStore) FindReports(_ context.Context, q reports.ReportQuery) ([]*models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Report
	for _, r := range f.items {
		if q.CreatedFrom != nil && r.CreatedAt.Before(*q.CreatedFrom) {
			continue
		}
		if q.CreatedTo != nil && !r.CreatedAt.Before(*q.CreatedTo) {
			continue
		}
		if q.InterventionType != "" && r.InterventionType != q.InterventionType {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

type fakeTrackingStore struct {
	reports  map[string]bool
	tracking map[string]*models.TrackingInfo
	progress map[string][]*models.ProgressEntry
}

func newFakeTrackingStore(ids ...string) *fakeTrackingStore {
	s := &fakeTrackingStore{
		reports:  map[string]bool{},
		tracking: map[string]*models.TrackingInfo{},
		progress: map[string][]*models.ProgressEntry{},
	}
	for _, id := range ids {
		s.reports[id] = true
	}
	return s
}

func (s *fakeTrackingStore) ReportExists(_ context.Context, id string) (bool, error) {
	return s.reports[id], nil
}

func (s *fakeTrackingStore) GetTracking(_ context.Context, id string) (*models.TrackingInfo, bool, error) {
	info, ok := s.tracking[id]
	return info, ok, nil
}

func (s *fakeTrackingStore) SaveTracking(_ context.Context, info *models.TrackingInfo) error {
	s.tracking[info.ReportID] = info
	return nil
}

func (s *fakeTrackingStore) AppendProgress(_ context.Context, e *models.ProgressEntry) error {
	s.progress[e.ReportID] = append([]*models.ProgressEntry{e}, s.progress[e.ReportID]...)
	return nil
}

func (s *fakeTrackingStore) ListProgress(_ context.Context, id string) ([]*models.ProgressEntry, error) {
	return s.progress[id], nil
}

func (s *fakeTrackingStore) ListTracking(_ context.Context) ([]*models.TrackingInfo, error) {
	var out []*models.TrackingInfo
	for _, info := range s.tracking {
		out = append(out, info)
	}
	return out, nil
}

type stubVerifier struct {
	claims *auth.Claims
	err    error
}

func (v *stubVerifier) Verify(_ context.Context, _ string) (*auth.Claims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

// body decodes a recorded response into a loosely typed envelope.
func body(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func seedReports(n int) []*models.Report {
	var items []*models.Report
	for i := 1; i <= n; i++ {
		items = append(items, &models.Report{
			ID:               fmt.Sprintf("r-%03d", i),
			InterventionType: "Mantenimiento",
			Description:      "Mantenimiento rutinario",
			Address:          fmt.Sprintf("Calle %d", i),
			CreatedAt:        time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		})
	}
	return items
}

func newTestHandler(store *fakeReportStore, tstore tracking.Store, verifier auth.TokenVerifier, identity *services.IdentityService) *handlers.Handler {
	reportSvc := reports.NewService(store, nil, time.UTC)
	trackingSvc := tracking.NewService(tstore)
	return handlers.NewHandler(reportSvc, trackingSvc, nil, nil, nil, identity, verifier)
}

// httptestRouter mirrors the server's route table for the endpoints under
// test.
func httptestRouter(h *handlers.Handler) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", h.LoginHandler).Methods("POST")
	api.HandleFunc("/reports", h.HistoryHandler).Methods("GET")
	api.HandleFunc("/reports/recent", h.RecentHandler).Methods("GET")
	api.HandleFunc("/reports/{id}/progress", h.ProgressHistoryHandler).Methods("GET")
	api.HandleFunc("/stats", h.StatsHandler).Methods("GET")
	api.HandleFunc("/tracking/stats", h.TrackingStatsHandler).Methods("GET")

	protected := api.NewRoute().Subrouter()
	protected.Use(h.AuthMiddleware)
	protected.HandleFunc("/auth/me", h.MeHandler).Methods("GET")
	protected.HandleFunc("/reports/{id}/progress", h.RecordProgressHandler).Methods("POST")
	protected.HandleFunc("/reports/{id}/assignee", h.AssignManagerHandler).Methods("PATCH")
	protected.HandleFunc("/reports/{id}/priority", h.SetPriorityHandler).Methods("PATCH")
	return r
}

func TestHistoryEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeReportStore{items: seedReports(45)}, newFakeTrackingStore(), nil, nil)
	router := httptestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?page=2&limit=20", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := body(t, rec)
	assert.Equal(t, true, env["success"])
	assert.NotEmpty(t, env["timestamp"])

	pagination, ok := env["pagination"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 45, pagination["total"])
	assert.EqualValues(t, 2, pagination["page"])
	assert.EqualValues(t, 20, pagination["limit"])
	assert.EqualValues(t, 3, pagination["totalPages"])
	assert.Equal(t, true, pagination["hasNext"])
	assert.Equal(t, true, pagination["hasPrev"])

	data, ok := env["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 20)

	filters, ok := env["filters"].(map[string]interface{})
	require.True(t, ok)
	assert.Nil(t, filters["year"])
	assert.Nil(t, filters["month"])
	assert.Nil(t, filters["search"])
	assert.Nil(t, filters["type"])
}

func TestHistoryEndpointRejectsBadParams(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeReportStore{}, newFakeTrackingStore(), nil, nil)
	router := httptestRouter(h)

	cases := []struct {
		query string
		field string
	}{
		{"year=abc", "year"},
		{"year=2019", "year"},
		{"month=2", "month"},
		{"year=2024&month=13", "month"},
		{"page=0", "page"},
		{"page=x", "page"},
		{"limit=101", "limit"},
		{"search=%20%20", "search"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?"+tc.query, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code, tc.query)
		env := body(t, rec)
		assert.Equal(t, false, env["success"])
		apiErr, ok := env["error"].(map[string]interface{})
		require.True(t, ok, tc.query)
		assert.Equal(t, "INVALID_PARAMETER", apiErr["code"], tc.query)
		assert.Equal(t, tc.field, apiErr["field"], tc.query)
	}
}

func TestHistoryEndpointStoreUnavailable(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeReportStore{err: errors.New("down")}, newFakeTrackingStore(), nil, nil)
	router := httptestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := body(t, rec)
	apiErr := env["error"].(map[string]interface{})
	assert.Equal(t, "STORE_UNAVAILABLE", apiErr["code"])
}

func TestRecentEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeReportStore{items: seedReports(10)}, newFakeTrackingStore(), nil, nil)
	router := httptestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/recent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := body(t, rec)
	assert.EqualValues(t, 3, env["count"])
	assert.Len(t, env["data"], 3)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/recent?limit=11", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	items := []*models.Report{
		{ID: "a", Address: "Parque del Perro", CreatedAt: now},
		{ID: "b", Address: "Parque del Perro", CreatedAt: now},
	}
	h := newTestHandler(&fakeReportStore{items: items}, newFakeTrackingStore(), nil, nil)
	router := httptestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := body(t, rec)
	data := env["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["total_visits_this_month"])
	assert.EqualValues(t, 1, data["unique_locations_visited"])
	assert.EqualValues(t, 0, data["total_pending"])
}

func TestRecordProgressEndpoint(t *testing.T) {
	t.Parallel()

	verifier := &stubVerifier{claims: &auth.Claims{UserID: "u1", Email: "a@b.c"}}
	h := newTestHandler(&fakeReportStore{}, newFakeTrackingStore("rep-1"), verifier, nil)
	router := httptestRouter(h)

	payload := `{"new_status":"radicado","description":"avance registrado en terreno","author":"ana","progress":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/rep-1/progress", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := body(t, rec)
	data := env["data"].(map[string]interface{})
	entry := data["entry"].(map[string]interface{})
	assert.Equal(t, "radicado", entry["new_status"])
	trackingInfo := data["tracking"].(map[string]interface{})
	assert.Equal(t, "radicado", trackingInfo["status"])
}

func TestRecordProgressEndpointUnknownReport(t *testing.T) {
	t.Parallel()

	verifier := &stubVerifier{claims: &auth.Claims{UserID: "u1"}}
	h := newTestHandler(&fakeReportStore{}, newFakeTrackingStore(), verifier, nil)
	router := httptestRouter(h)

	payload := `{"new_status":"radicado","description":"avance registrado en terreno","author":"ana","progress":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/missing/progress", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	env := body(t, rec)
	apiErr := env["error"].(map[string]interface{})
	assert.Equal(t, "REPORT_NOT_FOUND", apiErr["code"])
}

func TestRecordProgressEndpointIllegalTransition(t *testing.T) {
	t.Parallel()

	verifier := &stubVerifier{claims: &auth.Claims{UserID: "u1"}}
	h := newTestHandler(&fakeReportStore{}, newFakeTrackingStore("rep-1"), verifier, nil)
	router := httptestRouter(h)

	payload := `{"new_status":"resuelto","description":"avance registrado en terreno","author":"ana","progress":95}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/rep-1/progress", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := body(t, rec)
	apiErr := env["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_STATE_TRANSITION", apiErr["code"])
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(&fakeReportStore{}, newFakeTrackingStore(), &stubVerifier{}, nil)
		router := httptestRouter(h)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		env := body(t, rec)
		apiErr := env["error"].(map[string]interface{})
		assert.Equal(t, "UNAUTHORIZED", apiErr["code"])
	})

	t.Run("rejected token", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(&fakeReportStore{}, newFakeTrackingStore(), &stubVerifier{err: auth.ErrInvalidToken}, nil)
		router := httptestRouter(h)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token exposes claims", func(t *testing.T) {
		t.Parallel()
		verifier := &stubVerifier{claims: &auth.Claims{UserID: "u1", Email: "ana@dagma.gov.co", Name: "Ana"}}
		h := newTestHandler(&fakeReportStore{}, newFakeTrackingStore(), verifier, nil)
		router := httptestRouter(h)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		env := body(t, rec)
		data := env["data"].(map[string]interface{})
		assert.Equal(t, "ana@dagma.gov.co", data["email"])
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "accounts:signInWithPassword") {
			http.NotFound(w, r)
			return
		}
		var creds map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] == "secret" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"localId":      "u1",
				"email":        creds["email"],
				"idToken":      "tok-123",
				"refreshToken": "ref-123",
				"expiresIn":    "3600",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 400, "message": "INVALID_PASSWORD"},
		})
	}))
	defer provider.Close()

	identity := services.NewIdentityService("test-key", provider.URL)
	h := newTestHandler(&fakeReportStore{}, newFakeTrackingStore(), identity, identity)
	router := httptestRouter(h)

	t.Run("valid credentials", func(t *testing.T) {
		payload := `{"email":"ana@dagma.gov.co","password":"secret"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		env := body(t, rec)
		data := env["data"].(map[string]interface{})
		assert.Equal(t, "tok-123", data["token"])
		assert.Equal(t, "u1", data["user_id"])
		assert.EqualValues(t, 3600, data["expires_in"])
	})

	t.Run("rejected credentials", func(t *testing.T) {
		payload := `{"email":"ana@dagma.gov.co","password":"wrong"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		env := body(t, rec)
		apiErr := env["error"].(map[string]interface{})
		assert.Equal(t, "INVALID_CREDENTIALS", apiErr["code"])
	})

	t.Run("missing email", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"password":"x"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
