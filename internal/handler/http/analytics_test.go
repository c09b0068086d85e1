package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/jwt"
	analyticsService "github.com/cmlabs-hris/hris-analytics/internal/service/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type fakeAnalyticsService struct {
	report  analytics.AnalysisReport
	err     error
	lastReq analytics.AnalyzeRequest
}

func (f *fakeAnalyticsService) Analyze(ctx context.Context, req analytics.AnalyzeRequest) (analytics.AnalysisReport, error) {
	f.lastReq = req
	if f.err != nil {
		return analytics.AnalysisReport{}, f.err
	}
	report := f.report
	report.SubjectID = req.SubjectID
	report.Mode = req.Mode
	return report, nil
}

func (f *fakeAnalyticsService) Settings() analytics.Settings {
	return analytics.DefaultSettings()
}

func newTestRouter(service analytics.AnalyticsService) (http.Handler, jwt.Service) {
	jwtSvc := jwt.NewJWTService(handlerTestSecret)
	return NewRouter(jwtSvc, NewAnalyticsHandler(service), RouterOptions{}), jwtSvc
}

func accessToken(t *testing.T, jwtSvc jwt.Service, role, companyID string) string {
	t.Helper()
	token, _, err := jwtSvc.GenerateAccessToken(jwt.Claims{UserID: "user-1", CompanyID: companyID, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, router http.Handler, path, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	}
	return w, resp
}

// ===== HANDLER TESTS =====

func TestAnalyticsHandler_AnalyzeEmployee_Success(t *testing.T) {
	// Arrange
	service := &fakeAnalyticsService{report: analytics.AnalysisReport{
		ID:              "report-1",
		Status:          analytics.StatusOK,
		SettingsVersion: analytics.SettingsVersion,
	}}
	router, jwtSvc := newTestRouter(service)
	token := accessToken(t, jwtSvc, jwt.RoleManager, "company-1")

	// Act
	w, resp := doRequest(t, router, "/api/v1/analytics/employees/emp-1?window_days=60&now=2025-03-31&seed=42", token)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp["success"].(bool))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "report-1", data["id"])
	meta := resp["meta"].(map[string]interface{})
	assert.Equal(t, analytics.SettingsVersion, meta["settings_version"])

	got := service.lastReq
	assert.Equal(t, "company-1", got.CompanyID)
	assert.Equal(t, "emp-1", got.SubjectID)
	assert.Equal(t, analytics.ModeIndividual, got.Mode)
	require.NotNil(t, got.WindowDays)
	assert.Equal(t, 60, *got.WindowDays)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), got.Reference)
	require.NotNil(t, got.Seed)
	assert.Equal(t, uint64(42), *got.Seed)
}

func TestAnalyticsHandler_AnalyzeBranch_Defaults(t *testing.T) {
	service := &fakeAnalyticsService{report: analytics.AnalysisReport{Status: analytics.StatusOK}}
	router, jwtSvc := newTestRouter(service)
	token := accessToken(t, jwtSvc, jwt.RoleOwner, "company-1")

	w, _ := doRequest(t, router, "/api/v1/analytics/branches/branch-1", token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, analytics.ModeBranch, service.lastReq.Mode)
	assert.Equal(t, "branch-1", service.lastReq.SubjectID)
	assert.Nil(t, service.lastReq.WindowDays)
	assert.True(t, service.lastReq.Reference.IsZero())
	assert.Nil(t, service.lastReq.Seed)
}

func TestAnalyticsHandler_InvalidQuery(t *testing.T) {
	router, jwtSvc := newTestRouter(&fakeAnalyticsService{})
	token := accessToken(t, jwtSvc, jwt.RoleManager, "company-1")

	w, resp := doRequest(t, router, "/api/v1/analytics/employees/emp-1?window_days=abc&now=31-03-2025&seed=-1", token)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	details := resp["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Contains(t, details, "window_days")
	assert.Contains(t, details, "now")
	assert.Contains(t, details, "seed")
}

func TestAnalyticsHandler_AnalyzeEmployee_NonPositiveWindow(t *testing.T) {
	// Arrange
	service := analyticsService.NewAnalyticsService(nil, nil, nil, analytics.DefaultSettings())
	router, jwtSvc := newTestRouter(service)
	token := accessToken(t, jwtSvc, jwt.RoleManager, "company-1")

	for _, window := range []string{"0", "-5"} {
		// Act
		w, resp := doRequest(t, router, "/api/v1/analytics/employees/emp-1?window_days="+window, token)

		// Assert
		assert.Equal(t, http.StatusBadRequest, w.Code, "window_days=%s", window)
		assert.False(t, resp["success"].(bool))
	}
}

func TestAnalyticsHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid window", analytics.ErrInvalidWindow, http.StatusBadRequest},
		{"invalid mode", analytics.ErrInvalidMode, http.StatusBadRequest},
		{"unknown employee", fmt.Errorf("%w: emp-9", analytics.ErrSubjectNotFound), http.StatusNotFound},
		{"empty roster", analytics.ErrEmptyRoster, http.StatusNotFound},
		{"timeout", fmt.Errorf("branch: %w", analytics.ErrAnalysisTimeout), http.StatusGatewayTimeout},
		{"store failure", fmt.Errorf("failed to query daily attendance: %w", io.ErrUnexpectedEOF), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, jwtSvc := newTestRouter(&fakeAnalyticsService{err: tt.err})
			token := accessToken(t, jwtSvc, jwt.RoleManager, "company-1")

			w, resp := doRequest(t, router, "/api/v1/analytics/employees/emp-1", token)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, resp["success"].(bool))
		})
	}
}

func TestAnalyticsHandler_GetSettings(t *testing.T) {
	router, jwtSvc := newTestRouter(&fakeAnalyticsService{})
	token := accessToken(t, jwtSvc, jwt.RoleManager, "company-1")

	w, resp := doRequest(t, router, "/api/v1/analytics/settings", token)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, analytics.SettingsVersion, data["version"])
	assert.Equal(t, float64(90), data["individual_window_days"])
}

// ===== AUTH TESTS =====

func TestAnalyticsHandler_Auth(t *testing.T) {
	router, jwtSvc := newTestRouter(&fakeAnalyticsService{})
	otherSvc := jwt.NewJWTService("another-secret")

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong signature", accessToken(t, otherSvc, jwt.RoleManager, "company-1"), http.StatusUnauthorized},
		{"employee role", accessToken(t, jwtSvc, jwt.RoleEmployee, "company-1"), http.StatusForbidden},
		{"no company", accessToken(t, jwtSvc, jwt.RoleOwner, ""), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doRequest(t, router, "/api/v1/analytics/employees/emp-1", tt.token)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router, jwtSvc := newTestRouter(&fakeAnalyticsService{report: analytics.AnalysisReport{Status: analytics.StatusOK}})
	token := accessToken(t, jwtSvc, jwt.RoleManager, "company-1")
	doRequest(t, router, "/api/v1/analytics/employees/emp-1", token)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hris_analytics_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="/api/v1/analytics/employees/{employeeID}"`)
}
