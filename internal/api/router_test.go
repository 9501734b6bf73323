package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/config"
	"github.com/liliang-cn/beacon/internal/realtime"
	"github.com/liliang-cn/beacon/internal/repository"
	"github.com/liliang-cn/beacon/internal/service"
	"github.com/liliang-cn/beacon/internal/wordware"
)

func newTestRouter(t *testing.T, apiKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "beacon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewLogRepository(db)

	logger := zap.NewNop()
	// no credentials: any generative-text call fails before network I/O
	cfg := config.WordwareConfig{}
	client := wordware.New(cfg.BaseURL, cfg.APIKey)
	writer := service.NewLogWriter(repo, nil, logger)

	return SetupRouter(Services{
		Orchestrator: service.NewOrchestrator(writer, service.NewAnalysisService(cfg, client, logger), logger),
		Summary:      service.NewSummaryService(cfg, repo, writer, client, logger),
		Dashboard:    service.NewDashboardService(repo, logger),
		Hub:          realtime.NewHub(logger),
	}, RouterConfig{APIKey: apiKey, AllowOrigins: []string{"*"}}, logger)
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t, "secret")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_DashboardRequiresKey(t *testing.T) {
	r := newTestRouter(t, "secret")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest-sentiment", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/latest-sentiment", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_WebhooksArePublic(t *testing.T) {
	r := newTestRouter(t, "secret")

	body := `{"event":"session:set_data","website_id":"w1","data":{"session_id":"s1"}}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/webhook/crisp", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestRouter_MissingCredentialsFailBeforeCalling(t *testing.T) {
	r := newTestRouter(t, "")

	body := `{"event":"message:send","website_id":"w1","data":{"content":"help"}}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/webhook/crisp", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}
