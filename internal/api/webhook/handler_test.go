package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/config"
	"github.com/liliang-cn/beacon/internal/domain"
	"github.com/liliang-cn/beacon/internal/repository"
	"github.com/liliang-cn/beacon/internal/service"
	"github.com/liliang-cn/beacon/internal/wordware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	repo   *repository.LogRepository
}

// newFixture wires the webhook routes to a sqlite store and a fake
// generative-text server answering with answer.
func newFixture(t *testing.T, answer string, status int) *fixture {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "upstream failure", status)
			return
		}
		quoted, _ := json.Marshal(answer)
		w.Write([]byte(`{"type":"chunk","value":{"type":"outputs","values":{"` + wordware.DefaultOutputField + `":` + string(quoted) + "}}}\n"))
	}))
	t.Cleanup(upstream.Close)

	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "beacon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewLogRepository(db)

	logger := zap.NewNop()
	cfg := config.WordwareConfig{BaseURL: upstream.URL, APIKey: "key", AnalysisAppID: "analysis"}
	client := wordware.New(cfg.BaseURL, cfg.APIKey)
	orch := service.NewOrchestrator(
		service.NewLogWriter(repo, nil, logger),
		service.NewAnalysisService(cfg, client, logger),
		logger,
	)

	r := gin.New()
	NewHandler(orch, logger).RegisterRoutes(r.Group("/api/webhook"))
	return &fixture{router: r, repo: repo}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) logs(t *testing.T) []*domain.LogRecord {
	t.Helper()
	recs, err := f.repo.Find(context.Background(), domain.LogQuery{})
	require.NoError(t, err)
	return recs
}

func smsRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/twilio", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestChatWidget_Success(t *testing.T) {
	f := newFixture(t, `{"sentiment_score":0.55,"summary":"ok"}`, http.StatusOK)

	body := `{"event":"message:send","website_id":"w1","data":{"session_id":"s1","content":"Hello"}}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/webhook/crisp", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	logs := f.logs(t)
	require.Len(t, logs, 2)
	assert.Equal(t, "Medium", logs[1].MessageContent)
}

func TestChatWidget_MalformedBody(t *testing.T) {
	f := newFixture(t, `{"sentiment_score":0.5}`, http.StatusOK)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/webhook/crisp", strings.NewReader(`event=message`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "malformed payload")
	assert.Empty(t, f.logs(t))
}

func TestChatWidget_UpstreamFailureKeepsPrimary(t *testing.T) {
	f := newFixture(t, "", http.StatusBadGateway)

	body := `{"event":"message:send","website_id":"w1","data":{"content":"Hello"}}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/webhook/crisp", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, f.logs(t), 1)
}

func TestSMS_Success(t *testing.T) {
	f := newFixture(t, `{"sentiment_score":0.2}`, http.StatusOK)

	form := url.Values{"MessageSid": {"SM1"}, "From": {"+1555"}, "To": {"+1666"}, "Body": {"Refund"}, "NumMedia": {"0"}}
	rec := f.do(smsRequest(form.Encode()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`, rec.Body.String())

	logs := f.logs(t)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.SourceSMSProvider, logs[0].Source)
	assert.Equal(t, "Low", logs[1].MessageContent)
}

func TestSMS_FailureStillAnswersTwiML(t *testing.T) {
	t.Run("upstream failure", func(t *testing.T) {
		f := newFixture(t, "", http.StatusInternalServerError)
		rec := f.do(smsRequest(url.Values{"MessageSid": {"SM1"}, "Body": {"Hi"}}.Encode()))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
		assert.Equal(t, EmptyTwiML, rec.Body.String())
		assert.Len(t, f.logs(t), 1)
	})

	t.Run("unparseable form", func(t *testing.T) {
		f := newFixture(t, `{"sentiment_score":0.2}`, http.StatusOK)
		rec := f.do(smsRequest("Body=%zz"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, EmptyTwiML, rec.Body.String())
		assert.Empty(t, f.logs(t))
	})
}

func TestSMS_NoBodySkipsAnalysis(t *testing.T) {
	f := newFixture(t, "", http.StatusInternalServerError)

	rec := f.do(smsRequest(url.Values{"MessageSid": {"SM1"}, "NumMedia": {"1"}}.Encode()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.logs(t), 1)
}
