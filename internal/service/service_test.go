package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/config"
	"github.com/liliang-cn/beacon/internal/domain"
	"github.com/liliang-cn/beacon/internal/repository"
	"github.com/liliang-cn/beacon/internal/wordware"
)

var testWordware = config.WordwareConfig{
	AnalysisAppID:   "analysis-app",
	AnalysisVersion: "^3.0",
	SummaryAppID:    "summary-app",
	SummaryVersion:  "^1.0",
}

type generatorCall struct {
	AppID string
	Req   wordware.RunRequest
}

// fakeGenerator answers every run with a streamed response carrying answer
type fakeGenerator struct {
	mu     sync.Mutex
	answer string
	err    error
	calls  []generatorCall
	onRun  func()
}

func (g *fakeGenerator) Run(_ context.Context, appID string, req wordware.RunRequest) (string, error) {
	if g.onRun != nil {
		g.onRun()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, generatorCall{AppID: appID, Req: req})
	if g.err != nil {
		return "", g.err
	}
	return streamResponse(g.answer), nil
}

func (g *fakeGenerator) Calls() []generatorCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generatorCall(nil), g.calls...)
}

func streamResponse(answer string) string {
	quoted, _ := json.Marshal(answer)
	return strings.Join([]string{
		`{"type":"chunk","value":{"type":"generation","state":"start"}}`,
		`{"type":"chunk","value":{"type":"outputs","values":{"` + wordware.DefaultOutputField + `":` + string(quoted) + `}}}`,
		`{"type":"chunk","value":{"type":"generation","state":"done"}}`,
	}, "\n")
}

// analysisFailStore rejects analysis-engine inserts and passes everything else through
type analysisFailStore struct {
	LogStore
}

func (s analysisFailStore) Insert(ctx context.Context, rec *domain.LogRecord) error {
	if rec.Source == domain.SourceAnalysisEngine {
		return errors.New("disk full")
	}
	return s.LogStore.Insert(ctx, rec)
}

type recordingPublisher struct {
	mu   sync.Mutex
	recs []*domain.LogRecord
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, rec *domain.LogRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, rec)
	return p.err
}

func newTestStore(t *testing.T) *repository.LogRepository {
	t.Helper()
	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "beacon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewLogRepository(db)
}

func allLogs(t *testing.T, store LogStore) []*domain.LogRecord {
	t.Helper()
	recs, err := store.Find(context.Background(), domain.LogQuery{})
	require.NoError(t, err)
	return recs
}

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}
