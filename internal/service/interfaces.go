package service

import (
	"context"
	"time"

	"github.com/liliang-cn/beacon/internal/domain"
	"github.com/liliang-cn/beacon/internal/wordware"
)

// LogStore is the append-only log table
type LogStore interface {
	Insert(ctx context.Context, rec *domain.LogRecord) error
	Get(ctx context.Context, id string) (*domain.LogRecord, error)
	Find(ctx context.Context, q domain.LogQuery) ([]*domain.LogRecord, error)
	Latest(ctx context.Context, filter domain.LogFilter, since time.Time) (*domain.LogRecord, error)
}

// Publisher announces inserted records to live subscribers
type Publisher interface {
	Publish(ctx context.Context, rec *domain.LogRecord) error
}

// Generator runs a prompt app on the generative-text service
type Generator interface {
	Run(ctx context.Context, appID string, req wordware.RunRequest) (string, error)
}

// Analyzer scores a single customer message
type Analyzer interface {
	Analyze(ctx context.Context, message string) (*domain.SentimentAnalysis, error)
}
