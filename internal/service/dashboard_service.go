package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/domain"
)

const (
	defaultSummaryDays  = 7
	defaultActivityDays = 30
	defaultLogLimit     = 100
	maxLogLimit         = 1000
)

// LatestSentiment is the most recent per-message verdict shown on the overview
type LatestSentiment struct {
	SentimentScore float64               `json:"sentiment_score"`
	Sentiment      domain.SentimentLabel `json:"sentiment"`
	Summary        string                `json:"summary"`
	Timestamp      *time.Time            `json:"timestamp"`
}

// DailySummary is the newest ticket summary of one calendar day
type DailySummary struct {
	Timestamp      time.Time             `json:"timestamp"`
	MessageContent string                `json:"message_content"`
	Payload        *domain.TicketSummary `json:"payload"`
}

// CompanyActivity holds daily inbound message counts for one website
type CompanyActivity struct {
	WebsiteID string    `json:"website_id"`
	From      time.Time `json:"from"`
	Counts    []int     `json:"counts"`
}

// DashboardService answers the read-side queries of the dashboard
type DashboardService struct {
	store  LogStore
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(store LogStore, logger *zap.Logger) *DashboardService {
	return &DashboardService{store: store, logger: logger, now: time.Now}
}

// LatestSentiment returns the newest sentiment analysis, or neutral defaults
func (s *DashboardService) LatestSentiment(ctx context.Context) (*LatestSentiment, error) {
	rec, err := s.store.Latest(ctx, domain.LogFilter{
		Source:    domain.SourceAnalysisEngine,
		EventType: domain.EventSentimentAnalysis,
	}, time.Time{})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &LatestSentiment{SentimentScore: 0.5, Sentiment: domain.SentimentMedium}, nil
	}

	a := &domain.SentimentAnalysis{}
	if p, err := rec.DecodePayload(); err != nil {
		s.logger.Warn("Unreadable sentiment payload", zap.String("log_id", rec.ID), zap.Error(err))
	} else if decoded, ok := p.(*domain.SentimentAnalysis); ok {
		a = decoded
	}
	ts := rec.Timestamp
	return &LatestSentiment{
		SentimentScore: a.SentimentScore,
		Sentiment:      a.SentimentLabel,
		Summary:        a.Summary,
		Timestamp:      &ts,
	}, nil
}

// DailySummaries returns the newest ticket summary of each of the last days,
// newest day first
func (s *DashboardService) DailySummaries(ctx context.Context, days int) ([]DailySummary, error) {
	if days <= 0 {
		days = defaultSummaryDays
	}
	since := startOfDay(s.now()).AddDate(0, 0, -days)

	recs, err := s.store.Find(ctx, domain.LogQuery{
		LogFilter: domain.LogFilter{
			Source:    domain.SourceAnalysisEngine,
			EventType: domain.EventTicketSummary,
		},
		Since:      since,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]DailySummary, 0, days)
	seenDays := make(map[time.Time]bool)
	for _, rec := range recs {
		day := startOfDay(rec.Timestamp.In(time.Local))
		if seenDays[day] {
			continue
		}
		seenDays[day] = true

		details := &domain.TicketSummary{}
		if p, err := rec.DecodePayload(); err != nil {
			s.logger.Warn("Unreadable summary payload", zap.String("log_id", rec.ID), zap.Error(err))
		} else if decoded, ok := p.(*domain.TicketSummary); ok {
			details = decoded
		}
		summaries = append(summaries, DailySummary{
			Timestamp:      rec.Timestamp,
			MessageContent: rec.MessageContent,
			Payload:        details,
		})
	}
	return summaries, nil
}

// CompanyActivity counts inbound chat messages per day for a website.
// Counts are oldest first; the last bucket is today.
func (s *DashboardService) CompanyActivity(ctx context.Context, websiteID string, days int) (*CompanyActivity, error) {
	if websiteID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if days <= 0 {
		days = defaultActivityDays
	}
	from := startOfDay(s.now()).AddDate(0, 0, -(days - 1))

	recs, err := s.store.Find(ctx, domain.LogQuery{
		LogFilter: domain.LogFilter{
			Source:    domain.SourceChatWidget,
			EventType: domain.EventMessageReceived,
			WebsiteID: websiteID,
		},
		Since: from,
	})
	if err != nil {
		return nil, err
	}

	counts := make([]int, days)
	for _, rec := range recs {
		day := startOfDay(rec.Timestamp.In(from.Location()))
		idx := daysBetween(from, day)
		if idx >= 0 && idx < days {
			counts[idx]++
		}
	}
	return &CompanyActivity{WebsiteID: websiteID, From: from, Counts: counts}, nil
}

// ListLogs returns a page of records, newest first
func (s *DashboardService) ListLogs(ctx context.Context, q domain.LogQuery) ([]*domain.LogRecord, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLogLimit
	}
	if q.Limit > maxLogLimit {
		q.Limit = maxLogLimit
	}
	q.Descending = true

	logs, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*domain.LogRecord{}
	}
	return logs, nil
}

// GetLog returns one record by id, or domain.ErrNotFound
func (s *DashboardService) GetLog(ctx context.Context, id string) (*domain.LogRecord, error) {
	if id == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.store.Get(ctx, id)
}

// LogsSince returns records matching filter at or after since, oldest first
func (s *DashboardService) LogsSince(ctx context.Context, filter domain.LogFilter, since time.Time) ([]*domain.LogRecord, error) {
	return s.store.Find(ctx, domain.LogQuery{
		LogFilter: filter,
		Since:     since,
		Limit:     maxLogLimit,
	})
}

// daysBetween counts calendar days from a to b, both at local midnight
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
