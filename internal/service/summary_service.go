package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/config"
	"github.com/liliang-cn/beacon/internal/domain"
	"github.com/liliang-cn/beacon/internal/wordware"
)

const (
	summaryResultType = "chat"
	noSummary         = "No summary available"
	anonymousUser     = "Anonymous"
	ticketTimeLayout  = "1/2/2006, 3:04:05 PM"
)

var ticketEventTypes = []string{domain.EventMessageSend, domain.EventMessageReceived}

// FormattedTicket is one chat message as sent to the summary prompt
type FormattedTicket struct {
	Message   string `json:"message"`
	From      string `json:"from,omitempty"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
}

// SummaryService batches today's chat messages into a single summary request
type SummaryService struct {
	cfg       config.WordwareConfig
	store     LogStore
	writer    *LogWriter
	generator Generator
	logger    *zap.Logger
	now       func() time.Time
}

// NewSummaryService creates a new summary service
func NewSummaryService(
	cfg config.WordwareConfig,
	store LogStore,
	writer *LogWriter,
	generator Generator,
	logger *zap.Logger,
) *SummaryService {
	return &SummaryService{
		cfg:       cfg,
		store:     store,
		writer:    writer,
		generator: generator,
		logger:    logger.With(zap.String("component", "summary")),
		now:       time.Now,
	}
}

// UnsummarizedTickets returns today's chat messages newer than the latest
// summary of today, oldest first.
func (s *SummaryService) UnsummarizedTickets(ctx context.Context) ([]*domain.LogRecord, error) {
	return s.ticketsUpTo(ctx, s.now())
}

// ticketsUpTo returns the tickets after the last summary and at or before
// cutoff. A summary stamped with the same cutoff takes over as the next
// boundary, so every ticket lands in exactly one summary.
func (s *SummaryService) ticketsUpTo(ctx context.Context, cutoff time.Time) ([]*domain.LogRecord, error) {
	boundary := startOfDay(cutoff)

	last, err := s.store.Latest(ctx, domain.LogFilter{
		Source:    domain.SourceAnalysisEngine,
		EventType: domain.EventTicketSummary,
	}, boundary)
	if err != nil {
		s.logger.Error("Failed to look up latest summary", zap.Error(err))
		return nil, fmt.Errorf("latest summary: %w", err)
	}
	if last != nil && last.Timestamp.After(boundary) {
		boundary = last.Timestamp
	}

	tickets, err := s.store.Find(ctx, domain.LogQuery{
		LogFilter:  domain.LogFilter{Source: domain.SourceChatWidget},
		EventTypes: ticketEventTypes,
		After:      boundary,
		Before:     cutoff.Add(time.Microsecond),
	})
	if err != nil {
		s.logger.Error("Failed to fetch tickets", zap.Error(err))
		return nil, fmt.Errorf("fetch tickets: %w", err)
	}

	s.logger.Debug("Fetched unsummarized tickets",
		zap.Int("count", len(tickets)),
		zap.Time("after", boundary),
	)
	return tickets, nil
}

// FormatTickets maps chat records onto the summary prompt's ticket shape.
// Records without message text are dropped.
func (s *SummaryService) FormatTickets(records []*domain.LogRecord) []FormattedTicket {
	formatted := make([]FormattedTicket, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		msg := ticketMessage(rec.Payload)
		if strings.TrimSpace(msg.Content.String()) == "" {
			continue
		}
		user := anonymousUser
		if msg.User != nil && msg.User.Nickname != "" {
			user = msg.User.Nickname
		}
		formatted = append(formatted, FormattedTicket{
			Message:   msg.Content.String(),
			From:      msg.From,
			Timestamp: rec.Timestamp.In(time.Local).Format(ticketTimeLayout),
			User:      user,
		})
	}
	return formatted
}

// Summarize sends the batch as one request and records the result. An empty
// batch returns the canned reply without calling out or writing anything.
func (s *SummaryService) Summarize(ctx context.Context, records []*domain.LogRecord) (*domain.SummaryResult, error) {
	return s.summarize(ctx, records, s.now())
}

// summarize stamps the stored summary with at rather than with the time
// the generator answered.
func (s *SummaryService) summarize(ctx context.Context, records []*domain.LogRecord, at time.Time) (*domain.SummaryResult, error) {
	tickets := s.FormatTickets(records)
	if len(tickets) == 0 {
		return &domain.SummaryResult{Summary: domain.NoInquiriesSummary, Type: summaryResultType}, nil
	}

	encoded, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tickets: %w", err)
	}

	text, err := s.generator.Run(ctx, s.cfg.SummaryAppID, wordware.RunRequest{
		Inputs: map[string]string{
			wordware.InputPrompt:  wordware.SummaryPrompt,
			wordware.InputTickets: string(encoded),
		},
		Version: s.cfg.SummaryVersion,
	})
	if err != nil {
		s.logger.Error("Summary request failed", zap.Int("tickets", len(tickets)), zap.Error(err))
		return nil, fmt.Errorf("summarize tickets: %w", err)
	}

	raw, err := wordware.ExtractOutput(text, outputField(s.cfg))
	if err != nil {
		s.logger.Error("Failed to extract summary", zap.Int("response_bytes", len(text)), zap.Error(err))
		return nil, fmt.Errorf("summarize tickets: %w", err)
	}

	result, err := decodeSummary(raw)
	if err != nil {
		return nil, fmt.Errorf("summarize tickets: %w", err)
	}

	rec := &domain.LogRecord{
		Timestamp:      at,
		Source:         domain.SourceAnalysisEngine,
		EventType:      domain.EventTicketSummary,
		MessageType:    domain.MessageTypeAnalysis,
		MessageContent: result.Summary,
		Payload:        raw,
	}
	if err := s.writer.Append(ctx, rec); err != nil {
		s.logger.Error("Failed to persist ticket summary", zap.Error(err))
	} else {
		s.logger.Info("Recorded ticket summary", zap.String("log_id", rec.ID), zap.Int("tickets", len(tickets)))
	}

	return result, nil
}

// SummarizeToday summarizes the tickets that arrived since the last summary
func (s *SummaryService) SummarizeToday(ctx context.Context) (*domain.SummaryResult, error) {
	cutoff := s.now()
	tickets, err := s.ticketsUpTo(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, tickets, cutoff)
}

// ticketMessage reads the message fields from a chat record payload, looking
// inside its data object when there is one. Unreadable payloads yield an
// empty message.
func ticketMessage(payload json.RawMessage) domain.ChatWidgetMessage {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err == nil && domain.IsJSONObject(env.Data) {
		payload = env.Data
	}

	var msg domain.ChatWidgetMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.ChatWidgetMessage{}
	}
	return msg
}

// decodeSummary accepts either the structured summary or a bare JSON string.
func decodeSummary(raw json.RawMessage) (*domain.SummaryResult, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return &domain.SummaryResult{Summary: text, Type: summaryResultType}, nil
	}

	var details domain.TicketSummary
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	summary := details.Summary
	if summary == "" {
		summary = noSummary
	}
	return &domain.SummaryResult{Summary: summary, Type: summaryResultType, Details: &details}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
