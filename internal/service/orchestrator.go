package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/domain"
	"github.com/liliang-cn/beacon/internal/webhook"
)

// Orchestrator sequences webhook ingestion: persist the inbound record, then
// for inbound text analyse it and persist the analysis as a second record.
// The two inserts are not atomic; a failure after the first keeps it.
type Orchestrator struct {
	writer   *LogWriter
	analyzer Analyzer
	logger   *zap.Logger
}

// NewOrchestrator creates an ingestion orchestrator
func NewOrchestrator(writer *LogWriter, analyzer Analyzer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		writer:   writer,
		analyzer: analyzer,
		logger:   logger.With(zap.String("component", "orchestrator")),
	}
}

// HandleChatWidget ingests one chat widget webhook body
func (o *Orchestrator) HandleChatWidget(ctx context.Context, body []byte) error {
	ev, rec, err := webhook.ParseChatWidget(body)
	if err != nil {
		return err
	}

	if err := o.writer.Append(ctx, rec); err != nil {
		o.logger.Error("Failed to persist chat widget event", zap.String("event", ev.Event), zap.Error(err))
		return fmt.Errorf("persist chat widget event: %w", err)
	}
	o.logger.Debug("Persisted chat widget event",
		zap.String("log_id", rec.ID),
		zap.String("event", ev.Event),
		zap.String("website_id", ev.WebsiteID),
	)

	if !webhook.IsInboundChatMessage(ev) {
		return nil
	}
	return o.analyze(ctx, rec)
}

// HandleSMS ingests one inbound SMS webhook
func (o *Orchestrator) HandleSMS(ctx context.Context, form url.Values) error {
	msg, rec, err := webhook.ParseSMS(form)
	if err != nil {
		return err
	}

	if err := o.writer.Append(ctx, rec); err != nil {
		o.logger.Error("Failed to persist sms message", zap.String("message_sid", msg.MessageSid), zap.Error(err))
		return fmt.Errorf("persist sms message: %w", err)
	}
	o.logger.Debug("Persisted sms message", zap.String("log_id", rec.ID), zap.String("message_sid", msg.MessageSid))

	if !webhook.IsInboundSMS(msg) {
		return nil
	}
	return o.analyze(ctx, rec)
}

// analyze scores the primary record's text and appends the analysis record.
// Failing to persist the analysis is logged, not returned.
func (o *Orchestrator) analyze(ctx context.Context, primary *domain.LogRecord) error {
	analysis, err := o.analyzer.Analyze(ctx, primary.MessageContent)
	if err != nil {
		o.logger.Error("Sentiment analysis failed", zap.String("log_id", primary.ID), zap.Error(err))
		return err
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	secondary := &domain.LogRecord{
		Source:         domain.SourceAnalysisEngine,
		EventType:      domain.EventSentimentAnalysis,
		SessionID:      primary.SessionID,
		UserID:         primary.UserID,
		UserNickname:   primary.UserNickname,
		MessageType:    domain.MessageTypeAnalysis,
		MessageContent: string(analysis.SentimentLabel),
		WebsiteID:      primary.WebsiteID,
		Payload:        payload,
	}
	if err := o.writer.Append(ctx, secondary); err != nil {
		o.logger.Error("Failed to persist sentiment analysis",
			zap.String("primary_log_id", primary.ID),
			zap.Error(err),
		)
		return nil
	}

	o.logger.Info("Recorded sentiment analysis",
		zap.String("primary_log_id", primary.ID),
		zap.String("log_id", secondary.ID),
		zap.Float64("sentiment_score", analysis.SentimentScore),
		zap.String("sentiment", string(analysis.SentimentLabel)),
	)
	return nil
}
