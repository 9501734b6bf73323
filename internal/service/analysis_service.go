package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/config"
	"github.com/liliang-cn/beacon/internal/domain"
	"github.com/liliang-cn/beacon/internal/wordware"
)

// AnalysisService scores single messages with the analysis prompt app
type AnalysisService struct {
	cfg       config.WordwareConfig
	generator Generator
	logger    *zap.Logger
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(cfg config.WordwareConfig, generator Generator, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{cfg: cfg, generator: generator, logger: logger}
}

// Analyze runs the analysis prompt on message and returns the normalized verdict
func (s *AnalysisService) Analyze(ctx context.Context, message string) (*domain.SentimentAnalysis, error) {
	text, err := s.generator.Run(ctx, s.cfg.AnalysisAppID, wordware.RunRequest{
		Inputs: map[string]string{
			wordware.InputPrompt: wordware.AnalysisPrompt,
			wordware.InputTicket: message,
		},
		Version: s.cfg.AnalysisVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze message: %w", err)
	}

	raw, err := wordware.ExtractOutput(text, outputField(s.cfg))
	if err != nil {
		s.logger.Error("Failed to extract analysis", zap.Int("response_bytes", len(text)), zap.Error(err))
		return nil, fmt.Errorf("analyze message: %w", err)
	}

	analysis, err := decodeAnalysis(raw)
	if err != nil {
		return nil, fmt.Errorf("analyze message: %w", err)
	}

	normalized := domain.NormalizeSentiment(*analysis)
	return &normalized, nil
}

func decodeAnalysis(raw json.RawMessage) (*domain.SentimentAnalysis, error) {
	var scored struct {
		SentimentScore *float64 `json:"sentiment_score"`
	}
	if err := json.Unmarshal(raw, &scored); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if scored.SentimentScore == nil {
		return nil, domain.ErrMissingScore
	}

	var a domain.SentimentAnalysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if a.RiskFactors == nil {
		a.RiskFactors = []string{}
	}
	if a.ActionItems == nil {
		a.ActionItems = []string{}
	}
	if a.KeyTopics == nil {
		a.KeyTopics = []string{}
	}
	return &a, nil
}

func outputField(cfg config.WordwareConfig) string {
	if cfg.OutputField != "" {
		return cfg.OutputField
	}
	return wordware.DefaultOutputField
}
