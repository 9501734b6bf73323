package domain

import "math"

// SentimentLabel is the three-level bucket derived from a sentiment score
type SentimentLabel string

const (
	SentimentHigh   SentimentLabel = "High"
	SentimentMedium SentimentLabel = "Medium"
	SentimentLow    SentimentLabel = "Low"
)

const (
	highSentimentThreshold   = 0.7
	mediumSentimentThreshold = 0.4
)

// SentimentAnalysis is the analysis engine's verdict on a single message.
// It is stored as the payload of a sentiment_analysis log record.
type SentimentAnalysis struct {
	SentimentScore float64        `json:"sentiment_score"`
	SentimentLabel SentimentLabel `json:"sentiment"`
	Summary        string         `json:"summary"`
	RiskFactors    []string       `json:"risk_factors"`
	ActionItems    []string       `json:"action_items"`
	KeyTopics      []string       `json:"key_topics"`
}

// OverallSentiment is the independent three-way label of a ticket summary
type OverallSentiment string

const (
	OverallPositive OverallSentiment = "positive"
	OverallNeutral  OverallSentiment = "neutral"
	OverallNegative OverallSentiment = "negative"
)

// TicketSummary is the daily rollup produced from a batch of chat messages
type TicketSummary struct {
	Summary          string           `json:"summary"`
	OverallSentiment OverallSentiment `json:"overall_sentiment"`
	UrgentMatters    []string         `json:"urgent_matters"`
	KeyTopics        []string         `json:"key_topics"`
	ActionItems      []string         `json:"action_items"`
}

// SummaryResult is what a summarization call hands back to its caller
type SummaryResult struct {
	Summary string         `json:"summary"`
	Type    string         `json:"type"`
	Details *TicketSummary `json:"details,omitempty"`
}

// NoInquiriesSummary is returned when there is nothing to summarize.
const NoInquiriesSummary = "No support inquiries today."

// LabelFor buckets a score: High from 0.7, Medium from 0.4, Low below.
func LabelFor(score float64) SentimentLabel {
	switch {
	case score >= highSentimentThreshold:
		return SentimentHigh
	case score >= mediumSentimentThreshold:
		return SentimentMedium
	default:
		return SentimentLow
	}
}

// ClampScore clips a score into [0, 1]. NaN becomes 0.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}

// NormalizeSentiment clamps the score and overwrites the label.
// Applying it twice yields the same result as applying it once.
func NormalizeSentiment(a SentimentAnalysis) SentimentAnalysis {
	a.SentimentScore = ClampScore(a.SentimentScore)
	a.SentimentLabel = LabelFor(a.SentimentScore)
	return a
}
