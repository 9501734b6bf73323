package domain

import (
	"encoding/json"
	"time"
)

// Source identifies where a log record originated
type Source string

const (
	SourceChatWidget     Source = "chat-widget"
	SourceSMSProvider    Source = "sms-provider"
	SourceAnalysisEngine Source = "analysis-engine"
)

// Event types written by the ingestion pipeline
const (
	EventMessageSend       = "message:send"
	EventMessageReceived   = "message:received"
	EventSentimentAnalysis = "sentiment_analysis"
	EventTicketSummary     = "ticket_summary"
)

// Message types
const (
	MessageTypeText     = "text"
	MessageTypeAnalysis = "analysis"
)

// LogRecord is an append-only entry for one observed or derived event.
// Empty optional fields are stored as NULL and omitted from JSON.
type LogRecord struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Source         Source          `json:"source"`
	EventType      string          `json:"event_type"`
	SessionID      string          `json:"session_id,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	UserNickname   string          `json:"user_nickname,omitempty"`
	MessageType    string          `json:"message_type,omitempty"`
	MessageContent string          `json:"message_content,omitempty"`
	WebsiteID      string          `json:"website_id,omitempty"`
	Payload        json.RawMessage `json:"payload"`
}

// LogFilter selects records by exact match on the non-empty fields
type LogFilter struct {
	Source    Source `json:"source,omitempty"`
	EventType string `json:"event_type,omitempty"`
	WebsiteID string `json:"website_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Matches reports whether the record satisfies every set field of the filter.
func (f LogFilter) Matches(r *LogRecord) bool {
	if r == nil {
		return false
	}
	if f.Source != "" && f.Source != r.Source {
		return false
	}
	if f.EventType != "" && f.EventType != r.EventType {
		return false
	}
	if f.WebsiteID != "" && f.WebsiteID != r.WebsiteID {
		return false
	}
	if f.SessionID != "" && f.SessionID != r.SessionID {
		return false
	}
	return true
}

// LogQuery is a filtered, time-bounded select against the log store
type LogQuery struct {
	LogFilter
	EventTypes []string  // any of; combined with EventType when both are set
	After      time.Time // strictly after, zero means unbounded
	Since      time.Time // at or after, zero means unbounded
	Before     time.Time // strictly before, zero means unbounded
	Descending bool
	Limit      int
}
