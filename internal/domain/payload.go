package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Payload is one of the known record payload shapes, keyed by source.
// Unknown shapes decode to OpaquePayload.
type Payload interface {
	payloadSource() Source
}

// ChatWidgetEvent is the webhook body delivered by the chat widget
type ChatWidgetEvent struct {
	Event     string             `json:"event"`
	WebsiteID string             `json:"website_id,omitempty"`
	Data      *ChatWidgetMessage `json:"data,omitempty"`
}

// ChatWidgetMessage is the optional data block of a chat widget event
type ChatWidgetMessage struct {
	SessionID string          `json:"session_id,omitempty"`
	User      *ChatWidgetUser `json:"user,omitempty"`
	Type      string          `json:"type,omitempty"`
	Content   FlexibleText    `json:"content,omitempty"`
	From      string          `json:"from,omitempty"`
}

// ChatWidgetUser identifies the visitor behind a chat widget message
type ChatWidgetUser struct {
	UserID   string `json:"user_id,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// UnmarshalJSON decodes a chat widget event leniently: scalar fields of any
// JSON type are read as text and a data block that is not an object is
// treated as absent. Only a body that is not a JSON object fails.
func (e *ChatWidgetEvent) UnmarshalJSON(raw []byte) error {
	var fields struct {
		Event     FlexibleText    `json:"event"`
		WebsiteID FlexibleText    `json:"website_id"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	*e = ChatWidgetEvent{Event: fields.Event.String(), WebsiteID: fields.WebsiteID.String()}
	if IsJSONObject(fields.Data) {
		e.Data = &ChatWidgetMessage{}
		if err := json.Unmarshal(fields.Data, e.Data); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON decodes a message block leniently. Anything other than an
// object leaves the message empty.
func (m *ChatWidgetMessage) UnmarshalJSON(raw []byte) error {
	*m = ChatWidgetMessage{}
	if !IsJSONObject(raw) {
		return nil
	}

	var fields struct {
		SessionID FlexibleText    `json:"session_id"`
		User      json.RawMessage `json:"user"`
		Type      FlexibleText    `json:"type"`
		Content   FlexibleText    `json:"content"`
		From      FlexibleText    `json:"from"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	m.SessionID = fields.SessionID.String()
	m.Type = fields.Type.String()
	m.Content = fields.Content
	m.From = fields.From.String()
	if IsJSONObject(fields.User) {
		var user struct {
			UserID   FlexibleText `json:"user_id"`
			Nickname FlexibleText `json:"nickname"`
		}
		if err := json.Unmarshal(fields.User, &user); err != nil {
			return err
		}
		m.User = &ChatWidgetUser{UserID: user.UserID.String(), Nickname: user.Nickname.String()}
	}
	return nil
}

// IsJSONObject reports whether raw holds a JSON object
func IsJSONObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// SMSMessage holds the form fields of an inbound SMS webhook
type SMSMessage struct {
	MessageSid string `json:"MessageSid,omitempty"`
	From       string `json:"From,omitempty"`
	To         string `json:"To,omitempty"`
	Body       string `json:"Body,omitempty"`
	NumMedia   string `json:"NumMedia,omitempty"`
}

// OpaquePayload is a payload whose shape is not known for its source
type OpaquePayload json.RawMessage

func (*ChatWidgetEvent) payloadSource() Source   { return SourceChatWidget }
func (*SMSMessage) payloadSource() Source        { return SourceSMSProvider }
func (*SentimentAnalysis) payloadSource() Source { return SourceAnalysisEngine }
func (*TicketSummary) payloadSource() Source     { return SourceAnalysisEngine }
func (OpaquePayload) payloadSource() Source      { return "" }

// DecodePayload decodes the record payload into the variant its source and
// event type call for.
func (r *LogRecord) DecodePayload() (Payload, error) {
	var p Payload
	switch {
	case r.Source == SourceChatWidget:
		p = &ChatWidgetEvent{}
	case r.Source == SourceSMSProvider:
		p = &SMSMessage{}
	case r.Source == SourceAnalysisEngine && r.EventType == EventSentimentAnalysis:
		p = &SentimentAnalysis{}
	case r.Source == SourceAnalysisEngine && r.EventType == EventTicketSummary:
		p = &TicketSummary{}
	default:
		return OpaquePayload(r.Payload), nil
	}
	if err := json.Unmarshal(r.Payload, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", r.Source, err)
	}
	return p, nil
}

// FlexibleText accepts any JSON value. Strings are kept as-is, numbers and
// booleans are formatted, objects and arrays keep their raw JSON text.
type FlexibleText string

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexibleText) UnmarshalJSON(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		*t = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*t = FlexibleText(s)
		return nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		*t = FlexibleText(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		*t = FlexibleText(strconv.FormatBool(b))
		return nil
	}

	if !json.Valid(raw) {
		return fmt.Errorf("invalid JSON value")
	}
	*t = FlexibleText(raw)
	return nil
}

// String returns the text.
func (t FlexibleText) String() string { return string(t) }
