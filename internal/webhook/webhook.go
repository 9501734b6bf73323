// Package webhook turns provider-specific webhook bodies into log records.
//
// Both parsers are pure: fields missing from the input stay empty on the
// record, and the body received from the provider is kept as the payload.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/liliang-cn/beacon/internal/domain"
)

// ParseChatWidget decodes a chat widget event and maps it onto a log record.
// The record payload is the body exactly as received. Any JSON object is
// accepted; fields of an unexpected type are read as text or left empty.
func ParseChatWidget(body []byte) (*domain.ChatWidgetEvent, *domain.LogRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if !domain.IsJSONObject(trimmed) {
		return nil, nil, fmt.Errorf("%w: expected a JSON object", domain.ErrMalformedPayload)
	}

	var ev domain.ChatWidgetEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	rec := &domain.LogRecord{
		Source:    domain.SourceChatWidget,
		EventType: ev.Event,
		WebsiteID: ev.WebsiteID,
		Payload:   json.RawMessage(append([]byte(nil), trimmed...)),
	}
	if d := ev.Data; d != nil {
		rec.SessionID = d.SessionID
		rec.MessageType = d.Type
		rec.MessageContent = d.Content.String()
		if d.User != nil {
			rec.UserID = d.User.UserID
			rec.UserNickname = d.User.Nickname
		}
	}

	return &ev, rec, nil
}

// IsInboundChatMessage reports whether a chat widget event carries a visitor
// message worth analysing.
func IsInboundChatMessage(ev *domain.ChatWidgetEvent) bool {
	return ev != nil &&
		ev.Event == domain.EventMessageSend &&
		ev.Data != nil &&
		ev.Data.Content != ""
}

// ParseSMS maps the form fields of an inbound SMS onto a log record. The
// payload holds the provider fields under their original names.
func ParseSMS(form url.Values) (*domain.SMSMessage, *domain.LogRecord, error) {
	msg := &domain.SMSMessage{
		MessageSid: form.Get("MessageSid"),
		From:       form.Get("From"),
		To:         form.Get("To"),
		Body:       form.Get("Body"),
		NumMedia:   form.Get("NumMedia"),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, nil, fmt.Errorf("encode sms payload: %w", err)
	}

	rec := &domain.LogRecord{
		Source:         domain.SourceSMSProvider,
		EventType:      domain.EventMessageReceived,
		SessionID:      msg.MessageSid,
		UserID:         msg.From,
		MessageType:    domain.MessageTypeText,
		MessageContent: msg.Body,
		Payload:        payload,
	}
	return msg, rec, nil
}

// IsInboundSMS reports whether an SMS has text to analyse.
func IsInboundSMS(msg *domain.SMSMessage) bool {
	return msg != nil && msg.Body != ""
}
