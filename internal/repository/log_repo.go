package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/beacon/internal/domain"
)

const logColumns = `id, timestamp_us, source, event_type, session_id, user_id,
	user_nickname, message_type, message_content, website_id, payload`

// LogRepository is the append-only store of log records
type LogRepository struct {
	db  *DB
	now func() time.Time
}

// NewLogRepository creates a new log repository
func NewLogRepository(db *DB) *LogRepository {
	return &LogRepository{db: db, now: time.Now}
}

// Insert appends a record. ID and Timestamp are assigned when empty.
func (r *LogRepository) Insert(ctx context.Context, rec *domain.LogRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now()
	}
	rec.Timestamp = rec.Timestamp.UTC().Truncate(time.Microsecond)

	payload := rec.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	_, err := r.db.ExecContext(ctx, r.db.rebind(`
		INSERT INTO logs (`+logColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.Timestamp.UnixMicro(), string(rec.Source), rec.EventType,
		nullString(rec.SessionID), nullString(rec.UserID), nullString(rec.UserNickname),
		nullString(rec.MessageType), nullString(rec.MessageContent), nullString(rec.WebsiteID),
		string(payload))
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// Get retrieves a record by ID
func (r *LogRepository) Get(ctx context.Context, id string) (*domain.LogRecord, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+logColumns+` FROM logs WHERE id = ?`), id)
	rec, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Find returns the records matching q, ordered by timestamp
func (r *LogRepository) Find(ctx context.Context, q domain.LogQuery) ([]*domain.LogRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, string(q.Source))
	}
	if q.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, q.EventType)
	}
	if len(q.EventTypes) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(q.EventTypes)), ", ")
		where = append(where, "event_type IN ("+marks+")")
		for _, et := range q.EventTypes {
			args = append(args, et)
		}
	}
	if q.WebsiteID != "" {
		where = append(where, "website_id = ?")
		args = append(args, q.WebsiteID)
	}
	if q.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if !q.After.IsZero() {
		where = append(where, "timestamp_us > ?")
		args = append(args, q.After.UnixMicro())
	}
	if !q.Since.IsZero() {
		where = append(where, "timestamp_us >= ?")
		args = append(args, q.Since.UnixMicro())
	}
	if !q.Before.IsZero() {
		where = append(where, "timestamp_us < ?")
		args = append(args, q.Before.UnixMicro())
	}

	var b strings.Builder
	b.WriteString("SELECT " + logColumns + " FROM logs")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if q.Descending {
		b.WriteString(" ORDER BY timestamp_us DESC, id DESC")
	} else {
		b.WriteString(" ORDER BY timestamp_us ASC, id ASC")
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.db.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.LogRecord
	for rows.Next() {
		rec, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, rec)
	}

	return logs, rows.Err()
}

// Latest returns the newest record matching the filter, or nil when none
func (r *LogRepository) Latest(ctx context.Context, filter domain.LogFilter, since time.Time) (*domain.LogRecord, error) {
	logs, err := r.Find(ctx, domain.LogQuery{
		LogFilter:  filter,
		Since:      since,
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return logs[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(s scanner) (*domain.LogRecord, error) {
	rec := &domain.LogRecord{}
	var (
		tsMicros                             int64
		source                               string
		sessionID, userID, nickname, msgType sql.NullString
		msgContent, websiteID                sql.NullString
		payload                              []byte
	)

	if err := s.Scan(&rec.ID, &tsMicros, &source, &rec.EventType, &sessionID, &userID,
		&nickname, &msgType, &msgContent, &websiteID, &payload); err != nil {
		return nil, err
	}

	rec.Timestamp = time.UnixMicro(tsMicros).UTC()
	rec.Source = domain.Source(source)
	rec.SessionID = sessionID.String
	rec.UserID = userID.String
	rec.UserNickname = nickname.String
	rec.MessageType = msgType.String
	rec.MessageContent = msgContent.String
	rec.WebsiteID = websiteID.String
	rec.Payload = json.RawMessage(payload)

	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
