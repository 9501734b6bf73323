package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/domain"
)

// RedisBus shares inserted records between replicas over a redis channel
type RedisBus struct {
	logger  *zap.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus connects to addr and verifies the connection
func NewRedisBus(ctx context.Context, addr, channel string, logger *zap.Logger) (*RedisBus, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = "beacon:logs"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBus{
		logger:  logger.With(zap.String("component", "redis_bus")),
		rdb:     rdb,
		channel: channel,
	}, nil
}

// Publish sends rec to the shared channel
func (b *RedisBus) Publish(ctx context.Context, rec *domain.LogRecord) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Start subscribes and forwards every received record until ctx ends
func (b *RedisBus) Start(ctx context.Context, onRecord func(*domain.LogRecord)) error {
	if onRecord == nil {
		return fmt.Errorf("onRecord callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				rec, err := decodeRecord(m.Payload)
				if err != nil {
					b.logger.Warn("discarding undecodable log notification", zap.Error(err))
					continue
				}
				onRecord(rec)
			}
		}
	}()

	return nil
}

// Close closes the redis client
func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

func encodeRecord(rec *domain.LogRecord) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil log record")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode log notification: %w", err)
	}
	return raw, nil
}

func decodeRecord(payload string) (*domain.LogRecord, error) {
	var rec domain.LogRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode log notification: %w", err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("decode log notification: missing id")
	}
	return &rec, nil
}
