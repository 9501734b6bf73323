package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/domain"
	"github.com/liliang-cn/beacon/internal/realtime"
)

const (
	defaultKeepAlive         = 30 * time.Second
	defaultReconcileInterval = time.Minute
	defaultReconcileWindow   = time.Minute
)

// StreamLogs pushes newly written log records as server-sent events. Records
// are pushed as soon as the changefeed announces them and the store is
// re-read periodically to catch announcements that never arrived.
//
// Timestamps are taken before the insert commits, so a record can become
// visible after a newer one was delivered. Each re-read therefore reaches
// back a window before the newest delivered record; the cursor drops what
// was already sent. Records from before the stream opened are not replayed.
func (h *Handler) StreamLogs(c *gin.Context) {
	filter := logFilter(c)
	sub := h.hub.Subscribe(filter)
	defer sub.Close()

	ctx := c.Request.Context()
	opened := time.Now()
	cursor := realtime.NewCursor(opened, 0)
	window := durationOr(h.stream.ReconcileWindow, defaultReconcileWindow)
	logger := h.logger.With(zap.String("subscription_id", sub.ID.String()))

	keepAlive := time.NewTicker(durationOr(h.stream.KeepAlive, defaultKeepAlive))
	defer keepAlive.Stop()
	reconcile := time.NewTicker(durationOr(h.stream.ReconcileInterval, defaultReconcileInterval))
	defer reconcile.Stop()

	writeFailed := func(err error) bool {
		if realtime.IsClientGone(err) {
			logger.Debug("Log stream client gone", zap.Error(err))
		} else {
			logger.Warn("Failed to write to log stream", zap.Error(err))
		}
		return false
	}

	emit := func(w io.Writer, rec *domain.LogRecord) bool {
		if cursor.Seen(rec) {
			return true
		}
		if err := writeEvent(w, "log", rec); err != nil {
			return writeFailed(err)
		}
		cursor.Mark(rec)
		return true
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			logger.Debug("Log stream closed", zap.Error(ctx.Err()))
			return false

		case rec, ok := <-sub.C:
			return ok && emit(w, rec)

		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return writeFailed(err)
			}
			return true

		case <-reconcile.C:
			since := cursor.Position().Add(-window)
			if since.Before(opened) {
				since = opened
			}
			missed, err := h.dashboardService.LogsSince(ctx, filter, since)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				logger.Warn("Log stream reconciliation failed", zap.Error(err))
				return true
			}
			for _, rec := range missed {
				if !emit(w, rec) {
					return false
				}
			}
			return true
		}
	})
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
