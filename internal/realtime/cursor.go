package realtime

import (
	"time"

	"github.com/liliang-cn/beacon/internal/domain"
)

const defaultCursorMemory = 1024

// Cursor tracks what a stream has already delivered. Push notifications and
// reconciliation queries both go through Seen/Mark, so a record reaching the
// stream both ways is emitted once.
type Cursor struct {
	pos    time.Time
	ids    map[string]struct{}
	order  []string // ring of remembered ids, oldest at next
	next   int
	memory int
}

// NewCursor starts a cursor at from, remembering up to memory delivered ids
func NewCursor(from time.Time, memory int) *Cursor {
	if memory <= 0 {
		memory = defaultCursorMemory
	}
	return &Cursor{
		pos:    from,
		ids:    make(map[string]struct{}, memory),
		order:  make([]string, 0, memory),
		memory: memory,
	}
}

// Position is the newest delivered timestamp; reconcile from here inclusively
func (c *Cursor) Position() time.Time { return c.pos }

// Seen reports whether rec was already delivered
func (c *Cursor) Seen(rec *domain.LogRecord) bool {
	_, ok := c.ids[rec.ID]
	return ok
}

// Mark records rec as delivered
func (c *Cursor) Mark(rec *domain.LogRecord) {
	if rec.Timestamp.After(c.pos) {
		c.pos = rec.Timestamp
	}
	if _, ok := c.ids[rec.ID]; ok {
		return
	}
	if len(c.order) < c.memory {
		c.order = append(c.order, rec.ID)
	} else {
		delete(c.ids, c.order[c.next])
		c.order[c.next] = rec.ID
		c.next = (c.next + 1) % c.memory
	}
	c.ids[rec.ID] = struct{}{}
}
