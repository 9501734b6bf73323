package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/liliang-cn/beacon/internal/domain"
)

// Bus carries inserted records from writers to the hubs of every replica
type Bus interface {
	Publish(ctx context.Context, rec *domain.LogRecord) error
	Start(ctx context.Context, onRecord func(*domain.LogRecord)) error
	Close() error
}

// LocalBus delivers records synchronously inside this process
type LocalBus struct {
	mu       sync.RWMutex
	onRecord func(*domain.LogRecord)
}

// NewLocalBus creates an in-process bus
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Publish hands rec to the started consumer. Before Start it is a no-op.
func (b *LocalBus) Publish(_ context.Context, rec *domain.LogRecord) error {
	b.mu.RLock()
	fn := b.onRecord
	b.mu.RUnlock()

	if fn != nil {
		fn(rec)
	}
	return nil
}

// Start registers the consumer
func (b *LocalBus) Start(_ context.Context, onRecord func(*domain.LogRecord)) error {
	if onRecord == nil {
		return fmt.Errorf("onRecord callback required")
	}
	b.mu.Lock()
	b.onRecord = onRecord
	b.mu.Unlock()
	return nil
}

// Close detaches the consumer
func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.onRecord = nil
	b.mu.Unlock()
	return nil
}
