package bus

import (
	"context"
	"sync"

	"github.com/yungbote/draftbridge-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}

// memoryBus is the in-process bus used when REDIS_ADDR is unset.
type memoryBus struct {
	mu   sync.RWMutex
	subs []func(realtime.Event)
}

func NewMemoryBus() Bus { return &memoryBus{} }

func (b *memoryBus) Publish(ctx context.Context, ev realtime.Event) error {
	b.mu.RLock()
	subs := append([]func(realtime.Event){}, b.subs...)
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	b.mu.Lock()
	b.subs = append(b.subs, onEvent)
	b.mu.Unlock()
	return nil
}

func (b *memoryBus) Close() error { return nil }
