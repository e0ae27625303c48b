package bus

import (
	"context"
	"testing"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/realtime"
)

func TestMemoryBusFansOut(t *testing.T) {
	b := NewMemoryBus()
	var a, c []realtime.EventType
	_ = b.StartForwarder(context.Background(), func(ev realtime.Event) { a = append(a, ev.Type) })
	_ = b.StartForwarder(context.Background(), func(ev realtime.Event) { c = append(c, ev.Type) })

	if err := b.Publish(context.Background(), realtime.Event{Type: realtime.EventJobDone}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(a) != 1 || len(c) != 1 || a[0] != realtime.EventJobDone {
		t.Fatalf("subscribers got %v / %v", a, c)
	}
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	log, _ := logger.New("test")
	if _, err := NewRedisBus(log, RedisConfig{}); err == nil {
		t.Fatalf("expected error without REDIS_ADDR")
	}
}
