package metrics

import (
	"testing"
	"time"
)

func TestAsyncObserverDelivers(t *testing.T) {
	mem := NewMemoryObserver()
	async := NewAsyncObserver(mem, 16)
	async.RecordEvent(Event("turn_start", map[string]string{"conversation": "c1"}, nil))
	async.RecordEvent(Event("turn_done", nil, map[string]any{"iterations": 1}))
	async.Close()

	names := mem.Names()
	if len(names) != 2 || names[0] != "turn_start" || names[1] != "turn_done" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestAsyncObserverDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	slow := observerFunc(func(MetricsEvent) { <-block })
	async := NewAsyncObserver(slow, 1)
	for i := 0; i < 10; i++ {
		async.RecordEvent(MetricsEvent{Name: "x", Time: time.Now()})
	}
	if async.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer")
	}
	close(block)
	async.Close()
}

func TestRecordAfterClose(t *testing.T) {
	mem := NewMemoryObserver()
	async := NewAsyncObserver(mem, 4)
	async.Close()
	async.RecordEvent(MetricsEvent{Name: "late"}) // must not panic
}

type observerFunc func(MetricsEvent)

func (f observerFunc) RecordEvent(ev MetricsEvent) { f(ev) }
