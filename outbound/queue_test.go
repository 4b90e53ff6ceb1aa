package outbound

import (
	"testing"
	"time"
)

func TestPostQueue_SortedByDescendingPriority(t *testing.T) {
	q := NewPostQueue()
	q.Add(QueuedPost{ID: "low", Priority: 1, CreatedAt: time.Now()})
	q.Add(QueuedPost{ID: "high", Priority: 10, CreatedAt: time.Now()})
	q.Add(QueuedPost{ID: "mid", Priority: 5, CreatedAt: time.Now()})

	first, ok := q.Pop()
	if !ok || first.ID != "high" {
		t.Fatalf("expected high priority first, got %+v", first)
	}
	second, _ := q.Pop()
	if second.ID != "mid" {
		t.Errorf("expected mid priority second, got %+v", second)
	}
	third, _ := q.Pop()
	if third.ID != "low" {
		t.Errorf("expected low priority last, got %+v", third)
	}
}

func TestPostQueue_RefusesBeyondCap(t *testing.T) {
	q := NewPostQueueWithCap(2)
	if ok := q.Add(QueuedPost{ID: "a", Priority: 1, CreatedAt: time.Now()}); !ok {
		t.Fatal("expected first add to succeed")
	}
	if ok := q.Add(QueuedPost{ID: "b", Priority: 1, CreatedAt: time.Now()}); !ok {
		t.Fatal("expected second add to succeed")
	}
	if ok := q.Add(QueuedPost{ID: "c", Priority: 1, CreatedAt: time.Now()}); ok {
		t.Fatal("expected third add to be refused at cap")
	}
	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}
	q.Pop()
	q.Pop()
	if _, ok := q.Pop(); ok {
		t.Error("expected empty queue after draining")
	}
}

func TestInteractionQueue_GetNextHighestPriority(t *testing.T) {
	q := NewInteractionQueue()
	now := time.Now()
	q.Add(Interaction{ID: "a", Priority: 1, CreatedAt: now})
	q.Add(Interaction{ID: "b", Priority: 5, CreatedAt: now})

	next, ok := q.GetNext(now)
	if !ok || next.ID != "b" {
		t.Fatalf("expected highest priority interaction b, got %+v", next)
	}
	if q.ProcessingLen() != 1 {
		t.Errorf("expected 1 processing item, got %d", q.ProcessingLen())
	}
}

func TestInteractionQueue_RecoverStuckBumpsPriorityAndRequeues(t *testing.T) {
	q := NewInteractionQueue()
	now := time.Now()
	q.Add(Interaction{ID: "a", Priority: 1, CreatedAt: now})
	it, _ := q.GetNext(now)
	if it.ID != "a" {
		t.Fatalf("unexpected next: %+v", it)
	}

	recovered := q.RecoverStuck(now.Add(time.Hour), 10*time.Second)
	if len(recovered) != 1 || recovered[0] != "a" {
		t.Fatalf("expected item a recovered, got %v", recovered)
	}
	if q.ProcessingLen() != 0 {
		t.Errorf("expected processing emptied, got %d", q.ProcessingLen())
	}
	if q.PendingLen() != 1 {
		t.Fatalf("expected item back in pending, got %d", q.PendingLen())
	}

	next, ok := q.GetNext(now.Add(time.Hour))
	if !ok || next.Priority != 2 {
		t.Errorf("expected recovered item's priority bumped to 2, got %+v", next)
	}
}

func TestInteractionQueue_RecoverStuckLeavesFreshItemsAlone(t *testing.T) {
	q := NewInteractionQueue()
	now := time.Now()
	q.Add(Interaction{ID: "a", Priority: 1, CreatedAt: now})
	q.GetNext(now)

	recovered := q.RecoverStuck(now.Add(time.Second), 10*time.Second)
	if len(recovered) != 0 {
		t.Errorf("expected no recovery before stale threshold, got %v", recovered)
	}
}
