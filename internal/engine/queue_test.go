package engine

import (
	"testing"
	"time"

	"github.com/go-ispider/ispider/internal/types"
)

func mustRequest(t *testing.T, rawURL string) *types.Request {
	t.Helper()
	req, err := types.NewRequest(rawURL, types.KindLanding, "primary")
	if err != nil {
		t.Fatalf("NewRequest(%q): %v", rawURL, err)
	}
	return req
}

func TestOutQueueLIFOOrder(t *testing.T) {
	q := NewOutQueue()
	q.Push(mustRequest(t, "https://example.com/a"))
	q.Push(mustRequest(t, "https://example.com/b"))
	q.Push(mustRequest(t, "https://example.com/c"))

	if got := q.Pop().URLString(); got != "https://example.com/c" {
		t.Errorf("expected last-pushed request first, got %s", got)
	}
	if got := q.Pop().URLString(); got != "https://example.com/b" {
		t.Errorf("expected %s, got %s", "https://example.com/b", got)
	}
	if got := q.Pop().URLString(); got != "https://example.com/a" {
		t.Errorf("expected %s, got %s", "https://example.com/a", got)
	}
}

func TestOutQueuePopBlocksUntilClosed(t *testing.T) {
	q := NewOutQueue()

	done := make(chan *types.Request, 1)
	go func() { done <- q.Pop() }()

	select {
	case <-done:
		t.Fatal("Pop returned before a push or close")
	case <-time.After(50 * time.Millisecond):
	}

	q.Close()

	select {
	case req := <-done:
		if req != nil {
			t.Errorf("expected nil from Pop on a closed empty queue, got %v", req)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock after Close")
	}
}

func TestOutQueuePushAfterCloseIsNoop(t *testing.T) {
	q := NewOutQueue()
	q.Close()
	q.Push(mustRequest(t, "https://example.com/late"))

	if got := q.Len(); got != 0 {
		t.Errorf("expected Push after Close to be dropped, queue len = %d", got)
	}
}

func TestOutQueueSnapshotDoesNotDrain(t *testing.T) {
	q := NewOutQueue()
	q.Push(mustRequest(t, "https://example.com/a"))
	q.Push(mustRequest(t, "https://example.com/b"))

	snap := q.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected snapshot of 2, got %d", len(snap))
	}
	if got := q.Len(); got != 2 {
		t.Errorf("Snapshot must not remove items, len = %d", got)
	}
}

func TestInQueueFIFOAndCapacity(t *testing.T) {
	q := NewInQueue(2)
	done := make(chan struct{})

	if !q.Send(mustRequest(t, "https://example.com/a"), done) {
		t.Fatal("first send into a queue with capacity 2 should not block")
	}
	if !q.Send(mustRequest(t, "https://example.com/b"), done) {
		t.Fatal("second send into a queue with capacity 2 should not block")
	}
	if got := q.Len(); got != 2 {
		t.Errorf("expected len 2, got %d", got)
	}

	first := <-q.Chan()
	if got := first.URLString(); got != "https://example.com/a" {
		t.Errorf("expected FIFO order, got %s", got)
	}
}

func TestInQueueSendUnblocksOnDone(t *testing.T) {
	q := NewInQueue(1)
	q.Send(mustRequest(t, "https://example.com/fill"), nil)

	done := make(chan struct{})
	close(done)

	if q.Send(mustRequest(t, "https://example.com/blocked"), done) {
		t.Error("Send on a full queue with a closed done channel should return false")
	}
}
