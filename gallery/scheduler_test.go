package gallery

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeHost struct {
	mu      sync.Mutex
	loads   []Handle
	running bool // RunLoad reports an in-flight loader
	slices  int  // RunLayout calls needed before done

	layoutCalls atomic.Int64
	heartbeats  atomic.Int64
}

func (h *fakeHost) RunLoad(target Handle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loads = append(h.loads, target)
	return h.running
}

func (h *fakeHost) RunLayout() bool {
	n := h.layoutCalls.Add(1)
	h.mu.Lock()
	defer h.mu.Unlock()
	return int(n) >= h.slices
}

func (h *fakeHost) Heartbeat() { h.heartbeats.Add(1) }

func (h *fakeHost) loaded() []Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Handle(nil), h.loads...)
}

func handle(i int) Handle { return Handle{index: uint32(i), gen: 1} }

func TestScheduler_QueueDropsOldestWhenFull(t *testing.T) {
	host := &fakeHost{running: true}
	s := NewScheduler(host, time.Hour)
	defer s.Close()

	// Occupy the load lane so nothing else is popped.
	s.Submit(handle(0))
	waitFor(t, "first load", func() bool { return len(host.loaded()) == 1 })

	for i := 1; i <= QueueCapacity+5; i++ {
		s.Submit(handle(i))
	}
	pending := s.Pending()
	if len(pending) != QueueCapacity {
		t.Fatalf("Expected %d pending, got %d", QueueCapacity, len(pending))
	}
	if pending[0] != handle(QueueCapacity+5) {
		t.Errorf("Expected newest request at the front, got %+v", pending[0])
	}
	if last := pending[len(pending)-1]; last != handle(6) {
		t.Errorf("Expected the five oldest requests dropped, tail is %+v", last)
	}
}

func TestScheduler_ResubmitMovesToFront(t *testing.T) {
	host := &fakeHost{running: true}
	s := NewScheduler(host, time.Hour)
	defer s.Close()

	s.Submit(handle(0))
	waitFor(t, "first load", func() bool { return len(host.loaded()) == 1 })

	s.Submit(handle(1))
	s.Submit(handle(2))
	s.Submit(handle(1))
	pending := s.Pending()
	if len(pending) != 2 || pending[0] != handle(1) || pending[1] != handle(2) {
		t.Errorf("Expected [1 2], got %+v", pending)
	}

	s.Drop(handle(2))
	if pending := s.Pending(); len(pending) != 1 {
		t.Errorf("Expected drop to remove the target, got %+v", pending)
	}
}

func TestScheduler_OneLoaderAtATime(t *testing.T) {
	host := &fakeHost{running: true}
	s := NewScheduler(host, time.Hour)
	defer s.Close()

	s.Submit(handle(1))
	s.Submit(handle(2))
	waitFor(t, "first load", func() bool { return len(host.loaded()) == 1 })
	if s.State(TaskLoadThumbnail) != TaskRunning {
		t.Fatalf("Expected load lane running, got %v", s.State(TaskLoadThumbnail))
	}

	time.Sleep(20 * time.Millisecond)
	if n := len(host.loaded()); n != 1 {
		t.Fatalf("Second load started while the first was in flight (%d loads)", n)
	}

	s.LoadFinished()
	waitFor(t, "second load", func() bool { return len(host.loaded()) == 2 })
	s.LoadFinished()
	waitFor(t, "lane finished", func() bool { return s.State(TaskLoadThumbnail) == TaskFinished })
}

func TestScheduler_OldestServedFirst(t *testing.T) {
	host := &fakeHost{running: true}
	s := NewScheduler(host, time.Hour)
	defer s.Close()

	s.Submit(handle(0))
	waitFor(t, "first load", func() bool { return len(host.loaded()) == 1 })
	s.Submit(handle(1))
	s.Submit(handle(2))
	s.LoadFinished()
	waitFor(t, "second load", func() bool { return len(host.loaded()) == 2 })
	if got := host.loaded()[1]; got != handle(1) {
		t.Errorf("Expected oldest pending request next, got %+v", got)
	}
}

func TestScheduler_DirectApplyKeepsDraining(t *testing.T) {
	host := &fakeHost{running: false}
	s := NewScheduler(host, time.Hour)
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.Submit(handle(i))
	}
	waitFor(t, "all loads", func() bool { return len(host.loaded()) == 5 })
	waitFor(t, "lane finished", func() bool { return s.State(TaskLoadThumbnail) == TaskFinished })
}

func TestScheduler_LayoutSlicesUntilDone(t *testing.T) {
	host := &fakeHost{slices: 3}
	s := NewScheduler(host, time.Hour)
	defer s.Close()

	s.RequestLayout()
	waitFor(t, "layout done", func() bool {
		return host.layoutCalls.Load() == 3 && s.State(TaskLayout) == TaskFinished
	})
	// A finished lane is only re-armed by a request; Close waits for the worker.
	s.Close()
	if n := host.layoutCalls.Load(); n != 3 {
		t.Errorf("Expected exactly 3 layout slices, got %d", n)
	}
}

func TestScheduler_HeartbeatWhenIdle(t *testing.T) {
	host := &fakeHost{}
	s := NewScheduler(host, 10*time.Millisecond)
	defer s.Close()

	waitFor(t, "heartbeats", func() bool { return host.heartbeats.Load() >= 2 })
}

func TestScheduler_SignalWakesBeforeHeartbeat(t *testing.T) {
	host := &fakeHost{}
	s := NewScheduler(host, time.Hour)
	defer s.Close()

	time.Sleep(5 * time.Millisecond)
	s.Submit(handle(1))
	waitFor(t, "load", func() bool { return len(host.loaded()) == 1 })
	if host.heartbeats.Load() != 0 {
		t.Error("Worker should have been woken by the submission, not the heartbeat")
	}
}

func TestScheduler_CloseIgnoresLaterWork(t *testing.T) {
	host := &fakeHost{}
	s := NewScheduler(host, time.Hour)
	s.Close()
	s.Close()

	s.Submit(handle(1))
	s.RequestLayout()
	s.LoadFinished()
	time.Sleep(10 * time.Millisecond)
	if len(host.loaded()) != 0 || host.layoutCalls.Load() != 0 {
		t.Error("Closed scheduler should not run work")
	}
}
