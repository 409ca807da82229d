package gallery

import (
	"sync"
	"time"
)

// TaskKind names one of the two lanes a view's scheduler alternates between.
type TaskKind int

const (
	TaskLoadThumbnail TaskKind = iota
	TaskLayout
	numTaskKinds
)

// TaskState is the state of a lane's slot.
type TaskState int

const (
	TaskFinished TaskState = iota
	TaskRunning
	TaskReady
)

const (
	// QueueCapacity bounds the pending thumbnail requests of one view.
	QueueCapacity = 32
	// DefaultHeartbeat is how long an idle worker sleeps before re-polling.
	DefaultHeartbeat = 500 * time.Millisecond
)

// TaskHost executes the work of the scheduler's lanes. Its methods are
// called on the scheduler's worker goroutine, never concurrently.
type TaskHost interface {
	// RunLoad handles one queued target and reports whether a loader is now
	// in flight. An in-flight loader must end with Scheduler.LoadFinished.
	RunLoad(target Handle) (running bool)
	// RunLayout lays out one slice and reports whether layout is complete.
	RunLayout() (done bool)
	// Heartbeat is called when the worker was idle for a whole heartbeat.
	Heartbeat()
}

// Scheduler is the per-view background worker. It owns one slot per lane
// and the bounded queue of pending thumbnail targets.
type Scheduler struct {
	mu     sync.Mutex
	slots  [numTaskKinds]TaskState
	queue  []Handle // queue[0] is the newest request
	closed bool

	host      TaskHost
	heartbeat time.Duration
	wake      chan struct{}
	done      chan struct{}
	exited    chan struct{}
}

// NewScheduler starts the worker goroutine.
func NewScheduler(host TaskHost, heartbeat time.Duration) *Scheduler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	s := &Scheduler{
		queue:     make([]Handle, 0, QueueCapacity),
		host:      host,
		heartbeat: heartbeat,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Submit queues target for a thumbnail load. A full queue drops its oldest
// request; a target already queued moves to the front.
func (s *Scheduler) Submit(target Handle) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.removeLocked(target)
	if len(s.queue) >= QueueCapacity {
		s.queue = s.queue[:len(s.queue)-1]
	}
	s.queue = append(s.queue, Handle{})
	copy(s.queue[1:], s.queue)
	s.queue[0] = target
	if s.slots[TaskLoadThumbnail] == TaskFinished {
		s.slots[TaskLoadThumbnail] = TaskReady
	}
	s.mu.Unlock()
	s.signal()
}

// Drop forgets a queued target, typically because its item was removed.
func (s *Scheduler) Drop(target Handle) {
	s.mu.Lock()
	s.removeLocked(target)
	s.mu.Unlock()
}

// RequestLayout marks the layout lane ready. Requests made while it is
// already ready are merged.
func (s *Scheduler) RequestLayout() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.slots[TaskLayout] == TaskFinished {
		s.slots[TaskLayout] = TaskReady
	}
	s.mu.Unlock()
	s.signal()
}

// LoadFinished returns the load lane from Running once a loader reported.
func (s *Scheduler) LoadFinished() {
	s.mu.Lock()
	if s.slots[TaskLoadThumbnail] == TaskRunning {
		if len(s.queue) > 0 {
			s.slots[TaskLoadThumbnail] = TaskReady
		} else {
			s.slots[TaskLoadThumbnail] = TaskFinished
		}
	}
	s.mu.Unlock()
	s.signal()
}

// State returns the state of a lane.
func (s *Scheduler) State(kind TaskKind) TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[kind]
}

// Pending returns the queued targets, newest first.
func (s *Scheduler) Pending() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Handle(nil), s.queue...)
}

// Close stops the worker and waits for it to exit. It must not be called
// from a TaskHost method.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
	s.mu.Unlock()
	<-s.exited
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) removeLocked(target Handle) {
	for i, h := range s.queue {
		if h == target {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) run() {
	defer close(s.exited)

	timer := time.NewTimer(s.heartbeat)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		idle := true
		for k := TaskKind(0); k < numTaskKinds; k++ {
			if s.slots[k] != TaskReady {
				continue
			}
			// Optimistically finished; the work re-arms the slot if it must continue.
			s.slots[k] = TaskFinished
			s.mu.Unlock()
			s.execute(k)
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			if s.slots[k] == TaskReady {
				idle = false
			}
		}
		s.mu.Unlock()
		if !idle {
			continue
		}

		// A running loader counts as idle: its LoadFinished signals the worker.
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.heartbeat)
		select {
		case <-s.wake:
		case <-timer.C:
			s.host.Heartbeat()
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) execute(k TaskKind) {
	switch k {
	case TaskLoadThumbnail:
		s.mu.Lock()
		n := len(s.queue)
		if n == 0 {
			s.mu.Unlock()
			return
		}
		target := s.queue[n-1] // oldest
		s.queue = s.queue[:n-1]
		s.slots[k] = TaskRunning
		s.mu.Unlock()

		running := s.host.RunLoad(target)

		s.mu.Lock()
		if !running && s.slots[k] == TaskRunning {
			if len(s.queue) > 0 {
				s.slots[k] = TaskReady
			} else {
				s.slots[k] = TaskFinished
			}
		}
		s.mu.Unlock()

	case TaskLayout:
		if done := s.host.RunLayout(); !done {
			s.mu.Lock()
			s.slots[k] = TaskReady
			s.mu.Unlock()
		}
	}
}
