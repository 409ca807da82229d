package gallery

import (
	"sync"
	"time"
)

// AnimState is the state of an Animator.
type AnimState int

const (
	AnimFinished AnimState = iota
	AnimDelay
	AnimStarted
)

// DefaultMaxFPS bounds how often an Animator reports frames.
const DefaultMaxFPS = 60

// Animator reports progress from 0 to 1 over a fixed duration.
type Animator struct {
	mu       sync.Mutex
	state    AnimState
	gen      int
	progress float64
	hold     float64 // progress is capped here until Release; 0 means no cap
	start    time.Time
	timer    *time.Timer
	stop     chan struct{}

	duration time.Duration
	delay    time.Duration
	interval time.Duration

	onFrame func(progress float64)
	onDone  func()
}

// NewAnimator builds a stopped animator. onFrame runs on the ticking
// goroutine for every frame; onDone runs when a started animation stops.
func NewAnimator(duration, delay time.Duration, maxFPS int, onFrame func(float64), onDone func()) *Animator {
	if maxFPS <= 0 {
		maxFPS = DefaultMaxFPS
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	return &Animator{
		duration: duration,
		delay:    delay,
		interval: time.Second / time.Duration(maxFPS),
		onFrame:  onFrame,
		onDone:   onDone,
	}
}

// Play restarts the animation from zero, after the delay if one is set.
func (a *Animator) Play() {
	a.PlayHeld(0)
}

// PlayHeld is Play with progress capped at hold until Release is called.
// The animation resumes from hold, so the remaining part keeps its length.
func (a *Animator) PlayHeld(hold float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
	a.progress = 0
	a.hold = hold
	if a.delay <= 0 {
		a.startLocked()
		return
	}
	a.state = AnimDelay
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.gen == gen && a.state == AnimDelay {
			a.startLocked()
		}
	})
}

// Stop cancels the animation and reports completion if it had started.
func (a *Animator) Stop() {
	a.mu.Lock()
	started := a.state == AnimStarted
	a.cancelLocked()
	a.mu.Unlock()
	if started && a.onDone != nil {
		a.onDone()
	}
}

// Release lifts the cap set by PlayHeld.
func (a *Animator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hold <= 0 {
		return
	}
	if a.state == AnimStarted && a.progress >= a.hold {
		a.start = time.Now().Add(-time.Duration(a.hold * float64(a.duration)))
	}
	a.hold = 0
}

// Held reports whether progress is waiting at the PlayHeld cap.
func (a *Animator) Held() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hold > 0 && a.state == AnimStarted && a.progress >= a.hold
}

// State returns the current state.
func (a *Animator) State() AnimState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Progress returns the last computed progress.
func (a *Animator) Progress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

func (a *Animator) cancelLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
	a.gen++
	a.state = AnimFinished
}

func (a *Animator) startLocked() {
	a.state = AnimStarted
	a.start = time.Now()
	a.stop = make(chan struct{})
	go a.loop(a.gen, a.stop)
}

func (a *Animator) loop(gen int, stop <-chan struct{}) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.tick(gen) {
				return
			}
		}
	}
}

func (a *Animator) tick(gen int) bool {
	a.mu.Lock()
	if a.gen != gen || a.state != AnimStarted {
		a.mu.Unlock()
		return false
	}
	p := float64(time.Since(a.start)) / float64(a.duration)
	if p > 1 {
		p = 1
	}
	if a.hold > 0 && p >= a.hold {
		if a.progress >= a.hold {
			a.mu.Unlock()
			return true
		}
		p = a.hold
	}
	a.progress = p
	a.mu.Unlock()

	if a.onFrame != nil {
		a.onFrame(p)
	}
	if p >= 1 {
		a.mu.Lock()
		finish := a.gen == gen && a.state == AnimStarted
		if finish {
			a.cancelLocked()
		}
		a.mu.Unlock()
		if finish && a.onDone != nil {
			a.onDone()
		}
		return false
	}
	return true
}

// FadeOpacity maps animation progress onto a fade-out, hold, fade-in curve.
func FadeOpacity(p float64) float64 {
	switch {
	case p <= 0:
		return 1
	case p < 0.3:
		return 1 - p/0.3
	case p < 0.7:
		return 0
	case p < 1:
		return (p - 0.7) / 0.3
	}
	return 1
}
