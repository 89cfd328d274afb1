package timectrl

import (
	"context"
	"sort"
	"sync"
	"time"
)

// SimClock is an interface for accessing simulation time, so evaluators can
// depend on a clock abstraction rather than a concrete controller.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
	// After returns a channel that receives the simulation time once at
	// least d of simulation time has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime waits one wall-clock Tick between steps.
	RealTime Mode = iota
	// Accelerated steps by Tick as fast as listeners allow.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

type pendingTimer struct {
	at time.Time
	ch chan time.Time
}

// TimeController drives simulation time and notifies registered listeners on
// every step. A planet ephemeris uses day-sized ticks; nothing stops a caller
// from using any other step.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	timers      []pendingTimer
	listeners   []func(time.Time)
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves simulation time to t without notifying listeners. Timers due
// at or before t fire.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	tc.currentTime = t
	due := tc.takeDueLocked(t)
	tc.mu.Unlock()
	fire(due, t)
}

// After implements SimClock. The channel is buffered and fires once, when a
// step or SetTime reaches Now()+d.
func (tc *TimeController) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)

	tc.mu.Lock()
	at := tc.currentTime.Add(d)
	if d <= 0 {
		now := tc.currentTime
		tc.mu.Unlock()
		ch <- now
		return ch
	}
	tc.timers = append(tc.timers, pendingTimer{at: at, ch: ch})
	sort.Slice(tc.timers, func(i, j int) bool { return tc.timers[i].at.Before(tc.timers[j].at) })
	tc.mu.Unlock()
	return ch
}

// AddListener registers a callback invoked on every step.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the controller for the specified simulated duration in a
// separate goroutine. A non-positive duration runs forever. The returned
// channel is closed when the controller finishes.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	steps := -1
	if duration > 0 && tc.Tick > 0 {
		steps = int((duration + tc.Tick - 1) / tc.Tick)
	}
	go func() {
		defer close(done)
		_ = tc.Run(context.Background(), steps)
	}()
	return done
}

// Run resets simulation time to StartTime and advances it by Tick, steps
// times, calling listeners after each advance. A negative steps value runs
// until ctx is cancelled.
func (tc *TimeController) Run(ctx context.Context, steps int) error {
	tc.mu.Lock()
	simTime := tc.StartTime
	tc.currentTime = simTime
	tc.mu.Unlock()

	var tickC <-chan time.Time
	if tc.Mode == RealTime && tc.Tick > 0 {
		ticker := time.NewTicker(tc.Tick)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for i := 0; steps < 0 || i < steps; i++ {
		if tickC != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tickC:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		simTime = simTime.Add(tc.Tick)

		tc.mu.Lock()
		tc.currentTime = simTime
		due := tc.takeDueLocked(simTime)
		listeners := append([]func(time.Time){}, tc.listeners...)
		tc.mu.Unlock()

		fire(due, simTime)
		for _, fn := range listeners {
			fn(simTime)
		}
	}
	return nil
}

func (tc *TimeController) takeDueLocked(now time.Time) []pendingTimer {
	n := 0
	for n < len(tc.timers) && !tc.timers[n].at.After(now) {
		n++
	}
	due := tc.timers[:n:n]
	tc.timers = tc.timers[n:]
	return due
}

func fire(due []pendingTimer, now time.Time) {
	for _, t := range due {
		t.ch <- now
	}
}
