package session

import "time"

// purpose names a timer slot. At most one task per purpose is live.
type purpose int

const (
	pacing purpose = iota
	countdown
	gameClock
)

func (p purpose) String() string {
	switch p {
	case pacing:
		return "pacing"
	case countdown:
		return "countdown"
	case gameClock:
		return "game_clock"
	default:
		return "unknown"
	}
}

type task struct {
	gen   uint64
	timer Timer
	// done is closed once the callback has returned or can no longer run.
	done chan struct{}
}

// timerSet owns the session's scheduled tasks. It is guarded by the
// session mutex. Every task carries a generation number; a callback whose
// generation is no longer live for its purpose must do nothing.
type timerSet struct {
	clock Clock
	gen   uint64
	live  map[purpose]*task
}

func newTimerSet(clock Clock) *timerSet {
	return &timerSet{clock: clock, live: make(map[purpose]*task)}
}

// schedule supersedes any task for p and arranges for fire(gen) after d.
func (ts *timerSet) schedule(p purpose, d time.Duration, fire func(gen uint64)) {
	ts.cancel(p)
	ts.gen++
	t := &task{gen: ts.gen, done: make(chan struct{})}
	t.timer = ts.clock.AfterFunc(d, func() {
		defer close(t.done)
		fire(t.gen)
	})
	ts.live[p] = t
}

// cancel stops the task for p. Cancelling a missing or fired task is a
// no-op. The returned channel closes once the task can no longer run.
func (ts *timerSet) cancel(p purpose) <-chan struct{} {
	t, ok := ts.live[p]
	if !ok {
		return nil
	}
	delete(ts.live, p)
	if t.timer.Stop() {
		close(t.done)
	}
	return t.done
}

// cancelAll cancels every task and returns their completion channels.
func (ts *timerSet) cancelAll() []<-chan struct{} {
	var waits []<-chan struct{}
	for _, p := range []purpose{pacing, countdown, gameClock} {
		if ch := ts.cancel(p); ch != nil {
			waits = append(waits, ch)
		}
	}
	return waits
}

// claim reports whether gen is the live task for p and, if so, retires it.
// Callbacks call claim before touching session state.
func (ts *timerSet) claim(p purpose, gen uint64) bool {
	t, ok := ts.live[p]
	if !ok || t.gen != gen {
		return false
	}
	delete(ts.live, p)
	return true
}

func (ts *timerSet) active(p purpose) bool {
	_, ok := ts.live[p]
	return ok
}

// drain blocks until every channel is closed. It must not be called with
// the session mutex held.
func drain(waits []<-chan struct{}) {
	for _, ch := range waits {
		<-ch
	}
}
