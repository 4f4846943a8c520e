package garage

import "time"

// Timer is a pending callback armed through a Scheduler.
type Timer interface {
	// Stop cancels the callback. It reports false if the timer already
	// fired or was stopped; calling it again is harmless.
	Stop() bool
}

// Scheduler is the controller's clock and timer source.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler uses the wall clock.
type SystemScheduler struct{}

// Now returns time.Now.
func (SystemScheduler) Now() time.Time { return time.Now() }

// AfterFunc wraps time.AfterFunc.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// deadlineKind names one of the controller's deadlines. At most one of each
// kind is outstanding.
type deadlineKind int

const (
	deadlineConnect deadlineKind = iota
	deadlineSubscribe
	deadlineLiveness
	// deadlineReconnect is shared by the post-disconnect retry and the
	// post-resume reconnect so the two can never both be pending.
	deadlineReconnect
	deadlineKinds
)

func (k deadlineKind) String() string {
	switch k {
	case deadlineConnect:
		return "connect"
	case deadlineSubscribe:
		return "subscribe"
	case deadlineLiveness:
		return "liveness"
	case deadlineReconnect:
		return "reconnect"
	default:
		return "unknown"
	}
}

// deadlines tracks the armed timer of every kind. A firing is delivered as
// a deadlineFired event tagged with the generation it was armed under; any
// cancel or re-arm bumps the generation, so a timer that fired before it
// was stopped is discarded on delivery.
//
// Only the controller loop touches a deadlines value.
type deadlines struct {
	sched  Scheduler
	post   func(Event)
	timers [deadlineKinds]Timer
	gens   [deadlineKinds]uint64
}

func (d *deadlines) arm(kind deadlineKind, after time.Duration) {
	d.cancel(kind)
	gen := d.gens[kind]
	d.timers[kind] = d.sched.AfterFunc(after, func() {
		d.post(deadlineFired{kind: kind, gen: gen})
	})
}

func (d *deadlines) cancel(kind deadlineKind) {
	if t := d.timers[kind]; t != nil {
		t.Stop()
		d.timers[kind] = nil
	}
	d.gens[kind]++
}

func (d *deadlines) cancelAll() {
	for k := deadlineKind(0); k < deadlineKinds; k++ {
		d.cancel(k)
	}
}

func (d *deadlines) pending(kind deadlineKind) bool {
	return d.timers[kind] != nil
}

// claim consumes a firing. It returns false for a stale one.
func (d *deadlines) claim(ev deadlineFired) bool {
	if ev.gen != d.gens[ev.kind] || d.timers[ev.kind] == nil {
		return false
	}
	d.timers[ev.kind] = nil
	return true
}
