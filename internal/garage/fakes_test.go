package garage

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeScheduler is a virtual clock. Timers fire only inside Advance.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Time
	after   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
}

func (s *fakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now.Add(d), after: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// active returns pending timers grouped by the delay they were armed with.
func (s *fakeScheduler) active() map[time.Duration]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[time.Duration]int)
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out[t.after]++
		}
	}
	return out
}

// next pops the earliest pending timer due at or before limit.
func (s *fakeScheduler) next(limit time.Time) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.timers, func(i, j int) bool { return s.timers[i].at.Before(s.timers[j].at) })
	for _, t := range s.timers {
		if t.stopped || t.fired || t.at.After(limit) {
			continue
		}
		t.fired = true
		s.now = t.at
		return t
	}
	return nil
}

// Advance moves the clock forward, firing due timers in order and running
// after() following each firing.
func (s *fakeScheduler) Advance(d time.Duration, after func()) {
	limit := s.Now().Add(d)
	for t := s.next(limit); t != nil; t = s.next(limit) {
		t.f()
		after()
	}
	s.mu.Lock()
	s.now = limit
	s.mu.Unlock()
}

type published struct {
	topic   string
	payload string
	qos     byte
}

type fakeTransport struct {
	mu          sync.Mutex
	connects    []SessionConfig
	disconnects int
	subscribes  []string
	publishes   []published
	connectErr  error
	publishErr  error
}

func (f *fakeTransport) Connect(cfg SessionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, cfg)
	return f.connectErr
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeTransport) Subscribe(topic string, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, topic)
	return nil
}

func (f *fakeTransport) Publish(topic string, payload []byte, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.publishes = append(f.publishes, published{topic: topic, payload: string(payload), qos: qos})
	return nil
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connects)
}

type doorRender struct {
	status string
	color  Color
}

type recordingSink struct {
	statuses   []string
	doors      [2][]doorRender
	labels     [2][]string
	controls   []bool
	countdowns []int
	hides      int
	received   uint64
	bothClosed []bool
	lines      []string
}

func (r *recordingSink) SetStatus(text string) { r.statuses = append(r.statuses, text) }
func (r *recordingSink) SetDoor(d Door, status string, color Color) {
	r.doors[d] = append(r.doors[d], doorRender{status, color})
}
func (r *recordingSink) SetDoorLabel(d Door, label string) { r.labels[d] = append(r.labels[d], label) }
func (r *recordingSink) SetControlsEnabled(enabled bool)   { r.controls = append(r.controls, enabled) }
func (r *recordingSink) SetCountdown(n int)                { r.countdowns = append(r.countdowns, n) }
func (r *recordingSink) HideCountdown()                    { r.hides++ }
func (r *recordingSink) SetReceivedCount(n uint64)         { r.received = n }
func (r *recordingSink) SetBothClosed(closed bool)         { r.bothClosed = append(r.bothClosed, closed) }
func (r *recordingSink) AppendLog(line string)             { r.lines = append(r.lines, line) }

func (r *recordingSink) lastStatus() string {
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *recordingSink) countControls(enabled bool) int {
	n := 0
	for _, c := range r.controls {
		if c == enabled {
			n++
		}
	}
	return n
}

type transition struct{ from, to State }

type recordingObserver struct {
	noopObserver
	transitions []transition
	attempts    []bool
	suppressed  int
}

func (o *recordingObserver) StateChanged(from, to State) {
	o.transitions = append(o.transitions, transition{from, to})
}
func (o *recordingObserver) ConnectAttempt(automatic bool) { o.attempts = append(o.attempts, automatic) }
func (o *recordingObserver) ReleaseSuppressed(Door)        { o.suppressed++ }

// recordingLogger keeps Error messages so tests can assert none occurred.
type recordingLogger struct {
	noopLogger
	errors []string
}

func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

// mapStore is an in-memory Store.
type mapStore struct {
	mu      sync.Mutex
	strings map[string]string
	bools   map[string]bool
}

func newMapStore() *mapStore {
	return &mapStore{strings: map[string]string{}, bools: map[string]bool{}}
}

func (m *mapStore) GetString(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *mapStore) SetString(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = value
	return nil
}

func (m *mapStore) GetBool(_ context.Context, key string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.bools[key]
	return v, ok, nil
}

func (m *mapStore) SetBool(_ context.Context, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bools[key] = value
	return nil
}

func (m *mapStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strings, key)
	delete(m.bools, key)
	return nil
}

type harness struct {
	t         *testing.T
	c         *Controller
	sched     *fakeScheduler
	transport *fakeTransport
	sink      *recordingSink
	observer  *recordingObserver
	logger    *recordingLogger
	store     *mapStore
}

const (
	testUser     = "jim"
	testPassword = "aio_secret"
	testBroker   = "io.adafruit.com:8883"
	leftSensor   = "jim/feeds/left-reed"
	rightSensor  = "jim/feeds/right-reed"
	leftRelay    = "jim/feeds/left-open-close"
	rightRelay   = "jim/feeds/right-open-close"
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		sched:     newFakeScheduler(),
		transport: &fakeTransport{},
		sink:      &recordingSink{},
		observer:  &recordingObserver{},
		logger:    &recordingLogger{},
		store:     newMapStore(),
	}
	h.store.strings[KeyAccountName] = testUser
	h.store.strings[KeyAccountSecret] = testPassword

	c, err := New(Options{
		Transport: h.transport,
		Store:     h.store,
		Sink:      h.sink,
		Scheduler: h.sched,
		Observer:  h.observer,
		Logger:    h.logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.c = c
	return h
}

// send handles ev and everything it queued, synchronously.
func (h *harness) send(ev Event) {
	h.c.handle(context.Background(), ev)
	h.drain()
}

func (h *harness) drain() {
	for {
		select {
		case ev := <-h.c.events:
			h.c.handle(context.Background(), ev)
		default:
			return
		}
	}
}

func (h *harness) advance(d time.Duration) {
	h.sched.Advance(d, h.drain)
}

// subscribe drives a fresh controller to Subscribed with both acks.
func (h *harness) subscribe() {
	h.send(ConnectRequest{})
	h.send(Connected{Host: "io.adafruit.com", Port: 8883})
	h.send(ConnectAck{Accepted: true, Code: CodeAccepted})
	h.send(Subscribed{Topic: leftSensor})
	h.send(Subscribed{Topic: rightSensor})
}

func (h *harness) wantState(want State) {
	h.t.Helper()
	if h.c.state != want {
		h.t.Fatalf("state = %s, want %s", h.c.state, want)
	}
}

func (h *harness) wantStatus(want string) {
	h.t.Helper()
	if got := h.sink.lastStatus(); got != want {
		h.t.Errorf("status = %q, want %q", got, want)
	}
}
