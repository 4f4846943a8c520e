package garage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Transport is the messaging client the controller drives. Connect starts
// an asynchronous handshake, and the result comes back as Connected,
// ConnectAck or Disconnected events. Subscribe and Publish likewise report
// through Subscribed and PublishAck.
type Transport interface {
	Connect(cfg SessionConfig) error
	Disconnect()
	Subscribe(topic string, qos byte) error
	Publish(topic string, payload []byte, qos byte) error
}

// Options configures a Controller. Transport and Store are required.
type Options struct {
	Transport Transport
	Store     Store
	Sink      StatusSink
	Scheduler Scheduler
	Observer  Observer
	Logger    Logger
	Policy    SessionPolicy

	// QueueSize is the event buffer length. Defaults to 64.
	QueueSize int
}

const (
	defaultQueueSize = 64

	// persistTimeout bounds the store write made while shutting down.
	persistTimeout = 2 * time.Second

	statusNotConnected = "Not connected"
)

// Controller is the connection-lifecycle state machine.
type Controller struct {
	transport Transport
	store     Store
	sink      StatusSink
	sched     Scheduler
	observer  Observer
	logger    Logger
	policy    SessionPolicy

	events   chan Event
	done     chan struct{}
	stopOnce sync.Once

	log  *LogBuffer
	snap atomic.Pointer[Snapshot]

	// Everything below is owned by the Run goroutine.
	state         State
	session       *SessionConfig
	feeds         Feeds
	lastConnect   time.Time
	retryUsed     bool
	reconnectAuto bool
	timers        deadlines
	subAcks       int
	countdown     int
	pressedAt     [2]time.Time
	view          Snapshot
}

// New builds a controller in the Disconnected state with both doors Unknown.
func New(opts Options) (*Controller, error) {
	if opts.Transport == nil {
		return nil, ErrMissingTransport
	}
	if opts.Store == nil {
		return nil, ErrMissingStore
	}
	if opts.Sink == nil {
		opts.Sink = noopSink{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler{}
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Policy.Host == "" {
		opts.Policy = DefaultPolicy()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	c := &Controller{
		transport: opts.Transport,
		store:     opts.Store,
		sink:      opts.Sink,
		sched:     opts.Scheduler,
		observer:  opts.Observer,
		logger:    opts.Logger,
		policy:    opts.Policy,
		events:    make(chan Event, opts.QueueSize),
		done:      make(chan struct{}),
		log:       NewLogBuffer(opts.Scheduler.Now),
		state:     StateDisconnected,
	}
	c.timers = deadlines{sched: c.sched, post: c.postDeadline}
	c.view = Snapshot{State: StateDisconnected, Status: statusNotConnected}
	for _, d := range Doors {
		c.view.Doors[d] = DoorView{
			Door:   d.String(),
			Status: StatusUnknown,
			Color:  ColorFor(StatusUnknown),
			Label:  LabelPlaceholder,
		}
	}
	c.publish()
	return c, nil
}

// Post queues an event for the loop. It is safe to call from any
// goroutine, and blocks only while the queue is full.
func (c *Controller) Post(ev Event) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

func (c *Controller) postDeadline(ev Event) {
	_ = c.Post(ev) //nolint:errcheck // A firing after shutdown is dropped
}

// Run processes events until ctx is canceled. It restores the persisted
// log first and, on the way out, persists it again and closes the session.
func (c *Controller) Run(ctx context.Context) error {
	defer c.stopOnce.Do(func() { close(c.done) })

	c.restore(ctx)
	c.publish()

	for {
		select {
		case <-ctx.Done():
			c.shutdown(ctx)
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// Snapshot returns the state as of the last handled event.
func (c *Controller) Snapshot() Snapshot {
	return *c.snap.Load()
}

// Log returns the diagnostic log, newest line first.
func (c *Controller) Log() string {
	return c.log.String()
}

// ExportLog returns the log prefixed with the account it was recorded for.
func (c *Controller) ExportLog(ctx context.Context) (string, error) {
	account, _, err := c.store.GetString(ctx, KeyAccountName)
	if err != nil {
		return "", fmt.Errorf("reading account name: %w", err)
	}
	return exportLog(account, c.log.String()), nil
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case Connected:
		c.logf("connected to %s:%d", e.Host, e.Port)
	case ConnectAck:
		c.onConnectAck(e)
	case Subscribed:
		c.onSubscribeAck(e.Topic)
	case Unsubscribed:
		c.logf("unsubscribed from %s", e.Topic)
	case MessageReceived:
		c.onMessage(e)
	case PublishAck:
		c.logf("publish ack id %d", e.ID)
	case Disconnected:
		c.onTransportDisconnected(e.Err)
	case PingSent:
		c.logf("ping")
	case PongReceived:
		c.logf("pong")
	case EnteringBackground:
		c.onEnteringBackground(ctx)
	case EnteringForeground:
		c.onEnteringForeground(ctx)
	case ResumeAfterBackground:
		c.onLifecycleResume(e.Elapsed)
	case ConnectRequest:
		if e.Force {
			c.requestConnect(ctx, false)
		} else {
			c.tryReconnect(ctx, false)
		}
	case Press:
		c.press(e.Door)
	case Release:
		c.release(e.Door)
	case SetCredentials:
		c.onSetCredentials(ctx, e)
	case ClearLog:
		c.log.Clear()
	case SetLogVisible:
		c.onSetLogVisible(ctx, e.Visible)
	case deadlineFired:
		c.onDeadline(ctx, e)
	default:
		c.logger.Warn("unhandled event", "type", fmt.Sprintf("%T", ev))
	}
	c.publish()
}

func (c *Controller) onDeadline(ctx context.Context, e deadlineFired) {
	if !c.timers.claim(e) {
		c.logger.Debug("stale deadline dropped", "kind", e.kind.String())
		return
	}
	switch e.kind {
	case deadlineConnect:
		c.onConnectTimeout()
	case deadlineSubscribe:
		c.onSubscribeTimeout()
	case deadlineLiveness:
		c.onLivenessTick()
	case deadlineReconnect:
		c.tryReconnect(ctx, c.reconnectAuto)
	}
}

// restore loads the persisted log and its visibility.
func (c *Controller) restore(ctx context.Context) {
	c.reloadLog(ctx)
	visible, ok, err := c.store.GetBool(ctx, KeyLogVisible)
	if err != nil {
		c.logger.Warn("reading log visibility", "error", err)
	}
	if ok {
		c.view.LogVisible = visible
	}
	c.logf("controller started")
}

func (c *Controller) shutdown(ctx context.Context) {
	c.timers.cancelAll()
	if c.state != StateDisconnected {
		c.transport.Disconnect()
	}
	c.logf("controller stopped")

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	c.persistLog(pctx)
}

// publish stores a copy of the view for readers on other goroutines.
func (c *Controller) publish() {
	s := c.view
	s.UpdatedAt = c.sched.Now()
	c.snap.Store(&s)
}

// logf appends a line to the diagnostic log and mirrors it to the logger.
func (c *Controller) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.sink.AppendLog(c.log.Append(msg))
	c.logger.Debug(msg)
}

func (c *Controller) setState(to State) {
	from := c.state
	if from == to {
		return
	}
	if !ValidTransition(from, to) {
		c.logger.Error("invalid state transition refused", "from", from.String(), "to", to.String())
		return
	}
	c.state = to
	c.view.State = to
	c.observer.StateChanged(from, to)
	c.logger.Info("connection state changed", "from", from.String(), "to", to.String())
}

func (c *Controller) setStatus(text string) {
	c.view.Status = text
	c.sink.SetStatus(text)
}

func (c *Controller) setControls(enabled bool) {
	if c.view.ControlsEnabled == enabled {
		return
	}
	c.view.ControlsEnabled = enabled
	c.sink.SetControlsEnabled(enabled)
}
