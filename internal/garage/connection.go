package garage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status lines set by the connection logic.
const (
	statusAuthFailed          = "Authorization failed"
	statusConnectTimedOut     = "Connect timed out"
	statusDisconnected        = "Disconnected"
	statusCredentialsRequired = "Credentials required"
	statusConfigError         = "Configuration error"
)

// buildSession reads the stored account and applies the session policy.
func (c *Controller) buildSession(ctx context.Context) (SessionConfig, error) {
	user, _, err := c.store.GetString(ctx, KeyAccountName)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("reading account name: %w", err)
	}
	pass, _, err := c.store.GetString(ctx, KeyAccountSecret)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("reading account secret: %w", err)
	}
	return c.policy.Build(user, pass)
}

// requestConnect starts a connect attempt. automatic marks the
// post-disconnect retry, which must not re-arm itself.
func (c *Controller) requestConnect(ctx context.Context, automatic bool) {
	if !c.state.canConnect() {
		c.logf("connect ignored while %s", c.state)
		return
	}

	cfg, err := c.buildSession(ctx)
	if err != nil {
		c.logf("cannot connect: %v", err)
		if errors.Is(err, ErrNoCredentials) {
			c.setStatus(statusCredentialsRequired)
		} else {
			c.logger.Error("building session config", "error", err)
			c.setStatus(statusConfigError)
		}
		return
	}
	feeds, err := cfg.Feeds()
	if err != nil {
		c.logf("cannot connect: %v", err)
		c.setStatus(statusCredentialsRequired)
		return
	}

	c.session = &cfg
	c.feeds = feeds
	if !automatic {
		c.retryUsed = false
	}
	c.timers.cancel(deadlineReconnect)
	c.observer.ConnectAttempt(automatic)

	c.setControls(false)
	c.view.Broker = cfg.Address()
	c.setStatus("Connecting to " + cfg.Address())
	c.setState(StateConnecting)
	c.logf("connecting to %s as %s (tls %s)", cfg.Address(), cfg.ClientID, cfg.TLS)
	c.timers.arm(deadlineConnect, ConnectTimeout)

	if err := c.transport.Connect(cfg); err != nil {
		c.logf("connect failed: %v", err)
		c.logger.Warn("transport connect failed", "broker", cfg.Address(), "error", err)
		c.transportLost()
	}
}

// tryReconnect connects only when the last successful connect is older
// than MinReconnectInterval.
func (c *Controller) tryReconnect(ctx context.Context, automatic bool) {
	switch {
	case c.state == StateAuthFailed:
		c.logf("reconnect skipped: authorization failed")
	case !c.state.canConnect():
		c.logf("reconnect skipped while %s", c.state)
	case !c.reconnectAllowed():
		c.logf("reconnect skipped: connected %s ago", c.sinceLastConnect().Round(time.Millisecond))
	default:
		c.requestConnect(ctx, automatic)
	}
}

func (c *Controller) sinceLastConnect() time.Duration {
	return c.sched.Now().Sub(c.lastConnect)
}

func (c *Controller) reconnectAllowed() bool {
	return c.lastConnect.IsZero() || c.sinceLastConnect() > MinReconnectInterval
}

func (c *Controller) onConnectAck(ack ConnectAck) {
	c.logf("connect ack: %s", ack.Code)
	if c.state != StateConnecting {
		c.logger.Debug("connect ack ignored", "state", c.state.String())
		return
	}
	c.timers.cancel(deadlineConnect)

	switch {
	case ack.Accepted:
		c.lastConnect = c.sched.Now()
		c.view.LastConnect = c.lastConnect
		c.retryUsed = false
		c.setState(StateConnected)
		c.beginSubscriptions()
	case ack.Code.AuthFailure():
		c.setState(StateAuthFailed)
		c.setStatus(statusAuthFailed)
		c.logger.Warn("broker rejected credentials", "code", ack.Code.String())
	default:
		c.logger.Warn("broker refused connection", "error", fmt.Errorf("%w: %s", ErrConnectRefused, ack.Code))
		c.transportLost()
	}
}

func (c *Controller) onConnectTimeout() {
	if c.state != StateConnecting {
		return
	}
	c.observer.DeadlineExpired(deadlineConnect.String())
	c.logf("connection timed out")
	c.transport.Disconnect()
	c.setStatus(statusConnectTimedOut)
	c.setState(StateDisconnected)
}

func (c *Controller) onTransportDisconnected(err error) {
	if err != nil {
		c.logf("disconnected: %v", err)
	} else {
		c.logf("disconnected")
	}

	switch c.state {
	case StateDisconnected:
		return
	case StateAuthFailed:
		// Keep the auth failure on screen; only new credentials move on.
		c.timers.cancel(deadlineConnect)
		c.timers.cancel(deadlineSubscribe)
		c.stopLiveness()
		return
	}
	c.transportLost()
}

// transportLost tears the session down and arms the single automatic retry
// unless it has already been spent since the last successful connect.
func (c *Controller) transportLost() {
	c.resetSession()
	if c.retryUsed {
		c.logf("automatic retry already used")
		return
	}
	c.retryUsed = true
	c.scheduleReconnect(RetryDelay, true)
}

// resetSession returns to Disconnected with both doors Unknown and no
// session deadlines pending.
func (c *Controller) resetSession() {
	c.timers.cancel(deadlineConnect)
	c.timers.cancel(deadlineSubscribe)
	c.stopLiveness()
	c.subAcks = 0
	c.view.SubscribedFeeds = 0

	for _, d := range Doors {
		c.setDoor(d, StatusUnknown)
	}
	c.setControls(false)
	c.setStatus(statusDisconnected)
	c.setState(StateDisconnected)
}

func (c *Controller) scheduleReconnect(after time.Duration, automatic bool) {
	c.reconnectAuto = automatic
	c.timers.arm(deadlineReconnect, after)
	c.logf("reconnect in %s", after)
}

// onLifecycleResume assumes a pipe that sat in the background that long is
// broken: it drops the session and reconnects shortly after.
func (c *Controller) onLifecycleResume(elapsed time.Duration) {
	c.logf("resumed after %s in background", elapsed.Round(time.Second))
	switch {
	case elapsed < ResumeThreshold:
		return
	case c.state == StateAuthFailed:
		c.logf("resume reconnect skipped: authorization failed")
		return
	case !c.reconnectAllowed():
		c.logf("resume reconnect skipped: connected %s ago", c.sinceLastConnect().Round(time.Millisecond))
		return
	}

	c.transport.Disconnect()
	if c.state != StateDisconnected {
		c.resetSession()
	}
	c.scheduleReconnect(ResumeDelay, false)
}

// onSetCredentials stores the new account and, when idle, connects with it
// straight away.
func (c *Controller) onSetCredentials(ctx context.Context, e SetCredentials) {
	c.logf("credentials updated")
	c.storeCredential(ctx, KeyAccountName, e.Username)
	c.storeCredential(ctx, KeyAccountSecret, e.Password)

	if e.Username == "" || e.Password == "" {
		c.setStatus(statusCredentialsRequired)
		return
	}
	if c.state.canConnect() {
		c.requestConnect(ctx, false)
	}
}

func (c *Controller) storeCredential(ctx context.Context, key, value string) {
	var err error
	if value == "" {
		err = c.store.Remove(ctx, key)
	} else {
		err = c.store.SetString(ctx, key, value)
	}
	if err != nil {
		c.logger.Error("storing credential", "key", key, "error", err)
		c.logf("failed to store %s: %v", key, err)
	}
}
