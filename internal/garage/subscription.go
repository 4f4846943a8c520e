package garage

const (
	statusSubscribing      = "Subscribing"
	statusSubscribeTimeout = "Subscribe timed out"
)

// beginSubscriptions subscribes both sensor feeds and waits for the first
// acknowledgment.
func (c *Controller) beginSubscriptions() {
	c.subAcks = 0
	c.view.SubscribedFeeds = 0
	c.setState(StateSubscribing)
	c.setStatus(statusSubscribing)

	for _, d := range Doors {
		topic := c.feeds.Sensor(d)
		if err := c.transport.Subscribe(topic, QoS); err != nil {
			c.logf("subscribe to %s failed: %v", topic, err)
			c.logger.Warn("subscribe failed", "topic", topic, "error", err)
		}
	}
	c.timers.arm(deadlineSubscribe, SubscribeTimeout)
}

// onSubscribeAck completes the subscription phase on the first ack. The
// second only restores the steady-state status line.
func (c *Controller) onSubscribeAck(topic string) {
	c.logf("subscribed to %s", topic)
	if c.state != StateSubscribing && c.state != StateSubscribed {
		c.logger.Debug("subscribe ack ignored", "topic", topic, "state", c.state.String())
		return
	}

	c.subAcks++
	c.view.SubscribedFeeds = c.subAcks
	if c.subAcks > 1 {
		c.setStatus(c.session.Address())
		return
	}

	c.timers.cancel(deadlineSubscribe)
	c.setStatus(topic + " subscribed")
	c.setState(StateSubscribed)
	c.setControls(true)
	c.startLiveness()
}

// onSubscribeTimeout leaves the session connected but unsubscribed until
// the next full reconnect.
func (c *Controller) onSubscribeTimeout() {
	if c.state != StateSubscribing {
		return
	}
	c.observer.DeadlineExpired(deadlineSubscribe.String())
	c.logf("subscribe timed out")
	c.setStatus(statusSubscribeTimeout)
	c.setState(StateConnected)
}
