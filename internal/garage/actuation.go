package garage

// onMessage updates the door whose sensor feed the message arrived on. Any
// message at all satisfies the liveness countdown.
func (c *Controller) onMessage(m MessageReceived) {
	c.view.Received++
	c.sink.SetReceivedCount(c.view.Received)

	payload := string(m.Payload)
	c.logf("received %q on %s (id %d)", payload, m.Topic, m.ID)

	if door, ok := c.feeds.DoorForSensor(m.Topic); ok && c.session != nil {
		c.setDoor(door, payload)
		c.observer.MessageReceived(door.String())
	} else {
		c.observer.MessageReceived("other")
	}
	c.stopLiveness()
}

// setDoor renders one door and re-evaluates the both-closed condition.
func (c *Controller) setDoor(d Door, status string) {
	color, label := ColorFor(status), LabelFor(status)

	v := &c.view.Doors[d]
	v.Status, v.Color, v.Label = status, color, label
	c.sink.SetDoor(d, status, color)
	c.sink.SetDoorLabel(d, label)
	c.observer.DoorStatus(d, status)

	both := c.view.Doors[LeftDoor].Status == StatusClosed && c.view.Doors[RightDoor].Status == StatusClosed
	if both != c.view.BothClosed {
		c.view.BothClosed = both
		c.sink.SetBothClosed(both)
	}
}

// press asserts the door relay.
func (c *Controller) press(d Door) {
	if !c.canActuate("press", d) {
		return
	}
	now := c.sched.Now()
	c.pressedAt[d] = now
	c.view.Doors[d].PressedAt = now
	c.actuate(d, actuatorPressValue)
}

// release frees the relay unless the press was held for HoldSuppression or
// longer, in which case the pulse is assumed handled or abandoned.
func (c *Controller) release(d Door) {
	if !c.canActuate("release", d) {
		return
	}
	if held := c.sched.Now().Sub(c.pressedAt[d]); held >= HoldSuppression {
		c.logf("release of %s door suppressed after %s", d, held)
		c.observer.ReleaseSuppressed(d)
		return
	}
	c.actuate(d, actuatorFreeValue)
}

func (c *Controller) canActuate(action string, d Door) bool {
	if !d.valid() {
		c.logger.Warn("actuation for unknown door", "action", action, "door", int(d))
		return false
	}
	if !c.state.hasSession() {
		c.logf("%s of %s door ignored: no session", action, d)
		return false
	}
	return true
}

func (c *Controller) actuate(d Door, payload string) {
	topic := c.feeds.Actuator(d)
	if err := c.transport.Publish(topic, []byte(payload), QoS); err != nil {
		c.logf("publish %s to %s failed: %v", payload, topic, err)
		c.logger.Warn("publish failed", "topic", topic, "error", err)
		return
	}
	c.observer.Actuation(d, payload)
	c.logf("published %s to %s", payload, topic)
}
