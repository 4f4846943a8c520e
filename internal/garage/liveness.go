package garage

// startLiveness shows a countdown bounding how long the first door status
// may take to arrive.
func (c *Controller) startLiveness() {
	c.countdown = LivenessTicks
	c.view.Countdown = c.countdown
	c.view.CountdownVisible = true
	c.sink.SetCountdown(c.countdown)
	c.timers.arm(deadlineLiveness, LivenessInterval)
	c.logf("waiting for door status")
}

func (c *Controller) onLivenessTick() {
	c.countdown--
	if c.countdown < 0 {
		c.logf("no door status received")
		c.stopLiveness()
		return
	}
	c.view.Countdown = c.countdown
	c.sink.SetCountdown(c.countdown)
	c.timers.arm(deadlineLiveness, LivenessInterval)
}

// stopLiveness cancels and hides the countdown. It does nothing when the
// countdown is not showing.
func (c *Controller) stopLiveness() {
	if !c.view.CountdownVisible {
		return
	}
	c.timers.cancel(deadlineLiveness)
	c.view.CountdownVisible = false
	c.sink.HideCountdown()
}
