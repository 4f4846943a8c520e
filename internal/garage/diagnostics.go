package garage

import "context"

func (c *Controller) onEnteringBackground(ctx context.Context) {
	c.logf("entering background")
	c.persistLog(ctx)
}

func (c *Controller) onEnteringForeground(ctx context.Context) {
	c.reloadLog(ctx)
	c.logf("entering foreground")
}

func (c *Controller) onSetLogVisible(ctx context.Context, visible bool) {
	c.view.LogVisible = visible
	if err := c.store.SetBool(ctx, KeyLogVisible, visible); err != nil {
		c.logger.Error("storing log visibility", "error", err)
	}
}

func (c *Controller) persistLog(ctx context.Context) {
	if err := c.store.SetString(ctx, KeyLogBuffer, c.log.String()); err != nil {
		c.logger.Error("persisting log buffer", "error", err)
	}
}

// reloadLog replaces the in-memory log with the persisted copy, cut to size.
func (c *Controller) reloadLog(ctx context.Context) {
	text, ok, err := c.store.GetString(ctx, KeyLogBuffer)
	if err != nil {
		c.logger.Error("loading log buffer", "error", err)
		return
	}
	if ok {
		c.log.Load(validLogUTF8(text))
	}
}
