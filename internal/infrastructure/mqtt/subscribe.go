package mqtt

import (
	"fmt"

	"github.com/nerrad567/garagedoor/internal/garage"
)

// Subscribe sends a SUBSCRIBE for filter. Deliveries go to the default
// publish handler and arrive as garage.MessageReceived; the SUBACK
// arrives as garage.Subscribed. A refused or failed subscription is only
// logged, leaving the controller's subscribe deadline to notice.
func (c *Client) Subscribe(filter string, qos byte) error {
	if err := validateFilter(filter); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	client, gen, err := c.current()
	if err != nil {
		return err
	}

	token := client.Subscribe(filter, qos, nil)
	c.wait(func() {
		<-token.Done()
		if err := subscribeResult(token.Error(), token, filter); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT subscribe failed", "topic", filter, "error", err)
			}
			return
		}
		c.deliver(gen, garage.Subscribed{Topic: filter})
	})
	return nil
}

func subscribeResult(err error, token any, filter string) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	if r, ok := token.(subResulter); ok {
		if code, found := r.Result()[filter]; found && code == subackFailure {
			return fmt.Errorf("%w: broker refused %s", ErrSubscribeFailed, filter)
		}
	}
	return nil
}
