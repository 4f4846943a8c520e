package mqtt

import (
	"fmt"

	"github.com/nerrad567/garagedoor/internal/garage"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends payload to topic, never retained. For QoS above 0 the
// PUBACK arrives as garage.PublishAck carrying the packet id.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
func (c *Client) Publish(topic string, payload []byte, qos byte) error {
	if err := validatePublishTopic(topic); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	client, gen, err := c.current()
	if err != nil {
		return err
	}

	token := client.Publish(topic, qos, false, payload)
	c.wait(func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT publish failed", "topic", topic, "error", err)
			}
			return
		}
		if qos == 0 {
			return
		}
		var id uint16
		if m, ok := token.(messageIDer); ok {
			id = m.MessageID()
		}
		c.deliver(gen, garage.PublishAck{ID: id})
	})
	return nil
}
