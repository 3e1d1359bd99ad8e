package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize matches typical broker limits.
const maxPayloadSize = 1 << 20

// PublishJSON encodes v and publishes it at the configured QoS, waiting for
// the broker acknowledgement (QoS 1 and 2) or the socket write (QoS 0).
func (c *Client) PublishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes on %s", ErrPayloadTooLarge, len(payload), topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s: no ack after %v", ErrPublishFailed, topic, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}
