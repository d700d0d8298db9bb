package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

func validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	return nil
}

// Publish sends a message and waits for the broker to acknowledge it.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishAsync hands a message to paho and returns without waiting for the
// acknowledgement. Delivery failures are logged from a background goroutine.
// Only validation and connection state are reported to the caller.
func (c *Client) PublishAsync(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT publish timed out", "topic", topic, "timeout", defaultPublishTimeout)
			}
			return
		}
		if err := token.Error(); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT publish failed", "topic", topic, "error", err)
			}
		}
	}()
	return nil
}
