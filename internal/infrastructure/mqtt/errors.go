package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when there is no session to operate on.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a dial or transport error that ended an
	// attempt before the broker answered.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish cannot be started.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscription is rejected.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic, or a publish topic
	// containing wildcards.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrCertificate is returned when the client certificate bundle
	// cannot be loaded.
	ErrCertificate = errors.New("mqtt: client certificate unavailable")

	// ErrNoHandler is returned by Connect before SetHandler was called.
	ErrNoHandler = errors.New("mqtt: no event handler set")
)
