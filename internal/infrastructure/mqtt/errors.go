package mqtt

import "errors"

// Errors returned by Connect and PublishJSON. Match them with errors.Is.
var (
	// ErrConnectionFailed means the broker could not be reached at startup.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected means a report was published while the broker link was down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrPublishFailed wraps encoding, timeout and broker rejections.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrPayloadTooLarge means an encoded report exceeds maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
