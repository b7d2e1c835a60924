package monitor

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrChannelSendFailed is returned when the event bus consumer is not
	// keeping up and a batch cannot be published without blocking.
	ErrChannelSendFailed = errors.New("failed to send to the event channel")

	// ErrInvalidCodecDecode is returned when the payload of a known event
	// kind does not decode.
	ErrInvalidCodecDecode = errors.New("failed to decode the event payload")
)
