package core

import (
	"github.com/google/uuid"
)

// TrackingID correlates an event batch across log lines, spans and downstream
// consumers.
type TrackingID string

func NewTrackingID() TrackingID {
	return TrackingID(uuid.NewString())
}
