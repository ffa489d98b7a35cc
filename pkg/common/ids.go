package common

import "github.com/google/uuid"

// NewID returns a new random identifier, used for entity, run, job, and
// timeline-event ids throughout the platform.
func NewID() string {
	return uuid.NewString()
}
