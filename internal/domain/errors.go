package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoSettledDuration marks a vendor record with no usable duration, such as
// a still-running timer. The record is skipped, not imported.
var ErrNoSettledDuration = errors.New("time entry has no settled duration")

// CollisionError reports a (source, external_id) uniqueness violation that
// the upsert path could not resolve as a normal update. It aborts the
// remainder of the current batch; silently dropping one side would lose data
// invisibly.
type CollisionError struct {
	Source     Source
	ExternalID string
	Date       time.Time
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("entry collision for source %q external id %q dated %s",
		e.Source, e.ExternalID, e.Date.Format(time.RFC3339))
}

// IsCollision reports whether err wraps a CollisionError.
func IsCollision(err error) bool {
	var ce *CollisionError
	return errors.As(err, &ce)
}
