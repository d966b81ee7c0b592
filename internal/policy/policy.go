// Package policy decides whether a probed video may be downloaded.
package policy

import (
	"errors"
	"fmt"
)

const (
	DefaultMinDuration = 5
	DefaultMaxDuration = 600
)

var ErrRejected = errors.New("duration rejected")

// Rejection explains why a duration fell outside the bounds.
type Rejection struct {
	Reason   string
	Duration int
	Limit    int
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("video %s: %ds (limit %ds)", r.Reason, r.Duration, r.Limit)
}

func (r *Rejection) Is(target error) bool { return target == ErrRejected }

// Duration bounds are inclusive: Min <= d <= Max is accepted.
type Duration struct {
	Min int
	Max int
}

func NewDuration(min, max int) Duration {
	return Duration{Min: min, Max: max}
}

func Default() Duration {
	return NewDuration(DefaultMinDuration, DefaultMaxDuration)
}

func (p Duration) Validate(seconds int) error {
	if seconds > p.Max {
		return &Rejection{Reason: "too long", Duration: seconds, Limit: p.Max}
	}
	if seconds < p.Min {
		return &Rejection{Reason: "too short", Duration: seconds, Limit: p.Min}
	}
	return nil
}
