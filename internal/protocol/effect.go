package protocol

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// MinEffectDuration is the shortest smooth transition the firmware accepts.
	// Anything shorter is indistinguishable from a sudden change and is
	// rejected by the bulb, so we reject it locally instead of rounding.
	MinEffectDuration = 30 * time.Millisecond

	// MaxEffectDuration is the longest smooth transition that can be encoded.
	// The wire field is a JSON integer of milliseconds; firmware treats it as
	// a signed 32-bit value.
	MaxEffectDuration = time.Duration(math.MaxInt32) * time.Millisecond
)

// ErrInvalidTransition indicates a smooth transition duration outside the
// protocol's accepted range.
var ErrInvalidTransition = errors.New("invalid transition duration")

// Effect describes how a lighting change is applied: instantaneously
// ("sudden") or faded over a duration ("smooth").
//
// The zero value is a sudden transition.
type Effect struct {
	smooth   bool
	duration time.Duration
}

// Sudden returns an effect that applies the change immediately.
func Sudden() Effect {
	return Effect{}
}

// Smooth returns an effect that fades the change over d.
//
// d must be a whole number of milliseconds between MinEffectDuration and
// MaxEffectDuration; the wire format carries an integer millisecond count and
// silently rounding would misrepresent the caller's request.
func Smooth(d time.Duration) (Effect, error) {
	if d < MinEffectDuration {
		return Effect{}, fmt.Errorf("%w: %v is below the %v minimum", ErrInvalidTransition, d, MinEffectDuration)
	}
	if d > MaxEffectDuration {
		return Effect{}, fmt.Errorf("%w: %v exceeds the maximum encodable duration", ErrInvalidTransition, d)
	}
	if d%time.Millisecond != 0 {
		return Effect{}, fmt.Errorf("%w: %v is not a whole number of milliseconds", ErrInvalidTransition, d)
	}
	return Effect{smooth: true, duration: d}, nil
}

// Smooth reports whether the effect fades over time.
func (e Effect) Smooth() bool {
	return e.smooth
}

// Duration returns the fade duration (zero for sudden effects).
func (e Effect) Duration() time.Duration {
	return e.duration
}

// Params returns the ordered (effect token, duration in milliseconds) pair
// appended to effect-bearing commands.
func (e Effect) Params() (string, int) {
	if !e.smooth {
		return "sudden", 0
	}
	return "smooth", int(e.duration / time.Millisecond)
}

// String returns a human-readable description of the effect.
func (e Effect) String() string {
	if !e.smooth {
		return "sudden"
	}
	return fmt.Sprintf("smooth (%v)", e.duration)
}
