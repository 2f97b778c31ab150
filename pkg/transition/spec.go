package transition

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidSpec is returned when a transition cannot be constructed.
	ErrInvalidSpec = errors.New("invalid transition")

	// ErrDeviceUnavailable is returned when the device failed two writes in a row.
	ErrDeviceUnavailable = errors.New("device unavailable")
)

// Spec describes one brightness ramp. It is immutable once built by NewSpec.
type Spec struct {
	start    int
	target   int
	max      int
	duration time.Duration
	tick     time.Duration
}

// NewSpec validates and builds a Spec. target is clamped to [0, max]; start
// must already be inside that range.
func NewSpec(start, target, max int, duration, tick time.Duration) (Spec, error) {
	if max <= 0 {
		return Spec{}, fmt.Errorf("%w: max brightness must be positive, got %d", ErrInvalidSpec, max)
	}
	if start < 0 || start > max {
		return Spec{}, fmt.Errorf("%w: start %d outside [0, %d]", ErrInvalidSpec, start, max)
	}
	if duration < 0 {
		return Spec{}, fmt.Errorf("%w: negative duration %s", ErrInvalidSpec, duration)
	}
	if tick <= 0 {
		return Spec{}, fmt.Errorf("%w: tick interval must be positive, got %s", ErrInvalidSpec, tick)
	}

	clamped := target
	if clamped < 0 {
		clamped = 0
	} else if clamped > max {
		clamped = max
	}
	if clamped != target {
		logrus.WithFields(logrus.Fields{
			"requested": target,
			"clamped":   clamped,
			"max":       max,
		}).Debug("target clamped into device range")
	}

	return Spec{
		start:    start,
		target:   clamped,
		max:      max,
		duration: duration,
		tick:     tick,
	}, nil
}

func (s Spec) Start() int              { return s.start }
func (s Spec) Target() int             { return s.target }
func (s Spec) Max() int                { return s.max }
func (s Spec) Duration() time.Duration { return s.duration }
func (s Spec) Tick() time.Duration     { return s.tick }

// Steps is the number of intervals in the ramp. Zero means the target is
// written once without any ramp.
func (s Spec) Steps() int {
	if s.duration == 0 || s.start == s.target {
		return 0
	}
	n := int(s.duration / s.tick)
	if n < 1 {
		n = 1
	}
	return n
}

// ValueAt is the brightness for step i, rounded to the nearest integer.
// ValueAt(0) is the start and ValueAt(Steps()) is the target.
func (s Spec) ValueAt(i int) int {
	steps := s.Steps()
	if steps == 0 {
		return s.target
	}
	if i <= 0 {
		return s.start
	}
	if i >= steps {
		return s.target
	}

	v := int(math.Round(float64(s.start) + float64(s.target-s.start)*float64(i)/float64(steps)))

	// Never leave the segment between start and target.
	lo, hi := s.start, s.target
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		v = lo
	} else if v > hi {
		v = hi
	}
	return v
}

// LogrusFields describes the ramp for structured logging.
func (s Spec) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"start":    s.start,
		"target":   s.target,
		"max":      s.max,
		"duration": s.duration.String(),
		"tick":     s.tick.String(),
		"steps":    s.Steps(),
	}
}
