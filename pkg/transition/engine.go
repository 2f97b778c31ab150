package transition

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dimmer/pkg/backlight"
)

// State is the lifecycle of one transition.
type State int

const (
	Idle State = iota
	Running
	Completed
	Interrupted
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result summarizes a finished transition.
type Result struct {
	State State
	// Writes is the number of successful device writes.
	Writes int
	// Last is the last value written successfully, or -1 if none was.
	Last int
	// LateTicks counts writes that happened a full tick or more behind schedule.
	LateTicks int
}

// maxFailures is the number of consecutive I/O failures that abort a transition.
const maxFailures = 2

// maxTickRecords bounds the ticks kept for diagnostics.
const maxTickRecords = 1024

// Engine drives a Device through a Spec.
type Engine struct {
	device    backlight.Device
	interrupt InterruptSource
	policy    InterruptPolicy
	now       func() time.Time
	sleep     func(time.Duration)
	recorder  *TickRecorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterrupt sets the source polled at every tick.
func WithInterrupt(src InterruptSource) Option {
	return func(e *Engine) { e.interrupt = src }
}

// WithPolicy sets what happens after an interrupt. Defaults to PolicyComplete.
func WithPolicy(p InterruptPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(e *Engine) {
		e.now = now
		e.sleep = sleep
	}
}

// NewEngine returns an Engine writing to dev.
func NewEngine(dev backlight.Device, opts ...Option) *Engine {
	e := &Engine{
		device:   dev,
		policy:   PolicyComplete,
		now:      time.Now,
		sleep:    time.Sleep,
		recorder: NewTickRecorder(maxTickRecords, 0),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) interrupted() bool {
	return e.interrupt != nil && e.interrupt.Interrupted()
}

// Run executes the transition and blocks until it completes, is interrupted
// or aborts. Writes happen on an absolute schedule, begin + i*tick, so a slow
// write does not push the remaining ones back.
func (e *Engine) Run(spec Spec) (Result, error) {
	res := Result{State: Running, Last: -1}
	e.recorder.ClearRecords()
	e.recorder.LateAfter = spec.Tick()

	logrus.WithFields(spec.LogrusFields()).Debug("transition starting")

	steps := spec.Steps()
	if steps == 0 {
		if err := e.device.Set(spec.Target()); err != nil {
			res.State = Aborted
			return res, err
		}
		res.Writes, res.Last, res.State = 1, spec.Target(), Completed
		logrus.WithField("value", spec.Target()).Debug("transition has no steps, wrote target once")
		return res, nil
	}

	begin := e.now()
	failures := 0
	for i := 0; i <= steps; i++ {
		scheduled := begin.Add(time.Duration(i) * spec.Tick())
		if d := scheduled.Sub(e.now()); d > 0 {
			e.sleep(d)
		}

		if e.interrupted() {
			return e.finishInterrupted(spec, res, i)
		}

		v := spec.ValueAt(i)
		err := e.device.Set(v)
		e.recorder.AddRecord(scheduled, e.now())
		if err != nil {
			if !errors.Is(err, backlight.ErrIOFailure) || i == steps {
				res.State = Aborted
				return e.finish(res), err
			}
			failures++
			if failures >= maxFailures {
				res.State = Aborted
				return e.finish(res), fmt.Errorf("%w: %d consecutive write failures: %w", ErrDeviceUnavailable, failures, err)
			}
			logrus.WithFields(logrus.Fields{
				"step":  i,
				"value": v,
			}).Warnf("failed to write brightness, skipping frame: %v", err)
			continue
		}

		failures = 0
		res.Writes++
		res.Last = v
	}

	res.State = Completed
	return e.finish(res), nil
}

func (e *Engine) finishInterrupted(spec Spec, res Result, step int) (Result, error) {
	res.State = Interrupted

	var final int
	switch e.policy {
	case PolicyFreeze:
		logrus.WithFields(logrus.Fields{
			"step":  step,
			"value": res.Last,
		}).Info("transition interrupted, keeping current brightness")
		return e.finish(res), nil
	case PolicyRevert:
		final = spec.Start()
	default:
		final = spec.Target()
	}

	logrus.WithFields(logrus.Fields{
		"step":   step,
		"policy": string(e.policy),
		"value":  final,
	}).Info("transition interrupted, writing final brightness")

	if err := e.device.Set(final); err != nil {
		res.State = Aborted
		return e.finish(res), err
	}
	res.Writes++
	res.Last = final

	return e.finish(res), nil
}

func (e *Engine) finish(res Result) Result {
	res.LateTicks = e.recorder.LateTicks()

	entry := logrus.WithFields(logrus.Fields{
		"state":     res.State.String(),
		"writes":    res.Writes,
		"last":      res.Last,
		"lateTicks": res.LateTicks,
		"maxLag":    e.recorder.MaxLag().String(),
	})
	if res.LateTicks > 0 {
		entry.Debug("transition finished, some frames were late")
	} else {
		entry.Debug("transition finished")
	}

	return res
}
