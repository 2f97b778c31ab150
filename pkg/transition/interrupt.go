package transition

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// InterruptSource is polled by the engine once per tick.
type InterruptSource interface {
	Interrupted() bool
}

// Interrupt is a one-way flag that can be raised from any goroutine.
type Interrupt struct {
	flag atomic.Bool
}

// Trigger raises the flag.
func (i *Interrupt) Trigger() {
	i.flag.Store(true)
}

// Interrupted reports whether the flag was raised.
func (i *Interrupt) Interrupted() bool {
	return i.flag.Load()
}

// NotifySignals raises the flag when one of sigs arrives. The relay goroutine
// only stores the flag; the transition loop does the rest at the next tick.
// The returned func stops signal delivery.
func (i *Interrupt) NotifySignals(sigs ...os.Signal) (stop func()) {
	sigc := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigc, sigs...)

	go func() {
		for {
			select {
			case sig := <-sigc:
				logrus.Infof("caught signal \"%s\": interrupting transition", sig)
				i.Trigger()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigc)
		close(done)
	}
}

// InterruptPolicy decides what the engine writes after an interrupt.
type InterruptPolicy string

const (
	// PolicyComplete jumps straight to the target.
	PolicyComplete InterruptPolicy = "complete"
	// PolicyRevert goes back to the start value.
	PolicyRevert InterruptPolicy = "revert"
	// PolicyFreeze leaves the last written value in place.
	PolicyFreeze InterruptPolicy = "freeze"
)

// ParseInterruptPolicy validates a policy name.
func ParseInterruptPolicy(s string) (InterruptPolicy, error) {
	switch p := InterruptPolicy(s); p {
	case PolicyComplete, PolicyRevert, PolicyFreeze:
		return p, nil
	}
	return "", fmt.Errorf("unknown interrupt policy %q (want complete, revert or freeze)", s)
}
