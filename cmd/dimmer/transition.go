package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/dimmer/pkg/config"
	"github.com/charlie0129/dimmer/pkg/transition"
)

type transitionOptions struct {
	target string
	// targetGiven is set when the target came from the command line rather
	// than the flag default.
	targetGiven bool
	save        bool
	restore     bool
}

// NewTransitionCommand returns the command that runs one brightness transition.
// It is used as the root command.
func NewTransitionCommand() *cobra.Command {
	opts := transitionOptions{}

	cmd := &cobra.Command{
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if cmd.Flags().Changed("target") {
					return fmt.Errorf("%w: target given both as argument and --target", errInvalidArgs)
				}
				opts.target = args[0]
			}
			opts.targetGiven = len(args) == 1 || cmd.Flags().Changed("target")

			intr := &transition.Interrupt{}
			stop := intr.NotifySignals(os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			res, err := runTransition(conf, opts, intr)
			if err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{
				"brightness": res.Last,
				"writes":     res.Writes,
			}).Infof("transition %s", res.State)

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.target, "target", "0", "brightness to target, absolute (120) or percentage (40%)")
	f.BoolVarP(&opts.save, "save", "s", false, "save the current brightness to the state file")
	f.BoolVarP(&opts.restore, "restore", "r", false, "restore the previously saved brightness from the state file")
	f.Duration(config.KeyDuration, 5*time.Second, "how long the transition takes")
	f.Int(config.KeyFramerate, 60, "how many times per second the brightness is updated")
	f.String(config.KeyOnInterrupt, string(transition.PolicyComplete), "what to do when interrupted (complete, revert, freeze)")
	cmd.MarkFlagsMutuallyExclusive("save", "restore")

	return cmd
}

// runTransition reads the device, handles the saved state and drives the
// engine until it finishes.
func runTransition(c config.Config, opts transitionOptions, intr transition.InterruptSource) (transition.Result, error) {
	if opts.restore && opts.targetGiven {
		return transition.Result{}, fmt.Errorf("%w: a target cannot be combined with --restore", errInvalidArgs)
	}

	dev, backend, release, err := openDevice(c)
	if err != nil {
		return transition.Result{}, err
	}
	defer release()

	max, err := dev.Max()
	if err != nil {
		return transition.Result{}, err
	}
	current, err := dev.Current()
	if err != nil {
		return transition.Result{}, err
	}

	st, err := stateFileFor(c)
	if err != nil {
		return transition.Result{}, err
	}

	var target int
	if opts.restore {
		target, err = st.Load()
		if err != nil {
			return transition.Result{}, err
		}
	} else {
		target, err = parseTarget(opts.target, max)
		if err != nil {
			return transition.Result{}, err
		}
	}

	policy, err := transition.ParseInterruptPolicy(c.OnInterrupt())
	if err != nil {
		return transition.Result{}, fmt.Errorf("%w: %v", errInvalidArgs, err)
	}

	spec, err := transition.NewSpec(current, target, max, c.Duration(), c.TickInterval())
	if err != nil {
		return transition.Result{}, err
	}

	// Only overwrite the saved brightness once the transition is known to be valid.
	if opts.save {
		if err := st.Save(current); err != nil {
			return transition.Result{}, err
		}
		logrus.Infof("saved brightness %d to %s", current, st.Path())
	}

	logrus.WithFields(spec.LogrusFields()).WithField("backend", backend).Debug("starting transition")

	res, err := transition.NewEngine(dev,
		transition.WithInterrupt(intr),
		transition.WithPolicy(policy),
	).Run(spec)
	if err != nil {
		return res, err
	}

	if opts.restore && res.Last == spec.Target() {
		if err := st.Remove(); err != nil {
			logrus.Warnf("restored brightness but failed to remove state file: %v", err)
		}
	}

	return res, nil
}
