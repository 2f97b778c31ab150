package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/dimmer/pkg/backlight"
	"github.com/charlie0129/dimmer/pkg/config"
	"github.com/charlie0129/dimmer/pkg/state"
	"github.com/charlie0129/dimmer/pkg/transition"
)

var (
	logLevel   = "info"
	configPath = config.DefaultPath()

	// conf is loaded in PersistentPreRunE, after flags are parsed.
	conf *config.File
)

// Exit codes.
const (
	exitOK                = 0
	exitFailure           = 1
	exitPermissionDenied  = 2
	exitNotFound          = 3
	exitDeviceUnavailable = 4
	exitInvalid           = 5
)

// errInvalidArgs marks bad user input that cobra itself did not catch.
var errInvalidArgs = errors.New("invalid arguments")

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

// handleCmdError prints guidance for well-known errors and returns the exit code.
func handleCmdError(err error) int {
	switch {
	case errors.Is(err, transition.ErrInvalidSpec), errors.Is(err, errInvalidArgs):
		return exitInvalid
	case errors.Is(err, transition.ErrDeviceUnavailable):
		fmt.Fprintln(os.Stderr, "\nError: the backlight device stopped accepting writes")
		fmt.Fprintln(os.Stderr, "  - Check that the device still exists under /sys/class/backlight")
		return exitDeviceUnavailable
	case errors.Is(err, backlight.ErrIOFailure):
		fmt.Fprintln(os.Stderr, "\nError: failed to read or write the backlight device")
		fmt.Fprintln(os.Stderr, "  - Check that the device still exists under /sys/class/backlight and reports a number")
		return exitDeviceUnavailable
	case errors.Is(err, backlight.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or add a udev rule granting the 'video' group write access to the brightness file, and add your user to that group")
		fmt.Fprintln(os.Stderr, "  - Or use '--backend logind' to let systemd-logind write it for your session")
		return exitPermissionDenied
	case errors.Is(err, state.ErrNoSavedState):
		fmt.Fprintln(os.Stderr, "\nError: there is no saved brightness to restore")
		fmt.Fprintln(os.Stderr, "  - Run with '--save' first, or pass the same '--state-file' used when saving")
		return exitNotFound
	case errors.Is(err, backlight.ErrNotFound):
		fmt.Fprintln(os.Stderr, "\nError: no backlight device found")
		fmt.Fprintln(os.Stderr, "  - List devices with 'ls /sys/class/backlight' and pass one with '--device'")
		fmt.Fprintln(os.Stderr, "  - Or point '--set-brightness-path', '--get-brightness-path' and '--max-brightness-path' at the control files")
		return exitNotFound
	}
	return exitFailure
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(handleCmdError(err))
	}
	os.Exit(exitOK)
}

func NewCommand() *cobra.Command {
	cmd := NewTransitionCommand()
	cmd.Use = "dimmer [target]"
	cmd.Short = "dimmer smoothly transitions your screen from one brightness to another"
	cmd.Long = `dimmer smoothly transitions your screen from one brightness to another.

The target is either an absolute brightness value (e.g. 120) or a percentage
of the maximum brightness (e.g. 40%). It defaults to 0.

Use --save before dimming and --restore afterwards to bring the screen back to
where it was, e.g. from an idle manager:

  dimmer --save --duration 5s 0
  dimmer --restore --duration 200ms

Sending SIGINT or SIGTERM during a transition stops it at the next frame and
applies the --on-interrupt policy.`
	cmd.SilenceUsage = true
	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		err := setupLogger()
		if err != nil {
			return err
		}

		conf, err = config.NewFile(configPath, c.Flags())
		if err != nil {
			return err
		}
		if err := conf.Validate(); err != nil {
			return fmt.Errorf("%w: %v", errInvalidArgs, err)
		}
		logrus.WithFields(conf.LogrusFields()).Debug("config loaded")

		return nil
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.String(config.KeyDevice, "", "backlight device name under /sys/class/backlight (default: first found)")
	globalFlags.String(config.KeyBackend, "auto", "how to write brightness (auto, sysfs, logind)")
	globalFlags.String(config.KeyStateFile, "", "file storing the saved brightness (default: $XDG_CONFIG_HOME/dimmer/stored_brightness)")
	globalFlags.String(config.KeySetBrightnessPath, "", "file to write to set the brightness (default: discovered)")
	globalFlags.String(config.KeyGetBrightnessPath, "", "file to read the current brightness from (default: discovered)")
	globalFlags.String(config.KeyMaxBrightnessPath, "", "file to read the maximum brightness from (default: discovered)")
	globalFlags.String(config.KeySysfsRoot, backlight.DefaultRoot, "backlight class directory")
	_ = globalFlags.MarkHidden(config.KeySysfsRoot)

	cmd.AddCommand(
		NewStatusCommand(),
		NewWatchCommand(),
		NewConfigCommand(),
		NewVersionCommand(),
	)

	return cmd
}
