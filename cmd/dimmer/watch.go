package main

import (
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/dimmer/pkg/backlight"
	"github.com/charlie0129/dimmer/pkg/state"
)

type watchEvent struct {
	// brightness is set when the control file changed.
	brightness *int
	// saved is set when the state file was written. savedGone is set when it
	// was removed.
	saved     *int
	savedGone bool
}

// watchChanges reports writes to the brightness control file and changes of
// the saved-state file until stop is closed.
func watchChanges(dev backlight.Device, paths backlight.Paths, st *state.File, stop <-chan struct{}, onEvent func(watchEvent)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(paths.Set); err != nil {
		return &backlight.DeviceError{Kind: backlight.ErrIOFailure, Op: "watch", Path: paths.Set, Err: err}
	}

	// The state file may not exist yet, so watch its directory instead.
	stateDir := filepath.Dir(st.Path())
	if err := watcher.Add(stateDir); err != nil {
		logrus.WithField("path", stateDir).Debugf("not watching state directory: %v", err)
	}

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Name == paths.Set && event.Op&fsnotify.Write == fsnotify.Write:
				v, err := dev.Current()
				if err != nil {
					logrus.Warnf("failed to read brightness: %v", err)
					continue
				}
				onEvent(watchEvent{brightness: &v})
			case event.Name == st.Path() && event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				v, err := st.Load()
				if err != nil {
					// Truncated but not yet written.
					if !errors.Is(err, state.ErrNoSavedState) {
						logrus.Warnf("failed to read saved brightness: %v", err)
					}
					continue
				}
				onEvent(watchEvent{saved: &v})
			case event.Name == st.Path() && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				onEvent(watchEvent{savedGone: true})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.Warnf("watcher error: %v", err)
		}
	}
}

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow brightness and saved state changes",
		Long: `Follow brightness and saved state changes.

Every write to the brightness control file and every change to the state file
is logged until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			dev, backend, release, err := openDevice(conf)
			if err != nil {
				return err
			}
			defer release()

			max, err := dev.Max()
			if err != nil {
				return err
			}
			paths, _ := devicePaths(dev)
			st, err := stateFileFor(conf)
			if err != nil {
				return err
			}

			stop := make(chan struct{})
			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigc)
			go func() {
				sig := <-sigc
				logrus.Infof("caught signal \"%s\": stopping.", sig)
				close(stop)
			}()

			logrus.WithFields(logrus.Fields{
				"device":  paths.Name,
				"backend": backend,
				"state":   st.Path(),
			}).Info("watching brightness")

			return watchChanges(dev, paths, st, stop, func(ev watchEvent) {
				switch {
				case ev.brightness != nil:
					logrus.WithFields(logrus.Fields{
						"brightness": *ev.brightness,
						"percent":    backlight.ToPercent(*ev.brightness, max),
					}).Info("brightness changed")
				case ev.saved != nil:
					logrus.WithFields(logrus.Fields{
						"brightness": *ev.saved,
						"percent":    backlight.ToPercent(*ev.saved, max),
					}).Info("saved brightness changed")
				case ev.savedGone:
					logrus.Info("saved brightness removed")
				}
			})
		},
	}
}
