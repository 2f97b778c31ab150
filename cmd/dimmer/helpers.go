package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dimmer/pkg/backlight"
	"github.com/charlie0129/dimmer/pkg/config"
	"github.com/charlie0129/dimmer/pkg/state"
)

var bold = color.New(color.Bold).SprintFunc()

// parseTarget accepts an absolute value ("120") or a percentage ("40%") and
// returns a brightness value clamped to [0, max].
func parseTarget(s string, max int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty target", errInvalidArgs)
	}

	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid percentage %q: %v", errInvalidArgs, s, err)
		}
		return backlight.FromPercent(v, max), nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid target %q: %v", errInvalidArgs, s, err)
	}
	if c := backlight.Clamp(v, max); c != v {
		logrus.WithFields(logrus.Fields{
			"requested": v,
			"clamped":   c,
			"max":       max,
		}).Warn("target is out of range, clamping")
		v = c
	}

	return v, nil
}

// stateFileFor returns the saved-state file configured in c, or the default one.
func stateFileFor(c config.Config) (*state.File, error) {
	path := c.StateFile()
	if path == "" {
		var err error
		path, err = state.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return state.NewFile(path), nil
}

func deviceOptions(c config.Config) (backlight.Options, error) {
	b, err := backlight.ParseBackend(c.Backend())
	if err != nil {
		return backlight.Options{}, fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return backlight.Options{
		Backend: b,
		Root:    c.SysfsRoot(),
		Name:    c.Device(),
		SetPath: c.SetBrightnessPath(),
		GetPath: c.GetBrightnessPath(),
		MaxPath: c.MaxBrightnessPath(),
	}, nil
}

// openDevice opens the configured device. The returned func releases it.
func openDevice(c config.Config) (backlight.Device, backlight.Backend, func(), error) {
	opts, err := deviceOptions(c)
	if err != nil {
		return nil, "", nil, err
	}

	dev, backend, err := backlight.Open(opts)
	if err != nil {
		return nil, "", nil, err
	}

	release := func() {
		if closer, ok := dev.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logrus.Warnf("failed to close %s backend: %v", backend, err)
			}
		}
	}

	return dev, backend, release, nil
}

// devicePaths returns the control files of dev, when it has any.
func devicePaths(dev backlight.Device) (backlight.Paths, bool) {
	p, ok := dev.(interface{ Paths() backlight.Paths })
	if !ok {
		return backlight.Paths{}, false
	}
	return p.Paths(), true
}
