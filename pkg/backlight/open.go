package backlight

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Backend selects how brightness is written.
type Backend string

const (
	// BackendAuto writes sysfs directly when the control file is writable and
	// falls back to logind otherwise.
	BackendAuto Backend = "auto"
	// BackendSysfs always writes the sysfs control file.
	BackendSysfs Backend = "sysfs"
	// BackendLogind always writes through systemd-logind.
	BackendLogind Backend = "logind"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendAuto, BackendSysfs, BackendLogind:
		return b, nil
	}
	return "", fmt.Errorf("unknown backend %q (want auto, sysfs or logind)", s)
}

// Options describes which device to open and how.
type Options struct {
	Backend Backend
	// Root is the sysfs backlight class directory. Defaults to DefaultRoot.
	Root string
	// Name is the device directory under Root. Empty picks the first device.
	Name string

	// Explicit paths override the discovered ones.
	SetPath string
	GetPath string
	MaxPath string
}

// ResolvePaths discovers the device and applies explicit path overrides.
// Discovery is skipped when all three paths are given.
func ResolvePaths(opts Options) (Paths, error) {
	var p Paths
	if opts.SetPath == "" || opts.GetPath == "" || opts.MaxPath == "" {
		var err error
		p, err = Discover(opts.Root, opts.Name)
		if err != nil {
			return Paths{}, err
		}
	}

	if opts.SetPath != "" {
		p.Set = opts.SetPath
	}
	if opts.GetPath != "" {
		p.Get = opts.GetPath
	}
	if opts.MaxPath != "" {
		p.Max = opts.MaxPath
	}
	if p.Name == "" {
		p.Name = opts.Name
	}
	if p.Name == "" {
		p.Name = filepath.Base(filepath.Dir(p.Set))
	}

	return p, nil
}

// Open resolves the device paths and returns a Device for the requested
// backend, along with the backend that was actually chosen.
func Open(opts Options) (Device, Backend, error) {
	if opts.Backend == "" {
		opts.Backend = BackendAuto
	}

	paths, err := ResolvePaths(opts)
	if err != nil {
		return nil, "", err
	}

	switch opts.Backend {
	case BackendSysfs:
		return NewSysfs(paths), BackendSysfs, nil
	case BackendLogind:
		dev, err := NewLogind(paths)
		if err != nil {
			return nil, "", err
		}
		return dev, BackendLogind, nil
	case BackendAuto:
		if err := unix.Access(paths.Set, unix.W_OK); err == nil {
			return NewSysfs(paths), BackendSysfs, nil
		}
		logrus.WithField("path", paths.Set).Debug("control file is not writable, trying logind")
		dev, err := NewLogind(paths)
		if err != nil {
			// Let the write itself report the permission problem.
			logrus.WithError(err).Debug("logind unavailable, using sysfs")
			return NewSysfs(paths), BackendSysfs, nil
		}
		return dev, BackendLogind, nil
	}

	return nil, "", fmt.Errorf("unknown backend %q", opts.Backend)
}
