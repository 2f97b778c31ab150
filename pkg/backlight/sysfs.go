package backlight

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultRoot is where the kernel exposes backlight devices.
const DefaultRoot = "/sys/class/backlight"

const (
	brightnessFile       = "brightness"
	actualBrightnessFile = "actual_brightness"
	maxBrightnessFile    = "max_brightness"
)

// Paths locates the control files of one backlight device.
type Paths struct {
	// Name is the device directory name, e.g. intel_backlight. It may be empty
	// when every path was given explicitly.
	Name string
	// Set is written to change the brightness.
	Set string
	// Get is read to obtain the current brightness. It can be the same file as Set.
	Get string
	// Max is read to obtain the maximum brightness.
	Max string
}

// Discover resolves the control files of the device called name under root.
// With an empty name, the first device (in lexical order) that has a
// brightness file is used.
func Discover(root, name string) (Paths, error) {
	if root == "" {
		root = DefaultRoot
	}

	var dir string
	if name != "" {
		dir = filepath.Join(root, name)
		if _, err := os.Stat(filepath.Join(dir, brightnessFile)); err != nil {
			return Paths{}, classify("discover", dir, err)
		}
	} else {
		pattern := filepath.Join(root, "*", brightnessFile)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return Paths{}, &DeviceError{Kind: ErrIOFailure, Op: "discover", Path: pattern, Err: err}
		}
		if len(matches) == 0 {
			return Paths{}, &DeviceError{Kind: ErrNotFound, Op: "discover", Path: pattern}
		}
		sort.Strings(matches)
		dir = filepath.Dir(matches[0])
	}

	p := Paths{
		Name: filepath.Base(dir),
		Set:  filepath.Join(dir, brightnessFile),
		Get:  filepath.Join(dir, actualBrightnessFile),
		Max:  filepath.Join(dir, maxBrightnessFile),
	}
	// Some drivers do not expose actual_brightness.
	if _, err := os.Stat(p.Get); err != nil {
		p.Get = p.Set
	}

	logrus.WithFields(logrus.Fields{
		"device": p.Name,
		"set":    p.Set,
		"get":    p.Get,
		"max":    p.Max,
	}).Debug("discovered backlight device")

	return p, nil
}

// Sysfs reads and writes brightness through sysfs control files.
type Sysfs struct {
	paths Paths

	mu  sync.Mutex
	max int
}

var _ Device = &Sysfs{}

// NewSysfs returns a Sysfs device for the given paths.
func NewSysfs(paths Paths) *Sysfs {
	return &Sysfs{paths: paths, max: -1}
}

// Paths returns the control files used by this device.
func (s *Sysfs) Paths() Paths {
	return s.paths
}

// Current reads the current brightness.
func (s *Sysfs) Current() (int, error) {
	return readValue(s.paths.Get)
}

// Max reads the maximum brightness and caches it.
func (s *Sysfs) Max() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.max >= 0 {
		return s.max, nil
	}

	v, err := readValue(s.paths.Max)
	if err != nil {
		return 0, err
	}
	s.max = v

	return v, nil
}

// Set writes value, clamped to [0, Max()], to the control file.
func (s *Sysfs) Set(value int) error {
	max, err := s.Max()
	if err != nil {
		return err
	}
	value = Clamp(value, max)

	logrus.WithFields(logrus.Fields{
		"path": s.paths.Set,
		"val":  value,
	}).Trace("Trying to write brightness")

	// No O_CREATE: a missing control file must surface as ErrNotFound.
	f, err := os.OpenFile(s.paths.Set, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return classify("write", s.paths.Set, err)
	}

	_, err = f.WriteString(strconv.Itoa(value))
	closeErr := f.Close()
	if err != nil {
		return classify("write", s.paths.Set, err)
	}
	if closeErr != nil {
		return classify("write", s.paths.Set, closeErr)
	}

	logrus.WithFields(logrus.Fields{
		"path": s.paths.Set,
		"val":  value,
	}).Trace("Write brightness succeed")

	return nil
}

func readValue(path string) (int, error) {
	logrus.WithField("path", path).Trace("Trying to read brightness")

	b, err := os.ReadFile(path)
	if err != nil {
		return 0, classify("read", path, err)
	}

	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, &DeviceError{Kind: ErrIOFailure, Op: "read", Path: path, Err: fmt.Errorf("non-numeric content %q", strings.TrimSpace(string(b)))}
	}
	if v < 0 {
		return 0, &DeviceError{Kind: ErrIOFailure, Op: "read", Path: path, Err: fmt.Errorf("negative value %d", v)}
	}

	logrus.WithFields(logrus.Fields{
		"path": path,
		"val":  v,
	}).Trace("Read brightness succeed")

	return v, nil
}
