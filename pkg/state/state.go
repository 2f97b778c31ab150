package state

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNoSavedState is returned by Load when nothing was saved yet.
var ErrNoSavedState = errors.New("no saved brightness")

const (
	appDir       = "dimmer"
	stateName    = "stored_brightness"
	stateDirPerm = 0755
)

// DefaultPath returns the default state file location inside the user
// configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to locate user config directory")
	}
	return filepath.Join(dir, appDir, stateName), nil
}

// File stores a single brightness value as a decimal integer.
type File struct {
	filepath string
}

// NewFile returns a File backed by path.
func NewFile(path string) *File {
	return &File{filepath: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.filepath
}

// Save writes brightness, creating parent directories as needed.
func (f *File) Save(brightness int) error {
	if brightness < 0 {
		return pkgerrors.Errorf("refusing to save negative brightness %d", brightness)
	}

	if err := os.MkdirAll(filepath.Dir(f.filepath), stateDirPerm); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory for %s", f.filepath)
	}

	fp, err := os.OpenFile(f.filepath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	if _, err := fp.WriteString(strconv.Itoa(brightness)); err != nil {
		return pkgerrors.Wrapf(err, "failed to write brightness to %s", f.filepath)
	}

	logrus.WithFields(logrus.Fields{
		"path":       f.filepath,
		"brightness": brightness,
	}).Debug("brightness saved")

	return nil
}

// Load reads the saved brightness. A missing or empty file yields
// ErrNoSavedState.
func (f *File) Load() (int, error) {
	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, pkgerrors.Wrapf(ErrNoSavedState, "%s does not exist", f.filepath)
		}
		return 0, pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	b, err := io.ReadAll(fp)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, pkgerrors.Wrapf(ErrNoSavedState, "%s is empty", f.filepath)
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to parse brightness from %s", f.filepath)
	}
	if v < 0 {
		return 0, pkgerrors.Errorf("negative brightness %d in %s", v, f.filepath)
	}

	return v, nil
}

// Remove deletes the state file. Removing a missing file is not an error.
func (f *File) Remove() error {
	err := os.Remove(f.filepath)
	if err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove file %s", f.filepath)
	}
	return nil
}
