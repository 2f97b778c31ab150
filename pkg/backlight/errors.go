package backlight

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrPermissionDenied is returned when the control file rejects a read or write
	// because the current user lacks privilege.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when the control file or the backlight device does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIOFailure is returned for any other read or write failure, including
	// non-numeric content.
	ErrIOFailure = errors.New("i/o failure")
)

// DeviceError describes a failed operation on a brightness control path.
type DeviceError struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap makes both the kind and the underlying cause visible to errors.Is.
func (e *DeviceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify wraps a filesystem error into a DeviceError of the matching kind.
func classify(op, path string, err error) error {
	if err == nil {
		return nil
	}
	kind := ErrIOFailure
	switch {
	case errors.Is(err, fs.ErrPermission):
		kind = ErrPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		kind = ErrNotFound
	}
	return &DeviceError{Kind: kind, Op: op, Path: path, Err: err}
}
