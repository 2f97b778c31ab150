package config

import "time"

// Keys shared by the config file, environment variables (DIMMER_ prefix,
// dashes become underscores) and command line flags.
const (
	KeyDuration          = "duration"
	KeyFramerate         = "framerate"
	KeyDevice            = "device"
	KeyBackend           = "backend"
	KeyOnInterrupt       = "on-interrupt"
	KeyStateFile         = "state-file"
	KeySetBrightnessPath = "set-brightness-path"
	KeyGetBrightnessPath = "get-brightness-path"
	KeyMaxBrightnessPath = "max-brightness-path"
	KeySysfsRoot         = "sysfs-root"
)

type Config interface {
	Duration() time.Duration
	Framerate() int
	// TickInterval is the time between two writes, derived from Framerate.
	TickInterval() time.Duration
	Device() string
	Backend() string
	OnInterrupt() string
	StateFile() string
	SetBrightnessPath() string
	GetBrightnessPath() string
	MaxBrightnessPath() string
	SysfsRoot() string

	// Load reads the configuration from the source.
	Load() error
	// Validate checks that every value is usable.
	Validate() error
}
