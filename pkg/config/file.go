package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/charlie0129/dimmer/pkg/backlight"
	"github.com/charlie0129/dimmer/pkg/transition"
)

const (
	envPrefix    = "DIMMER"
	maxFramerate = 1000
)

var defaultFileConfig = map[string]interface{}{
	KeyDuration:    5 * time.Second,
	KeyFramerate:   60,
	KeyBackend:     string(backlight.BackendAuto),
	KeyOnInterrupt: string(transition.PolicyComplete),
	KeySysfsRoot:   backlight.DefaultRoot,
}

var _ Config = &File{}

// File is a Config layered from defaults, an optional YAML file, DIMMER_*
// environment variables and command line flags, in increasing priority.
type File struct {
	v        *viper.Viper
	mu       *sync.RWMutex
	filepath string
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dimmer", "config.yaml")
}

// NewFile builds a File reading configPath (which may not exist) and flags
// (which may be nil).
func NewFile(configPath string, flags *pflag.FlagSet) (*File, error) {
	v := viper.New()
	for k, val := range defaultFileConfig {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to bind flags")
		}
	}

	f := &File{
		v:        v,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}
	if err := f.Load(); err != nil {
		return nil, err
	}

	return f, nil
}

// Load reads the config file. A missing file is not an error.
func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.filepath == "" {
		return nil
	}

	if _, err := os.Stat(f.filepath); err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("path", f.filepath).Debug("config file does not exist, using defaults")
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to stat config file %s", f.filepath)
	}

	f.v.SetConfigFile(f.filepath)
	if filepath.Ext(f.filepath) == "" {
		f.v.SetConfigType("yaml")
	}
	if err := f.v.ReadInConfig(); err != nil {
		return pkgerrors.Wrapf(err, "failed to read config from file %s", f.filepath)
	}

	logrus.WithField("path", f.filepath).Debug("config file loaded")

	return nil
}

// Validate checks ranges and enumerations.
func (f *File) Validate() error {
	if d := f.Duration(); d < 0 {
		return pkgerrors.Errorf("%s must not be negative, got %s", KeyDuration, d)
	}
	if r := f.Framerate(); r <= 0 || r > maxFramerate {
		return pkgerrors.Errorf("%s must be between 1 and %d, got %d", KeyFramerate, maxFramerate, r)
	}
	if _, err := backlight.ParseBackend(f.Backend()); err != nil {
		return pkgerrors.Wrap(err, KeyBackend)
	}
	if _, err := transition.ParseInterruptPolicy(f.OnInterrupt()); err != nil {
		return pkgerrors.Wrap(err, KeyOnInterrupt)
	}
	return nil
}

func (f *File) getString(key string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.v.GetString(key)
}

func (f *File) Duration() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.v.GetDuration(KeyDuration)
}

func (f *File) Framerate() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.v.GetInt(KeyFramerate)
}

func (f *File) TickInterval() time.Duration {
	r := f.Framerate()
	if r <= 0 {
		return 0
	}
	return time.Second / time.Duration(r)
}

func (f *File) Device() string            { return f.getString(KeyDevice) }
func (f *File) Backend() string           { return f.getString(KeyBackend) }
func (f *File) OnInterrupt() string       { return f.getString(KeyOnInterrupt) }
func (f *File) StateFile() string         { return f.getString(KeyStateFile) }
func (f *File) SetBrightnessPath() string { return f.getString(KeySetBrightnessPath) }
func (f *File) GetBrightnessPath() string { return f.getString(KeyGetBrightnessPath) }
func (f *File) MaxBrightnessPath() string { return f.getString(KeyMaxBrightnessPath) }
func (f *File) SysfsRoot() string         { return f.getString(KeySysfsRoot) }

// Path returns the config file path, which may not exist.
func (f *File) Path() string {
	return f.filepath
}

// RawFileConfig is the serializable form of the effective configuration.
type RawFileConfig struct {
	Duration          string `yaml:"duration"`
	Framerate         int    `yaml:"framerate"`
	Device            string `yaml:"device,omitempty"`
	Backend           string `yaml:"backend"`
	OnInterrupt       string `yaml:"on-interrupt"`
	StateFile         string `yaml:"state-file,omitempty"`
	SetBrightnessPath string `yaml:"set-brightness-path,omitempty"`
	GetBrightnessPath string `yaml:"get-brightness-path,omitempty"`
	MaxBrightnessPath string `yaml:"max-brightness-path,omitempty"`
	SysfsRoot         string `yaml:"sysfs-root"`
}

// NewRawFileConfigFromConfig snapshots c.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	return &RawFileConfig{
		Duration:          c.Duration().String(),
		Framerate:         c.Framerate(),
		Device:            c.Device(),
		Backend:           c.Backend(),
		OnInterrupt:       c.OnInterrupt(),
		StateFile:         c.StateFile(),
		SetBrightnessPath: c.SetBrightnessPath(),
		GetBrightnessPath: c.GetBrightnessPath(),
		MaxBrightnessPath: c.MaxBrightnessPath(),
		SysfsRoot:         c.SysfsRoot(),
	}, nil
}

func (f *File) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"duration":    f.Duration().String(),
		"framerate":   f.Framerate(),
		"device":      f.Device(),
		"backend":     f.Backend(),
		"onInterrupt": f.OnInterrupt(),
		"stateFile":   f.StateFile(),
	}
}
