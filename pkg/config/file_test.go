package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func TestNewFile_DefaultsApplied(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("NewFile() error: %v", err)
	}
	if f.Duration() != 5*time.Second {
		t.Errorf("Duration() = %s, want 5s", f.Duration())
	}
	if f.Framerate() != 60 {
		t.Errorf("Framerate() = %d, want 60", f.Framerate())
	}
	if f.TickInterval() != time.Second/60 {
		t.Errorf("TickInterval() = %s, want %s", f.TickInterval(), time.Second/60)
	}
	if f.Backend() != "auto" || f.OnInterrupt() != "complete" {
		t.Errorf("Backend()/OnInterrupt() = %q/%q, want auto/complete", f.Backend(), f.OnInterrupt())
	}
	if f.SysfsRoot() != "/sys/class/backlight" {
		t.Errorf("SysfsRoot() = %q", f.SysfsRoot())
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestNewFile_Layering(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", strings.Join([]string{
		"duration: 3s",
		"framerate: 20",
		"device: intel_backlight",
		"on-interrupt: revert",
	}, "\n"))

	t.Setenv("DIMMER_FRAMERATE", "30")
	t.Setenv("DIMMER_ON_INTERRUPT", "freeze")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Duration(KeyDuration, 5*time.Second, "")
	flags.String(KeyOnInterrupt, "complete", "")
	if err := flags.Parse([]string{"--on-interrupt=complete"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	f, err := NewFile(path, flags)
	if err != nil {
		t.Fatalf("NewFile() error: %v", err)
	}

	// file beats the unchanged flag default
	if f.Duration() != 3*time.Second {
		t.Errorf("Duration() = %s, want 3s", f.Duration())
	}
	// env beats file
	if f.Framerate() != 30 {
		t.Errorf("Framerate() = %d, want 30", f.Framerate())
	}
	// explicit flag beats env
	if f.OnInterrupt() != "complete" {
		t.Errorf("OnInterrupt() = %q, want complete", f.OnInterrupt())
	}
	if f.Device() != "intel_backlight" {
		t.Errorf("Device() = %q, want intel_backlight", f.Device())
	}
}

func TestNewFile_ExtensionlessIsYAML(t *testing.T) {
	path := writeTempConfig(t, "dimmerrc", "framerate: 25\n")
	f, err := NewFile(path, nil)
	if err != nil {
		t.Fatalf("NewFile() error: %v", err)
	}
	if f.Framerate() != 25 {
		t.Errorf("Framerate() = %d, want 25", f.Framerate())
	}
}

func TestNewFile_BrokenFile(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", "duration: [unterminated\n")
	if _, err := NewFile(path, nil); err == nil {
		t.Fatalf("expected error for malformed config")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "negative duration", yaml: "duration: -1s\n", wantErr: "duration must not be negative"},
		{name: "zero framerate", yaml: "framerate: 0\n", wantErr: "framerate must be between"},
		{name: "huge framerate", yaml: "framerate: 5000\n", wantErr: "framerate must be between"},
		{name: "bad backend", yaml: "backend: xbacklight\n", wantErr: "backend"},
		{name: "bad policy", yaml: "on-interrupt: pause\n", wantErr: "on-interrupt"},
		{name: "ok", yaml: "backend: logind\non-interrupt: freeze\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFile(writeTempConfig(t, "config.yaml", tc.yaml), nil)
			if err != nil {
				t.Fatalf("NewFile() error: %v", err)
			}
			err = f.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestNewRawFileConfigFromConfig(t *testing.T) {
	f, err := NewFile(writeTempConfig(t, "config.yaml", "duration: 1500ms\nstate-file: /tmp/b\n"), nil)
	if err != nil {
		t.Fatalf("NewFile() error: %v", err)
	}
	raw, err := NewRawFileConfigFromConfig(f)
	if err != nil {
		t.Fatalf("NewRawFileConfigFromConfig() error: %v", err)
	}
	if raw.Duration != "1.5s" || raw.StateFile != "/tmp/b" || raw.Framerate != 60 {
		t.Errorf("unexpected raw config %+v", raw)
	}

	if _, err := NewRawFileConfigFromConfig(nil); err == nil {
		t.Errorf("expected error for nil config")
	}
}
