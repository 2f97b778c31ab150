package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/dimmer/pkg/backlight"
	"github.com/charlie0129/dimmer/pkg/config"
	"github.com/charlie0129/dimmer/pkg/state"
	"github.com/charlie0129/dimmer/pkg/transition"
)

type testEnv struct {
	root       string
	brightness string
	stateFile  string
	conf       *config.File
}

// newTestEnv builds a fake backlight class directory with one device and a
// config pointing at it. extra is appended to the config file.
func newTestEnv(t *testing.T, current, max int, extra ...string) *testEnv {
	t.Helper()
	tmp := t.TempDir()
	root := filepath.Join(tmp, "backlight")
	dir := filepath.Join(root, "intel_backlight")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brightness"), []byte(fmt.Sprintf("%d\n", current)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "max_brightness"), []byte(fmt.Sprintf("%d\n", max)), 0o644))

	stateFile := filepath.Join(tmp, "state", "stored_brightness")
	settings := map[string]string{
		"sysfs-root": root,
		"state-file": stateFile,
		"backend":    "sysfs",
		"duration":   "40ms",
		"framerate":  "100",
	}
	for _, kv := range extra {
		k, v, _ := strings.Cut(kv, ": ")
		settings[k] = v
	}
	var lines []string
	for k, v := range settings {
		lines = append(lines, k+": "+v)
	}
	confPath := filepath.Join(tmp, "config.yaml")
	require.NoError(t, os.WriteFile(confPath, []byte(strings.Join(lines, "\n")), 0o644))

	c, err := config.NewFile(confPath, nil)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	return &testEnv{
		root:       root,
		brightness: filepath.Join(dir, "brightness"),
		stateFile:  stateFile,
		conf:       c,
	}
}

func (e *testEnv) current(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(e.brightness)
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}

func TestRunTransitionToPercentage(t *testing.T) {
	env := newTestEnv(t, 255, 255)

	res, err := runTransition(env.conf, transitionOptions{target: "50%"}, &transition.Interrupt{})
	require.NoError(t, err)
	assert.Equal(t, transition.Completed, res.State)
	assert.Equal(t, 128, res.Last)
	assert.Equal(t, "128", env.current(t))
}

func TestRunTransitionClampsTarget(t *testing.T) {
	env := newTestEnv(t, 10, 100)

	res, err := runTransition(env.conf, transitionOptions{target: "5000"}, &transition.Interrupt{})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Last)
	assert.Equal(t, "100", env.current(t))

	res, err = runTransition(env.conf, transitionOptions{target: "-20"}, &transition.Interrupt{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Last)
	assert.Equal(t, "0", env.current(t))
}

func TestSaveThenRestore(t *testing.T) {
	env := newTestEnv(t, 187, 255)

	res, err := runTransition(env.conf, transitionOptions{target: "0", save: true}, &transition.Interrupt{})
	require.NoError(t, err)
	assert.Equal(t, transition.Completed, res.State)
	assert.Equal(t, "0", env.current(t))

	saved, err := state.NewFile(env.stateFile).Load()
	require.NoError(t, err)
	assert.Equal(t, 187, saved)

	res, err = runTransition(env.conf, transitionOptions{restore: true}, &transition.Interrupt{})
	require.NoError(t, err)
	assert.Equal(t, transition.Completed, res.State)
	assert.Equal(t, "187", env.current(t))

	_, err = os.Stat(env.stateFile)
	assert.True(t, os.IsNotExist(err), "state file should be removed after restore")
}

func TestRestoreWithoutSavedState(t *testing.T) {
	env := newTestEnv(t, 50, 100)

	_, err := runTransition(env.conf, transitionOptions{restore: true}, &transition.Interrupt{})
	assert.ErrorIs(t, err, state.ErrNoSavedState)
	assert.Equal(t, exitNotFound, handleCmdError(err))
	assert.Equal(t, "50", env.current(t))
}

func TestInterruptedTransitionAppliesPolicy(t *testing.T) {
	tests := []struct {
		policy string
		want   string
	}{
		{"complete", "0"},
		{"revert", "200"},
		{"freeze", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			env := newTestEnv(t, 200, 255, "on-interrupt: "+tt.policy, "duration: 10s")
			intr := &transition.Interrupt{}
			intr.Trigger()

			res, err := runTransition(env.conf, transitionOptions{target: "0"}, intr)
			require.NoError(t, err)
			assert.Equal(t, transition.Interrupted, res.State)
			assert.Equal(t, tt.want, env.current(t))
		})
	}
}

func TestRunTransitionErrors(t *testing.T) {
	t.Run("no device", func(t *testing.T) {
		env := newTestEnv(t, 1, 10)
		require.NoError(t, os.RemoveAll(env.root))

		_, err := runTransition(env.conf, transitionOptions{target: "0"}, &transition.Interrupt{})
		assert.ErrorIs(t, err, backlight.ErrNotFound)
		assert.Equal(t, exitNotFound, handleCmdError(err))
	})

	t.Run("bad target", func(t *testing.T) {
		env := newTestEnv(t, 1, 10)

		_, err := runTransition(env.conf, transitionOptions{target: "bright"}, &transition.Interrupt{})
		assert.ErrorIs(t, err, errInvalidArgs)
		assert.Equal(t, exitInvalid, handleCmdError(err))
	})

	t.Run("current above max", func(t *testing.T) {
		env := newTestEnv(t, 11, 10)

		_, err := runTransition(env.conf, transitionOptions{target: "0"}, &transition.Interrupt{})
		assert.ErrorIs(t, err, transition.ErrInvalidSpec)
		assert.Equal(t, exitInvalid, handleCmdError(err))
	})
}

func TestRestoreRejectsTarget(t *testing.T) {
	env := newTestEnv(t, 50, 100)
	require.NoError(t, state.NewFile(env.stateFile).Save(80))

	_, err := runTransition(env.conf, transitionOptions{target: "10", targetGiven: true, restore: true}, &transition.Interrupt{})
	assert.ErrorIs(t, err, errInvalidArgs)
	assert.Equal(t, exitInvalid, handleCmdError(err))
	assert.Equal(t, "50", env.current(t))

	saved, err := state.NewFile(env.stateFile).Load()
	require.NoError(t, err)
	assert.Equal(t, 80, saved)
}

func TestSaveKeepsStateOnInvalidTransition(t *testing.T) {
	tests := []struct {
		name    string
		current int
		max     int
		target  string
	}{
		{"bad target", 40, 100, "bright"},
		{"current above max", 11, 10, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.current, tt.max)
			st := state.NewFile(env.stateFile)
			require.NoError(t, st.Save(7))

			_, err := runTransition(env.conf, transitionOptions{target: tt.target, save: true}, &transition.Interrupt{})
			require.Error(t, err)
			assert.Equal(t, exitInvalid, handleCmdError(err))

			saved, err := st.Load()
			require.NoError(t, err)
			assert.Equal(t, 7, saved)
		})
	}
}

func TestFinalWriteFailureExitCode(t *testing.T) {
	dev := backlight.NewMock(0, 100)
	dev.FailNext(nil, nil, backlight.ErrIOFailure)
	spec, err := transition.NewSpec(0, 100, 100, 20*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)

	res, err := transition.NewEngine(dev).Run(spec)
	require.Error(t, err)
	assert.Equal(t, transition.Aborted, res.State)
	assert.Equal(t, exitDeviceUnavailable, handleCmdError(err))
}

func TestHandleCmdError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"permission", &backlight.DeviceError{Kind: backlight.ErrPermissionDenied, Op: "write", Path: "/x"}, exitPermissionDenied},
		{"unavailable", fmt.Errorf("%w: %w", transition.ErrDeviceUnavailable, backlight.ErrIOFailure), exitDeviceUnavailable},
		{"io failure", &backlight.DeviceError{Kind: backlight.ErrIOFailure, Op: "write", Path: "/x"}, exitDeviceUnavailable},
		{"invalid", fmt.Errorf("%w: negative duration", transition.ErrInvalidSpec), exitInvalid},
		{"other", errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, handleCmdError(tt.err))
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		max     int
		want    int
		wantErr bool
	}{
		{in: "0", max: 255, want: 0},
		{in: "120", max: 255, want: 120},
		{in: "300", max: 255, want: 255},
		{in: "40%", max: 255, want: 102},
		{in: " 50 % ", max: 255, want: 128},
		{in: "12.5%", max: 1000, want: 125},
		{in: "150%", max: 255, want: 255},
		{in: "", max: 255, wantErr: true},
		{in: "abc", max: 255, wantErr: true},
		{in: "x%", max: 255, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTarget(tt.in, tt.max)
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidArgs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := NewCommand()
	cmd.SetArgs([]string{"--save", "--restore"})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})
	assert.Error(t, cmd.Execute())
}
