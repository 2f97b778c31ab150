package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlie0129/dimmer/pkg/backlight"
	"github.com/charlie0129/dimmer/pkg/config"
	"github.com/charlie0129/dimmer/pkg/state"
)

type statusData struct {
	backend backlight.Backend
	paths   backlight.Paths
	current int
	max     int
	saved   int
	hasSave bool
	state   string
}

func fetchStatusData(c config.Config) (*statusData, error) {
	dev, backend, release, err := openDevice(c)
	if err != nil {
		return nil, err
	}
	defer release()

	max, err := dev.Max()
	if err != nil {
		return nil, fmt.Errorf("failed to get max brightness: %w", err)
	}
	current, err := dev.Current()
	if err != nil {
		return nil, fmt.Errorf("failed to get current brightness: %w", err)
	}

	st, err := stateFileFor(c)
	if err != nil {
		return nil, err
	}

	data := &statusData{
		backend: backend,
		current: current,
		max:     max,
		state:   st.Path(),
	}
	data.paths, _ = devicePaths(dev)

	saved, err := st.Load()
	switch {
	case err == nil:
		data.saved, data.hasSave = saved, true
	case errors.Is(err, state.ErrNoSavedState):
	default:
		return nil, fmt.Errorf("failed to read saved brightness: %w", err)
	}

	return data, nil
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the backlight device and saved brightness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData(conf)
			if err != nil {
				return err
			}

			cmd.Println(bold("Device:"))
			cmd.Printf("  Name: %s\n", data.paths.Name)
			cmd.Printf("  Backend: %s\n", data.backend)
			cmd.Printf("  Brightness: %s (%d / %d)\n", bold(fmt.Sprintf("%d%%", backlight.ToPercent(data.current, data.max))), data.current, data.max)
			cmd.Printf("  Control files: %s, %s, %s\n", data.paths.Set, data.paths.Get, data.paths.Max)

			cmd.Println(bold("Saved brightness:"))
			if data.hasSave {
				cmd.Printf("  Brightness: %s (%d)\n", bold(fmt.Sprintf("%d%%", backlight.ToPercent(data.saved, data.max))), data.saved)
			} else {
				cmd.Println("  Nothing saved. Use --save to save the current brightness before a transition.")
			}
			cmd.Printf("  State file: %s\n", data.state)

			return nil
		},
	}
}
