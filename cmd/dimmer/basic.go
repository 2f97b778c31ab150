package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/dimmer/pkg/config"
	"github.com/charlie0129/dimmer/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration as YAML.

Values come from built-in defaults, the config file, DIMMER_* environment
variables and command line flags, in increasing priority. The output can be
used as a starting point for the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := config.NewRawFileConfigFromConfig(conf)
			if err != nil {
				return err
			}
			if raw.StateFile == "" {
				st, err := stateFileFor(conf)
				if err != nil {
					return err
				}
				raw.StateFile = st.Path()
			}

			b, err := yaml.Marshal(raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", conf.Path())
			fmt.Fprint(out, string(b))
			return nil
		},
	}
}
