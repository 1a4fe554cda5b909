package main

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/relay/internal/config"
)

func newConfigCommand() *cobra.Command {
	var (
		configPath string
		format     string
		showEnv    bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration that run would use: defaults, overlaid by the
configuration file, overlaid by RELAY_ environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if showEnv {
				for _, name := range config.EnvNames(config.EnvPrefix) {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			var data []byte
			switch config.Format(strings.ToLower(format)) {
			case config.FormatYAML:
				data, err = yaml.Marshal(cfg)
			case config.FormatTOML:
				data, err = toml.Marshal(cfg)
			default:
				return errors.Errorf("unsupported output format %q", format)
			}
			if err != nil {
				return errors.Wrap(err, "encode configuration")
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file (.yaml, .yml or .toml)")
	cmd.Flags().StringVarP(&format, "output", "o", string(config.FormatYAML), "output format: yaml or toml")
	cmd.Flags().BoolVar(&showEnv, "env", false, "list recognized environment variables instead")
	return cmd
}
