package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// defaultConfig is written out by `ttmctl config init`. TOML is offered as
// an alternative to the YAML config file internal/config.Initialize reads
// by default. Initialize parses its config file as YAML (SetConfigType), and
// --db / DATABASE_PATH name the database file rather than a config file, so
// ttmctl does not read the file this command writes as TOML.
type defaultConfig struct {
	DatabasePath string `toml:"database_path"`
	LogPath      string `toml:"log_path"`
	LogLevel     string `toml:"log_level"`
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ttmctl configuration files",
	}

	var outPath string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default TOML configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()

			cfg := defaultConfig{
				DatabasePath: "events.db",
				LogPath:      "",
				LogLevel:     "info",
			}
			return toml.NewEncoder(f).Encode(cfg)
		},
	}
	initCmd.Flags().StringVar(&outPath, "out", "ttm.toml", "path to write the config file to")

	configCmd.AddCommand(initCmd)
	return configCmd
}
