package main

import (
	"github.com/spf13/cobra"

	"github.com/onecodex/taxonomy-time-machine/internal/config"
)

func newRootCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "ttmctl",
		Short: "Query and maintain a taxonomy time machine event store",
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the event store database (overrides DATABASE_PATH / config)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		v, err := config.Initialize()
		if err != nil {
			return err
		}
		if dbPath != "" {
			v.Set("database_path", dbPath)
		}
		cmd.SetContext(withConfig(cmd.Context(), config.Resolve(v)))
		return nil
	}

	cmd.AddCommand(
		newIngestCmd(),
		newWatchCmd(),
		newEventsCmd(),
		newLineageCmd(),
		newChildrenCmd(),
		newVersionsCmd(),
		newSearchCmd(),
		newRandomSpeciesCmd(),
		newDoctorCmd(),
		newConfigCmd(),
	)

	return cmd
}
