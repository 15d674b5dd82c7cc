package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/onecodex/taxonomy-time-machine/internal/storage/sqlite"
)

// newDoctorCmd reports the database path in use and which schema
// migrations this build knows about — grounded on the teacher's `bd
// doctor` subcommand, which performs the same kind of environment sanity
// check before a real operation.
func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Report the resolved database path and the schema migrations this build knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			fmt.Printf("database_path: %s\n", cfg.DatabasePath)
			fmt.Println("migrations:")
			for _, name := range sqlite.ListMigrations() {
				fmt.Printf("  - %s\n", name)
			}
			return nil
		},
	}
	return cmd
}
