package main

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/onecodex/taxonomy-time-machine/internal/ingest"
	"github.com/onecodex/taxonomy-time-machine/internal/storage/sqlite"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <snapshot-root>",
		Short: "Ingest every new taxdump snapshot directory under a root, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			runID := uuid.NewString() // correlates this run's log lines; not persisted

			lock := flock.New(cfg.DatabasePath + ".lock")
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquiring ingestion lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another ingestion run holds the lock on %s", cfg.DatabasePath)
			}
			defer lock.Unlock()

			store, err := sqlite.New(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			ing, err := ingest.New(cmd.Context(), store)
			if err != nil {
				return err
			}

			results, err := ing.IngestAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, r := range results {
				if r.Skipped {
					fmt.Printf("[%s] skip  %s (already ingested)\n", runID, r.Path)
					continue
				}
				fmt.Printf("[%s] apply %s events=%d\n", runID, r.Path, r.EventCount)
			}
			return nil
		},
	}
	return cmd
}
