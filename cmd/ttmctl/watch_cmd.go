package main

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/onecodex/taxonomy-time-machine/internal/ingest"
	"github.com/onecodex/taxonomy-time-machine/internal/logging"
	"github.com/onecodex/taxonomy-time-machine/internal/storage/sqlite"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <snapshot-root>",
		Short: "Ingest existing snapshots, then watch the root for new ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			log := logging.New(cfg.LogPath, cfg.LogLevel)

			lock := flock.New(cfg.DatabasePath + ".lock")
			locked, err := lock.TryLock()
			if err != nil {
				return err
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

			if _, err := ing.IngestAll(cmd.Context(), args[0]); err != nil {
				return err
			}

			watcher, err := ingest.NewWatcher(ing, args[0], log)
			if err != nil {
				return err
			}
			return watcher.Run(cmd.Context())
		},
	}
	return cmd
}
