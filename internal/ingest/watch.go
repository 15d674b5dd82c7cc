package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/onecodex/taxonomy-time-machine/internal/taxdump"
)

// Watcher observes a snapshot root directory for newly created dated
// subdirectories and feeds them to an Ingester as they land, so ingestion
// can run as a long-lived poll instead of a one-shot batch. It stays
// single-goroutine: fsnotify events are drained and ingested synchronously,
// preserving the single-writer model of spec §5.
type Watcher struct {
	ing     *Ingester
	root    string
	watcher *fsnotify.Watcher
	log     *slog.Logger
}

// NewWatcher starts watching root for new snapshot directories.
func NewWatcher(ing *Ingester, root string, log *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting snapshot watcher: %w", err)
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{ing: ing, root: root, watcher: w, log: log}, nil
}

// Run blocks, ingesting each newly created dated directory until ctx is
// canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}

			date, err := taxdump.DateFromPath(event.Name)
			if err != nil {
				continue // not a dated snapshot directory
			}

			reader, err := taxdump.Load(event.Name)
			if err != nil {
				w.log.Error("loading snapshot", "path", event.Name, "error", err)
				continue
			}

			res, err := w.ing.IngestSnapshot(ctx, event.Name, date, reader)
			if err != nil {
				w.log.Error("ingesting snapshot", "path", event.Name, "error", err)
				continue
			}
			w.log.Info("ingested snapshot", "path", res.Path, "events", res.EventCount, "skipped", res.Skipped)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}
