package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"codeberg.org/docuchat/server/internal/logger"
)

// editors write a file in several steps; wait for it to go quiet
const defaultSettle = 500 * time.Millisecond

func watchAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	col, err := rt.collection(ctx, cmd.String("user"), cmd.String("collection"), false)
	if err != nil {
		return err
	}

	dir := cmd.String("dir")

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close() //nolint:errcheck // closing on exit

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logger.Info("watching directory", "dir", dir, "collection", col.Name)

	w := &watcher{
		allowed: rt.allowed,
		settle:  cmd.Duration("settle"),
		ingest: func(ctx context.Context, path string) {
			doc, err := rt.ingestFile(ctx, col.ID, path)
			if err != nil {
				logger.ErrorErr(err, "failed to ingest file", "path", path)
				return
			}

			logger.Info("file ingested",
				"path", path,
				"document_id", doc.ID,
				"status", doc.Status,
				"chunks", doc.ChunkCount,
			)
		},
	}

	return w.run(ctx, fw.Events, fw.Errors)
}

// turns bursts of filesystem events into one ingestion per settled file
type watcher struct {
	allowed []string
	settle  time.Duration
	ingest  func(ctx context.Context, path string)
}

func (w *watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	// path -> time it becomes eligible
	pending := make(map[string]time.Time)

	ticker := time.NewTicker(max(w.settle/4, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				logger.Warn("stopped with unsettled files", "count", len(pending))
			}
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}

			if w.relevant(ev) {
				pending[ev.Name] = time.Now().Add(w.settle)
			}

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.ErrorErr(err, "watch error")

		case now := <-ticker.C:
			for path, due := range pending {
				if now.Before(due) {
					continue
				}

				delete(pending, path)
				w.ingest(ctx, path)
			}
		}
	}
}

func (w *watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}

	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}

	return supported(ev.Name, w.allowed)
}
