package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/ingest"
	"codeberg.org/docuchat/server/internal/logger"
)

func ingestAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	col, err := rt.collection(ctx, cmd.String("user"), cmd.String("collection"), cmd.Bool("create"))
	if err != nil {
		return err
	}

	paths, err := collectFiles(cmd.String("path"), rt.allowed)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		return fmt.Errorf("no supported files under %s", cmd.String("path"))
	}

	var failed int

	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		doc, err := rt.ingestFile(ctx, col.ID, path)
		if err != nil {
			failed++
			logger.ErrorErr(err, "failed to ingest file", "path", path)
			continue
		}

		if doc.Status != domain.StatusCompleted {
			failed++
		}

		fmt.Printf("%-10s %4d chunks  %s\n", doc.Status, doc.ChunkCount, path)
		if doc.ErrorMessage != "" {
			fmt.Printf("           %s\n", doc.ErrorMessage)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}

	return nil
}

// uploads one file and returns its document after processing
func (r *runtime) ingestFile(ctx context.Context, collectionID, path string) (*domain.Document, error) {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	doc, err := r.ingest.Upload(ctx, ingest.Upload{
		CollectionID: collectionID,
		Filename:     filepath.Base(path),
		Content:      f,
	})
	if err != nil {
		return nil, err
	}

	return r.documents.Get(ctx, doc.ID)
}

// lists the ingestible files at root in lexical order. hidden files and
// directories are skipped.
func collectFiles(root string, allowed []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !supported(root, allowed) {
			return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(root))
		}

		return []string{root}, nil
	}

	var paths []string

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.IsDir() && supported(path, allowed) {
			paths = append(paths, path)
		}

		return nil
	})

	return paths, err
}

func supported(path string, allowed []string) bool {
	return slices.Contains(allowed, strings.ToLower(filepath.Ext(path)))
}
