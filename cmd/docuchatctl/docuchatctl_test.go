package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allowed = []string{".pdf", ".txt", ".md", ".docx", ".html", ".json"}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))
}

func TestCollectFiles_Directory(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "b.md"))
	writeFile(t, filepath.Join(root, "a.TXT"))
	writeFile(t, filepath.Join(root, "image.png"))
	writeFile(t, filepath.Join(root, ".draft.md"))
	writeFile(t, filepath.Join(root, ".git", "notes.txt"))
	writeFile(t, filepath.Join(root, "nested", "c.json"))

	paths, err := collectFiles(root, allowed)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.TXT"),
		filepath.Join(root, "b.md"),
		filepath.Join(root, "nested", "c.json"),
	}, paths)
}

func TestCollectFiles_SingleFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "report.pdf")
	writeFile(t, file)

	paths, err := collectFiles(file, allowed)
	require.NoError(t, err)
	assert.Equal(t, []string{file}, paths)

	other := filepath.Join(root, "notes.rtf")
	writeFile(t, other)

	_, err = collectFiles(other, allowed)
	assert.Error(t, err)

	_, err = collectFiles(filepath.Join(root, "missing"), allowed)
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short text", preview("short\n  text", 20))
	assert.Equal(t, "abc...", preview("abcdef", 3))
	assert.Equal(t, "héll...", preview("héllo wörld", 4))
}

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) ingest(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher_IngestsSettledFilesOnce(t *testing.T) {
	rec := &recorder{}
	w := &watcher{allowed: allowed, settle: 30 * time.Millisecond, ingest: rec.ingest}

	events := make(chan fsnotify.Event)
	errs := make(chan error)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx, events, errs) }()

	events <- fsnotify.Event{Name: "/docs/guide.md", Op: fsnotify.Create}
	events <- fsnotify.Event{Name: "/docs/guide.md", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/docs/guide.md", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/docs/photo.png", Op: fsnotify.Create}
	events <- fsnotify.Event{Name: "/docs/.guide.md.swp", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/docs/old.txt", Op: fsnotify.Remove}
	errs <- assert.AnError

	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	// nothing else becomes due
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"/docs/guide.md"}, rec.snapshot())

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_StopsWhenEventsClose(t *testing.T) {
	w := &watcher{allowed: allowed, settle: time.Second, ingest: func(context.Context, string) {}}

	events := make(chan fsnotify.Event)
	close(events)

	assert.NoError(t, w.run(t.Context(), events, make(chan error)))
}

func TestNewCommand_Subcommands(t *testing.T) {
	cmd := newCommand()

	var names []string
	for _, sub := range cmd.Commands {
		names = append(names, sub.Name)
	}

	assert.Equal(t, []string{"ingest", "watch", "search", "token"}, names)
}
