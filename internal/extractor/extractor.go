package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"codeberg.org/docuchat/server/internal/domain"
)

type extractFunc func(path string) (string, error)

// turns stored files into plain text, keyed by lowercase extension
type Extractor struct {
	byExt map[string]extractFunc
}

func New() *Extractor {
	return &Extractor{
		byExt: map[string]extractFunc{
			".txt":  readUTF8,
			".md":   readUTF8,
			".json": readUTF8,
			".html": readHTML,
			".htm":  readHTML,
			".docx": readDOCX,
			".pdf":  readPDF,
		},
	}
}

func (e *Extractor) Supports(filename string) bool {
	_, ok := e.byExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func (e *Extractor) Extensions() []string {
	exts := make([]string, 0, len(e.byExt))
	for ext := range e.byExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)

	return exts
}

// reads the file at path and returns its text. any failure is an
// *domain.ExtractionError naming the file.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	fn, ok := e.byExt[ext]
	if !ok {
		return "", &domain.ExtractionError{Filename: name, Err: fmt.Errorf("unsupported file type %q", ext)}
	}

	type result struct {
		text string
		err  error
	}

	// pdf and docx parsing cannot be interrupted, so run it aside and stop waiting on cancel
	done := make(chan result, 1)
	go func() {
		text, err := fn(path)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", &domain.ExtractionError{Filename: name, Err: r.err}
		}

		return normalizeWhitespace(r.text), nil
	}
}

// collapses runs of blank lines and trims trailing spaces on each line
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	out := make([]string, 0, len(lines))
	blank := 0

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
