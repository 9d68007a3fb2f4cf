package ingest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/docuchat/server/internal/domain"
)

// keeps uploaded bytes on local disk until their document is deleted
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// writes at most limit bytes from r. larger inputs are rejected with a
// *domain.ValidationError and nothing is kept. empty files are stored;
// the pipeline fails them with an EmptyDocumentError.
func (f *FileStore) Save(documentID, filename string, r io.Reader, limit int64) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(f.dir, documentID+ext)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(r, limit+1))
	closeErr := out.Close()

	switch {
	case err != nil:
		err = fmt.Errorf("failed to store upload: %w", err)
	case closeErr != nil:
		err = fmt.Errorf("failed to store upload: %w", closeErr)
	case n > limit:
		err = &domain.ValidationError{Field: "file", Reason: fmt.Sprintf("exceeds the %d byte limit", limit)}
	}

	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}

	return path, n, nil
}

// deletes a stored upload; a missing file is not an error
func (f *FileStore) Remove(path string) error {
	if path == "" {
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}
