package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/logger"
	"codeberg.org/docuchat/server/internal/retry"
)

type Upload struct {
	CollectionID string
	Filename     string
	Content      io.Reader
}

type ServiceOptions struct {
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// the document-facing surface: uploads, reprocessing, deletion and
// startup recovery. processing itself is handed to a Dispatcher.
type Service struct {
	pipeline   *Pipeline
	docs       DocumentStore
	files      *FileStore
	dispatcher Dispatcher
	opts       ServiceOptions
}

func NewService(pipeline *Pipeline, docs DocumentStore, files *FileStore, dispatcher Dispatcher, opts ServiceOptions) *Service {
	return &Service{
		pipeline:   pipeline,
		docs:       docs,
		files:      files,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// stores the file, records a pending document and dispatches it
func (s *Service) Upload(ctx context.Context, up Upload) (*domain.Document, error) {
	if err := s.ValidateFilename(up.Filename); err != nil {
		return nil, err
	}

	id := uuid.NewString()

	path, size, err := s.files.Save(id, up.Filename, up.Content, s.opts.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.Create(ctx, &domain.Document{
		ID:           id,
		CollectionID: up.CollectionID,
		Filename:     filepath.Base(up.Filename),
		FilePath:     path,
		FileType:     strings.TrimPrefix(strings.ToLower(filepath.Ext(up.Filename)), "."),
		FileSize:     size,
	})
	if err != nil {
		_ = s.files.Remove(path)
		return nil, err
	}

	s.dispatch(ctx, doc.ID)
	return doc, nil
}

// rejects names whose extension is not allowed or has no extractor
func (s *Service) ValidateFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == "" || !slices.Contains(s.opts.AllowedExtensions, ext) {
		return &domain.ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("unsupported file type %q, allowed: %s", ext, strings.Join(s.opts.AllowedExtensions, " ")),
		}
	}

	if !s.pipeline.extractor.Supports(filename) {
		return &domain.ValidationError{Field: "file", Reason: fmt.Sprintf("no extractor for %q", ext)}
	}

	return nil
}

// sends a failed or completed document through the pipeline again
func (s *Service) Reprocess(ctx context.Context, documentID string) (*domain.Document, error) {
	if err := s.docs.Reset(ctx, documentID); err != nil {
		return nil, err
	}

	s.dispatch(ctx, documentID)
	return s.docs.Get(ctx, documentID)
}

// cancels any in-flight job, removes the document's vectors, then the
// record and its file. the record stays when vectors cannot be removed so
// the delete can be retried.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.pipeline.Cancel(ctx, documentID, ErrDeleted); err != nil {
		return err
	}

	if err := s.pipeline.rollback(ctx, doc); err != nil {
		return err
	}

	if err := s.docs.Delete(ctx, documentID); err != nil {
		return err
	}

	if err := s.files.Remove(doc.FilePath); err != nil {
		logger.ErrorErr(err, "failed to remove document file", "document_id", documentID)
	}

	return nil
}

// cancels every job of a collection and drops its vector index; the
// caller deletes the collection record, which cascades to documents
func (s *Service) PurgeCollection(ctx context.Context, collectionID string) error {
	ids, err := s.docs.ListIDsByCollection(ctx, collectionID)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(ids))

	for _, id := range ids {
		if err := s.pipeline.Cancel(ctx, id, ErrDeleted); err != nil {
			return err
		}

		if doc, err := s.docs.Get(ctx, id); err == nil {
			paths = append(paths, doc.FilePath)
		}
	}

	_, err = retry.Do(ctx, s.pipeline.opts.Retry, func(ctx context.Context) error {
		return s.pipeline.store.DeleteCollection(ctx, collectionID)
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	for _, path := range paths {
		if err := s.files.Remove(path); err != nil {
			logger.ErrorErr(err, "failed to remove document file", "collection", collectionID)
		}
	}

	return nil
}

// resets documents a crashed process left in processing and dispatches
// everything pending
func (s *Service) Recover(ctx context.Context) error {
	stale, err := s.docs.ResetStale(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset stale documents: %w", err)
	}

	if len(stale) > 0 {
		logger.Warn("reset documents interrupted by a previous run", "count", len(stale))
	}

	pending, err := s.docs.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending documents: %w", err)
	}

	for _, id := range pending {
		s.dispatch(ctx, id)
	}

	if len(pending) > 0 {
		logger.Info("dispatched pending documents", "count", len(pending))
	}

	return nil
}

// a document that cannot be dispatched stays pending until the next recovery
func (s *Service) dispatch(ctx context.Context, documentID string) {
	if err := s.dispatcher.Dispatch(ctx, documentID); err != nil {
		logger.ErrorErr(err, "failed to dispatch document", "document_id", documentID)
	}
}
