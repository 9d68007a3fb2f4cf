package documents

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/docuchat/server/api/rest/pagination"
	"codeberg.org/docuchat/server/internal/auth"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/errors"
	"codeberg.org/docuchat/server/internal/ingest"
	"codeberg.org/docuchat/server/internal/logger"
)

const (
	// multipart overhead allowed on top of the files themselves
	formOverhead = 1 << 20

	maxFilesPerUpload = 20
)

// UploadDocumentHandler stores one file ("file") or several ("files") and
// queues each for ingestion. every file is validated before any is stored.
func UploadDocumentHandler(library Library, ingester Ingester, maxUpload int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		collectionID, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		if _, err := library.Get(c.Request.Context(), collectionID, userID); err != nil {
			errors.Respond(c, "collection", err)
			return
		}

		if maxUpload > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload*maxFilesPerUpload+formOverhead)
		}

		form, err := c.MultipartForm()
		if errors.BodyTooLarge(err) {
			errors.ValidationError(c, tooLarge("file", maxUpload))
			return
		}
		if err != nil {
			errors.BadRequest(c, "multipart form with \"file\" or \"files\" is required", err)
			return
		}

		headers, batch := form.File["files"], true
		if len(headers) == 0 {
			headers, batch = form.File["file"], false
		}

		if err := checkFiles(headers, ingester, maxUpload); err != nil {
			errors.Respond(c, "document", err)
			return
		}

		uploaded := make([]UploadResponse, 0, len(headers))

		for _, header := range headers {
			doc, err := uploadOne(c, ingester, collectionID, header)
			if err != nil {
				errors.Respond(c, "document", err)
				return
			}

			uploaded = append(uploaded, UploadResponse{
				DocumentID: doc.ID,
				Filename:   doc.Filename,
				Status:     doc.Status,
			})
		}

		if !batch {
			c.JSON(http.StatusAccepted, uploaded[0])
			return
		}

		c.JSON(http.StatusAccepted, UploadBatchResponse{Documents: uploaded})
	}
}

func checkFiles(headers []*multipart.FileHeader, ingester Ingester, maxUpload int64) error {
	switch {
	case len(headers) == 0:
		return &domain.ValidationError{Field: "file", Reason: "at least one file is required"}
	case len(headers) > maxFilesPerUpload:
		return &domain.ValidationError{Field: "files", Reason: fmt.Sprintf("at most %d files per upload", maxFilesPerUpload)}
	}

	for _, header := range headers {
		if err := ingester.ValidateFilename(header.Filename); err != nil {
			return err
		}

		if maxUpload > 0 && header.Size > maxUpload {
			return tooLarge(header.Filename, maxUpload)
		}
	}

	return nil
}

func uploadOne(c *gin.Context, ingester Ingester, collectionID string, header *multipart.FileHeader) (*domain.Document, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q: %w", header.Filename, err)
	}

	defer file.Close() //nolint:errcheck

	doc, err := ingester.Upload(c.Request.Context(), ingest.Upload{
		CollectionID: collectionID,
		Filename:     header.Filename,
		Content:      file,
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(c.Request.Context()).Info("document uploaded",
		"document_id", doc.ID,
		"collection_id", collectionID,
		"file_size", doc.FileSize,
	)

	return doc, nil
}

func tooLarge(field string, maxUpload int64) *domain.ValidationError {
	return &domain.ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("larger than the %d byte upload limit", maxUpload),
	}
}

// ListDocumentsHandler pages through the documents of a collection
func ListDocumentsHandler(library Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		collectionID, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		params := pagination.FromQuery(c)

		docs, total, err := library.Documents(c.Request.Context(), collectionID, userID, params.Limit, params.Offset)
		if err != nil {
			errors.Respond(c, "collection", err)
			return
		}

		c.JSON(http.StatusOK, DocumentsListResponse{
			Documents:  docs,
			Pagination: pagination.NewMeta(params, total),
		})
	}
}

// GetDocumentHandler returns a document with its ingestion status
func GetDocumentHandler(library Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, ok := ownedDocument(c, library)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

// ReprocessDocumentHandler requeues a failed or completed document
func ReprocessDocumentHandler(library Library, ingester Ingester) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, ok := ownedDocument(c, library)
		if !ok {
			return
		}

		doc, err := ingester.Reprocess(c.Request.Context(), doc.ID)
		if err != nil {
			errors.Respond(c, "document", err)
			return
		}

		c.JSON(http.StatusAccepted, doc)
	}
}

// DeleteDocumentHandler cancels any running job, then removes vectors, record and file
func DeleteDocumentHandler(library Library, ingester Ingester) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, ok := ownedDocument(c, library)
		if !ok {
			return
		}

		if err := ingester.Delete(c.Request.Context(), doc.ID); err != nil {
			errors.Respond(c, "document", err)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "document deleted"})
	}
}

func ownedDocument(c *gin.Context, library Library) (*domain.Document, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "")
		return nil, false
	}

	documentID, ok := errors.ValidatePathUUID(c, "id")
	if !ok {
		return nil, false
	}

	doc, err := library.Document(c.Request.Context(), documentID, userID)
	if err != nil {
		errors.Respond(c, "document", err)
		return nil, false
	}

	return doc, true
}
