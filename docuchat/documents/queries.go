package documents

const (
	documentColumns = `
		id, collection_id, filename, file_path, file_type, file_size, status,
		chunk_count, COALESCE(error_message, ''), COALESCE(claim_token, ''),
		created_at, updated_at, processed_at
	`

	queryCreate = `
		INSERT INTO documents (id, collection_id, filename, file_path, file_type, file_size, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING ` + documentColumns

	queryGet = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	queryListByCollection = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE collection_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	queryCountByCollection = `SELECT COUNT(*) FROM documents WHERE collection_id = $1`

	queryListIDsByCollection = `SELECT id FROM documents WHERE collection_id = $1`

	// the only way into processing: a single compare-and-set on status
	queryClaim = `
		UPDATE documents
		SET status = 'processing', claim_token = $2, chunk_count = 0,
		    error_message = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + documentColumns

	queryComplete = `
		UPDATE documents
		SET status = 'completed', chunk_count = $3, claim_token = NULL,
		    error_message = NULL, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND claim_token = $2 AND status = 'processing'
	`

	queryFail = `
		UPDATE documents
		SET status = 'failed', chunk_count = 0, claim_token = NULL,
		    error_message = $3, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND claim_token = $2 AND status = 'processing'
	`

	queryReset = `
		UPDATE documents
		SET status = 'pending', error_message = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('failed', 'completed')
	`

	queryResetStale = `
		UPDATE documents
		SET status = 'pending', claim_token = NULL, chunk_count = 0, updated_at = NOW()
		WHERE status = 'processing'
		RETURNING id
	`

	queryListPending = `SELECT id FROM documents WHERE status = 'pending' ORDER BY created_at`

	queryDelete = `DELETE FROM documents WHERE id = $1`
)
