package collections

const (
	collectionColumns = `
		c.id, c.user_id, c.name, c.description, c.embedding_model, c.dimension,
		(SELECT COUNT(*) FROM documents d WHERE d.collection_id = c.id) AS document_count,
		c.created_at, c.updated_at
	`

	queryCreate = `
		INSERT INTO collections (id, user_id, name, description, embedding_model, dimension)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, name, description, embedding_model, dimension, 0, created_at, updated_at
	`

	queryGet = `SELECT ` + collectionColumns + ` FROM collections c WHERE c.id = $1 AND c.user_id = $2`

	queryGetByID = `SELECT ` + collectionColumns + ` FROM collections c WHERE c.id = $1`

	queryGetByName = `SELECT ` + collectionColumns + ` FROM collections c WHERE c.user_id = $1 AND c.name = $2`

	queryList = `
		SELECT ` + collectionColumns + `
		FROM collections c
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC
		LIMIT $2 OFFSET $3
	`

	queryCountByUser = `SELECT COUNT(*) FROM collections WHERE user_id = $1`

	queryDelete = `DELETE FROM collections WHERE id = $1 AND user_id = $2`

	queryUpdate = `
		WITH updated AS (
			UPDATE collections
			SET name = COALESCE($3, name),
				description = COALESCE($4, description),
				updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING *
		)
		SELECT ` + collectionColumns + ` FROM updated c
	`

	queryStats = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(SUM(chunk_count) FILTER (WHERE status = 'completed'), 0)
		FROM documents
		WHERE collection_id = $1
	`

	queryCountCompleted = `
		SELECT COUNT(*) FROM documents
		WHERE collection_id = $1 AND status = 'completed'
	`
)
