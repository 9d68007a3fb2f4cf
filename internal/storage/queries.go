package storage

const (
	ensureVectorCollectionQuery = `
		INSERT INTO vector_collections (name, dimension)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`

	getVectorCollectionDimensionQuery = `SELECT dimension FROM vector_collections WHERE name = $1`

	deleteVectorCollectionQuery = `DELETE FROM vector_collections WHERE name = $1`

	upsertChunkQuery = `
		INSERT INTO chunk_embeddings (collection, id, document_id, chunk_index, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		ON CONFLICT (collection, id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chunk_index = EXCLUDED.chunk_index,
			content     = EXCLUDED.content,
			metadata    = EXCLUDED.metadata,
			embedding   = EXCLUDED.embedding
	`

	deleteDocumentChunksQuery = `DELETE FROM chunk_embeddings WHERE collection = $1 AND document_id = $2`

	countCollectionChunksQuery = `SELECT COUNT(*) FROM chunk_embeddings WHERE collection = $1`

	countDocumentChunksQuery = `SELECT COUNT(*) FROM chunk_embeddings WHERE collection = $1 AND document_id = $2`

	// cosine distance; score = 1 - distance so higher is closer
	searchChunksQuery = `
		SELECT id, content, metadata, 1 - (embedding <=> $2) AS score
		FROM chunk_embeddings
		WHERE collection = $1 AND metadata @> $4::jsonb
		ORDER BY score DESC, chunk_index ASC, document_id ASC
		LIMIT $3
	`
)
