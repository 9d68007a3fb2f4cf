package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/docuchat/server/internal/config"
	"codeberg.org/docuchat/server/internal/vectorstore"
)

func TestOpenVectorStore(t *testing.T) {
	store, err := OpenVectorStore(config.VectorStoreConfig{Kind: "memory"}, nil, 0)
	require.NoError(t, err)
	assert.IsType(t, &vectorstore.MemoryStore{}, store)

	store, err = OpenVectorStore(config.VectorStoreConfig{Kind: "qdrant", QdrantURL: "http://localhost:6333"}, nil, 0)
	require.NoError(t, err)
	assert.IsType(t, &vectorstore.QdrantStore{}, store)

	store, err = OpenVectorStore(config.VectorStoreConfig{Kind: "chromem"}, nil, 0)
	require.NoError(t, err)
	assert.IsType(t, &vectorstore.ChromemStore{}, store)

	_, err = OpenVectorStore(config.VectorStoreConfig{Kind: "faiss"}, nil, 0)
	assert.Error(t, err)
}
