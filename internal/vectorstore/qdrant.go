package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/httpx"
)

// namespace for deriving qdrant point ids from "{document_id}:{chunk_index}"
var pointNamespace = uuid.MustParse("6f1c1f0e-5d0c-4a57-9b1e-3f1b8f5e2a10")

type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// remote store speaking the qdrant REST API
type QdrantStore struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu   sync.Mutex
	dims map[string]int
}

type qdrantPayload struct {
	domain.ChunkMetadata
	ChunkID string `json:"chunk_id"`
	Content string `json:"content"`
}

type qdrantPoint struct {
	ID      string        `json:"id"`
	Vector  []float32     `json:"vector"`
	Payload qdrantPayload `json:"payload"`
}

type qdrantCondition struct {
	Key   string `json:"key"`
	Match struct {
		Value any `json:"value"`
	} `json:"match"`
}

type qdrantFilter struct {
	Must []qdrantCondition `json:"must"`
}

type qdrantCollectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      any           `json:"id"`
		Score   float32       `json:"score"`
		Payload qdrantPayload `json:"payload"`
	} `json:"result"`
}

func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &QdrantStore{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpx.NewClient(cfg.Timeout),
		dims:    make(map[string]int),
	}
}

func PointID(entryID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(entryID)).String()
}

func (s *QdrantStore) do(ctx context.Context, method, path string, in, out any) error {
	var headers map[string]string
	if s.apiKey != "" {
		headers = map[string]string{"api-key": s.apiKey}
	}

	return httpx.DoJSON(ctx, s.client, method, s.baseURL+path, headers, in, out)
}

func collectionPath(collection string) string {
	return "/collections/" + url.PathEscape(collection)
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	s.mu.Lock()
	known, ok := s.dims[collection]
	s.mu.Unlock()

	if ok {
		if known != dimension {
			return &domain.DimensionMismatchError{Collection: collection, Expected: known, Got: dimension}
		}
		return nil
	}

	var info qdrantCollectionInfo
	err := s.do(ctx, http.MethodGet, collectionPath(collection), nil, &info)

	var statusErr *domain.HTTPStatusError
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != dimension {
			return &domain.DimensionMismatchError{Collection: collection, Expected: size, Got: dimension}
		}

	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		create := map[string]any{"vectors": map[string]any{"size": dimension, "distance": "Cosine"}}
		if err := s.do(ctx, http.MethodPut, collectionPath(collection), create, nil); err != nil {
			return &domain.VectorStoreError{Op: "create_collection", Collection: collection, Err: err}
		}

		index := map[string]any{"field_name": "document_id", "field_schema": "keyword"}
		if err := s.do(ctx, http.MethodPut, collectionPath(collection)+"/index?wait=true", index, nil); err != nil {
			return &domain.VectorStoreError{Op: "create_index", Collection: collection, Err: err}
		}

	default:
		return &domain.VectorStoreError{Op: "get_collection", Collection: collection, Err: err}
	}

	s.mu.Lock()
	s.dims[collection] = dimension
	s.mu.Unlock()

	return nil
}

func (s *QdrantStore) dimension(collection, op string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dims[collection]
	if !ok {
		return 0, &domain.VectorStoreError{Op: op, Collection: collection, Err: fmt.Errorf("collection %w", domain.ErrNotFound)}
	}

	return d, nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, entries []domain.VectorEntry) error {
	dim, err := s.dimension(collection, "upsert")
	if err != nil {
		return err
	}

	if err := CheckDimension(collection, dim, entryVectors(entries)...); err != nil {
		return err
	}

	points := make([]qdrantPoint, len(entries))
	for i, e := range entries {
		points[i] = qdrantPoint{
			ID:      PointID(e.ID),
			Vector:  e.Vector,
			Payload: qdrantPayload{ChunkMetadata: e.Metadata, ChunkID: e.ID, Content: e.Content},
		}
	}

	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, collectionPath(collection)+"/points?wait=true", body, nil); err != nil {
		return &domain.VectorStoreError{Op: "upsert", Collection: collection, Err: err}
	}

	return nil
}

func (s *QdrantStore) DeleteDocument(ctx context.Context, collection, documentID string) error {
	body := map[string]any{"filter": buildFilter(map[string]string{"document_id": documentID})}

	err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/delete?wait=true", body, nil)

	var statusErr *domain.HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil
	}

	if err != nil {
		return &domain.VectorStoreError{Op: "delete", Collection: collection, Err: err}
	}

	return nil
}

func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, topK int, filter map[string]string) ([]domain.Hit, error) {
	if err := CheckTopK(topK); err != nil {
		return nil, err
	}

	dim, err := s.dimension(collection, "search")
	if err != nil {
		return nil, err
	}

	if err := CheckDimension(collection, dim, query); err != nil {
		return nil, err
	}

	body := map[string]any{
		"vector":       query,
		"limit":        OverFetch(topK),
		"with_payload": true,
	}
	if len(filter) > 0 {
		body["filter"] = buildFilter(filter)
	}

	var resp qdrantSearchResponse
	if err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/search", body, &resp); err != nil {
		return nil, &domain.VectorStoreError{Op: "search", Collection: collection, Err: err}
	}

	hits := make([]domain.Hit, len(resp.Result))
	for i, r := range resp.Result {
		hits[i] = domain.Hit{
			ID:       r.Payload.ChunkID,
			Score:    r.Score,
			Content:  r.Payload.Content,
			Metadata: r.Payload.ChunkMetadata,
		}
	}

	return TopK(hits, topK), nil
}

func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}

	err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/count", map[string]any{"exact": true}, &resp)

	var statusErr *domain.HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return 0, nil
	}

	if err != nil {
		return 0, &domain.VectorStoreError{Op: "count", Collection: collection, Err: err}
	}

	return resp.Result.Count, nil
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	delete(s.dims, collection)
	s.mu.Unlock()

	err := s.do(ctx, http.MethodDelete, collectionPath(collection), nil, nil)

	var statusErr *domain.HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil
	}

	if err != nil {
		return &domain.VectorStoreError{Op: "delete_collection", Collection: collection, Err: err}
	}

	return nil
}

func buildFilter(filter map[string]string) qdrantFilter {
	f := qdrantFilter{Must: make([]qdrantCondition, 0, len(filter))}

	for key, value := range domain.TypedFilter(filter) {
		var c qdrantCondition
		c.Key = key
		c.Match.Value = value
		f.Must = append(f.Must, c)
	}

	return f
}
