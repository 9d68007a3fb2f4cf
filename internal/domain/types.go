package domain

import (
	"fmt"
	"strconv"
	"time"
)

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}

	return false
}

type Collection struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	DocumentCount  int       `json:"document_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// document and vector totals of a collection. TotalChunks sums the
// chunk_count of completed documents and should equal VectorCount.
type CollectionStats struct {
	CollectionID string `json:"collection_id"`
	Documents    int    `json:"document_count"`
	Pending      int    `json:"pending_count"`
	Processing   int    `json:"processing_count"`
	Completed    int    `json:"completed_count"`
	Failed       int    `json:"failed_count"`
	TotalChunks  int    `json:"total_chunks"`
	VectorCount  int    `json:"vector_count"`
}

type Document struct {
	ID           string         `json:"id"`
	CollectionID string         `json:"collection_id"`
	Filename     string         `json:"filename"`
	FilePath     string         `json:"-"`
	FileType     string         `json:"file_type"`
	FileSize     int64          `json:"file_size"`
	Status       DocumentStatus `json:"status"`
	ChunkCount   int            `json:"chunk_count"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ClaimToken   string         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
}

// payload stored next to every chunk vector
type ChunkMetadata struct {
	DocumentID    string `json:"document_id"`
	ChunkIndex    int    `json:"chunk_index"`
	TotalChunks   int    `json:"total_chunks"`
	Filename      string `json:"filename"`
	Title         string `json:"title,omitempty"`
	CollectionID  string `json:"collection_id,omitempty"`
	ContentLength int    `json:"content_length"`
}

// flattens metadata for stores that only accept string maps
func (m ChunkMetadata) ToMap() map[string]string {
	return map[string]string{
		"document_id":    m.DocumentID,
		"chunk_index":    strconv.Itoa(m.ChunkIndex),
		"total_chunks":   strconv.Itoa(m.TotalChunks),
		"filename":       m.Filename,
		"title":          m.Title,
		"collection_id":  m.CollectionID,
		"content_length": strconv.Itoa(m.ContentLength),
	}
}

func ChunkMetadataFromMap(m map[string]string) ChunkMetadata {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}

	return ChunkMetadata{
		DocumentID:    m["document_id"],
		ChunkIndex:    atoi(m["chunk_index"]),
		TotalChunks:   atoi(m["total_chunks"]),
		Filename:      m["filename"],
		Title:         m["title"],
		CollectionID:  m["collection_id"],
		ContentLength: atoi(m["content_length"]),
	}
}

// reports whether every key in filter equals the corresponding metadata field
func (m ChunkMetadata) Matches(filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}

	flat := m.ToMap()
	for k, v := range filter {
		if flat[k] != v {
			return false
		}
	}

	return true
}

// filter values typed like the stored metadata, for stores that compare JSON values
func TypedFilter(filter map[string]string) map[string]any {
	out := make(map[string]any, len(filter))

	for k, v := range filter {
		out[k] = v

		switch k {
		case "chunk_index", "total_chunks", "content_length":
			if n, err := strconv.Atoi(v); err == nil {
				out[k] = n
			}
		}
	}

	return out
}

// deterministic vector id so re-upserting a chunk replaces it
func VectorID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s:%d", documentID, chunkIndex)
}

type VectorEntry struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata ChunkMetadata
}

type Hit struct {
	ID       string        `json:"id"`
	Score    float32       `json:"score"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// a retrieved chunk as persisted on assistant messages
type Source struct {
	Content  string        `json:"content"`
	Score    float32       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

func SourcesFromHits(hits []Hit) []Source {
	sources := make([]Source, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, Source{Content: h.Content, Score: h.Score, Metadata: h.Metadata})
	}

	return sources
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ChatSession struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	CollectionID       string    `json:"collection_id"`
	Title              string    `json:"title"`
	LLMModel           string    `json:"llm_model"`
	Temperature        float64   `json:"temperature"`
	MaxTokens          int       `json:"max_tokens"`
	TopK               int       `json:"top_k"`
	SystemPrompt       string    `json:"system_prompt,omitempty"`
	CustomInstructions string    `json:"custom_instructions,omitempty"`
	PromptTemplate     string    `json:"prompt_template,omitempty"`
	Personality        string    `json:"ai_personality,omitempty"`
	ResponseStyle      string    `json:"response_style,omitempty"`
	Voice              string    `json:"voice,omitempty"`
	MessageCount       int       `json:"message_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Message struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Sources     []Source  `json:"sources,omitempty"`
	Model       string    `json:"llm_used,omitempty"`
	AudioURL    *string   `json:"audio_url,omitempty"`
	Translation *string   `json:"translated_content,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
