package model

// Chunk is a sub-region of a Document passed to the embedder. Its reference
// back to the parent document is weak (relation + lookup only, never
// ownership): only ParentDocumentID is carried, and the orchestrator looks
// the full Document up by ID when it needs one, so the chunk never keeps the
// document alive past its own lifetime.
type Chunk struct {
	ID               string
	ParentDocumentID string
	Content          string
	ChunkIndex       int
	TotalChunks      int
	Metadata         map[string]any
}

// ChunkingStrategy returns the strategy name stamped into metadata, if set.
func (c *Chunk) ChunkingStrategy() string {
	if c.Metadata == nil {
		return ""
	}
	if v, ok := c.Metadata["chunking_strategy"].(string); ok {
		return v
	}
	return ""
}

// EmbeddedChunk is a Chunk plus its dense vector. Len(Vector) must equal the
// collection's configured dimension D.
type EmbeddedChunk struct {
	Chunk  Chunk
	Vector []float32
}

// VectorPoint is the record written to the vector store.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// RequiredPayloadIndexFields lists the payload fields the vector store client
// must create secondary indexes on (spec §3).
var RequiredPayloadIndexFields = []string{
	"document_id",
	"project_id",
	"source_type",
	"source",
	"title",
	"created_at",
	"updated_at",
	"is_attachment",
	"parent_document_id",
	"original_file_type",
	"is_converted",
}
