// Package config loads and validates the YAML configuration described in
// spec §6: a top-level `global` section (embedding/vector store/state/
// chunking parameters) and a `projects` section (project_id -> settings).
package config

import (
	"github.com/rs/zerolog/log"

	"qdrantloader/internal/model"
)

// Config is the fully parsed, validated configuration tree.
type Config struct {
	Global   GlobalConfig              `yaml:"global"`
	Projects map[string]ProjectConfig  `yaml:"projects"`
}

// GlobalConfig holds embedding/vector-store/state/chunking defaults shared
// across all projects unless a project overrides them.
type GlobalConfig struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	State     StateConfig     `yaml:"state"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Search    SearchConfig    `yaml:"search"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// HTTPConfig configures the HTTP/SSE transport's graceful-shutdown phases
// and session lifecycle (spec §4.13). Overridable via
// MCP_HTTP_DRAIN_TIMEOUT_SECONDS / MCP_HTTP_SHUTDOWN_TIMEOUT_SECONDS.
type HTTPConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	DrainTimeoutSec       int    `yaml:"drain_timeout_seconds"`
	ShutdownTimeoutSec    int    `yaml:"shutdown_timeout_seconds"`
	SessionIdleTimeoutSec int    `yaml:"session_idle_timeout_seconds"`
}

// EmbeddingConfig configures the embedding provider client.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

// QdrantConfig configures the vector store connection.
type QdrantConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	CollectionName string `yaml:"collection_name"`
	VectorSize     int    `yaml:"vector_size"`
	Distance       string `yaml:"distance"`
}

// DefaultVectorSize is the documented fallback used when vector_size is not
// configured, per spec §7 ("falls back to the documented default (1536)").
const DefaultVectorSize = 1536

// StateConfig configures the relational state store (spec §6: ingestion_history).
type StateConfig struct {
	DBPath          string `yaml:"db_path"`
	ConnPoolSize    int    `yaml:"connection_pool_size"`
	ConnPoolTimeout int    `yaml:"connection_pool_timeout_seconds"`
}

// ChunkingConfig holds the default knobs for all four chunking strategies
// (spec §4.2). Strategy-specific overrides live in chunking.Options but
// default from this struct.
type ChunkingConfig struct {
	ChunkSize              int `yaml:"chunk_size"`
	ChunkOverlap           int `yaml:"chunk_overlap"`
	MaxChunksPerDocument   int `yaml:"max_chunks_per_document"`
	SimpleParsingThreshold int `yaml:"simple_parsing_threshold"`
	MaxSectionsToProcess   int `yaml:"max_sections_to_process"`
	MaxChunkSizeForNLP     int `yaml:"max_chunk_size_for_nlp"`
	MaxFileSizeForAST      int `yaml:"max_file_size_for_ast"`
	MaxRecursionDepthCode  int `yaml:"max_recursion_depth_code"`
	MaxElementsToProcess   int `yaml:"max_elements_to_process"`
	MaxElementSize         int `yaml:"max_element_size"`
	MaxJSONSizeForParsing  int `yaml:"max_json_size_for_parsing"`
	MaxRecursionDepthJSON  int `yaml:"max_recursion_depth_json"`
	MaxObjectsToProcess    int `yaml:"max_objects_to_process"`
	MaxObjectKeysToProcess int `yaml:"max_object_keys_to_process"`
	MaxArrayItemsPerChunk  int `yaml:"max_array_items_per_chunk"`
}

// PipelineConfig holds ingestion pipeline worker-pool and timeout settings
// (spec §4.3).
type PipelineConfig struct {
	QueueCapacity     int `yaml:"queue_capacity"`
	MaxChunkWorkers   int `yaml:"max_chunk_workers"`
	MaxEmbedWorkers   int `yaml:"max_embed_workers"`
	MaxUpsertWorkers  int `yaml:"max_upsert_workers"`
	UpsertBatchSize   int `yaml:"upsert_batch_size"`
	PipelineTimeoutSec int `yaml:"pipeline_timeout_seconds"`
}

// SearchConfig holds the hybrid search engine's default weights (spec §4.7).
type SearchConfig struct {
	VectorWeight   float64 `yaml:"vector_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	MetadataWeight float64 `yaml:"metadata_weight"`
	MinScore       float64 `yaml:"min_score"`
}

// ProjectConfig is one entry in the `projects` map.
type ProjectConfig struct {
	DisplayName string                   `yaml:"display_name"`
	Description string                   `yaml:"description"`
	Sources     SourcesConfigYAML        `yaml:"sources"`
	Overrides   map[string]any           `yaml:"overrides"`
}

// SourcesConfigYAML is the YAML shape of model.SourcesConfig.
type SourcesConfigYAML struct {
	Git        []SourceConfigYAML `yaml:"git"`
	Confluence []SourceConfigYAML `yaml:"confluence"`
	Jira       []SourceConfigYAML `yaml:"jira"`
	PublicDocs []SourceConfigYAML `yaml:"publicdocs"`
	LocalFile  []SourceConfigYAML `yaml:"localfile"`
}

// SourceConfigYAML is one named source instance.
type SourceConfigYAML struct {
	Name     string         `yaml:"name"`
	Settings map[string]any `yaml:",inline"`
}

// ToModel converts the YAML-shaped sources config into model.SourcesConfig.
func (s SourcesConfigYAML) ToModel() model.SourcesConfig {
	conv := func(in []SourceConfigYAML) []model.SourceConfig {
		out := make([]model.SourceConfig, 0, len(in))
		for _, sc := range in {
			out = append(out, model.SourceConfig{Name: sc.Name, Settings: sc.Settings})
		}
		return out
	}
	return model.SourcesConfig{
		Git:        conv(s.Git),
		Confluence: conv(s.Confluence),
		Jira:       conv(s.Jira),
		PublicDocs: conv(s.PublicDocs),
		LocalFile:  conv(s.LocalFile),
	}
}

// Defaults returns a GlobalConfig populated with every default named in
// spec §4.2-§4.7 and §7, so a minimal YAML document still produces a fully
// usable configuration.
func Defaults() GlobalConfig {
	return GlobalConfig{
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			BaseURL:    "https://api.openai.com/v1",
			Dimensions: 0, // 0 means "derive from provider"; DefaultVectorSize is the collection fallback.
			BatchSize:  32,
			TimeoutSec: 300,
		},
		Qdrant: QdrantConfig{
			URL:            "http://localhost:6334",
			CollectionName: "qdrant_loader",
			VectorSize:     0,
			Distance:       "cosine",
		},
		State: StateConfig{
			DBPath:          "./state.db",
			ConnPoolSize:    5,
			ConnPoolTimeout: 30,
		},
		Chunking: ChunkingConfig{
			ChunkSize:              1500,
			ChunkOverlap:           200,
			MaxChunksPerDocument:   500,
			SimpleParsingThreshold: 100_000,
			MaxSectionsToProcess:   200,
			MaxChunkSizeForNLP:     20_000,
			MaxFileSizeForAST:      75_000,
			MaxRecursionDepthCode:  8,
			MaxElementsToProcess:   800,
			MaxElementSize:         20_000,
			MaxJSONSizeForParsing:  1_000_000,
			MaxRecursionDepthJSON:  5,
			MaxObjectsToProcess:    200,
			MaxObjectKeysToProcess: 100,
			MaxArrayItemsPerChunk:  50,
		},
		Pipeline: PipelineConfig{
			QueueCapacity:      1000,
			MaxChunkWorkers:    10,
			MaxEmbedWorkers:    4,
			MaxUpsertWorkers:   4,
			UpsertBatchSize:    0, // 0 means "defaults to embedding.batch_size"
			PipelineTimeoutSec: 3600,
		},
		Search: SearchConfig{
			VectorWeight:   0.6,
			KeywordWeight:  0.3,
			MetadataWeight: 0.1,
			MinScore:       0.3,
		},
		HTTP: HTTPConfig{
			Host:                  "127.0.0.1",
			Port:                  8080,
			DrainTimeoutSec:       10,
			ShutdownTimeoutSec:    30,
			SessionIdleTimeoutSec: 3600,
		},
	}
}

// EffectiveVectorSize returns qdrant.vector_size when set, else
// embedding.dimensions when set, else DefaultVectorSize, logging a warning
// when it falls back to the default.
func (g GlobalConfig) EffectiveVectorSize() int {
	if g.Qdrant.VectorSize > 0 {
		return g.Qdrant.VectorSize
	}
	if g.Embedding.Dimensions > 0 {
		return g.Embedding.Dimensions
	}
	log.Warn().Int("vector_size", DefaultVectorSize).Msg("vector size not configured; falling back to the default")
	return DefaultVectorSize
}

// EffectiveUpsertBatchSize returns upsert_batch_size, defaulting to the
// embedding batch size per spec §4.3.
func (g GlobalConfig) EffectiveUpsertBatchSize() int {
	if g.Pipeline.UpsertBatchSize > 0 {
		return g.Pipeline.UpsertBatchSize
	}
	return g.Embedding.BatchSize
}
