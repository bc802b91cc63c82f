// Package embedclient wraps an OpenAI-compatible embeddings endpoint.
// Grounded on internal/llm/openai/client.go's construction pattern (sdk
// client built from option.WithAPIKey/WithBaseURL/WithHTTPClient) and on
// internal/embedding/client.go's batching/timeout/error-wrapping shape,
// swapped from a hand-rolled HTTP POST onto the openai-go/v2 SDK.
package embedclient

import (
	"context"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"qdrantloader/internal/apperror"
)

// Config configures Client.
type Config struct {
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// Client embeds batches of text via an OpenAI-compatible endpoint.
type Client struct {
	sdk       openai.Client
	model     string
	dims      int
	batchSize int
	timeout   time.Duration
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Client{
		sdk:       openai.NewClient(opts...),
		model:     cfg.Model,
		dims:      cfg.Dimensions,
		batchSize: batchSize,
		timeout:   timeout,
	}
}

// Dimensions returns the embedding vector length this client produces, if
// configured (0 means "whatever the model returns").
func (c *Client) Dimensions() int { return c.dims }

// EmbedBatch embeds inputs in chunks of c.batchSize, preserving order, and
// returns one vector per input. The ingestion pipeline's embed worker calls
// this once per chunk batch (spec §4.3).
func (c *Client) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		vecs, err := c.embedOne(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedOne(ctx context.Context, batch []string) ([][]float32, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
	}
	if c.dims > 0 {
		params.Dimensions = openai.Int(int64(c.dims))
	}

	resp, err := c.sdk.Embeddings.New(cctx, params)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindTransient, "embedding request failed", err)
	}
	if len(resp.Data) != len(batch) {
		return nil, apperror.New(apperror.KindIntegrity, "embedding response count mismatch")
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[i] = vec
	}
	return out, nil
}
