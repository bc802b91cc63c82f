// Package llmclient makes the single bounded LLM call cross-document
// conflict detection optionally deepens with (spec §4.11). Grounded on
// internal/embedclient's openai-go/v2 SDK construction pattern, generalized
// from an embeddings call to a single chat-completion call; this is the one
// LLM-backed component SPEC_FULL.md keeps, since generative answer synthesis
// itself is an explicit spec.md Non-goal.
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"qdrantloader/internal/apperror"
	"qdrantloader/internal/model"
)

// Config configures Client.
type Config struct {
	Model   string
	BaseURL string
	APIKey  string
}

// Client deepens a candidate conflict classification via a chat completion.
type Client struct {
	sdk   openai.Client
	model string
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{sdk: openai.NewClient(opts...), model: cfg.Model}
}

type conflictVerdict struct {
	Category    string `json:"category"`
	Explanation string `json:"explanation"`
}

// ClassifyConflict asks the model to pick a conflict category and give a
// one-sentence explanation, given a window of each document's content
// (spec §4.11's detect_conflicts text_window_chars parameter).
func (c *Client) ClassifyConflict(ctx context.Context, a, b model.SearchResult, window int) (string, string, error) {
	prompt := fmt.Sprintf(
		"Document A (%s): %s\n\nDocument B (%s): %s\n\n"+
			"Classify the relationship between these two documents as exactly one of: "+
			"contradiction, version_mismatch, policy_divergence, temporal_inconsistency. "+
			"Reply with JSON: {\"category\": \"...\", \"explanation\": \"...\"}.",
		a.DocumentID, truncate(contentOf(a), window),
		b.DocumentID, truncate(contentOf(b), window),
	)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You classify relationships between enterprise knowledge-base documents. Respond with JSON only."),
			openai.UserMessage(prompt),
		},
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", "", apperror.Wrap(apperror.KindTransient, "classifying conflict via LLM", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", apperror.New(apperror.KindIntegrity, "empty LLM response")
	}

	var verdict conflictVerdict
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return "", "", apperror.Wrap(apperror.KindIntegrity, "parsing LLM conflict verdict", err)
	}
	return verdict.Category, verdict.Explanation, nil
}

func contentOf(r model.SearchResult) string {
	if v, ok := r.Metadata["content"].(string); ok {
		return v
	}
	return r.Title
}

func truncate(s string, window int) string {
	if window <= 0 || len(s) <= window {
		return s
	}
	return s[:window]
}
