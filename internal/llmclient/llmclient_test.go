package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"qdrantloader/internal/model"
)

func fakeChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "m",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClassifyConflictParsesVerdict(t *testing.T) {
	ts := fakeChatServer(t, `{"category": "version_mismatch", "explanation": "doc b supersedes doc a"}`)
	defer ts.Close()

	c := New(Config{Model: "m", BaseURL: ts.URL, APIKey: "k"})
	a := model.SearchResult{DocumentID: "a", Title: "Doc A", Metadata: map[string]any{"content": "v1 content"}}
	b := model.SearchResult{DocumentID: "b", Title: "Doc B", Metadata: map[string]any{"content": "v2 content"}}

	category, explanation, err := c.ClassifyConflict(context.Background(), a, b, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if category != "version_mismatch" {
		t.Fatalf("expected version_mismatch, got %q", category)
	}
	if explanation != "doc b supersedes doc a" {
		t.Fatalf("unexpected explanation %q", explanation)
	}
}

func TestClassifyConflictMalformedJSONErrors(t *testing.T) {
	ts := fakeChatServer(t, "not json")
	defer ts.Close()

	c := New(Config{Model: "m", BaseURL: ts.URL, APIKey: "k"})
	a := model.SearchResult{DocumentID: "a"}
	b := model.SearchResult{DocumentID: "b"}

	if _, _, err := c.ClassifyConflict(context.Background(), a, b, 100); err == nil {
		t.Fatal("expected an error parsing a non-JSON LLM response")
	}
}

func TestTruncateRespectsWindow(t *testing.T) {
	if got := truncate("hello world", 5); got != "hello" {
		t.Fatalf("expected truncation to 5 chars, got %q", got)
	}
	if got := truncate("short", 100); got != "short" {
		t.Fatalf("expected string shorter than window to pass through unchanged, got %q", got)
	}
}

func TestContentOfPrefersMetadataContentOverTitle(t *testing.T) {
	r := model.SearchResult{Title: "fallback title", Metadata: map[string]any{"content": "actual content"}}
	if got := contentOf(r); got != "actual content" {
		t.Fatalf("expected metadata content to win, got %q", got)
	}
	r2 := model.SearchResult{Title: "fallback title"}
	if got := contentOf(r2); got != "fallback title" {
		t.Fatalf("expected fallback to title, got %q", got)
	}
}
