package embedclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeEmbeddingsServer(t *testing.T, wantAuth string, vectorLen int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); wantAuth != "" && got != wantAuth {
			t.Fatalf("expected Authorization %q, got %q", wantAuth, got)
		}
		var body struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		data := make([]map[string]any, len(body.Input))
		for i := range body.Input {
			vec := make([]float32, vectorLen)
			for j := range vec {
				vec[j] = float32(i + j)
			}
			data[i] = map[string]any{"embedding": vec, "index": i, "object": "embedding"}
		}
		resp := map[string]any{"data": data, "model": "m", "object": "list"}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedBatchPreservesOrderAndCount(t *testing.T) {
	ts := fakeEmbeddingsServer(t, "Bearer secret", 3)
	defer ts.Close()

	c := New(Config{Model: "m", BaseURL: ts.URL, APIKey: "secret"})
	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 3 {
			t.Fatalf("vector %d: expected length 3, got %d", i, len(v))
		}
	}
}

func TestEmbedBatchSplitsAcrossConfiguredBatchSize(t *testing.T) {
	var callCount int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		var body struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Input) > 2 {
			t.Fatalf("expected batches of at most 2, got %d", len(body.Input))
		}
		data := make([]map[string]any, len(body.Input))
		for i := range body.Input {
			data[i] = map[string]any{"embedding": []float32{float32(i)}, "index": i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer ts.Close()

	c := New(Config{Model: "m", BaseURL: ts.URL, APIKey: "k", BatchSize: 2})
	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vecs))
	}
	if callCount != 3 {
		t.Fatalf("expected 3 batched requests (2+2+1), got %d", callCount)
	}
}

func TestEmbedBatchEmptyInputReturnsNil(t *testing.T) {
	c := New(Config{Model: "m", BaseURL: "http://unused.invalid", APIKey: "k"})
	vecs, err := c.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil {
		t.Fatalf("expected nil result for empty input, got %v", vecs)
	}
}

func TestEmbedBatchResponseCountMismatchErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{{"embedding": []float32{0.1}, "index": 0}}})
	}))
	defer ts.Close()

	c := New(Config{Model: "m", BaseURL: ts.URL, APIKey: "k"})
	if _, err := c.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected an error on response/input count mismatch")
	}
}

func TestDimensionsReturnsConfiguredValue(t *testing.T) {
	c := New(Config{Model: "m", BaseURL: "http://unused.invalid", APIKey: "k", Dimensions: 1536})
	if got := c.Dimensions(); got != 1536 {
		t.Fatalf("expected 1536, got %d", got)
	}
}
