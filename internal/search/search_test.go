package search

import (
	"context"
	"testing"

	"qdrantloader/internal/nlpanalyzer"
	"qdrantloader/internal/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type fakeVectors struct {
	dense  []vectorstore.Hit
	sparse []vectorstore.Hit
}

func (f fakeVectors) Search(ctx context.Context, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error) {
	return f.dense, nil
}

func (f fakeVectors) Scroll(ctx context.Context, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error) {
	return f.sparse, nil
}

func intPtr(n int) *int { return &n }

func TestSearchCombinesDenseAndSparseHits(t *testing.T) {
	vectors := fakeVectors{
		dense: []vectorstore.Hit{
			{ID: "doc-1", Score: 0.9, Payload: map[string]any{"document_id": "doc-1", "title": "Alpha", "source_type": "git", "content": "alpha beta gamma"}},
			{ID: "doc-2", Score: 0.4, Payload: map[string]any{"document_id": "doc-2", "title": "Beta", "source_type": "confluence", "content": "unrelated text"}},
		},
		sparse: []vectorstore.Hit{
			{ID: "doc-2", Payload: map[string]any{"document_id": "doc-2", "title": "Beta", "source_type": "confluence", "content": "alpha alpha alpha"}},
		},
	}
	engine := New(fakeEmbedder{}, vectors, nlpanalyzer.New())

	results, err := engine.Search(context.Background(), Query{Text: "alpha", Limit: intPtr(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].DocumentID != "doc-1" {
		t.Fatalf("expected doc-1 ranked first by dense dominance, got %s", results[0].DocumentID)
	}
}

func TestSearchFiltersBySourceType(t *testing.T) {
	vectors := fakeVectors{
		dense: []vectorstore.Hit{
			{ID: "doc-1", Score: 0.9, Payload: map[string]any{"document_id": "doc-1", "source_type": "git", "content": "x"}},
			{ID: "doc-2", Score: 0.8, Payload: map[string]any{"document_id": "doc-2", "source_type": "jira", "content": "y"}},
		},
	}
	engine := New(fakeEmbedder{}, vectors, nlpanalyzer.New())

	results, err := engine.Search(context.Background(), Query{Text: "test", Limit: intPtr(5), SourceTypes: []string{"jira"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.SourceType != "jira" {
			t.Fatalf("expected only jira results, got %s", r.SourceType)
		}
	}
}

func TestSearchRespectsMinScore(t *testing.T) {
	// Dense scores are normalized by the best hit, so a weak hit is only
	// dropped relative to a strong one: 0.01/0.9*0.6 is far below 0.3.
	vectors := fakeVectors{
		dense: []vectorstore.Hit{
			{ID: "doc-0", Score: 0.9, Payload: map[string]any{"document_id": "doc-0", "source_type": "git", "content": "x"}},
			{ID: "doc-1", Score: 0.01, Payload: map[string]any{"document_id": "doc-1", "source_type": "git", "content": "x"}},
		},
	}
	engine := New(fakeEmbedder{}, vectors, nlpanalyzer.New()).WithWeights(Weights{VectorWeight: 0.6, KeywordWeight: 0.3, MetadataWeight: 0.1, MinScore: 0.3})

	results, err := engine.Search(context.Background(), Query{Text: "test", Limit: intPtr(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].DocumentID != "doc-0" {
		t.Fatalf("expected only doc-0 above min_score, got %+v", results)
	}
}

func TestSearchExplicitZeroLimitReturnsEmptyNotError(t *testing.T) {
	vectors := fakeVectors{
		dense: []vectorstore.Hit{
			{ID: "doc-1", Score: 0.9, Payload: map[string]any{"document_id": "doc-1", "source_type": "git", "content": "x"}},
		},
	}
	engine := New(fakeEmbedder{}, vectors, nlpanalyzer.New())

	results, err := engine.Search(context.Background(), Query{Text: "test", Limit: intPtr(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result list for an explicit limit of 0, got %d", len(results))
	}
}

func TestSearchUnsetLimitDefaultsToFive(t *testing.T) {
	vectors := fakeVectors{
		dense: []vectorstore.Hit{
			{ID: "doc-1", Score: 0.9, Payload: map[string]any{"document_id": "doc-1", "source_type": "git", "content": "alpha"}},
			{ID: "doc-2", Score: 0.8, Payload: map[string]any{"document_id": "doc-2", "source_type": "git", "content": "alpha"}},
			{ID: "doc-3", Score: 0.7, Payload: map[string]any{"document_id": "doc-3", "source_type": "git", "content": "alpha"}},
			{ID: "doc-4", Score: 0.6, Payload: map[string]any{"document_id": "doc-4", "source_type": "git", "content": "alpha"}},
			{ID: "doc-5", Score: 0.5, Payload: map[string]any{"document_id": "doc-5", "source_type": "git", "content": "alpha"}},
			{ID: "doc-6", Score: 0.4, Payload: map[string]any{"document_id": "doc-6", "source_type": "git", "content": "alpha"}},
		},
	}
	engine := New(fakeEmbedder{}, vectors, nlpanalyzer.New())

	results, err := engine.Search(context.Background(), Query{Text: "alpha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected the default limit of 5 to apply when Limit is unset, got %d", len(results))
	}
}
