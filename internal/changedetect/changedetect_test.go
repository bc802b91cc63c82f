package changedetect

import (
	"context"
	"testing"

	"qdrantloader/internal/model"
)

type fakeStore struct {
	byID map[string]model.IngestionState
	rows []model.IngestionState
}

func (f fakeStore) Get(ctx context.Context, documentID string) (model.IngestionState, bool, error) {
	st, ok := f.byID[documentID]
	return st, ok, nil
}

func (f fakeStore) ListBySource(ctx context.Context, projectID, sourceType, source string) ([]model.IngestionState, error) {
	return f.rows, nil
}

func TestDetectClassifiesNewUpdatedUnchanged(t *testing.T) {
	docA := model.Document{ID: "a", Content: "same"}
	docB := model.Document{ID: "b", Content: "changed"}
	docC := model.Document{ID: "c", Content: "brand new"}

	store := fakeStore{byID: map[string]model.IngestionState{
		"a": {DocumentID: "a", ContentHash: docA.Fingerprint()},
		"b": {DocumentID: "b", ContentHash: "stale-hash"},
	}}

	results, err := Detect(context.Background(), store, "proj", "git", "repo", []model.Document{docA, docB, docC})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := map[string]Status{}
	for _, r := range results {
		if r.Document != nil {
			got[r.Document.ID] = r.Status
		}
	}
	if got["a"] != StatusUnchanged {
		t.Fatalf("expected a unchanged, got %v", got["a"])
	}
	if got["b"] != StatusUpdated {
		t.Fatalf("expected b updated, got %v", got["b"])
	}
	if got["c"] != StatusNew {
		t.Fatalf("expected c new, got %v", got["c"])
	}
}

func TestDetectClassifiesDeleted(t *testing.T) {
	store := fakeStore{
		byID: map[string]model.IngestionState{},
		rows: []model.IngestionState{
			{DocumentID: "gone", ContentHash: "x"},
		},
	}
	results, err := Detect(context.Background(), store, "proj", "git", "repo", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Status != StatusDeleted || results[0].State.DocumentID != "gone" {
		t.Fatalf("expected single deleted classification, got %+v", results)
	}
}
