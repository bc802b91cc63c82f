// Package changedetect classifies incoming Documents against prior
// IngestionState (spec §4.5): new, updated, unchanged, or deleted. Grounded
// on original_source's async_ingestion_pipeline.py change-classification
// pass, reimplemented as a pure function over an injected state lookup so
// the pipeline worker can call it without owning storage details.
package changedetect

import (
	"context"

	"qdrantloader/internal/model"
)

// Status is one of the four classifications spec §4.5 names.
type Status string

const (
	StatusNew       Status = "new"
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusDeleted   Status = "deleted"
)

// Classified pairs a Document (nil for Deleted) with its classification and,
// for Deleted, the prior state row so callers can drive the vector-store
// delete-by-document_id and state-row removal.
type Classified struct {
	Document *model.Document
	State    *model.IngestionState
	Status   Status
}

// StateLookup is the subset of internal/state.Store this package depends on.
type StateLookup interface {
	Get(ctx context.Context, documentID string) (model.IngestionState, bool, error)
	ListBySource(ctx context.Context, projectID, sourceType, source string) ([]model.IngestionState, error)
}

// Detect classifies every document in docs against store, then appends a
// Deleted entry for every prior state row in scope (projectID/sourceType/
// source) whose document_id is absent from docs, matching spec §4.5.
func Detect(ctx context.Context, store StateLookup, projectID, sourceType, source string, docs []model.Document) ([]Classified, error) {
	seen := make(map[string]bool, len(docs))
	out := make([]Classified, 0, len(docs))

	for i := range docs {
		doc := &docs[i]
		seen[doc.ID] = true

		prior, found, err := store.Get(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		fingerprint := doc.Fingerprint()
		switch {
		case !found:
			out = append(out, Classified{Document: doc, Status: StatusNew})
		case prior.ContentHash != fingerprint:
			out = append(out, Classified{Document: doc, State: &prior, Status: StatusUpdated})
		default:
			out = append(out, Classified{Document: doc, State: &prior, Status: StatusUnchanged})
		}
	}

	priorRows, err := store.ListBySource(ctx, projectID, sourceType, source)
	if err != nil {
		return nil, err
	}
	for i := range priorRows {
		row := priorRows[i]
		if seen[row.DocumentID] {
			continue
		}
		out = append(out, Classified{State: &row, Status: StatusDeleted})
	}
	return out, nil
}
