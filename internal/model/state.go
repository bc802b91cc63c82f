package model

import "time"

// IngestionState is the per-document record kept in the relational state
// store, used by change detection to classify a document as new, updated,
// unchanged, or deleted.
type IngestionState struct {
	DocumentID    string
	ProjectID     string
	SourceType    string
	Source        string
	ContentHash   string
	LastIngestAt  time.Time
	LastKnownURL  string
	LastKnownName string
}
