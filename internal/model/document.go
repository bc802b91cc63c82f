// Package model defines the shared document/chunk/vector data model used by
// both the ingestion pipeline and the hybrid search engine.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document is a unit ingested from a source. It is exclusively owned by the
// pipeline stage that produced it until handed to the chunker, at which point
// ownership passes to the resulting Chunks; the Document's lifetime ends once
// every chunk has been upserted or discarded.
type Document struct {
	ID            string
	SourceType    string
	Source        string
	ProjectID     string
	Title         string
	Content       string
	ContentType   string // "md" | "html" | "code" | "json" | ...
	URL           string
	LastUpdatedAt time.Time
	Deleted       bool
	Metadata      map[string]any
}

// NewDocumentID derives a stable identifier from source + url + title so that
// re-ingesting the same logical document always yields the same ID.
func NewDocumentID(sourceType, source, url, title string) string {
	h := sha256.New()
	h.Write([]byte(sourceType))
	h.Write([]byte{0})
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(title))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// MetaString returns a string-typed metadata value, or "" if absent/wrong type.
func (d *Document) MetaString(key string) string {
	if d.Metadata == nil {
		return ""
	}
	if v, ok := d.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// SetMeta assigns a metadata key, creating the map if necessary.
func (d *Document) SetMeta(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	d.Metadata[key] = value
}

// Fingerprint computes a stable content hash over the content and the subset
// of metadata that should trigger re-ingestion when it changes (title, url,
// content type).
// Used by change detection (spec §4.5) to classify new/updated/unchanged.
func (d *Document) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(d.Content))
	h.Write([]byte{0})
	h.Write([]byte(d.Title))
	h.Write([]byte{0})
	h.Write([]byte(d.URL))
	h.Write([]byte{0})
	h.Write([]byte(d.ContentType))
	return hex.EncodeToString(h.Sum(nil))
}
