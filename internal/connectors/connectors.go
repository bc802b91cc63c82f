// Package connectors defines the source-connector contract (spec §4.4): each
// connector turns a configured SourceConfig into a stream of model.Document,
// stamping the metadata fields the spec requires for its source type.
// Grounded on internal/rag/ingest/api.go's "describe the shape, not the
// transport" style — the spec explicitly treats wire-level details (auth
// flows, hosted API clients) as out of scope, so every connector here models
// its contract against a local or already-fetched representation rather than
// a live HTTP/REST client.
package connectors

import (
	"context"

	"qdrantloader/internal/model"
)

// Connector produces Documents for one configured source instance.
type Connector interface {
	// SourceType identifies the connector family ("git", "confluence", ...).
	SourceType() string
	// GetDocuments returns every document currently visible to this source.
	GetDocuments(ctx context.Context) ([]model.Document, error)
}

// Config is the input every connector constructor takes: the project and
// source-instance identity plus its free-form settings bag (spec §3's
// SourceConfig). Connectors that need the file-conversion collaborator
// take it as a separate constructor argument.
type Config struct {
	ProjectID string
	Source    model.SourceConfig
}

// StringSetting returns a string-typed entry from settings, or the given
// default if absent or of the wrong type.
func StringSetting(settings map[string]any, key, def string) string {
	if v, ok := settings[key].(string); ok && v != "" {
		return v
	}
	return def
}

// BoolSetting returns a bool-typed entry from settings, or def if absent.
func BoolSetting(settings map[string]any, key string, def bool) bool {
	if v, ok := settings[key].(bool); ok {
		return v
	}
	return def
}

// StringSliceSetting returns a []string entry built from a settings value
// that is either already a []string or a []any of strings.
func StringSliceSetting(settings map[string]any, key string) []string {
	switch v := settings[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
