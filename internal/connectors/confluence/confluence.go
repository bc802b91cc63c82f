// Package confluence implements the Confluence connector contract (spec
// §4.4): identifies documents by space + page id and stamps space_key,
// page_id, version, labels, and ancestors (breadcrumb) metadata. Per
// spec.md §1/§4.4, authentication and wire transport are out of scope, so
// this connector is built against an injectable PageSource rather than a
// concrete REST client — the shape a hosted-API adapter would fill in.
package confluence

import (
	"context"

	"qdrantloader/internal/connectors"
	"qdrantloader/internal/model"
)

// Page is the minimal Confluence page representation this connector needs.
type Page struct {
	SpaceKey  string
	PageID    string
	Title     string
	Body      string
	Version   int
	Labels    []string
	Ancestors []string // breadcrumb, root-first
	URL       string
	UpdatedAt string
}

// PageSource fetches every page visible to one configured Confluence space.
// The transport (REST, GraphQL, local export) is deliberately unspecified.
type PageSource interface {
	ListPages(ctx context.Context, spaceKey string) ([]Page, error)
}

// Connector adapts a PageSource into the generic Connector contract.
type Connector struct {
	projectID  string
	sourceName string
	spaceKey   string
	source     PageSource
}

// New builds a Confluence connector. source may be nil, in which case
// GetDocuments returns an empty result (no transport configured).
func New(cfg connectors.Config, source PageSource) *Connector {
	return &Connector{
		projectID:  cfg.ProjectID,
		sourceName: cfg.Source.Name,
		spaceKey:   connectors.StringSetting(cfg.Source.Settings, "space_key", ""),
		source:     source,
	}
}

func (c *Connector) SourceType() string { return "confluence" }

func (c *Connector) GetDocuments(ctx context.Context) ([]model.Document, error) {
	if c.source == nil {
		return nil, nil
	}
	pages, err := c.source.ListPages(ctx, c.spaceKey)
	if err != nil {
		return nil, err
	}

	docs := make([]model.Document, 0, len(pages))
	for _, p := range pages {
		docs = append(docs, model.Document{
			ID:          model.NewDocumentID("confluence", p.SpaceKey, p.URL, p.PageID),
			SourceType:  "confluence",
			Source:      c.sourceName,
			ProjectID:   c.projectID,
			Title:       p.Title,
			Content:     p.Body,
			ContentType: "html",
			URL:         p.URL,
			Metadata: map[string]any{
				"space_key": p.SpaceKey,
				"page_id":   p.PageID,
				"version":   p.Version,
				"labels":    p.Labels,
				"ancestors": p.Ancestors,
			},
		})
	}
	return docs, nil
}
