// Package publicdocs implements the PublicDocs connector contract (spec
// §4.4): identifies documents by URL and stamps version, path,
// content_selector, and extracted headings metadata. Built against an
// injectable PageFetcher per the same out-of-scope-transport reasoning as
// internal/connectors/confluence; the teacher's dependency set has no
// headless-browser crawler, so this models the fetched-page shape rather
// than driving one.
package publicdocs

import (
	"context"
	"regexp"
	"strings"

	"qdrantloader/internal/connectors"
	"qdrantloader/internal/model"
)

// Page is one fetched public-docs page.
type Page struct {
	URL     string
	Title   string
	Body    string // HTML
	Version string
	Path    string
}

// PageFetcher retrieves every page under a configured base URL.
type PageFetcher interface {
	FetchPages(ctx context.Context, baseURL string) ([]Page, error)
}

// Connector adapts a PageFetcher into the generic Connector contract.
type Connector struct {
	projectID       string
	sourceName      string
	baseURL         string
	contentSelector string
	fetcher         PageFetcher
}

// New builds a PublicDocs connector. fetcher may be nil, in which case
// GetDocuments returns an empty result (no transport configured).
func New(cfg connectors.Config, fetcher PageFetcher) *Connector {
	return &Connector{
		projectID:       cfg.ProjectID,
		sourceName:      cfg.Source.Name,
		baseURL:         connectors.StringSetting(cfg.Source.Settings, "base_url", ""),
		contentSelector: connectors.StringSetting(cfg.Source.Settings, "content_selector", "article"),
		fetcher:         fetcher,
	}
}

func (c *Connector) SourceType() string { return "publicdocs" }

func (c *Connector) GetDocuments(ctx context.Context) ([]model.Document, error) {
	if c.fetcher == nil {
		return nil, nil
	}
	pages, err := c.fetcher.FetchPages(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}

	docs := make([]model.Document, 0, len(pages))
	for _, p := range pages {
		docs = append(docs, model.Document{
			ID:          model.NewDocumentID("publicdocs", c.baseURL, p.URL, ""),
			SourceType:  "publicdocs",
			Source:      c.sourceName,
			ProjectID:   c.projectID,
			Title:       p.Title,
			Content:     p.Body,
			ContentType: "html",
			URL:         p.URL,
			Metadata: map[string]any{
				"version":          p.Version,
				"path":             p.Path,
				"content_selector": c.contentSelector,
				"headings":         extractHeadings(p.Body),
			},
		})
	}
	return docs, nil
}

var headingPattern = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
var tagStripPattern = regexp.MustCompile(`<[^>]+>`)

// extractHeadings pulls plain-text heading content from raw HTML, matching
// spec §4.4's "extracted headings" metadata requirement.
func extractHeadings(html string) []string {
	matches := headingPattern.FindAllStringSubmatch(html, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		text := strings.TrimSpace(tagStripPattern.ReplaceAllString(m[2], ""))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}
