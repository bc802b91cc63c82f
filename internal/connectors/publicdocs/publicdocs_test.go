package publicdocs

import (
	"context"
	"testing"

	"qdrantloader/internal/connectors"
	"qdrantloader/internal/model"
)

type fakeFetcher struct {
	pages []Page
}

func (f fakeFetcher) FetchPages(ctx context.Context, baseURL string) ([]Page, error) {
	return f.pages, nil
}

func TestGetDocumentsExtractsHeadings(t *testing.T) {
	fetcher := fakeFetcher{pages: []Page{
		{URL: "https://docs.example.com/guide", Title: "Guide", Body: "<h1>Intro</h1><p>text</p><h2>Setup</h2>", Version: "v2", Path: "/guide"},
	}}
	c := New(connectors.Config{Source: model.SourceConfig{Settings: map[string]any{"base_url": "https://docs.example.com"}}}, fetcher)

	docs, err := c.GetDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	headings, ok := docs[0].Metadata["headings"].([]string)
	if !ok || len(headings) != 2 || headings[0] != "Intro" || headings[1] != "Setup" {
		t.Fatalf("unexpected headings: %+v", docs[0].Metadata["headings"])
	}
}

func TestGetDocumentsNilFetcherReturnsEmpty(t *testing.T) {
	c := New(connectors.Config{}, nil)
	docs, err := c.GetDocuments(context.Background())
	if err != nil || docs != nil {
		t.Fatalf("expected nil, nil got %+v, %v", docs, err)
	}
}
