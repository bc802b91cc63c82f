package confluence

import (
	"context"
	"testing"

	"qdrantloader/internal/connectors"
	"qdrantloader/internal/model"
)

type fakeSource struct {
	pages []Page
	err   error
}

func (f fakeSource) ListPages(ctx context.Context, spaceKey string) ([]Page, error) {
	return f.pages, f.err
}

func TestGetDocumentsMapsPages(t *testing.T) {
	src := fakeSource{pages: []Page{
		{SpaceKey: "ENG", PageID: "123", Title: "Runbook", Body: "<p>steps</p>", Version: 3, Labels: []string{"ops"}, Ancestors: []string{"Home", "Engineering"}, URL: "https://wiki/ENG/123"},
	}}
	c := New(connectors.Config{ProjectID: "proj", Source: model.SourceConfig{Settings: map[string]any{"space_key": "ENG"}}}, src)

	docs, err := c.GetDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	d := docs[0]
	if d.Metadata["page_id"] != "123" || d.Metadata["space_key"] != "ENG" {
		t.Fatalf("unexpected metadata: %+v", d.Metadata)
	}
	if d.ContentType != "html" {
		t.Fatalf("expected html content type, got %q", d.ContentType)
	}
}

func TestGetDocumentsNilSourceReturnsEmpty(t *testing.T) {
	c := New(connectors.Config{}, nil)
	docs, err := c.GetDocuments(context.Background())
	if err != nil || docs != nil {
		t.Fatalf("expected nil, nil got %+v, %v", docs, err)
	}
}
