package jira

import (
	"context"
	"strings"
	"testing"

	"qdrantloader/internal/connectors"
	"qdrantloader/internal/model"
)

type fakeSource struct {
	issues []Issue
}

func (f fakeSource) ListIssues(ctx context.Context, projectKey string) ([]Issue, error) {
	return f.issues, nil
}

func TestGetDocumentsMapsIssuesAndComments(t *testing.T) {
	src := fakeSource{issues: []Issue{
		{
			ProjectKey: "ENG", IssueKey: "ENG-42", IssueType: "Bug", Status: "Open",
			Priority: "High", Reporter: "alice", Assignee: "bob", Summary: "Crash on startup",
			Body: "Steps to reproduce...", Labels: []string{"prod"}, LinkedKeys: []string{"ENG-10"},
			Comments: []string{"seen this too"}, URL: "https://jira/ENG-42",
		},
	}}
	c := New(connectors.Config{ProjectID: "proj", Source: model.SourceConfig{Settings: map[string]any{"project_key": "ENG"}}}, src)

	docs, err := c.GetDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	d := docs[0]
	if d.Metadata["issue_key"] != "ENG-42" || d.Metadata["status"] != "Open" {
		t.Fatalf("unexpected metadata: %+v", d.Metadata)
	}
	if !strings.Contains(d.Content, "seen this too") {
		t.Fatalf("expected comment body folded into content, got %q", d.Content)
	}
}
