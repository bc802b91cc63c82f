// Package jira implements the Jira connector contract (spec §4.4):
// identifies documents by project + issue key and stamps project_key,
// issue_key, issue_type, status, priority, reporter, assignee, labels,
// linked issues, and comments_count metadata; comment bodies are appended
// to the document content rather than stored in metadata. Built against an injectable
// IssueSource per the same out-of-scope-transport reasoning as
// internal/connectors/confluence.
package jira

import (
	"context"
	"strings"

	"qdrantloader/internal/connectors"
	"qdrantloader/internal/model"
)

// Issue is the minimal Jira issue representation this connector needs.
type Issue struct {
	ProjectKey string
	IssueKey   string
	IssueType  string
	Status     string
	Priority   string
	Reporter   string
	Assignee   string
	Summary    string
	Body       string
	Labels     []string
	LinkedKeys []string
	Comments   []string
	URL        string
}

// IssueSource fetches every issue visible to one configured Jira project.
type IssueSource interface {
	ListIssues(ctx context.Context, projectKey string) ([]Issue, error)
}

// Connector adapts an IssueSource into the generic Connector contract.
type Connector struct {
	projectID  string
	sourceName string
	jiraKey    string
	source     IssueSource
}

// New builds a Jira connector. source may be nil, in which case
// GetDocuments returns an empty result (no transport configured).
func New(cfg connectors.Config, source IssueSource) *Connector {
	return &Connector{
		projectID:  cfg.ProjectID,
		sourceName: cfg.Source.Name,
		jiraKey:    connectors.StringSetting(cfg.Source.Settings, "project_key", ""),
		source:     source,
	}
}

func (c *Connector) SourceType() string { return "jira" }

func (c *Connector) GetDocuments(ctx context.Context) ([]model.Document, error) {
	if c.source == nil {
		return nil, nil
	}
	issues, err := c.source.ListIssues(ctx, c.jiraKey)
	if err != nil {
		return nil, err
	}

	docs := make([]model.Document, 0, len(issues))
	for _, it := range issues {
		var body strings.Builder
		body.WriteString(it.Summary)
		body.WriteString("\n\n")
		body.WriteString(it.Body)
		for _, c := range it.Comments {
			body.WriteString("\n\n---\n")
			body.WriteString(c)
		}

		docs = append(docs, model.Document{
			ID:          model.NewDocumentID("jira", it.ProjectKey, it.URL, it.IssueKey),
			SourceType:  "jira",
			Source:      c.sourceName,
			ProjectID:   c.projectID,
			Title:       it.Summary,
			Content:     body.String(),
			ContentType: "text",
			URL:         it.URL,
			Metadata: map[string]any{
				"project_key":    it.ProjectKey,
				"issue_key":      it.IssueKey,
				"issue_type":     it.IssueType,
				"status":         it.Status,
				"priority":       it.Priority,
				"reporter":       it.Reporter,
				"assignee":       it.Assignee,
				"labels":         it.Labels,
				"linked_issues":  it.LinkedKeys,
				"comments_count": len(it.Comments),
			},
		})
	}
	return docs, nil
}
