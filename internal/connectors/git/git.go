// Package git implements the Git connector (spec §4.4): identifies documents
// by a commit-oriented path within a repository and stamps file path, commit
// hash, repo name, and branch metadata. Per SPEC_FULL.md's ADD note, this
// models the contract over a local clone + `git log` shell-out rather than a
// hosted Git API, matching the teacher's framing that transport details are
// out of scope for connectors.
package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"qdrantloader/internal/apperror"
	"qdrantloader/internal/connectors"
	"qdrantloader/internal/model"
)

// Connector walks a local git-controlled repository checkout.
type Connector struct {
	projectID    string
	sourceName   string
	repoPath     string
	repoName     string
	branch       string
	includeExts  []string
	runGitLog    func(ctx context.Context, repoPath, path string) (commitHash string, err error)
}

// New builds a Git connector from its project scope and settings bag.
func New(cfg connectors.Config) *Connector {
	s := cfg.Source.Settings
	repoPath := connectors.StringSetting(s, "repo_path", ".")
	return &Connector{
		projectID:   cfg.ProjectID,
		sourceName:  cfg.Source.Name,
		repoPath:    repoPath,
		repoName:    connectors.StringSetting(s, "repo_name", filepath.Base(repoPath)),
		branch:      connectors.StringSetting(s, "branch", "main"),
		includeExts: connectors.StringSliceSetting(s, "file_types"),
		runGitLog:   runGitLogHead,
	}
}

func (c *Connector) SourceType() string { return "git" }

// GetDocuments walks the repository's tracked files via `git ls-files` and
// stamps each with its latest commit hash via `git log -1`.
func (c *Connector) GetDocuments(ctx context.Context) ([]model.Document, error) {
	files, err := c.listTrackedFiles(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindTransient, "list git tracked files", err)
	}

	var docs []model.Document
	for _, rel := range files {
		if ctx.Err() != nil {
			return docs, apperror.Wrap(apperror.KindTimeout, "git connector cancelled", ctx.Err())
		}
		if !c.matchesExt(rel) {
			continue
		}
		full := filepath.Join(c.repoPath, rel)
		raw, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		content := string(raw)
		commitHash, _ := c.runGitLog(ctx, c.repoPath, rel)

		docs = append(docs, model.Document{
			ID:            model.NewDocumentID("git", c.repoName, "", rel),
			SourceType:    "git",
			Source:        c.sourceName,
			ProjectID:     c.projectID,
			Title:         rel,
			Content:       content,
			ContentType:   strings.TrimPrefix(filepath.Ext(rel), "."),
			URL:           "",
			LastUpdatedAt: time.Now(),
			Metadata: map[string]any{
				"file_path":   rel,
				"commit_hash": commitHash,
				"repo_name":   c.repoName,
				"branch":      c.branch,
			},
		})
	}
	return docs, nil
}

func (c *Connector) matchesExt(rel string) bool {
	if len(c.includeExts) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(rel)), ".")
	for _, e := range c.includeExts {
		if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
			return true
		}
	}
	return false
}

func (c *Connector) listTrackedFiles(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", c.repoPath, "ls-files")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	files := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			files = append(files, l)
		}
	}
	return files, nil
}

func runGitLogHead(ctx context.Context, repoPath, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "log", "-1", "--format=%H", "--", path)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}
