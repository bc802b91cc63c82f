package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"qdrantloader/internal/connectors"
	"qdrantloader/internal/model"
)

func initRepo(t *testing.T, dir string) {
	t.Helper()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git unavailable in test environment: %v: %s", err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "-q", "-m", "initial")
}

func TestGetDocumentsReadsTrackedFiles(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)

	c := New(connectors.Config{
		ProjectID: "proj",
		Source: model.SourceConfig{
			Name:     "repo",
			Settings: map[string]any{"repo_path": dir, "repo_name": "myrepo", "branch": "main"},
		},
	})

	docs, err := c.GetDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	d := docs[0]
	if d.Metadata["repo_name"] != "myrepo" || d.Metadata["branch"] != "main" {
		t.Fatalf("unexpected metadata: %+v", d.Metadata)
	}
	if d.Metadata["commit_hash"] == "" {
		t.Fatal("expected a non-empty commit hash")
	}
}

func TestSourceType(t *testing.T) {
	c := New(connectors.Config{})
	if c.SourceType() != "git" {
		t.Fatalf("expected git, got %q", c.SourceType())
	}
}
