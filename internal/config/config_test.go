package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
global:
  embedding:
    model: text-embedding-3-small
    api_key: ${TEST_API_KEY}
  qdrant:
    url: http://localhost:6334
    api_key: ${TEST_QDRANT_KEY}
projects:
  default:
    display_name: Default Project
    sources:
      git:
        - name: main-repo
          url: https://example.com/repo.git
          branch: main
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")
	t.Setenv("TEST_QDRANT_KEY", "qd-test-456")
	path := writeTempConfig(t, sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Global.Embedding.APIKey != "sk-test-123" {
		t.Fatalf("expected expanded api key, got %q", cfg.Global.Embedding.APIKey)
	}
	if cfg.Global.Qdrant.APIKey != "qd-test-456" {
		t.Fatalf("expected expanded qdrant key, got %q", cfg.Global.Qdrant.APIKey)
	}
}

func TestLoadRejectsInvalidProjectID(t *testing.T) {
	bad := `
global: {}
projects:
  "1bad":
    display_name: Bad
`
	path := writeTempConfig(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for invalid project id")
	}
}

func TestLoadRejectsNoProjects(t *testing.T) {
	path := writeTempConfig(t, "global: {}\nprojects: {}\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty projects")
	}
}

func TestDefaultsApplyWhenOmitted(t *testing.T) {
	t.Setenv("TEST_API_KEY", "x")
	t.Setenv("TEST_QDRANT_KEY", "y")
	path := writeTempConfig(t, sampleYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Global.Chunking.ChunkSize != 1500 {
		t.Fatalf("expected default chunk size, got %d", cfg.Global.Chunking.ChunkSize)
	}
	if cfg.Global.EffectiveVectorSize() != DefaultVectorSize {
		t.Fatalf("expected fallback vector size %d, got %d", DefaultVectorSize, cfg.Global.EffectiveVectorSize())
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-secret")
	t.Setenv("TEST_QDRANT_KEY", "qd-secret")
	path := writeTempConfig(t, sampleYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := cfg.RedactedYAML()
	if err != nil {
		t.Fatalf("RedactedYAML: %v", err)
	}
	if contains(out, "sk-secret") || contains(out, "qd-secret") {
		t.Fatalf("expected secrets to be redacted, got:\n%s", out)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}

func TestProjectIDsSorted(t *testing.T) {
	multi := `
global: {}
projects:
  zeta:
    display_name: Zeta
  alpha:
    display_name: Alpha
`
	path := writeTempConfig(t, multi)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ids := cfg.ProjectIDs()
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "zeta" {
		t.Fatalf("expected sorted [alpha zeta], got %v", ids)
	}
}
