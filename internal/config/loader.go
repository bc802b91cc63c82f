package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"qdrantloader/internal/apperror"
	"qdrantloader/internal/model"
)

// LoadEnvFile loads a .env file into the process environment. An empty path
// is a no-op; any load failure, including a missing file, is returned as a
// configuration error for the caller to report.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return apperror.Wrap(apperror.KindConfiguration, fmt.Sprintf("loading env file %q", path), err)
	}
	return nil
}

// Load reads path, expands ${VAR}/$VAR/$HOME references against the current
// process environment, parses the YAML, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, fmt.Sprintf("reading config %q", path), err)
	}

	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{Global: Defaults()}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, "parsing config yaml", err)
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers the explicit environment variables spec §6 names
// on top of the YAML-derived config, taking precedence since they are the
// deployment-time override mechanism (container secrets, CI env, etc.).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QDRANT_URL"); v != "" {
		cfg.Global.Qdrant.URL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		cfg.Global.Qdrant.APIKey = v
	}
	if v := os.Getenv("QDRANT_COLLECTION_NAME"); v != "" {
		cfg.Global.Qdrant.CollectionName = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Global.Embedding.APIKey = v
	}
	if v := os.Getenv("LLM_VECTOR_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Global.Qdrant.VectorSize = n
		}
	}
	if v := os.Getenv("STATE_DB_PATH"); v != "" {
		cfg.Global.State.DBPath = v
	}
	if v := os.Getenv("MCP_HTTP_DRAIN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Global.HTTP.DrainTimeoutSec = n
		}
	}
	if v := os.Getenv("MCP_HTTP_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Global.HTTP.ShutdownTimeoutSec = n
		}
	}
}

func validate(cfg *Config) error {
	if len(cfg.Projects) == 0 {
		return apperror.New(apperror.KindConfiguration, "no projects defined")
	}
	for id, p := range cfg.Projects {
		if !model.ValidProjectID(id) {
			return apperror.New(apperror.KindConfiguration, fmt.Sprintf("invalid project_id %q: must match %s", id, model.ProjectIDPattern.String()))
		}
		if p.DisplayName == "" {
			return apperror.New(apperror.KindConfiguration, fmt.Sprintf("project %q: display_name is required", id))
		}
	}
	w := cfg.Global.Search
	if w.VectorWeight < 0 || w.KeywordWeight < 0 || w.MetadataWeight < 0 {
		return apperror.New(apperror.KindConfiguration, "search weights must be non-negative")
	}
	return nil
}

// Project looks up a project by ID and converts its sources to model types.
func (c *Config) Project(id string) (model.Project, bool) {
	p, ok := c.Projects[id]
	if !ok {
		return model.Project{}, false
	}
	return model.Project{
		ProjectID:   id,
		DisplayName: p.DisplayName,
		Description: p.Description,
		Sources:     p.Sources.ToModel(),
		Overrides:   p.Overrides,
	}, true
}

// ProjectIDs returns all configured project IDs, sorted for deterministic
// iteration order (spec §7 determinism requirement extends to CLI output).
func (c *Config) ProjectIDs() []string {
	ids := make([]string, 0, len(c.Projects))
	for id := range c.Projects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// secretFieldPattern matches YAML tag names that the --print-config redactor
// must blank out before printing, per spec §6.
var secretFieldPattern = regexp.MustCompile(`(?i)(api_key|token|password|secret)`)

// Redacted returns a deep copy of cfg suitable for --print-config: any field
// whose yaml tag matches secretFieldPattern is replaced with "***".
func (c *Config) Redacted() map[string]any {
	var node yaml.Node
	out, err := yaml.Marshal(c)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	if err := yaml.Unmarshal(out, &node); err != nil {
		return map[string]any{"error": err.Error()}
	}
	redactNode(&node)
	var generic map[string]any
	if len(node.Content) > 0 {
		_ = node.Content[0].Decode(&generic)
	}
	return generic
}

func redactNode(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i < len(n.Content); i += 2 {
			key := n.Content[i]
			val := n.Content[i+1]
			if key.Kind == yaml.ScalarNode && secretFieldPattern.MatchString(key.Value) && val.Kind == yaml.ScalarNode {
				val.Value = "***"
				val.Tag = "!!str"
				continue
			}
			redactNode(val)
		}
		return
	}
	for _, c := range n.Content {
		redactNode(c)
	}
}

// RedactedYAML renders Redacted() back to a YAML document for --print-config.
func (c *Config) RedactedYAML() (string, error) {
	b, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n") + "\n", nil
}
