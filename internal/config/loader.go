package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

const maxIncludeDepth = 8

// Load reads, resolves, and validates the configuration at path. A missing
// file yields the built-in defaults so first runs work without setup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	raw, err := loadRaw(path, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := decodeInto(raw, cfg); err != nil {
		return nil, errdefs.Config("parse %s: %v", path, err).
			WithType(errdefs.TypeCorrupted).
			WithCause(err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadRaw reads a config file into a generic map, resolving $include
// directives and expanding ${VAR} environment references. JSON5 files are
// detected by extension; everything else parses as YAML (JSON is a subset).
func loadRaw(path string, depth int) (map[string]any, error) {
	if depth > maxIncludeDepth {
		return nil, errdefs.Config("include depth exceeded at %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(os.ExpandEnv(string(data)))

	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		if err := json5.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
			return nil, errdefs.Config("parse %s: %v", path, err).
				WithType(errdefs.TypeCorrupted).
				WithCause(err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errdefs.Config("parse %s: %v", path, err).
				WithType(errdefs.TypeCorrupted).
				WithCause(err)
		}
	}
	return resolveIncludes(raw, filepath.Dir(path), depth)
}

// resolveIncludes replaces {"$include": "file"} nodes with the included
// document. Relative include paths resolve against the including file's
// directory. Keys set alongside $include override the included values.
func resolveIncludes(node map[string]any, baseDir string, depth int) (map[string]any, error) {
	if inc, ok := node["$include"].(string); ok {
		target := inc
		if !filepath.IsAbs(target) {
			target = filepath.Join(baseDir, target)
		}
		included, err := loadRaw(target, depth+1)
		if err != nil {
			return nil, errdefs.Config("include %s: %v", inc, err).WithCause(err)
		}
		merged := make(map[string]any, len(included)+len(node))
		for k, v := range included {
			merged[k] = v
		}
		for k, v := range node {
			if k != "$include" {
				merged[k] = v
			}
		}
		node = merged
	}
	for k, v := range node {
		child, ok := v.(map[string]any)
		if !ok {
			continue
		}
		resolved, err := resolveIncludes(child, baseDir, depth)
		if err != nil {
			return nil, err
		}
		node[k] = resolved
	}
	return node, nil
}

// decodeInto strictly decodes the resolved document into cfg. Unknown
// top-level or core-section keys are rejected; passthrough sections accept
// anything.
func decodeInto(raw map[string]any, cfg *Config) error {
	buf, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Endpoints))
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		if ep.Name == "" {
			return errdefs.Config("endpoint %d: missing name", i)
		}
		if seen[ep.Name] {
			return errdefs.Config("duplicate endpoint name %q", ep.Name)
		}
		seen[ep.Name] = true
	}
	if c.DefaultEndpoint != "" && !seen[c.DefaultEndpoint] {
		return errdefs.Config("default_endpoint %q does not match any endpoint", c.DefaultEndpoint).
			WithType(errdefs.TypeNotFound)
	}
	cc := &c.Compaction
	if cc.OverflowThreshold <= 0 || cc.OverflowThreshold > 1 {
		return errdefs.Config("compaction.overflow_threshold must be in (0, 1], got %v", cc.OverflowThreshold)
	}
	if cc.CheckIntervalSteps < 1 {
		return errdefs.Config("compaction.check_interval_steps must be >= 1, got %d", cc.CheckIntervalSteps)
	}
	if cc.ReservedTokens < 0 {
		return errdefs.Config("compaction.reserved_tokens must be >= 0, got %d", cc.ReservedTokens)
	}
	if c.PathSafety.MaxConfirmationsPerSession < 0 {
		return errdefs.Config("path_safety.max_confirmations_per_session must be >= 0")
	}
	return nil
}

// Docs returns a commented reference configuration for `wolo config docs`.
func Docs() string {
	return fmt.Sprintf(`# Wolo configuration reference. Location: %s
# Formats: .yaml (default), .json, .json5. ${VAR} references expand from
# the environment; a section may be pulled from another file with
#   section: { $include: other.yaml }

endpoints:
  - name: default           # referenced by default_endpoint and --endpoint
    model: gpt-4o           # overridable via WOLO_MODEL or --model
    api_base: https://api.openai.com/v1
    api_key: ${WOLO_API_KEY} # prefer the env var over a literal key
    temperature: 0.7
    max_tokens: 8192

default_endpoint: default
enable_think: false          # request reasoning content when supported

compaction:
  enabled: true
  auto_compact: true
  overflow_threshold: 0.9    # fraction of the context window
  check_interval_steps: 3
  reserved_tokens: 2000
  tool_pruning:
    enabled: true
    protect_recent_turns: 2
    protect_token_threshold: 40000
    minimum_prune_tokens: 20000
    replacement_text: "[Output pruned to save context space]"
  summary:
    enabled: true
    recent_exchanges_to_keep: 6

path_safety:
  allowed_write_paths: []    # extra writable roots beyond the working dir
  max_confirmations_per_session: 10
  audit_denied: true
  audit_log_file: ""         # defaults to <home>/denied_paths.jsonl

# Passthrough sections, forwarded verbatim to their consumers:
# claude: {}
# mcp: {}
# skills: {}
# plugins: {}
`, DefaultConfigPath())
}
