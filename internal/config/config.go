// Package config loads and resolves Wolo's user-scope configuration file.
// The file lives at ~/.wolo/config.yaml (or .json/.json5); sections for
// external collaborators (claude, mcp, skills, plugins) are carried as raw
// maps and passed through untouched.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

// Endpoint describes one LLM endpoint entry.
type Endpoint struct {
	Name        string  `yaml:"name"`
	Model       string  `yaml:"model"`
	APIBase     string  `yaml:"api_base"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
	TopP        float32 `yaml:"top_p,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// ToolPruningConfig tunes the tool-output pruning strategy.
type ToolPruningConfig struct {
	Enabled               bool     `yaml:"enabled"`
	ProtectRecentTurns    int      `yaml:"protect_recent_turns"`
	ProtectTokenThreshold int      `yaml:"protect_token_threshold"`
	MinimumPruneTokens    int      `yaml:"minimum_prune_tokens"`
	ReplacementText       string   `yaml:"replacement_text"`
	ProtectedTools        []string `yaml:"protected_tools,omitempty"`
}

// SummaryConfig tunes the summary compaction strategy.
type SummaryConfig struct {
	Enabled               bool `yaml:"enabled"`
	RecentExchangesToKeep int  `yaml:"recent_exchanges_to_keep"`
}

// CompactionConfig bundles the compaction engine thresholds.
type CompactionConfig struct {
	Enabled            bool              `yaml:"enabled"`
	AutoCompact        bool              `yaml:"auto_compact"`
	OverflowThreshold  float64           `yaml:"overflow_threshold"`
	CheckIntervalSteps int               `yaml:"check_interval_steps"`
	ReservedTokens     int               `yaml:"reserved_tokens"`
	ToolPruning        ToolPruningConfig `yaml:"tool_pruning"`
	Summary            SummaryConfig     `yaml:"summary"`
}

// PathSafetyConfig tunes the write-path whitelist and confirmation flow.
type PathSafetyConfig struct {
	AllowedWritePaths          []string `yaml:"allowed_write_paths,omitempty"`
	MaxConfirmationsPerSession int      `yaml:"max_confirmations_per_session"`
	AuditDenied                bool     `yaml:"audit_denied"`
	AuditLogFile               string   `yaml:"audit_log_file,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	Endpoints       []Endpoint       `yaml:"endpoints,omitempty"`
	DefaultEndpoint string           `yaml:"default_endpoint,omitempty"`
	EnableThink     bool             `yaml:"enable_think"`
	Compaction      CompactionConfig `yaml:"compaction"`
	PathSafety      PathSafetyConfig `yaml:"path_safety"`

	// Passthrough sections consumed by out-of-core loaders. Unknown keys
	// inside them are preserved verbatim.
	Claude  map[string]any `yaml:"claude,omitempty"`
	MCP     map[string]any `yaml:"mcp,omitempty"`
	Skills  map[string]any `yaml:"skills,omitempty"`
	Plugins map[string]any `yaml:"plugins,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Compaction: CompactionConfig{
			Enabled:            true,
			AutoCompact:        true,
			OverflowThreshold:  0.9,
			CheckIntervalSteps: 3,
			ReservedTokens:     2000,
			ToolPruning: ToolPruningConfig{
				Enabled:               true,
				ProtectRecentTurns:    2,
				ProtectTokenThreshold: 40000,
				MinimumPruneTokens:    20000,
				ReplacementText:       "[Output pruned to save context space]",
			},
			Summary: SummaryConfig{
				Enabled:               true,
				RecentExchangesToKeep: 6,
			},
		},
		PathSafety: PathSafetyConfig{
			MaxConfirmationsPerSession: 10,
			AuditDenied:                true,
		},
	}
}

// Home returns the Wolo installation home, honoring WOLO_HOME.
func Home() string {
	if home := strings.TrimSpace(os.Getenv("WOLO_HOME")); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".wolo"
	}
	return filepath.Join(userHome, ".wolo")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// Endpoint returns the endpoint with the given name, or the default
// endpoint when name is empty.
func (c *Config) Endpoint(name string) (*Endpoint, error) {
	if name == "" {
		name = c.DefaultEndpoint
	}
	if name == "" {
		if len(c.Endpoints) > 0 {
			return &c.Endpoints[0], nil
		}
		return nil, errdefs.Config("no endpoints configured").WithType(errdefs.TypeNotFound)
	}
	for i := range c.Endpoints {
		if c.Endpoints[i].Name == name {
			return &c.Endpoints[i], nil
		}
	}
	return nil, errdefs.Config("unknown endpoint %q", name).
		WithType(errdefs.TypeNotFound).
		WithContext("endpoint", name)
}

// ResolveOptions carries CLI overrides into endpoint resolution.
type ResolveOptions struct {
	EndpointName string
	Model        string
	APIKey       string
}

// Resolve produces the effective endpoint, applying the precedence
// CLI flag > environment > config file for the model and API key. Reading
// a key from the config file logs a warning since files outlive shells.
func (c *Config) Resolve(opts ResolveOptions) (*Endpoint, error) {
	ep, err := c.Endpoint(opts.EndpointName)
	var resolved Endpoint
	if err != nil {
		// No configured endpoints is acceptable when the environment
		// provides everything.
		if os.Getenv("WOLO_API_BASE") == "" {
			return nil, err
		}
		resolved = Endpoint{Name: "env"}
	} else {
		resolved = *ep
	}

	if base := os.Getenv("WOLO_API_BASE"); base != "" && resolved.APIBase == "" {
		resolved.APIBase = base
	}
	if model := os.Getenv("WOLO_MODEL"); model != "" {
		resolved.Model = model
	}
	if opts.Model != "" {
		resolved.Model = opts.Model
	}

	switch {
	case opts.APIKey != "":
		resolved.APIKey = opts.APIKey
	case os.Getenv("WOLO_API_KEY") != "":
		resolved.APIKey = os.Getenv("WOLO_API_KEY")
	case resolved.APIKey != "":
		slog.Warn("using api key from config file; prefer the WOLO_API_KEY environment variable")
	}

	if t := os.Getenv("WOLO_TEMPERATURE"); t != "" {
		if v, err := strconv.ParseFloat(t, 32); err == nil {
			resolved.Temperature = float32(v)
		}
	}
	if mt := os.Getenv("WOLO_MAX_TOKENS"); mt != "" {
		if v, err := strconv.Atoi(mt); err == nil {
			resolved.MaxTokens = v
		}
	}

	if resolved.APIKey == "" {
		return nil, errdefs.Config("missing API key for endpoint %q", resolved.Name).
			WithContext("endpoint", resolved.Name)
	}
	if resolved.Model == "" {
		return nil, errdefs.Config("missing model for endpoint %q", resolved.Name).
			WithContext("endpoint", resolved.Name)
	}
	return &resolved, nil
}
