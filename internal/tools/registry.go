// Package tools holds the built-in tool registry and executors. Each tool
// declares a JSON schema for its parameters and mutates its ToolPart in
// place: output, status, timing, metadata. Executors capture their own
// failures as failed parts; only structural errors (user cancellation,
// store failures) propagate.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/pkg/models"
)

// Handler executes one tool call.
type Handler func(ctx context.Context, env *Env, input map[string]any) (*Result, error)

// Result is the uniform executor output.
type Result struct {
	Title    string
	Output   string
	Metadata map[string]any
	Failed   bool
}

// Spec describes a registered tool.
type Spec struct {
	// Name is the registry key. External tools use namespaced names such
	// as "mcp:<server>:<tool>".
	Name        string
	Description string
	Schema      json.RawMessage
	Category    string
	Icon        string
	ShowOutput  bool

	// Brief renders a one-line UI summary of a call, optional.
	Brief func(input map[string]any) string

	// WriteClass marks tools whose dispatch feeds doom-loop detection.
	WriteClass bool

	// InteractiveOnly hides the tool from the LLM in solo mode.
	InteractiveOnly bool

	Handler Handler

	compiled *jsonschema.Schema
}

// Registry resolves tool names to specs and produces schema lists for the
// LLM. Built once at startup, read-mostly afterwards.
type Registry struct {
	specs map[string]*Spec
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// Register adds a tool. The schema is compiled once for input validation;
// a schema that does not compile is a programming error.
func (r *Registry) Register(spec *Spec) error {
	if spec.Name == "" {
		return errdefs.Tool("tool spec has no name")
	}
	if _, exists := r.specs[spec.Name]; exists {
		return errdefs.Tool("tool %q already registered", spec.Name)
	}
	if len(spec.Schema) == 0 {
		spec.Schema = json.RawMessage(`{"type":"object"}`)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(spec.Name+".json", strings.NewReader(string(spec.Schema))); err != nil {
		return errdefs.Tool("schema for %q: %v", spec.Name, err).WithCause(err)
	}
	compiled, err := compiler.Compile(spec.Name + ".json")
	if err != nil {
		return errdefs.Tool("compile schema for %q: %v", spec.Name, err).WithCause(err)
	}
	spec.compiled = compiled
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (*Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SchemaEntry is one tool advertised to the LLM.
type SchemaEntry struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Schemas lists the tools visible in the given mode. Interactive-only
// tools (question) are hidden in solo.
func (r *Registry) Schemas(interactive bool) []SchemaEntry {
	out := make([]SchemaEntry, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]
		if spec.InteractiveOnly && !interactive {
			continue
		}
		out = append(out, SchemaEntry{
			Name:        spec.Name,
			Description: spec.Description,
			Schema:      spec.Schema,
		})
	}
	return out
}

// Execute runs one tool call, mutating part.Tool in place. Validation and
// executor failures become a failed part with the error message as output.
// The returned error is non-nil only for structural failures that must
// unwind the loop.
func (r *Registry) Execute(ctx context.Context, env *Env, part *models.Part) error {
	tp := part.Tool
	if tp == nil {
		return errdefs.Tool("part %s is not a tool call", part.ID)
	}
	tp.Status = models.ToolRunning
	tp.StartTime = time.Now()
	defer func() { tp.EndTime = time.Now() }()

	spec, ok := r.specs[tp.Name]
	if !ok {
		failPart(tp, fmt.Sprintf("unknown tool %q", tp.Name), map[string]any{"error": "unknown_tool"})
		return nil
	}
	if err := spec.validate(tp.Input); err != nil {
		failPart(tp, "invalid parameters: "+err.Error(), map[string]any{"error": "invalid_parameters"})
		return nil
	}

	res, err := spec.Handler(ctx, env, tp.Input)
	if err != nil {
		if errdefs.IsType(err, errdefs.TypeCancelledByUser) {
			failPart(tp, "cancelled by user", map[string]any{"error": errdefs.TypeCancelledByUser})
			return err
		}
		e, ok := errdefs.As(err)
		if !ok {
			e = errdefs.WrapTool(tp.Name, err)
		}
		meta := map[string]any{"error": e.Type()}
		failPart(tp, e.Message, meta)
		return nil
	}

	tp.Output = res.Output
	if res.Metadata != nil {
		if tp.Metadata == nil {
			tp.Metadata = make(map[string]any)
		}
		for k, v := range res.Metadata {
			tp.Metadata[k] = v
		}
	}
	if res.Title != "" {
		if tp.Metadata == nil {
			tp.Metadata = make(map[string]any)
		}
		tp.Metadata["title"] = res.Title
	}
	if res.Failed {
		tp.Status = models.ToolFailed
	} else {
		tp.Status = models.ToolCompleted
	}
	return nil
}

func (s *Spec) validate(input map[string]any) error {
	if s.compiled == nil {
		return nil
	}
	if input == nil {
		input = map[string]any{}
	}
	return s.compiled.Validate(normalizeForSchema(input))
}

// normalizeForSchema rebuilds the input through JSON so numeric types match
// what the schema validator expects.
func normalizeForSchema(input map[string]any) any {
	data, err := json.Marshal(input)
	if err != nil {
		return input
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return input
	}
	return out
}

func failPart(tp *models.ToolPart, output string, meta map[string]any) {
	tp.Output = output
	tp.Status = models.ToolFailed
	if len(meta) > 0 {
		if tp.Metadata == nil {
			tp.Metadata = make(map[string]any)
		}
		for k, v := range meta {
			tp.Metadata[k] = v
		}
	}
}

// mustSchema marshals a schema map, panicking at init time on mistakes.
func mustSchema(schema map[string]any) json.RawMessage {
	payload, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return payload
}

// stringParam extracts an optional string parameter.
func stringParam(input map[string]any, key string) string {
	v, _ := input[key].(string)
	return v
}

// intParam extracts an optional integer parameter; JSON numbers arrive as
// float64.
func intParam(input map[string]any, key string) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
