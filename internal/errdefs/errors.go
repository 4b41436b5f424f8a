// Package errdefs defines Wolo's structured error taxonomy. Every
// user-facing failure is one of five kinds; each carries a human message,
// an optional session id, and a free-form context map so surfaces can
// render actionable diagnostics without string matching.
package errdefs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error for rendering and exit-code mapping.
type Kind string

const (
	// KindConfig covers missing credentials, unknown endpoints, and
	// malformed configuration files.
	KindConfig Kind = "config"

	// KindSession covers store failures: not found, locked, corrupted.
	KindSession Kind = "session"

	// KindLLM covers transport and stream decoding failures.
	KindLLM Kind = "llm"

	// KindTool covers tool execution failures.
	KindTool Kind = "tool"

	// KindPathSafety covers whitelist denials and user cancellation.
	KindPathSafety Kind = "path_safety"
)

// Well-known error_type context values, used by tests and surfaces.
const (
	TypeNotFound             = "not_found"
	TypeLocked               = "locked"
	TypeCorrupted            = "corrupted"
	TypeConcurrentWriter     = "concurrent_writer"
	TypeHTTPError            = "http_error"
	TypeMalformedStream      = "malformed_stream"
	TypeToolArgParseFailed   = "tool_arg_parse_failed"
	TypeFileNotFound         = "file_not_found"
	TypeTextNotFound         = "text_not_found"
	TypeMultipleMatches      = "multiple_matches"
	TypeExternalModification = "external_modification"
	TypeTimeout              = "timeout"
	TypeBinaryRefused        = "binary_refused"
	TypeDeniedByUser         = "denied_by_user"
	TypeCancelledByUser      = "cancelled_by_user"
	TypeDoomLoop             = "doom_loop"
	TypeQuotaExceeded        = "quota_exceeded"
)

// Error is the root error type. All five kinds share this shape.
type Error struct {
	Kind      Kind
	Message   string
	SessionID string
	Context   map[string]any
	Cause     error
}

// Error implements the error interface. Rendering is a single line:
// "<kind>: <message>" with an optional session suffix and sorted context.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.SessionID != "" {
		fmt.Fprintf(&sb, " (session: %s)", e.SessionID)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		fmt.Fprintf(&sb, " [%s]", strings.Join(parts, " "))
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSession sets the session id.
func (e *Error) WithSession(id string) *Error {
	e.SessionID = id
	return e
}

// WithContext sets one context key, allocating the map on first use.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithType records the error_type context key.
func (e *Error) WithType(errorType string) *Error {
	return e.WithContext("error_type", errorType)
}

// WithCause attaches an underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Type returns the error_type context value, if any.
func (e *Error) Type() string {
	t, _ := e.Context["error_type"].(string)
	return t
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Config creates a KindConfig error.
func Config(format string, args ...any) *Error {
	return newError(KindConfig, format, args...)
}

// Session creates a KindSession error.
func Session(format string, args ...any) *Error {
	return newError(KindSession, format, args...)
}

// LLM creates a KindLLM error.
func LLM(format string, args ...any) *Error {
	return newError(KindLLM, format, args...)
}

// Tool creates a KindTool error.
func Tool(format string, args ...any) *Error {
	return newError(KindTool, format, args...)
}

// PathSafety creates a KindPathSafety error.
func PathSafety(format string, args ...any) *Error {
	return newError(KindPathSafety, format, args...)
}

// WrapTool wraps a raw error into a tool error, preserving the source
// error type in context. Tool executors must never surface raw I/O errors.
func WrapTool(toolName string, cause error) *Error {
	e := Tool("%v", cause).WithCause(cause).WithContext("tool_name", toolName)
	e.WithContext("cause_type", fmt.Sprintf("%T", cause))
	return e
}

// As extracts a *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// IsType reports whether err is an *Error with the given error_type.
func IsType(err error, errorType string) bool {
	e, ok := As(err)
	return ok && e.Type() == errorType
}

// Exit codes for the CLI surface.
const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitQuota       = 2
	ExitSession     = 3
	ExitConfig      = 4
	ExitInterrupted = 130
	ExitTerminated  = 131
)

// ExitCode maps an error to the process exit code contract.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	e, ok := As(err)
	if !ok {
		return ExitGeneral
	}
	if e.Type() == TypeCancelledByUser {
		return ExitInterrupted
	}
	if e.Type() == TypeQuotaExceeded {
		return ExitQuota
	}
	switch e.Kind {
	case KindConfig:
		return ExitConfig
	case KindSession:
		return ExitSession
	default:
		return ExitGeneral
	}
}

// Remediation returns a hint line for config and session errors, empty
// otherwise.
func Remediation(err error) string {
	e, ok := As(err)
	if !ok {
		return ""
	}
	switch e.Kind {
	case KindConfig:
		switch e.Type() {
		case TypeNotFound:
			return "run `wolo config docs` for the expected file layout"
		default:
			return "check ~/.wolo/config.yaml and the WOLO_API_KEY environment variable"
		}
	case KindSession:
		switch e.Type() {
		case TypeLocked:
			return "another wolo process owns this session; wait for it or pick a different session"
		case TypeNotFound:
			return "run `wolo session list` to see available sessions"
		case TypeCorrupted:
			return "inspect the session directory under ~/.wolo/sessions; delete the damaged file to recover"
		}
	}
	return ""
}
