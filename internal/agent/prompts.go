package agent

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/wolo/internal/skills"
)

// defaultAgentName is substituted for the {name} placeholder when no
// agent type overrides it.
const defaultAgentName = "Wolo"

const basePrompt = `You are {name}, a coding agent working inside the user's repository.

Work autonomously toward the user's goal. Use the available tools to read,
search, and modify files and to run shell commands. Prefer small verifiable
steps: read before you edit, run checks after you change something, and keep
the todo list current on multi-step work.

Rules:
- Never invent file contents; read the file first.
- Report failures honestly, including failing command output.
- When the task is complete, summarize what changed and stop calling tools.`

// agentPrompts specializes the system prompt per agent type. Unknown
// types fall back to the base prompt.
var agentPrompts = map[string]string{
	"": basePrompt,
	"reviewer": basePrompt + `

You are acting as a code reviewer: do not modify files. Read the relevant
code, then report findings ordered by severity with file and line
references.`,
	"planner": basePrompt + `

You are acting as a planner: produce a step-by-step implementation plan
with file-level detail, but make no edits.`,
}

// SystemPrompt renders the prompt for an agent type, substituting the
// display name and appending the installed skills list.
func SystemPrompt(agentType string, available []*skills.Skill) string {
	tpl, ok := agentPrompts[agentType]
	if !ok {
		tpl = basePrompt
	}
	name := defaultAgentName
	if agentType != "" {
		name = fmt.Sprintf("%s (%s)", defaultAgentName, agentType)
	}
	prompt := strings.ReplaceAll(tpl, "{name}", name)
	return prompt + "\n\n" + skills.AvailableList(available)
}

// BuildPrompt merges piped stdin context with the CLI prompt. With no
// stdin the prompt passes through untouched.
func BuildPrompt(stdin, prompt string) string {
	stdin = strings.TrimSpace(stdin)
	prompt = strings.TrimSpace(prompt)
	if stdin == "" {
		return prompt
	}
	if prompt == "" {
		return stdin
	}
	return fmt.Sprintf("## Context (from stdin)\n\n%s\n\n---\n\n## Task\n\n%s", stdin, prompt)
}
