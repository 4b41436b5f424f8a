package tools

import "github.com/haasonsaas/wolo/internal/skills"

// BuiltinRegistry registers the standard tool set. The skill list is
// captured at startup so the skill tool's description reflects what is
// actually installed.
func BuiltinRegistry(available []*skills.Skill) (*Registry, error) {
	r := NewRegistry()
	specs := []*Spec{
		ReadSpec(),
		WriteSpec(),
		EditSpec(),
		MultiEditSpec(),
		GrepSpec(),
		GlobSpec(),
		ShellSpec(),
		WebFetchSpec(),
		TodoWriteSpec(),
		TodoReadSpec(),
		SkillSpec(available),
		MemorySpec(),
		QuestionSpec(),
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return nil, err
		}
	}
	return r, nil
}
