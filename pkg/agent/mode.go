package agent

import (
	"ai-research-chat-be/internal/constant"
	"ai-research-chat-be/pkg/search"
	"ai-research-chat-be/pkg/tool"
)

const (
	quickMaxSteps   = 20
	defaultMaxSteps = 50
)

// Mode bundles everything a search mode decides: the system prompt, the step
// budget, the tool subset, the tool forced on the first step, and per-tool
// input overrides.
type Mode struct {
	Name            string
	SystemPrompt    string
	MaxSteps        int
	ToolNames       []string
	ForcedFirstTool string
	ToolOverrides   map[string]map[string]interface{}
}

// ResolveMode maps a requested mode name to its policy. Unknown names fall
// back to adaptive. The todo tools surface the plan through streamed parts,
// so they are only offered when a result sink is attached; without one,
// planning also loses its forced first step.
func ResolveMode(name string, hasSink bool) Mode {
	switch name {
	case constant.SearchModeQuick:
		return Mode{
			Name:         constant.SearchModeQuick,
			SystemPrompt: constant.ResearcherQuickPromptV1,
			MaxSteps:     quickMaxSteps,
			ToolNames:    []string{constant.ToolNameSearch, constant.ToolNameFetch},
			ToolOverrides: map[string]map[string]interface{}{
				constant.ToolNameSearch: {"type": search.DepthBasic},
			},
		}
	case constant.SearchModePlanning:
		m := Mode{
			Name:         constant.SearchModePlanning,
			SystemPrompt: constant.ResearcherPlanningPromptV1,
			MaxSteps:     defaultMaxSteps,
			ToolNames: []string{
				constant.ToolNameSearch,
				constant.ToolNameFetch,
				constant.ToolNameQuestion,
			},
		}
		if hasSink {
			m.ToolNames = append(m.ToolNames, constant.ToolNameTodoWrite, constant.ToolNameTodoRead)
			m.ForcedFirstTool = constant.ToolNameTodoWrite
		}
		return m
	default:
		m := Mode{
			Name:         constant.SearchModeAdaptive,
			SystemPrompt: constant.ResearcherBasePromptV1,
			MaxSteps:     defaultMaxSteps,
			ToolNames: []string{
				constant.ToolNameSearch,
				constant.ToolNameFetch,
				constant.ToolNameQuestion,
			},
		}
		if hasSink {
			m.ToolNames = append(m.ToolNames, constant.ToolNameTodoWrite, constant.ToolNameTodoRead)
		}
		return m
	}
}

// Tools resolves the mode's tool subset from the registry, applying the
// mode's input overrides.
func (m Mode) Tools(registry *tool.Registry) []*tool.Tool {
	tools := registry.Subset(m.ToolNames...)
	if len(m.ToolOverrides) == 0 {
		return tools
	}
	out := make([]*tool.Tool, 0, len(tools))
	for _, t := range tools {
		if overrides, ok := m.ToolOverrides[t.Name]; ok {
			t = tool.WithOverrides(t, overrides)
		}
		out = append(out, t)
	}
	return out
}
