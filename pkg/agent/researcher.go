// Package agent implements the tool-using researcher loop that answers a
// chat turn by iterating model steps against a bounded tool budget.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-research-chat-be/internal/constant"
	"ai-research-chat-be/internal/entity"
	"ai-research-chat-be/pkg/llm"
	"ai-research-chat-be/pkg/tool"
)

// Sink receives every part the researcher produces as it happens, including
// intermediate tool events. Streaming consumers attach here; the returned
// RunResult keeps only the durable parts.
type Sink func(part entity.Part)

// RunResult is the durable outcome of one researcher run.
type RunResult struct {
	Parts []entity.Part
	Text  string
	Steps int
}

// Researcher drives the step loop: each step asks the model for text and
// tool calls, executes the calls, feeds results back, and repeats until the
// model answers without tools or the mode's step budget runs out.
type Researcher struct {
	provider llm.Provider
	registry *tool.Registry
}

func NewResearcher(provider llm.Provider, registry *tool.Registry) *Researcher {
	return &Researcher{provider: provider, registry: registry}
}

// Run executes one research turn. Cancellation mid-run returns the parts
// produced so far alongside the context error, so callers can persist the
// partial transcript.
func (r *Researcher) Run(ctx context.Context, mode Mode, history []llm.Message, sink Sink) (*RunResult, error) {
	emit := func(p entity.Part) {
		if sink != nil {
			sink(p)
		}
	}

	// The plan store lives and dies with this run; a shared store would
	// leak plan contents between concurrent conversations.
	registry := r.registry.Clone()
	todoStore := tool.NewTodoStore()
	registry.Register(tool.NewTodoWriteTool(todoStore))
	registry.Register(tool.NewTodoReadTool(todoStore))

	tools := mode.Tools(registry)
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: constant.ChatMessageRoleSystem, Content: mode.SystemPrompt})
	messages = append(messages, history...)

	result := &RunResult{}
	var answer strings.Builder

	for step := 0; step < mode.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Steps = step + 1

		stepTools := tools
		var opts []llm.Option
		if step == 0 && mode.ForcedFirstTool != "" {
			stepTools = filterTools(tools, mode.ForcedFirstTool)
			opts = append(opts, llm.WithToolChoice(mode.ForcedFirstTool))
		}

		start := entity.StepStartPart{}
		result.Parts = append(result.Parts, start)
		emit(start)

		resp, err := r.provider.ChatWithTools(ctx, messages, toolDefs(stepTools), opts...)
		if err != nil {
			return result, fmt.Errorf("researcher step %d: %w", step+1, err)
		}

		if resp.Content != "" {
			part := entity.TextPart{Text: resp.Content}
			result.Parts = append(result.Parts, part)
			emit(part)
			answer.WriteString(resp.Content)
		}

		if len(resp.ToolCalls) == 0 {
			result.Text = answer.String()
			return result, nil
		}

		messages = append(messages, llm.Message{
			Role:      constant.ChatMessageRoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			final := r.executeCall(ctx, stepTools, call, emit)
			result.Parts = append(result.Parts, final)
			messages = append(messages, llm.Message{
				Role:       constant.ChatMessageRoleTool,
				Content:    toolResultContent(final),
				ToolCallId: call.Id,
			})
		}
	}

	// Budget exhausted: ask for a closing answer without tools.
	resp, err := r.provider.ChatWithTools(ctx, messages, nil)
	if err != nil {
		return result, fmt.Errorf("researcher final step: %w", err)
	}
	if resp.Content != "" {
		part := entity.TextPart{Text: resp.Content}
		result.Parts = append(result.Parts, part)
		emit(part)
		answer.WriteString(resp.Content)
	}
	result.Text = answer.String()
	return result, nil
}

// executeCall runs one tool call to completion. Every event goes to the
// sink; only the terminal state is kept as a durable part.
func (r *Researcher) executeCall(ctx context.Context, tools []*tool.Tool, call llm.ToolCall, emit Sink) entity.Part {
	t := findTool(tools, call.Name)
	if t == nil {
		log.Printf("[WARN] researcher: model requested unavailable tool %q", call.Name)
		part := toolPart(call.Name, call.Id, tool.Event{
			State:     constant.ToolStateOutputError,
			Input:     call.Arguments,
			ErrorText: fmt.Sprintf("tool %q is not available", call.Name),
		})
		emit(part)
		return part
	}

	var final entity.Part
	for event := range t.Execute(ctx, call.Arguments, call.Id) {
		part := toolPart(call.Name, call.Id, event)
		emit(part)
		if event.Terminal() {
			final = part
		}
	}
	if final == nil {
		// A tool that closed without a terminal event violates the
		// execution contract; surface it as an error state.
		final = toolPart(call.Name, call.Id, tool.Event{
			State:     constant.ToolStateOutputError,
			Input:     call.Arguments,
			ErrorText: "tool finished without a result",
		})
		emit(final)
	}
	return final
}

func toolPart(name, callId string, event tool.Event) entity.Part {
	if strings.HasPrefix(name, constant.MCPToolPrefix) {
		return entity.DynamicToolPart{
			ToolName:  name,
			Origin:    constant.DynamicToolOriginMCP,
			CallId:    callId,
			State:     event.State,
			Input:     event.Input,
			Output:    event.Output,
			ErrorText: event.ErrorText,
		}
	}
	return entity.ToolPart{
		Tool:      name,
		CallId:    callId,
		State:     event.State,
		Input:     event.Input,
		Output:    event.Output,
		ErrorText: event.ErrorText,
	}
}

func toolResultContent(part entity.Part) string {
	switch p := part.(type) {
	case entity.ToolPart:
		if p.State == constant.ToolStateOutputError {
			return "ERROR: " + p.ErrorText
		}
		return compactJSON(p.Output)
	case entity.DynamicToolPart:
		if p.State == constant.ToolStateOutputError {
			return "ERROR: " + p.ErrorText
		}
		return compactJSON(p.Output)
	}
	return ""
}

func compactJSON(v map[string]interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

func toolDefs(tools []*tool.Tool) []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return defs
}

func filterTools(tools []*tool.Tool, name string) []*tool.Tool {
	for _, t := range tools {
		if t.Name == name {
			return []*tool.Tool{t}
		}
	}
	return tools
}

func findTool(tools []*tool.Tool, name string) *tool.Tool {
	for _, t := range tools {
		if t.Name == name {
			return t
		}
	}
	return nil
}
