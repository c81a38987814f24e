package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-research-chat-be/internal/constant"
	"ai-research-chat-be/internal/entity"
	"ai-research-chat-be/pkg/llm"
	"ai-research-chat-be/pkg/tool"
)

// scriptedProvider returns canned step responses in order and records what
// it was called with.
type scriptedProvider struct {
	steps []llm.StepResponse
	calls []providerCall
}

type providerCall struct {
	tools   []llm.ToolDef
	options llm.Options
	history []llm.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", nil
}

func (p *scriptedProvider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.ToolDef, options ...llm.Option) (*llm.StepResponse, error) {
	var opts llm.Options
	for _, o := range options {
		o(&opts)
	}
	p.calls = append(p.calls, providerCall{tools: tools, options: opts, history: append([]llm.Message(nil), history...)})

	if len(p.steps) == 0 {
		return &llm.StepResponse{Content: "done"}, nil
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	return &step, nil
}

func echoTool(name string) *tool.Tool {
	return &tool.Tool{
		Name:       name,
		Parameters: map[string]interface{}{"type": "object"},
		Execute: func(ctx context.Context, args map[string]interface{}, callId string) <-chan tool.Event {
			return tool.Run(ctx, args, func(ctx context.Context) (map[string]interface{}, error) {
				return map[string]interface{}{"echo": args["query"]}, nil
			})
		},
	}
}

func testRegistry() *tool.Registry {
	reg := tool.NewRegistry()
	reg.Register(echoTool(constant.ToolNameSearch))
	reg.Register(echoTool(constant.ToolNameFetch))
	reg.Register(echoTool(constant.ToolNameQuestion))
	return reg
}

func userTurn(text string) []llm.Message {
	return []llm.Message{{Role: constant.ChatMessageRoleUser, Content: text}}
}

func TestRunAnswersWithoutTools(t *testing.T) {
	provider := &scriptedProvider{steps: []llm.StepResponse{{Content: "direct answer"}}}
	r := NewResearcher(provider, testRegistry())

	res, err := r.Run(context.Background(), ResolveMode(constant.SearchModeAdaptive, false), userTurn("hi"), nil)
	require.NoError(t, err)

	assert.Equal(t, "direct answer", res.Text)
	assert.Equal(t, 1, res.Steps)
	require.Len(t, res.Parts, 2)
	assert.IsType(t, entity.StepStartPart{}, res.Parts[0])
	assert.IsType(t, entity.TextPart{}, res.Parts[1])
}

func TestRunExecutesToolThenAnswers(t *testing.T) {
	provider := &scriptedProvider{steps: []llm.StepResponse{
		{ToolCalls: []llm.ToolCall{{Id: "call-1", Name: constant.ToolNameSearch, Arguments: map[string]interface{}{"query": "go 1.25"}}}},
		{Content: "answer from sources"},
	}}
	r := NewResearcher(provider, testRegistry())

	res, err := r.Run(context.Background(), ResolveMode(constant.SearchModeAdaptive, false), userTurn("what's new"), nil)
	require.NoError(t, err)

	assert.Equal(t, "answer from sources", res.Text)
	assert.Equal(t, 2, res.Steps)

	var toolParts []entity.ToolPart
	for _, p := range res.Parts {
		if tp, ok := p.(entity.ToolPart); ok {
			toolParts = append(toolParts, tp)
		}
	}
	require.Len(t, toolParts, 1, "only the terminal tool state is durable")
	assert.Equal(t, constant.ToolStateOutputAvailable, toolParts[0].State)
	assert.Equal(t, "call-1", toolParts[0].CallId)

	// The tool result was fed back to the model as a tool message.
	last := provider.calls[1].history
	assert.Equal(t, constant.ChatMessageRoleTool, last[len(last)-1].Role)
	assert.Equal(t, "call-1", last[len(last)-1].ToolCallId)
}

func TestSinkSeesEveryToolEvent(t *testing.T) {
	provider := &scriptedProvider{steps: []llm.StepResponse{
		{ToolCalls: []llm.ToolCall{{Id: "call-1", Name: constant.ToolNameSearch, Arguments: map[string]interface{}{"query": "x"}}}},
		{Content: "done"},
	}}
	r := NewResearcher(provider, testRegistry())

	var states []string
	sink := func(p entity.Part) {
		if tp, ok := p.(entity.ToolPart); ok {
			states = append(states, tp.State)
		}
	}

	_, err := r.Run(context.Background(), ResolveMode(constant.SearchModeAdaptive, true), userTurn("x"), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{constant.ToolStateInputAvailable, constant.ToolStateOutputAvailable}, states)
}

func TestQuickModeLeavesFirstStepUnconstrained(t *testing.T) {
	provider := &scriptedProvider{steps: []llm.StepResponse{{Content: "done"}}}
	r := NewResearcher(provider, testRegistry())

	_, err := r.Run(context.Background(), ResolveMode(constant.SearchModeQuick, false), userTurn("x"), nil)
	require.NoError(t, err)

	// Quick trades depth for speed through the basic-search override, not
	// by dictating the first move.
	first := provider.calls[0]
	assert.Len(t, first.tools, 2)
	assert.Empty(t, first.options.ToolChoice)
}

func TestPlanningModeForcesPlanWriteOnFirstStep(t *testing.T) {
	provider := &scriptedProvider{steps: []llm.StepResponse{
		{ToolCalls: []llm.ToolCall{{Id: "call-1", Name: constant.ToolNameTodoWrite, Arguments: map[string]interface{}{
			"todos": []interface{}{map[string]interface{}{"id": "1", "content": "outline", "status": "pending"}},
		}}}},
		{Content: "done"},
	}}
	r := NewResearcher(provider, testRegistry())

	_, err := r.Run(context.Background(), ResolveMode(constant.SearchModePlanning, true), userTurn("x"), func(entity.Part) {})
	require.NoError(t, err)

	first := provider.calls[0]
	require.Len(t, first.tools, 1)
	assert.Equal(t, constant.ToolNameTodoWrite, first.tools[0].Name)
	assert.Equal(t, constant.ToolNameTodoWrite, first.options.ToolChoice)

	// Second step offers the full planning set again.
	second := provider.calls[1]
	assert.Len(t, second.tools, 5)
	assert.Empty(t, second.options.ToolChoice)
}

func TestTodoStateDoesNotLeakAcrossRuns(t *testing.T) {
	writeRun := &scriptedProvider{steps: []llm.StepResponse{
		{ToolCalls: []llm.ToolCall{{Id: "call-1", Name: constant.ToolNameTodoWrite, Arguments: map[string]interface{}{
			"todos": []interface{}{map[string]interface{}{"id": "1", "content": "outline", "status": "pending"}},
		}}}},
		{Content: "planned"},
	}}
	registry := testRegistry()
	r := NewResearcher(writeRun, registry)

	_, err := r.Run(context.Background(), ResolveMode(constant.SearchModeAdaptive, true), userTurn("x"), func(entity.Part) {})
	require.NoError(t, err)

	readRun := &scriptedProvider{steps: []llm.StepResponse{
		{ToolCalls: []llm.ToolCall{{Id: "call-2", Name: constant.ToolNameTodoRead, Arguments: map[string]interface{}{}}}},
		{Content: "read"},
	}}
	r2 := NewResearcher(readRun, registry)

	res, err := r2.Run(context.Background(), ResolveMode(constant.SearchModeAdaptive, true), userTurn("y"), func(entity.Part) {})
	require.NoError(t, err)

	var readPart *entity.ToolPart
	for _, p := range res.Parts {
		if tp, ok := p.(entity.ToolPart); ok && tp.Tool == constant.ToolNameTodoRead {
			readPart = &tp
			break
		}
	}
	require.NotNil(t, readPart)
	assert.Equal(t, float64(0), readPart.Output["count"], "each run starts with an empty plan")
}

func TestUnknownToolCallBecomesErrorPart(t *testing.T) {
	provider := &scriptedProvider{steps: []llm.StepResponse{
		{ToolCalls: []llm.ToolCall{{Id: "call-1", Name: "timeMachine", Arguments: map[string]interface{}{}}}},
		{Content: "recovered"},
	}}
	r := NewResearcher(provider, testRegistry())

	res, err := r.Run(context.Background(), ResolveMode(constant.SearchModeAdaptive, false), userTurn("x"), nil)
	require.NoError(t, err)

	var errorPart *entity.ToolPart
	for _, p := range res.Parts {
		if tp, ok := p.(entity.ToolPart); ok && tp.State == constant.ToolStateOutputError {
			errorPart = &tp
			break
		}
	}
	require.NotNil(t, errorPart)
	assert.Contains(t, errorPart.ErrorText, "not available")
	assert.Equal(t, "recovered", res.Text)
}

func TestBudgetExhaustionForcesClosingAnswer(t *testing.T) {
	call := llm.ToolCall{Id: "loop", Name: constant.ToolNameSearch, Arguments: map[string]interface{}{"query": "again"}}
	provider := &scriptedProvider{steps: []llm.StepResponse{
		{ToolCalls: []llm.ToolCall{call}},
		{ToolCalls: []llm.ToolCall{call}},
		{Content: "best effort answer"},
	}}
	r := NewResearcher(provider, testRegistry())

	mode := ResolveMode(constant.SearchModeAdaptive, false)
	mode.MaxSteps = 2

	res, err := r.Run(context.Background(), mode, userTurn("x"), nil)
	require.NoError(t, err)

	assert.Equal(t, "best effort answer", res.Text)
	// The closing call offers no tools.
	assert.Empty(t, provider.calls[len(provider.calls)-1].tools)
}

func TestCancellationPreservesPartialParts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	blocking := &tool.Tool{
		Name:       constant.ToolNameSearch,
		Parameters: map[string]interface{}{"type": "object"},
		Execute: func(ctx context.Context, args map[string]interface{}, callId string) <-chan tool.Event {
			cancel()
			return tool.Run(ctx, args, func(ctx context.Context) (map[string]interface{}, error) {
				return nil, ctx.Err()
			})
		},
	}
	reg := tool.NewRegistry()
	reg.Register(blocking)

	provider := &scriptedProvider{steps: []llm.StepResponse{
		{ToolCalls: []llm.ToolCall{{Id: "call-1", Name: constant.ToolNameSearch, Arguments: map[string]interface{}{}}}},
		{ToolCalls: []llm.ToolCall{{Id: "call-2", Name: constant.ToolNameSearch, Arguments: map[string]interface{}{}}}},
	}}
	r := NewResearcher(provider, reg)

	res, err := r.Run(ctx, ResolveMode(constant.SearchModeAdaptive, false), userTurn("x"), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotEmpty(t, res.Parts, "parts produced before cancellation survive")
}

func TestResolveModePolicies(t *testing.T) {
	quick := ResolveMode(constant.SearchModeQuick, true)
	assert.Equal(t, 20, quick.MaxSteps)
	assert.ElementsMatch(t, []string{constant.ToolNameSearch, constant.ToolNameFetch}, quick.ToolNames)
	assert.Empty(t, quick.ForcedFirstTool)
	assert.Contains(t, quick.ToolOverrides[constant.ToolNameSearch], "type")

	planning := ResolveMode(constant.SearchModePlanning, true)
	assert.Equal(t, 50, planning.MaxSteps)
	assert.Equal(t, constant.ToolNameTodoWrite, planning.ForcedFirstTool)

	adaptive := ResolveMode("something-else", true)
	assert.Equal(t, constant.SearchModeAdaptive, adaptive.Name)
	assert.Empty(t, adaptive.ForcedFirstTool)

	// Adaptive and planning expose the same tool set; they differ only in
	// whether the plan write is forced up front.
	assert.ElementsMatch(t, planning.ToolNames, adaptive.ToolNames)
	assert.Contains(t, adaptive.ToolNames, constant.ToolNameTodoWrite)
	assert.Contains(t, adaptive.ToolNames, constant.ToolNameTodoRead)
}

func TestResolveModeWithoutSinkDropsTodoTools(t *testing.T) {
	planning := ResolveMode(constant.SearchModePlanning, false)
	assert.NotContains(t, planning.ToolNames, constant.ToolNameTodoWrite)
	assert.NotContains(t, planning.ToolNames, constant.ToolNameTodoRead)
	assert.Empty(t, planning.ForcedFirstTool)

	adaptive := ResolveMode(constant.SearchModeAdaptive, false)
	assert.NotContains(t, adaptive.ToolNames, constant.ToolNameTodoWrite)
	assert.ElementsMatch(t, planning.ToolNames, adaptive.ToolNames)
}
