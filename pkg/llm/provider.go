package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role       string // "user", "assistant", "system", "tool"
	Content    string
	ToolCalls  []ToolCall // set on assistant messages that request tools
	ToolCallId string     // set on tool result messages
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Id        string
	Name      string
	Arguments map[string]interface{}
}

// ToolDef describes a callable tool for the model (JSON Schema parameters).
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// StepResponse is one step of a tool-augmented generation.
type StepResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	ToolChoice  string // Force a specific tool on this step (providers that cannot honor it fall back to tool filtering in the caller)
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithToolChoice(name string) Option {
	return func(o *Options) {
		o.ToolChoice = name
	}
}

// Provider defines the contract for any LLM backend
type Provider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatWithTools runs one generation step with the given tool subset. The
	// returned step carries text content and zero or more tool calls; the
	// caller owns executing them and feeding results back as tool messages.
	ChatWithTools(ctx context.Context, history []Message, tools []ToolDef, options ...Option) (*StepResponse, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
