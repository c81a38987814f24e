// Package tool defines the capabilities the researcher agent can invoke.
//
// Every tool execution produces a finite, non-restartable event sequence:
// first an event echoing the validated input, then exactly one terminal
// event carrying either the result payload or an error text. The channel is
// closed after the terminal event.
package tool

import (
	"context"

	"ai-research-chat-be/internal/constant"
)

// Event is one state-tagged emission from a running tool.
type Event struct {
	State     string
	Input     map[string]interface{}
	Output    map[string]interface{}
	ErrorText string
}

// Terminal reports whether this event ends the sequence.
func (e Event) Terminal() bool {
	return e.State == constant.ToolStateOutputAvailable || e.State == constant.ToolStateOutputError
}

// ExecuteFunc runs one tool invocation. Implementations must emit at least
// one input event and exactly one terminal event, then close the channel.
type ExecuteFunc func(ctx context.Context, args map[string]interface{}, callId string) <-chan Event

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON Schema
	Execute     ExecuteFunc
}

// Run wraps a plain result-producing function into the event-sequence
// contract. The input echo is emitted synchronously before fn runs.
func Run(ctx context.Context, args map[string]interface{}, fn func(ctx context.Context) (map[string]interface{}, error)) <-chan Event {
	ch := make(chan Event, 2)
	ch <- Event{State: constant.ToolStateInputAvailable, Input: args}

	go func() {
		defer close(ch)
		output, err := fn(ctx)
		if err != nil {
			ch <- Event{State: constant.ToolStateOutputError, Input: args, ErrorText: err.Error()}
			return
		}
		ch <- Event{State: constant.ToolStateOutputAvailable, Input: args, Output: output}
	}()

	return ch
}

// WithOverrides returns a copy of the tool whose listed inputs are forced to
// fixed values before delegation. Events from the underlying tool pass
// through unmodified.
func WithOverrides(t *Tool, overrides map[string]interface{}) *Tool {
	wrapped := *t
	wrapped.Execute = func(ctx context.Context, args map[string]interface{}, callId string) <-chan Event {
		merged := make(map[string]interface{}, len(args)+len(overrides))
		for k, v := range args {
			merged[k] = v
		}
		for k, v := range overrides {
			merged[k] = v
		}
		return t.Execute(ctx, merged, callId)
	}
	return &wrapped
}

// Registry holds the available tools in registration order.
type Registry struct {
	tools map[string]*Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Clone copies the registry so callers can add run-scoped tools without
// mutating the shared set.
func (r *Registry) Clone() *Registry {
	out := NewRegistry()
	for _, name := range r.order {
		out.Register(r.tools[name])
	}
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Subset returns the named tools, skipping any that are not registered.
func (r *Registry) Subset(names ...string) []*Tool {
	subset := make([]*Tool, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			subset = append(subset, t)
		}
	}
	return subset
}

