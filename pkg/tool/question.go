package tool

import (
	"context"
	"fmt"

	"ai-research-chat-be/internal/constant"
)

// NewQuestionTool lets the agent pose a clarifying question to the user. The
// result payload is the question itself; the client renders it and the
// answer arrives as the next user message.
func NewQuestionTool() *Tool {
	return &Tool{
		Name:        constant.ToolNameQuestion,
		Description: "Ask the user a clarifying question when the request is ambiguous. Optionally offer answer choices.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to ask the user",
				},
				"options": map[string]interface{}{
					"type":        "array",
					"description": "Optional answer choices",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			"required": []string{"question"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}, callId string) <-chan Event {
			return Run(ctx, args, func(ctx context.Context) (map[string]interface{}, error) {
				question := asString(args["question"])
				if question == "" {
					return nil, fmt.Errorf("question: question text is required")
				}
				output := map[string]interface{}{
					"question": question,
				}
				if options, ok := args["options"].([]interface{}); ok && len(options) > 0 {
					output["options"] = options
				}
				return output, nil
			})
		},
	}
}
