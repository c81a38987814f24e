package fetch

import (
	"context"
	"fmt"

	"ai-research-chat-be/internal/constant"
	"ai-research-chat-be/pkg/tool"
)

// NewFetchTool exposes the fetcher as an agent tool.
func NewFetchTool(f *Fetcher) *tool.Tool {
	return &tool.Tool{
		Name:        constant.ToolNameFetch,
		Description: "Fetch a web page and return its readable text content. Use after search to read a promising source in full.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The URL to fetch",
				},
				"max_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum characters of extracted text to return",
				},
			},
			"required": []string{"url"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}, callId string) <-chan tool.Event {
			return tool.Run(ctx, args, func(ctx context.Context) (map[string]interface{}, error) {
				rawURL, _ := args["url"].(string)
				if rawURL == "" {
					return nil, fmt.Errorf("fetch requires a url")
				}

				maxChars := 0
				if v, ok := args["max_chars"].(float64); ok {
					maxChars = int(v)
				}

				page, err := f.Fetch(ctx, rawURL, maxChars)
				if err != nil {
					return nil, err
				}

				out := map[string]interface{}{
					"url":         page.URL,
					"content":     page.Content,
					"status_code": page.StatusCode,
				}
				if page.Title != "" {
					out["title"] = page.Title
				}
				if page.Truncated {
					out["truncated"] = true
				}
				return out, nil
			})
		},
	}
}
