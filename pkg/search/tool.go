package search

import (
	"context"
	"fmt"
	"strconv"

	"ai-research-chat-be/internal/constant"
	"ai-research-chat-be/pkg/tool"
)

const (
	defaultMaxResults = 10
	topicGeneral      = "general"
	depthMulti        = "multi"
)

// NewSearchTool exposes the manager as an agent tool. The terminal output
// carries the merged result list plus a 1-based rank index over it.
func NewSearchTool(mgr *Manager) *tool.Tool {
	return &tool.Tool{
		Name:        constant.ToolNameSearch,
		Description: "Search the web for current information. Returns ranked results with content snippets and an optional synthesized answer.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The search query",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{DepthBasic, DepthAdvanced, depthMulti},
					"description": "Search depth. Use multi to combine basic and advanced passes.",
				},
				"topic": map[string]interface{}{
					"type":        "string",
					"enum":        []string{topicGeneral, "news", "finance"},
					"description": "Topic category for the search",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
				},
				"include_domains": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Restrict results to these domains",
				},
				"exclude_domains": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Exclude results from these domains",
				},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}, callId string) <-chan tool.Event {
			return tool.Run(ctx, args, func(ctx context.Context) (map[string]interface{}, error) {
				query, _ := args["query"].(string)
				if query == "" {
					return nil, fmt.Errorf("search requires a non-empty query")
				}

				req := &Request{
					Query:          query,
					MaxResults:     intArg(args, "max_results", defaultMaxResults),
					Depth:          stringArg(args, "type", DepthBasic),
					Topic:          stringArg(args, "topic", topicGeneral),
					IncludeDomains: stringSliceArg(args, "include_domains"),
					ExcludeDomains: stringSliceArg(args, "exclude_domains"),
				}

				var (
					res *Response
					err error
				)
				if req.Depth == depthMulti {
					res, err = mgr.SearchMultiDepth(ctx, req)
				} else {
					res, err = mgr.Search(ctx, req)
				}
				if err != nil {
					return nil, err
				}

				return searchOutput(res), nil
			})
		},
	}
}

func searchOutput(res *Response) map[string]interface{} {
	results := make([]interface{}, 0, len(res.Results))
	ranked := make(map[string]interface{}, len(res.Results))
	for i, r := range res.Results {
		item := map[string]interface{}{
			"title":   r.Title,
			"url":     r.URL,
			"content": r.Content,
			"score":   r.Score,
		}
		if r.PublishedDate != "" {
			item["published_date"] = r.PublishedDate
		}
		results = append(results, item)
		ranked[strconv.Itoa(i+1)] = item
	}

	out := map[string]interface{}{
		"query":   res.Query,
		"results": results,
		"sources": ranked,
	}
	if res.Answer != "" {
		out["answer"] = res.Answer
	}
	if len(res.Images) > 0 {
		images := make([]interface{}, 0, len(res.Images))
		for _, img := range res.Images {
			images = append(images, map[string]interface{}{
				"url":         img.URL,
				"description": img.Description,
			})
		}
		out["images"] = images
	}
	return out
}

func stringArg(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
