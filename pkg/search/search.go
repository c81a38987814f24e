// Package search provides web search providers with response caching,
// in-flight request deduplication and multi-source result merging.
package search

import "context"

// Request describes a single search invocation against a provider.
type Request struct {
	Query          string   `json:"query"`
	Provider       string   `json:"provider,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	Depth          string   `json:"depth,omitempty"`
	Topic          string   `json:"topic,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
	IncludeImages  bool     `json:"include_images,omitempty"`
}

// Result is a single ranked search hit.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// Image is an image hit attached to a search response.
type Image struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Response aggregates the provider output for one query.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
	Images  []Image  `json:"images,omitempty"`
}

// Provider executes searches against a concrete backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, req *Request) (*Response, error)
}
