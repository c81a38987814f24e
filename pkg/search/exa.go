package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const exaEndpoint = "https://api.exa.ai/search"

// Exa implements the Provider interface for the Exa neural search API. It is
// a secondary provider; requests opt into it explicitly.
type Exa struct {
	apiKey     string
	httpClient *http.Client
}

func NewExa(apiKey string) *Exa {
	return &Exa{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (e *Exa) Name() string { return "exa" }

type exaRequest struct {
	Query          string   `json:"query"`
	NumResults     int      `json:"numResults,omitempty"`
	IncludeDomains []string `json:"includeDomains,omitempty"`
	ExcludeDomains []string `json:"excludeDomains,omitempty"`
	Contents       struct {
		Text bool `json:"text"`
	} `json:"contents"`
}

type exaResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Text          string  `json:"text"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"publishedDate"`
	} `json:"results"`
}

func (e *Exa) Search(ctx context.Context, req *Request) (*Response, error) {
	payload := exaRequest{
		Query:          req.Query,
		NumResults:     req.MaxResults,
		IncludeDomains: req.IncludeDomains,
		ExcludeDomains: req.ExcludeDomains,
	}
	payload.Contents.Text = true

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("exa: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, exaEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("exa: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("exa: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exa: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var er exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("exa: decode response: %w", err)
	}

	out := &Response{Query: req.Query}
	for _, r := range er.Results {
		out.Results = append(out.Results, Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Text,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}
	return out, nil
}
