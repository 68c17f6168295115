package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	tavilyEndpoint   = "https://api.tavily.com/search"
	tavilyMaxResults = 5
	snippetLimit     = 300
)

// WebSearchOptions configure the web search tool.
type WebSearchOptions struct {
	// APIKey for Tavily. Falls back to the TAVILY_API_KEY environment
	// variable when empty.
	APIKey string
	// HTTPClient used for requests (defaults to a client with a 30s timeout).
	HTTPClient *http.Client
	// Endpoint of the search API, overridable for tests.
	Endpoint string
}

// WebSearch queries the Tavily search API and returns the top results as
// formatted text. Transport and upstream failures are returned as
// model-visible text since the LLM can usually proceed without live data.
type WebSearch struct {
	opts WebSearchOptions
}

// NewWebSearch creates the web_search tool.
func NewWebSearch(optFns ...func(o *WebSearchOptions)) *WebSearch {
	opts := WebSearchOptions{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Endpoint:   tavilyEndpoint,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &WebSearch{opts: opts}
}

// Name implements Tool.
func (t *WebSearch) Name() string { return "web_search" }

// Description implements Tool.
func (t *WebSearch) Description() string {
	return "Search the web and return the top results as formatted text. " +
		"Use this for real-time information, company news, recent events, or any " +
		"question that benefits from live web data."
}

// Parameters implements Tool.
func (t *WebSearch) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query string",
			},
		},
		"required": []string{"query"},
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Call implements Tool.
func (t *WebSearch) Call(ctx context.Context, args map[string]any) (any, error) {
	query, ok := stringArg(args, "query")
	if !ok {
		return nil, NewToolError(t.Name(), "missing required argument 'query'", "invalid_arguments")
	}

	apiKey := t.opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("TAVILY_API_KEY")
	}
	if apiKey == "" {
		return "Error: TAVILY_API_KEY environment variable is not set.", nil
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:      apiKey,
		Query:       query,
		MaxResults:  tavilyMaxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "encode_failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewToolError(t.Name(), err.Error(), "request_failed")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err), nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Search failed: upstream returned status %d", resp.StatusCode), nil
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Sprintf("Search failed: %v", err), nil
	}
	if len(parsed.Results) == 0 {
		return fmt.Sprintf("No results found for: %s", query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for: %s\n", query)
	for i, r := range parsed.Results {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		snippet := strings.TrimSpace(r.Content)
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit] + "..."
		}
		fmt.Fprintf(&sb, "\n%d. %s\n   URL: %s\n   %s\n", i+1, title, r.URL, snippet)
	}
	return sb.String(), nil
}
