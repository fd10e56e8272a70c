package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Result is one web hit with its cleaned page content.
type Result struct {
	URL     string
	Title   string
	Content string
	Score   float64
}

// Searcher is the contract the retrieval layer depends on. A nil searcher
// means web search is not configured and retrieval degrades to knowledge only.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Result, error)
}

// TavilyClient calls the Tavily REST search API, restricted to the
// configured vendor domains.
type TavilyClient struct {
	APIKey         string
	IncludeDomains []string
	Client         *http.Client
}

var _ Searcher = &TavilyClient{}

func NewTavilyClient(apiKey string, includeDomains []string) *TavilyClient {
	return &TavilyClient{
		APIKey:         apiKey,
		IncludeDomains: includeDomains,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type tavilySearchRequest struct {
	Query             string   `json:"query"`
	MaxResults        int      `json:"max_results"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
}

type tavilySearchResponse struct {
	Results []struct {
		URL        string  `json:"url"`
		Title      string  `json:"title"`
		Content    string  `json:"content"`
		RawContent string  `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

func (t *TavilyClient) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	reqPayload := tavilySearchRequest{
		Query:             query,
		MaxResults:        topK,
		IncludeRawContent: true,
		IncludeDomains:    t.IncludeDomains,
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", tavilyEndpoint, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.APIKey)

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tavilyResp tavilySearchResponse
	if err := json.Unmarshal(bodyBytes, &tavilyResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]Result, 0, len(tavilyResp.Results))
	for _, r := range tavilyResp.Results {
		content := r.RawContent
		if content == "" {
			content = r.Content
		}
		results = append(results, Result{
			URL:     r.URL,
			Title:   r.Title,
			Content: CleanRawContent(content),
			Score:   r.Score,
		})
	}

	return results, nil
}
