// Package trends is the client for the generative search collaborator. The
// core treats it as an opaque request/response service: no retries, no
// blocking of anything else, and every failure degrades to a fixed fallback.
package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Fallbacks returned when the collaborator is unreachable or misbehaves.
const (
	searchFallback = "Error fetching data from the web. Please try again later."
	trendsFallback = "Unable to fetch live trends. Staying tuned for updates."
)

const requestTimeout = 10 * time.Second

// Source is one grounding citation attached to a search answer.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SearchResult is a grounded answer with its citations.
type SearchResult struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Client talks to the generative AI endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a collaborator client. An empty baseURL produces a
// client that always answers with the fallbacks, which keeps offline
// deployments working.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type generateRequest struct {
	Prompt   string `json:"prompt"`
	Grounded bool   `json:"grounded"`
}

type generateResponse struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// SearchWithGrounding asks for a grounded summary of live information about
// the query. Failures are absorbed into the fallback answer.
func (c *Client) SearchWithGrounding(ctx context.Context, query string) SearchResult {
	prompt := fmt.Sprintf("Research the latest real-time information about: %s. Provide a concise summary for a social media feed.", query)

	resp, err := c.generate(ctx, generateRequest{Prompt: prompt, Grounded: true})
	if err != nil {
		log.Printf("[Trends] Search failed: query=%q err=%v", query, err)
		return SearchResult{Text: searchFallback, Sources: []Source{}}
	}
	if resp.Text == "" {
		resp.Text = "No results found."
	}
	if resp.Sources == nil {
		resp.Sources = []Source{}
	}
	return SearchResult{Text: resp.Text, Sources: resp.Sources}
}

// TrendingSummary asks for the current high-impact trending topics.
func (c *Client) TrendingSummary(ctx context.Context) string {
	resp, err := c.generate(ctx, generateRequest{
		Prompt:   "Identify the top 3 high-impact trending topics in tech and social media globally right now. Provide a brief one-sentence context for each.",
		Grounded: true,
	})
	if err != nil {
		log.Printf("[Trends] Trending summary failed: err=%v", err)
		return trendsFallback
	}
	if resp.Text == "" {
		return trendsFallback
	}
	return resp.Text
}

func (c *Client) generate(ctx context.Context, reqBody generateRequest) (*generateResponse, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("no AI endpoint configured")
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call AI endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AI endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
