package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// searchResultCount is how many results we request from the Custom
// Search API per query.
const searchResultCount = "3"

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Search performs a curated web search through the Google Custom Search
// JSON API, returning the top results as Source/Title/Content blocks
// joined by "---".
func (c *Client) Search(ctx context.Context, query string) string {
	c.log.Info("web search: %s", query)

	if c.creds.GoogleKey == "" || c.creds.GoogleCSEID == "" {
		return "Web search is not configured. Please set GOOGLE_API_KEY and GOOGLE_CSE_ID in your .env file."
	}

	q := url.Values{}
	q.Set("key", c.creds.GoogleKey)
	q.Set("cx", c.creds.GoogleCSEID)
	q.Set("q", query)
	q.Set("num", searchResultCount)

	req, err := http.NewRequestWithContext(ctx, "GET", c.searchURL+"?"+q.Encode(), nil)
	if err != nil {
		return "There was an error during the live search."
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("search request failed: %v", err)
		return "Could not search due to a network issue."
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("There was an error during the live search (status %d).", resp.StatusCode)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.log.Warn("search decode failed: %v", err)
		return "There was an error reading the search results."
	}

	var blocks []string
	for _, item := range data.Items {
		snippet := strings.ReplaceAll(item.Snippet, "...", "")
		blocks = append(blocks, fmt.Sprintf("Source: %s\nTitle: %s\nContent: %s",
			item.Link, item.Title, snippet))
	}

	if len(blocks) == 0 {
		return "No relevant information found in trusted online sources."
	}
	return strings.Join(blocks, "\n---\n")
}
