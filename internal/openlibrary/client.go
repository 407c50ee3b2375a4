package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the public Open Library host.
const DefaultBaseURL = "https://openlibrary.org"

const coversBaseURL = "https://covers.openlibrary.org"

type Client struct {
	baseURL string
	client  *http.Client
}

type searchResponse struct {
	Docs []searchDoc `json:"docs"`
}

type searchDoc struct {
	ISBN   []string `json:"isbn"`
	CoverI int      `json:"cover_i"`
}

// NewClient creates a client against the given host; an empty baseURL uses
// the public Open Library host.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ResolveCover looks up a best-effort cover image URL for a title/author
// pair. The empty string means no cover; lookups never fail the caller, so
// transport errors, bad statuses and empty result sets all resolve to "".
func (c *Client) ResolveCover(ctx context.Context, title, author string) string {
	params := url.Values{}
	params.Set("title", title)
	params.Set("author", author)
	params.Set("limit", "1")
	params.Set("fields", "isbn,cover_i")

	searchURL := fmt.Sprintf("%s/search.json?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return ""
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ""
	}
	if len(result.Docs) == 0 {
		return ""
	}

	doc := result.Docs[0]

	// The Open Library cover id is more reliable than ISBN lookups.
	if doc.CoverI != 0 {
		return fmt.Sprintf("%s/b/id/%d-M.jpg", coversBaseURL, doc.CoverI)
	}
	if len(doc.ISBN) > 0 {
		return fmt.Sprintf("%s/b/isbn/%s-M.jpg", coversBaseURL, doc.ISBN[0])
	}
	return ""
}
