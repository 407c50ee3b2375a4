package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bsaff/better-reads/pkg/models"
)

// DefaultBaseURL is the public Goodreads host.
const DefaultBaseURL = "https://www.goodreads.com"

// pageSize is the fixed maximum number of items per feed page. A page with
// fewer items is the feed's authoritative last-page signal.
const pageSize = 100

// Scraper fetches a reader's shelf feed page by page.
type Scraper struct {
	baseURL string
	client  *http.Client
}

// NewScraper creates a scraper against the given host; an empty baseURL uses
// the public Goodreads host.
func NewScraper(baseURL string) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Scraper{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Scrape walks the shelf feed in strictly increasing page order and returns
// the assembled profile. A page of exactly 100 items always triggers one more
// request, even if it happens to be the true last page. An empty shelf yields
// a profile with zero books rather than an error; callers decide whether that
// is usable.
func (s *Scraper) Scrape(ctx context.Context, userID, shelf string) (*models.Profile, error) {
	profile := &models.Profile{
		UserID:    userID,
		Shelf:     shelf,
		ScrapedAt: time.Now().UTC(),
	}

	for page := 1; ; page++ {
		parsed, err := s.fetchPage(ctx, userID, shelf, page)
		if err != nil {
			return nil, err
		}
		if page == 1 {
			profile.UserName = parsed.UserName
		}
		profile.Books = append(profile.Books, parsed.Books...)
		if len(parsed.Books) < pageSize {
			break
		}
	}

	profile.TotalBooks = len(profile.Books)
	return profile, nil
}

func (s *Scraper) fetchPage(ctx context.Context, userID, shelf string, page int) (*Page, error) {
	feedURL := fmt.Sprintf("%s/review/list_rss/%s?shelf=%s&page=%d",
		s.baseURL, url.PathEscape(userID), url.QueryEscape(shelf), page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for page %d: %w", page, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching page %d: unexpected status %s", page, resp.Status)
	}

	parsed, err := ParseFeed(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing page %d: %w", page, err)
	}
	return parsed, nil
}
