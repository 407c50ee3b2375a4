package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bsaff/better-reads/internal/database"
	"github.com/bsaff/better-reads/internal/feed"
	"github.com/bsaff/better-reads/pkg/models"
)

// ErrEmptyShelf means ingestion completed but found no books: a legitimate
// feed state, but nothing can be built from it. The cache is never written
// for an empty shelf.
var ErrEmptyShelf = errors.New("shelf contains no books")

var userIDRe = regexp.MustCompile(`/(user|author)/show/(\d+)`)

// Service is the read-through front of the profile cache: cache hit returns
// immediately, a miss scrapes the feed and fills the cache.
type Service struct {
	db      *database.DB
	scraper *feed.Scraper
}

func NewService(db *database.DB, scraper *feed.Scraper) *Service {
	return &Service{db: db, scraper: scraper}
}

// Load returns the reader's profile, scraping and caching it on a miss.
func (s *Service) Load(ctx context.Context, userID, shelf string) (*models.Profile, error) {
	cached, err := s.db.GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("reading profile cache: %w", err)
	}
	if cached != nil {
		return cached, nil
	}
	return s.Refresh(ctx, userID, shelf)
}

// Refresh re-ingests the shelf unconditionally. The fresh profile fully
// replaces any cached entry for the reader.
func (s *Service) Refresh(ctx context.Context, userID, shelf string) (*models.Profile, error) {
	profile, err := s.scraper.Scrape(ctx, userID, shelf)
	if err != nil {
		return nil, err
	}
	if len(profile.Books) == 0 {
		return nil, ErrEmptyShelf
	}
	if err := s.db.PutProfile(profile); err != nil {
		return nil, fmt.Errorf("caching profile: %w", err)
	}
	return profile, nil
}

// ExtractUserID pulls the numeric reader id out of a Goodreads profile or
// author URL, or accepts a bare numeric id. Returns false when the input
// contains no usable id.
//
// Supported forms include:
//
//	https://www.goodreads.com/user/show/23506884-ben
//	https://www.goodreads.com/author/show/18329379.Benjamin_Niespodziany
//	goodreads.com/user/show/23506884
//	23506884
func ExtractUserID(input string) (string, bool) {
	if m := userIDRe.FindStringSubmatch(input); m != nil {
		return m[2], true
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return trimmed, true
}
