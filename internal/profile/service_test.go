package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsaff/better-reads/internal/database"
	"github.com/bsaff/better-reads/internal/feed"
)

func TestExtractUserID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"user URL with name suffix", "https://www.goodreads.com/user/show/23506884-ben", "23506884", true},
		{"user URL without suffix", "https://www.goodreads.com/user/show/23506884", "23506884", true},
		{"author URL with name suffix", "https://www.goodreads.com/author/show/18329379.Benjamin_Niespodziany", "18329379", true},
		{"author URL without suffix", "https://www.goodreads.com/author/show/18329379", "18329379", true},
		{"URL without protocol", "goodreads.com/user/show/23506884-ben", "23506884", true},
		{"bare numeric id", "23506884", "23506884", true},
		{"numeric id with whitespace", "  23506884  ", "23506884", true},
		{"book URL", "https://www.goodreads.com/book/show/12345", "", false},
		{"non-numeric input", "not-a-valid-id", "", false},
		{"empty string", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractUserID(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

// shelfServer serves a single-page shelf with count books and counts hits.
func shelfServer(t *testing.T, count int) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Ben's bookshelf: read</title>`)
		for i := 1; i <= count; i++ {
			fmt.Fprintf(w, `<item><title><![CDATA[Book %d]]></title><book_id>%d</book_id><author_name>Author %d</author_name><user_rating>5</user_rating></item>`, i, i, i)
		}
		fmt.Fprint(w, `</channel></rss>`)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestService(t *testing.T, srv *httptest.Server) (*Service, *database.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "betterreads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, feed.NewScraper(srv.URL)), db
}

func TestLoad_MissScrapesAndCaches(t *testing.T) {
	srv, hits := shelfServer(t, 3)
	svc, db := newTestService(t, srv)

	profile, err := svc.Load(context.Background(), "23506884", "read")
	require.NoError(t, err)
	assert.Equal(t, 3, profile.TotalBooks)
	assert.Equal(t, 1, *hits)

	cached, err := db.GetProfile("23506884")
	require.NoError(t, err)
	require.NotNil(t, cached, "a successful scrape must fill the cache")

	// Second load is served from the cache; the feed is not touched again.
	again, err := svc.Load(context.Background(), "23506884", "read")
	require.NoError(t, err)
	assert.Equal(t, profile.TotalBooks, again.TotalBooks)
	assert.Equal(t, 1, *hits)
}

func TestLoad_EmptyShelf(t *testing.T) {
	srv, _ := shelfServer(t, 0)
	svc, db := newTestService(t, srv)

	_, err := svc.Load(context.Background(), "23506884", "read")
	require.ErrorIs(t, err, ErrEmptyShelf)

	cached, err := db.GetProfile("23506884")
	require.NoError(t, err)
	assert.Nil(t, cached, "an empty shelf must never be cached")
}

func TestRefresh_ReplacesCachedEntry(t *testing.T) {
	srv, hits := shelfServer(t, 2)
	svc, db := newTestService(t, srv)

	_, err := svc.Load(context.Background(), "23506884", "read")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), "23506884", "read")
	require.NoError(t, err)
	assert.Equal(t, 2, *hits, "refresh must bypass the cache")

	cached, err := db.GetProfile("23506884")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, refreshed.ScrapedAt, cached.ScrapedAt)
}

func TestLoad_ScrapeFailureLeavesCacheEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	svc, db := newTestService(t, srv)

	_, err := svc.Load(context.Background(), "23506884", "read")
	require.Error(t, err)

	cached, err := db.GetProfile("23506884")
	require.NoError(t, err)
	assert.Nil(t, cached)
}
