package gift

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsaff/better-reads/internal/openlibrary"
	"github.com/bsaff/better-reads/pkg/models"
)

func strPtr(s string) *string { return &s }

// chatResponse renders a chat completion body with a single choice.
func chatResponse(t *testing.T, content, finishReason string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finishReason,
		}},
	})
	require.NoError(t, err)
	return string(body)
}

const fiveRecommendations = `{"recommendations":[
  {"title":"R1","author":"A1","year":2001,"genre":"Fiction","pageCount":301,"reason":"because one"},
  {"title":"R2","author":"A2","year":null,"genre":"Memoir","pageCount":null,"reason":"because two"},
  {"title":"R3","author":"A3","year":2003,"genre":"History","pageCount":303,"reason":"because three"},
  {"title":"R4","author":"A4","year":2004,"genre":"Poetry","pageCount":304,"reason":"because four"},
  {"title":"R5","author":"A5","year":2005,"genre":"Essays","pageCount":305,"reason":"because five"}
]}`

func testProfile(ratings ...int) *models.Profile {
	p := &models.Profile{UserID: "23506884", Shelf: "read"}
	for i, r := range ratings {
		p.Books = append(p.Books, models.Book{
			Title:    fmt.Sprintf("Book %d", i+1),
			Author:   fmt.Sprintf("Author %d", i+1),
			BookID:   fmt.Sprintf("%d", i+1),
			MyRating: r,
		})
	}
	p.TotalBooks = len(p.Books)
	return p
}

// newTestEngine points the engine at a fake model endpoint and a fake Open
// Library, mirroring how the real clients are wired in main.
func newTestEngine(t *testing.T, model http.HandlerFunc, covers http.HandlerFunc) *Engine {
	t.Helper()
	modelSrv := httptest.NewServer(model)
	t.Cleanup(modelSrv.Close)
	coverSrv := httptest.NewServer(covers)
	t.Cleanup(coverSrv.Close)

	client := openai.NewClient(
		option.WithBaseURL(modelSrv.URL),
		option.WithAPIKey("test-key"),
	)
	return NewEngine(client, openlibrary.NewClient(coverSrv.URL), "gpt-4o", 1500, rand.New(rand.NewSource(1)))
}

func serveJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func TestFavorites_OnlyFiveStarBooks(t *testing.T) {
	profile := testProfile(5, 3, 0, 5, 4, 1, 5)

	favorites := Favorites(profile.Books)
	require.Len(t, favorites, 3)
	for _, b := range favorites {
		assert.Equal(t, 5, b.MyRating)
	}
}

func TestSample_CapsAtFifty(t *testing.T) {
	engine := newTestEngine(t, serveJSON(""), serveJSON(""))

	sample := engine.sample(Favorites(testProfile(manyRatings(80, 5)...).Books))
	assert.Len(t, sample, 50)
	for _, b := range sample {
		assert.Equal(t, 5, b.MyRating)
	}
}

func TestSample_DeterministicWithSeed(t *testing.T) {
	favorites := Favorites(testProfile(manyRatings(20, 5)...).Books)

	a := NewEngine(openai.Client{}, nil, "gpt-4o", 1500, rand.New(rand.NewSource(42))).sample(favorites)
	b := NewEngine(openai.Client{}, nil, "gpt-4o", 1500, rand.New(rand.NewSource(42))).sample(favorites)
	assert.Equal(t, a, b, "same seed must produce the same sample")
}

func manyRatings(n, rating int) []int {
	ratings := make([]int, n)
	for i := range ratings {
		ratings[i] = rating
	}
	return ratings
}

func TestRecommend_NoFavoritesBeforeAnyModelCall(t *testing.T) {
	modelCalled := false
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		modelCalled = true
	}, serveJSON(`{"docs":[]}`))

	_, err := engine.Recommend(context.Background(), testProfile(4, 3, 0))
	require.ErrorIs(t, err, ErrNoFavorites)
	assert.False(t, modelCalled, "the model must not be invoked without favorites")
}

func TestRecommend_Success(t *testing.T) {
	engine := newTestEngine(t,
		serveJSON(chatResponse(t, fiveRecommendations, "stop")),
		serveJSON(`{"docs":[{"cover_i":42}]}`),
	)

	recs, err := engine.Recommend(context.Background(), testProfile(5, 5, 2))
	require.NoError(t, err)
	require.Len(t, recs, 5)

	// Model order is preserved regardless of which cover lookup settles first.
	for i, rec := range recs {
		assert.Equal(t, fmt.Sprintf("R%d", i+1), rec.Title)
		require.NotNil(t, rec.ImageURL)
		assert.Contains(t, *rec.ImageURL, "/b/id/42-M.jpg")
	}
	assert.Nil(t, recs[1].Year)
	require.NotNil(t, recs[0].Year)
	assert.Equal(t, 2001, *recs[0].Year)
}

func TestRecommend_PromptCarriesFavorites(t *testing.T) {
	var requestBody string
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		requestBody = string(raw)
		serveJSON(chatResponse(t, fiveRecommendations, "stop"))(w, r)
	}, serveJSON(`{"docs":[]}`))

	profile := testProfile(5, 1)
	profile.Books[0].YearPublished = strPtr("1946")
	profile.Books[0].Description = strPtr("A remarkable life.")

	_, err := engine.Recommend(context.Background(), profile)
	require.NoError(t, err)

	assert.Contains(t, requestBody, `\"Book 1\" by Author 1 (1946)`)
	assert.Contains(t, requestBody, "Description: A remarkable life.")
	assert.NotContains(t, requestBody, `\"Book 2\"`, "non-favorites must stay out of the prompt")
	assert.Contains(t, requestBody, "exactly five recommendations")
}

func TestRecommend_TruncatedResponse(t *testing.T) {
	engine := newTestEngine(t,
		serveJSON(chatResponse(t, "", "length")),
		serveJSON(`{"docs":[]}`),
	)

	_, err := engine.Recommend(context.Background(), testProfile(5))
	require.ErrorIs(t, err, ErrTruncated)
	assert.NotErrorIs(t, err, ErrBadSchema, "truncation must stay distinguishable from a schema failure")
}

func TestRecommend_MalformedJSONIsSchemaError(t *testing.T) {
	engine := newTestEngine(t,
		serveJSON(chatResponse(t, `{"recommendations": [oops`, "stop")),
		serveJSON(`{"docs":[]}`),
	)

	_, err := engine.Recommend(context.Background(), testProfile(5))
	require.ErrorIs(t, err, ErrBadSchema)
	assert.NotErrorIs(t, err, ErrTruncated)
}

func TestRecommend_MissingRecommendationsArrayIsSchemaError(t *testing.T) {
	engine := newTestEngine(t,
		serveJSON(chatResponse(t, `{"suggestions": []}`, "stop")),
		serveJSON(`{"docs":[]}`),
	)

	_, err := engine.Recommend(context.Background(), testProfile(5))
	require.ErrorIs(t, err, ErrBadSchema)
}

func TestRecommend_EmptyContent(t *testing.T) {
	engine := newTestEngine(t,
		serveJSON(chatResponse(t, "", "stop")),
		serveJSON(`{"docs":[]}`),
	)

	_, err := engine.Recommend(context.Background(), testProfile(5))
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestRecommend_ModelFailurePropagates(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}, serveJSON(`{"docs":[]}`))

	_, err := engine.Recommend(context.Background(), testProfile(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calling model")
}

// The no-duplicates / not-from-favorites rules are part of the prompt
// contract, not locally re-validated: a violating response flows through.
func TestRecommend_ContractViolationsPassThrough(t *testing.T) {
	violating := `{"recommendations":[
	  {"title":"Book 1","author":"Author 1","year":null,"genre":"Fiction","pageCount":null,"reason":"already a favorite"},
	  {"title":"Twice","author":"Same","year":null,"genre":"Fiction","pageCount":null,"reason":"dup"},
	  {"title":"Twice","author":"Same","year":null,"genre":"Fiction","pageCount":null,"reason":"dup again"}
	]}`
	engine := newTestEngine(t,
		serveJSON(chatResponse(t, violating, "stop")),
		serveJSON(`{"docs":[]}`),
	)

	recs, err := engine.Recommend(context.Background(), testProfile(5))
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Book 1", recs[0].Title)
	assert.Equal(t, recs[1].Title, recs[2].Title)
}

func TestRecommend_OneFailedCoverLookupDegradesAlone(t *testing.T) {
	engine := newTestEngine(t,
		serveJSON(chatResponse(t, fiveRecommendations, "stop")),
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("title") == "R3" {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"docs":[{"cover_i":7}]}`)
		},
	)

	recs, err := engine.Recommend(context.Background(), testProfile(5))
	require.NoError(t, err)
	require.Len(t, recs, 5)

	for i, rec := range recs {
		if rec.Title == "R3" {
			assert.Nil(t, rec.ImageURL, "the failed lookup degrades to no cover")
			continue
		}
		require.NotNil(t, rec.ImageURL, "rec %d must keep its cover", i)
	}
}

func TestFormatFavorites(t *testing.T) {
	books := []models.Book{
		{Title: "Autobiography", Author: "Paramahansa Yogananda", YearPublished: strPtr("1946"), Description: strPtr("A remarkable life.")},
		{Title: "Bare Minimum", Author: "Anon"},
	}

	got := formatFavorites(books)
	assert.Equal(t, "- \"Autobiography\" by Paramahansa Yogananda (1946)\n  Description: A remarkable life.\n\n- \"Bare Minimum\" by Anon", got)
}
