package gift

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"

	"github.com/bsaff/better-reads/internal/openlibrary"
	"github.com/bsaff/better-reads/pkg/models"
)

var (
	// ErrNoFavorites means the reader has no five-star books; recommendations
	// are undefined without a favorites signal.
	ErrNoFavorites = errors.New("no five-star books to draw from")

	// ErrTruncated means the model stopped on its length limit. Reported
	// separately because the caller can retry with a smaller sample.
	ErrTruncated = errors.New("model response truncated by length limit")

	// ErrEmptyResponse means the model returned no content at all.
	ErrEmptyResponse = errors.New("model returned no content")

	// ErrBadSchema means the response was present but not parseable as the
	// declared JSON shape.
	ErrBadSchema = errors.New("model response does not match the expected shape")
)

// maxFavoritesSample bounds prompt size. Favorites are shuffled before the
// cap so the sample represents the reader's full taste, not just the most
// recently logged books.
const maxFavoritesSample = 50

const systemPrompt = `You are a thoughtful book recommender helping someone pick a book gift for a friend.
Respond with JSON only. No markdown fencing, no commentary outside the JSON document.
Return exactly five recommendations. Never repeat a title or an author, and never
recommend a book that appears in the favorites list you are given. When you do not
know a numeric field such as year or pageCount, use null instead of guessing.`

// Engine turns a reader's five-star favorites into five gift suggestions via
// a structured-output chat completion, then enriches each with a cover image.
type Engine struct {
	client    openai.Client
	covers    *openlibrary.Client
	model     string
	maxTokens int64
	rng       *rand.Rand
}

// NewEngine wires the engine's collaborators. The random source drives the
// favorites shuffle and is injected so sampling is deterministic in tests.
func NewEngine(client openai.Client, covers *openlibrary.Client, model string, maxTokens int64, rng *rand.Rand) *Engine {
	return &Engine{
		client:    client,
		covers:    covers,
		model:     model,
		maxTokens: maxTokens,
		rng:       rng,
	}
}

// Favorites returns the books the reader rated five stars.
func Favorites(books []models.Book) []models.Book {
	var favorites []models.Book
	for _, book := range books {
		if book.MyRating == 5 {
			favorites = append(favorites, book)
		}
	}
	return favorites
}

// Recommend produces five gift suggestions for the profile. The returned
// slice preserves the model's order; covers are filled in best-effort.
func (e *Engine) Recommend(ctx context.Context, profile *models.Profile) ([]models.Recommendation, error) {
	favorites := Favorites(profile.Books)
	if len(favorites) == 0 {
		return nil, ErrNoFavorites
	}

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(e.sample(favorites))),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(e.maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("calling model: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		return nil, ErrTruncated
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	var parsed struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSchema, err)
	}
	if parsed.Recommendations == nil {
		return nil, fmt.Errorf("%w: missing recommendations array", ErrBadSchema)
	}

	recommendations := parsed.Recommendations
	e.enrichCovers(ctx, recommendations)
	return recommendations, nil
}

// sample shuffles a copy of the favorites and caps it at maxFavoritesSample.
func (e *Engine) sample(favorites []models.Book) []models.Book {
	shuffled := make([]models.Book, len(favorites))
	copy(shuffled, favorites)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > maxFavoritesSample {
		shuffled = shuffled[:maxFavoritesSample]
	}
	return shuffled
}

// enrichCovers fans out one cover lookup per recommendation and joins before
// returning. A failed lookup leaves that one cover unset; it never disturbs
// the other lookups or the result order.
func (e *Engine) enrichCovers(ctx context.Context, recommendations []models.Recommendation) {
	var wg sync.WaitGroup
	for i := range recommendations {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if coverURL := e.covers.ResolveCover(ctx, recommendations[i].Title, recommendations[i].Author); coverURL != "" {
				recommendations[i].ImageURL = &coverURL
			}
		}(i)
	}
	wg.Wait()
}
