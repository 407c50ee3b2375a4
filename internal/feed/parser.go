package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/bsaff/better-reads/pkg/models"
)

// descriptionLimit caps stored book descriptions, in runes.
const descriptionLimit = 500

// rssDocument mirrors the shape of a Goodreads list_rss page. The feed is
// RSS-flavored but its load-bearing fields are nonstandard item extensions,
// including one nested element (<book><num_pages>).
type rssDocument struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title           string `xml:"title"`
	BookID          string `xml:"book_id"`
	AuthorName      string `xml:"author_name"`
	ISBN            string `xml:"isbn"`
	UserRating      string `xml:"user_rating"`
	UserReadAt      string `xml:"user_read_at"`
	UserDateAdded   string `xml:"user_date_added"`
	UserDateCreated string `xml:"user_date_created"`
	AverageRating   string `xml:"average_rating"`
	BookPublished   string `xml:"book_published"`
	NumPages        string `xml:"book>num_pages"`
	UserReview      string `xml:"user_review"`
	BookImageURL    string `xml:"book_large_image_url"`
	BookDescription string `xml:"book_description"`
}

// Page is one parsed feed page. UserName is only meaningful on page 1, where
// the channel title carries the "<name>'s bookshelf" pattern.
type Page struct {
	UserName *string
	Books    []models.Book
}

var bookshelfTitleRe = regexp.MustCompile(`^(.+?)'s bookshelf`)

// entityReplacer handles entities that survive XML decoding because Goodreads
// wraps free text in CDATA. Applied to every free-text field so decoding is
// uniform across title, author, review and description.
var entityReplacer = strings.NewReplacer(
	"&apos;", "'",
	"&amp;", "&",
	"&quot;", `"`,
	"&lt;", "<",
	"&gt;", ">",
)

// ParseFeed decodes one page of a Goodreads shelf feed. Missing or empty
// fields become nil pointers on the resulting books; parsing never rejects an
// item for an absent field.
func ParseFeed(r io.Reader) (*Page, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var doc rssDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	page := &Page{}
	if m := bookshelfTitleRe.FindStringSubmatch(strings.TrimSpace(doc.Channel.Title)); m != nil {
		name := m[1]
		page.UserName = &name
	}
	for _, item := range doc.Channel.Items {
		page.Books = append(page.Books, parseItem(item))
	}
	return page, nil
}

// parseItem converts a decoded feed item into a Book.
func parseItem(item rssItem) models.Book {
	book := models.Book{
		Title:  entityReplacer.Replace(strings.TrimSpace(item.Title)),
		Author: entityReplacer.Replace(strings.TrimSpace(item.AuthorName)),
		BookID: strings.TrimSpace(item.BookID),
	}

	book.ISBN = optional(item.ISBN)
	if n, err := strconv.Atoi(strings.TrimSpace(item.NumPages)); err == nil {
		book.Pages = &n
	}
	if avg, err := strconv.ParseFloat(strings.TrimSpace(item.AverageRating), 64); err == nil && avg != 0 {
		book.AvgRating = &avg
	}

	// Missing or non-numeric ratings count as unrated.
	if rating, err := strconv.Atoi(strings.TrimSpace(item.UserRating)); err == nil {
		book.MyRating = rating
	}
	if phrase := models.RatingText(book.MyRating); phrase != "" {
		book.MyRatingText = &phrase
	}

	book.DateRead = optional(item.UserReadAt)
	book.DateAdded = optional(item.UserDateAdded)
	book.DateCreated = optional(item.UserDateCreated)
	book.YearPublished = optional(item.BookPublished)
	book.ImageURL = optional(item.BookImageURL)

	if review := strings.TrimSpace(item.UserReview); review != "" {
		decoded := entityReplacer.Replace(review)
		book.Review = &decoded
	}
	if desc := strings.TrimSpace(item.BookDescription); desc != "" {
		truncated := truncate(entityReplacer.Replace(desc), descriptionLimit)
		book.Description = &truncated
	}
	return book
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// truncate cuts s to at most limit runes, never splitting a multibyte
// character. No ellipsis is added.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
