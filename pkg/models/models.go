package models

import "time"

// Book is one entry from a reader's Goodreads shelf feed. Pointer fields
// distinguish "not present in the feed" from an empty value and marshal as
// null so a cached profile round-trips exactly.
type Book struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	BookID        string   `json:"bookId"`
	ISBN          *string  `json:"isbn"`
	Pages         *int     `json:"pages"`
	AvgRating     *float64 `json:"avgRating"`
	MyRating      int      `json:"myRating"`
	MyRatingText  *string  `json:"myRatingText"`
	DateRead      *string  `json:"dateRead"`
	DateAdded     *string  `json:"dateAdded"`
	DateCreated   *string  `json:"dateCreated"`
	YearPublished *string  `json:"yearPublished"`
	ImageURL      *string  `json:"imageUrl"`
	Review        *string  `json:"review"`
	Description   *string  `json:"description"`
}

// Profile is one reader's ingested shelf. Built once per scrape and never
// mutated; a re-scrape replaces the cached value wholesale.
type Profile struct {
	UserID     string    `json:"userId"`
	UserName   *string   `json:"userName"`
	Shelf      string    `json:"shelf"`
	TotalBooks int       `json:"totalBooks"`
	ScrapedAt  time.Time `json:"scrapedAt"`
	Books      []Book    `json:"books"`
}

// Recommendation is one gift suggestion from the model. ImageURL is filled in
// by cover enrichment after generation.
type Recommendation struct {
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Year      *int    `json:"year"`
	Genre     string  `json:"genre"`
	PageCount *int    `json:"pageCount"`
	Reason    string  `json:"reason"`
	ImageURL  *string `json:"imageUrl,omitempty"`
}

// RecentProfile is a previously viewed reader, kept for quick re-entry.
type RecentProfile struct {
	UserID     string    `json:"user_id"`
	UserName   *string   `json:"user_name"`
	TotalBooks int       `json:"total_books"`
	ViewedAt   time.Time `json:"viewed_at"`
}

var ratingText = map[int]string{
	1: "did not like it",
	2: "it was ok",
	3: "liked it",
	4: "really liked it",
	5: "it was amazing",
}

// RatingText returns the Goodreads phrase for a star rating, or "" for an
// unset (0) or out-of-range rating.
func RatingText(rating int) string {
	return ratingText[rating]
}
