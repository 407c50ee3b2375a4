package gift

import (
	"fmt"
	"strings"

	"github.com/bsaff/better-reads/pkg/models"
)

// formatFavorites renders the sampled favorites as the list the model sees:
// one entry per book, with the publication year and a description line when
// known.
func formatFavorites(books []models.Book) string {
	var b strings.Builder
	for i, book := range books {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "- %q by %s", book.Title, book.Author)
		if book.YearPublished != nil {
			fmt.Fprintf(&b, " (%s)", *book.YearPublished)
		}
		if book.Description != nil {
			fmt.Fprintf(&b, "\n  Description: %s", *book.Description)
		}
	}
	return b.String()
}

// buildUserPrompt carries the favorites list and restates the JSON shape the
// model must populate.
func buildUserPrompt(favorites []models.Book) string {
	return fmt.Sprintf(`This reader has rated the following books 5 stars (their absolute favorites):

%s

Based on their taste in genre, style and themes, recommend five specific books that
would make great gifts. Populate this JSON shape exactly:

{
  "recommendations": [
    {
      "title": "string",
      "author": "string",
      "year": 1999,
      "genre": "string",
      "pageCount": 320,
      "reason": "a short, warm explanation of why this fits their favorites"
    }
  ]
}`, formatFavorites(favorites))
}
