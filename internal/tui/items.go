package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/bsaff/better-reads/pkg/models"
)

type bookItem struct {
	book models.Book
}

func (i bookItem) Title() string {
	stars := ""
	for s := 0; s < i.book.MyRating; s++ {
		stars += "★"
	}
	if stars == "" {
		return i.book.Title
	}
	return fmt.Sprintf("%s  %s", i.book.Title, stars)
}

func (i bookItem) Description() string {
	desc := i.book.Author
	if i.book.YearPublished != nil {
		desc = fmt.Sprintf("%s (%s)", desc, *i.book.YearPublished)
	}
	if i.book.MyRatingText != nil {
		desc = fmt.Sprintf("%s | %s", desc, *i.book.MyRatingText)
	}
	return desc
}

func (i bookItem) FilterValue() string {
	return i.book.Title + " " + i.book.Author
}

var _ list.Item = bookItem{}
