package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/bsaff/better-reads/internal/config"
	"github.com/bsaff/better-reads/internal/database"
	"github.com/bsaff/better-reads/internal/gift"
	"github.com/bsaff/better-reads/internal/profile"
	"github.com/bsaff/better-reads/pkg/models"
)

type View int

const (
	ViewHome View = iota
	ViewShelf
	ViewBookDetail
	ViewGift
	ViewHelp
)

type Model struct {
	cfg      *config.Config
	db       *database.DB
	profiles *profile.Service
	engine   *gift.Engine

	view     View
	prevView View

	input       textinput.Model
	recents     []models.RecentProfile
	prof        *models.Profile
	list        list.Model
	detail      string
	suggestions []models.Recommendation

	converter *md.Converter

	width     int
	height    int
	loading   bool
	err       error
	statusMsg string
}

type profileLoadedMsg struct {
	profile *models.Profile
}

type recentsLoadedMsg struct {
	recents []models.RecentProfile
}

type suggestionsLoadedMsg struct {
	suggestions []models.Recommendation
}

type errorMsg struct {
	err error
}

type statusMsg string

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	bookTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			MarginBottom(1)

	genreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)
)

func New(cfg *config.Config, db *database.DB, profiles *profile.Service, engine *gift.Engine, initialInput string) Model {
	input := textinput.New()
	input.Placeholder = "https://www.goodreads.com/user/show/12345-username"
	input.CharLimit = 200
	input.Width = 64
	input.SetValue(initialInput)
	input.Focus()

	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Better Reads"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{
		cfg:       cfg,
		db:        db,
		profiles:  profiles,
		engine:    engine,
		view:      ViewHome,
		input:     input,
		list:      l,
		converter: md.NewConverter("", true, nil),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadRecents(m.db),
		textinput.Blink,
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case recentsLoadedMsg:
		m.recents = msg.recents
		return m, nil

	case profileLoadedMsg:
		m.loading = false
		m.err = nil
		m.prof = msg.profile
		items := make([]list.Item, len(m.prof.Books))
		for i, book := range m.prof.Books {
			items[i] = bookItem{book}
		}
		m.list.SetItems(items)
		m.list.Title = shelfTitle(m.prof)
		m.view = ViewShelf
		m.statusMsg = fmt.Sprintf("Loaded %d books", m.prof.TotalBooks)
		return m, loadRecents(m.db)

	case suggestionsLoadedMsg:
		m.loading = false
		m.err = nil
		m.suggestions = msg.suggestions
		m.view = ViewGift
		m.statusMsg = ""
		return m, nil

	case errorMsg:
		m.loading = false
		m.err = msg.err
		m.statusMsg = ""
		return m, nil

	case statusMsg:
		m.statusMsg = string(msg)
		return m, nil
	}

	return m.updateFocused(msg)
}

// updateFocused routes non-key messages to whichever component has focus.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ViewHome:
		m.input, cmd = m.input.Update(msg)
	case ViewShelf:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewHome:
		return m.handleHomeKeys(msg)
	case ViewShelf:
		return m.handleShelfKeys(msg)
	case ViewBookDetail:
		return m.handleDetailKeys(msg)
	case ViewGift:
		return m.handleGiftKeys(msg)
	case ViewHelp:
		return m.handleHelpKeys(msg)
	}
	return m, nil
}

func (m Model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		userID, ok := profile.ExtractUserID(m.input.Value())
		if !ok {
			m.err = errors.New("enter a Goodreads profile URL like goodreads.com/user/show/12345, or a numeric id")
			return m, nil
		}
		m.err = nil
		m.loading = true
		m.statusMsg = "Loading shelf..."
		return m, loadProfile(m.profiles, m.db, userID, m.cfg.Goodreads.Shelf)

	case "tab":
		// Cycle the input through the recent profiles.
		if len(m.recents) > 0 {
			next := m.nextRecent()
			m.input.SetValue(next.UserID)
			m.input.CursorEnd()
		}
		return m, nil

	case "?":
		m.prevView = ViewHome
		m.view = ViewHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// nextRecent picks the first recent reader that is not already in the input.
func (m Model) nextRecent() models.RecentProfile {
	current := strings.TrimSpace(m.input.Value())
	for _, recent := range m.recents {
		if recent.UserID != current {
			return recent
		}
	}
	return m.recents[0]
}

func (m Model) handleShelfKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc":
		m.view = ViewHome
		return m, nil

	case "enter":
		if i, ok := m.list.SelectedItem().(bookItem); ok {
			m.detail = m.formatBookDetail(i.book)
			m.view = ViewBookDetail
			return m, nil
		}

	case "r":
		if m.prof != nil {
			m.loading = true
			return m, tea.Batch(
				refreshProfile(m.profiles, m.db, m.prof.UserID, m.prof.Shelf),
				func() tea.Msg { return statusMsg("Re-scraping shelf...") },
			)
		}

	case "g":
		if m.prof != nil {
			m.loading = true
			m.statusMsg = "Asking for gift ideas..."
			return m, loadSuggestions(m.engine, m.prof)
		}

	case "?":
		m.prevView = ViewShelf
		m.view = ViewHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "backspace":
		m.view = ViewShelf
		return m, nil

	case "?":
		m.prevView = ViewBookDetail
		m.view = ViewHelp
		return m, nil
	}
	return m, nil
}

func (m Model) handleGiftKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "backspace":
		m.view = ViewShelf
		return m, nil

	case "g":
		// Ask again for a fresh batch.
		if m.prof != nil {
			m.loading = true
			m.statusMsg = "Asking for gift ideas..."
			return m, loadSuggestions(m.engine, m.prof)
		}

	case "?":
		m.prevView = ViewGift
		m.view = ViewHelp
		return m, nil
	}
	return m, nil
}

func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "?", "q":
		m.view = m.prevView
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.view {
	case ViewHome:
		return m.renderHome()
	case ViewShelf:
		return m.renderShelf()
	case ViewBookDetail:
		return m.renderDetail()
	case ViewGift:
		return m.renderGift()
	case ViewHelp:
		return m.renderHelp()
	}
	return ""
}

func (m Model) renderHome() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Better Reads"))
	s.WriteString("\n")
	s.WriteString("Paste a Goodreads profile URL or reader id:\n\n")
	s.WriteString(m.input.View())
	s.WriteString("\n\n")

	if len(m.recents) > 0 {
		s.WriteString(helpStyle.Render("Recently viewed:"))
		s.WriteString("\n")
		for _, recent := range m.recents {
			name := recent.UserID
			if recent.UserName != nil {
				name = fmt.Sprintf("%s (%s)", *recent.UserName, recent.UserID)
			}
			s.WriteString(fmt.Sprintf("  %s — %d books\n", name, recent.TotalBooks))
		}
		s.WriteString("\n")
	}

	s.WriteString(m.renderStatusLine())
	s.WriteString(helpStyle.Render("enter: load shelf • tab: fill from recent • ?: help • esc: quit"))
	return s.String()
}

func (m Model) renderShelf() string {
	var s strings.Builder

	s.WriteString(m.list.View())
	s.WriteString("\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString(helpStyle.Render("enter: book details • g: gift ideas • r: re-scrape • /: filter • esc: back • q: quit"))
	return s.String()
}

func (m Model) renderDetail() string {
	var s strings.Builder

	s.WriteString(m.detail)
	s.WriteString("\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString(helpStyle.Render("esc: back to shelf • q: quit"))
	return s.String()
}

func (m Model) renderGift() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Gift ideas"))
	s.WriteString("\n")

	for n, rec := range m.suggestions {
		s.WriteString(bookTitleStyle.Render(fmt.Sprintf("%d. %s — %s", n+1, rec.Title, rec.Author)))
		s.WriteString("\n")

		tags := []string{genreStyle.Render(rec.Genre)}
		if rec.Year != nil {
			tags = append(tags, fmt.Sprintf("%d", *rec.Year))
		}
		if rec.PageCount != nil {
			tags = append(tags, fmt.Sprintf("%d pages", *rec.PageCount))
		}
		s.WriteString("   " + strings.Join(tags, " · "))
		s.WriteString("\n")

		s.WriteString("   " + rec.Reason)
		s.WriteString("\n")
		if rec.ImageURL != nil {
			s.WriteString(helpStyle.Render("   cover: " + *rec.ImageURL))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	s.WriteString(m.renderStatusLine())
	s.WriteString(helpStyle.Render("g: suggest again • esc: back to shelf • q: quit"))
	return s.String()
}

func (m Model) renderHelp() string {
	help := `
Better Reads - Keyboard Shortcuts

Home:
  enter        Load the reader's shelf
  tab          Fill the input from recently viewed readers
  esc          Quit

Shelf:
  ↑/↓, j/k     Navigate books
  enter        Book details
  g            Five gift ideas based on this reader's favorites
  r            Re-scrape the shelf (replaces the cached copy)
  /            Filter books
  esc          Back to home

Gift ideas:
  g            Ask for a fresh batch
  esc          Back to the shelf

General:
  ?            Show/hide this help
  q, ctrl+c    Quit
`
	return help + "\n" + helpStyle.Render("Press ? or esc to close help")
}

func (m Model) renderStatusLine() string {
	var s strings.Builder
	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: " + friendlyError(m.err)))
		s.WriteString("\n")
	} else if m.statusMsg != "" {
		s.WriteString(statusStyle.Render(m.statusMsg))
		s.WriteString("\n")
	}
	return s.String()
}

func shelfTitle(prof *models.Profile) string {
	owner := prof.UserID
	if prof.UserName != nil {
		owner = *prof.UserName
	}
	return fmt.Sprintf("%s's bookshelf: %s (%d books)", owner, prof.Shelf, prof.TotalBooks)
}

// formatBookDetail renders one book, converting the feed's HTML description
// and review to markdown and styling it for the terminal.
func (m Model) formatBookDetail(book models.Book) string {
	var s strings.Builder

	s.WriteString(bookTitleStyle.Render(book.Title))
	s.WriteString("\n")

	meta := book.Author
	if book.YearPublished != nil {
		meta += " · " + *book.YearPublished
	}
	if book.Pages != nil {
		meta += fmt.Sprintf(" · %d pages", *book.Pages)
	}
	if book.AvgRating != nil {
		meta += fmt.Sprintf(" · avg %.2f", *book.AvgRating)
	}
	s.WriteString(helpStyle.Render(meta))
	s.WriteString("\n\n")

	if book.MyRatingText != nil {
		s.WriteString(fmt.Sprintf("Rated %d/5 — %s\n\n", book.MyRating, *book.MyRatingText))
	}

	if book.Description != nil {
		s.WriteString(m.renderHTML(*book.Description))
		s.WriteString("\n")
	}
	if book.Review != nil {
		s.WriteString(statusStyle.Render("Reader's review"))
		s.WriteString("\n")
		s.WriteString(m.renderHTML(*book.Review))
		s.WriteString("\n")
	}
	return s.String()
}

// renderHTML converts feed HTML to markdown and renders it with glamour,
// falling back to the raw text when conversion fails.
func (m Model) renderHTML(html string) string {
	markdown, err := m.converter.ConvertString(html)
	if err != nil {
		return html
	}
	rendered, err := glamour.Render(markdown, "dark")
	if err != nil {
		return markdown
	}
	return rendered
}

func friendlyError(err error) string {
	switch {
	case errors.Is(err, profile.ErrEmptyShelf):
		return "No books found. Make sure the profile is public and the shelf isn't empty."
	case errors.Is(err, gift.ErrNoFavorites):
		return "This reader hasn't rated any books 5 stars yet. Favorites are needed to suggest a gift."
	case errors.Is(err, gift.ErrTruncated):
		return "The suggestion ran past the model's length limit. Try again."
	case errors.Is(err, gift.ErrEmptyResponse), errors.Is(err, gift.ErrBadSchema):
		return "The model returned an unusable answer. Try again."
	default:
		return err.Error()
	}
}

func loadRecents(db *database.DB) tea.Cmd {
	return func() tea.Msg {
		recents, err := db.GetRecentProfiles()
		if err != nil {
			return errorMsg{err}
		}
		return recentsLoadedMsg{recents}
	}
}

func loadProfile(profiles *profile.Service, db *database.DB, userID, shelf string) tea.Cmd {
	return func() tea.Msg {
		prof, err := profiles.Load(context.Background(), userID, shelf)
		if err != nil {
			return errorMsg{err}
		}
		if err := db.TouchRecentProfile(prof.UserID, prof.UserName, prof.TotalBooks); err != nil {
			return errorMsg{err}
		}
		return profileLoadedMsg{prof}
	}
}

func refreshProfile(profiles *profile.Service, db *database.DB, userID, shelf string) tea.Cmd {
	return func() tea.Msg {
		prof, err := profiles.Refresh(context.Background(), userID, shelf)
		if err != nil {
			return errorMsg{err}
		}
		if err := db.TouchRecentProfile(prof.UserID, prof.UserName, prof.TotalBooks); err != nil {
			return errorMsg{err}
		}
		return profileLoadedMsg{prof}
	}
}

func loadSuggestions(engine *gift.Engine, prof *models.Profile) tea.Cmd {
	return func() tea.Msg {
		suggestions, err := engine.Recommend(context.Background(), prof)
		if err != nil {
			return errorMsg{err}
		}
		return suggestionsLoadedMsg{suggestions}
	}
}
