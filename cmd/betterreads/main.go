package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/bsaff/better-reads/internal/config"
	"github.com/bsaff/better-reads/internal/database"
	"github.com/bsaff/better-reads/internal/feed"
	"github.com/bsaff/better-reads/internal/gift"
	"github.com/bsaff/better-reads/internal/openlibrary"
	"github.com/bsaff/better-reads/internal/profile"
	"github.com/bsaff/better-reads/internal/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.OpenAI.APIKey == "" {
		fmt.Fprintln(os.Stderr, "No OpenAI API key configured. Set openai.api_key in the config file or export OPENAI_API_KEY.")
		os.Exit(1)
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	client := openai.NewClient(option.WithAPIKey(cfg.OpenAI.APIKey))
	engine := gift.NewEngine(
		client,
		openlibrary.NewClient(cfg.OpenLibrary.Host),
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)
	profiles := profile.NewService(db, feed.NewScraper(cfg.Goodreads.Host))

	m := tui.New(cfg, db, profiles, engine, flag.Arg(0))
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
