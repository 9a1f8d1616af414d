package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/abdulachik/novelquiz/internal/books"
	"github.com/abdulachik/novelquiz/internal/config"
	"github.com/abdulachik/novelquiz/internal/db"
	"github.com/abdulachik/novelquiz/internal/epub"
	"github.com/abdulachik/novelquiz/internal/health"
	"github.com/abdulachik/novelquiz/internal/llm"
	"github.com/abdulachik/novelquiz/internal/logger"
	"github.com/abdulachik/novelquiz/internal/quiz"
	"github.com/abdulachik/novelquiz/internal/server"
)

// App is the main application container holding all dependencies.
type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Store    *db.Store
	Health   *health.Health
	Books    *books.Registry
	Cache    *epub.Cache
	Accessor *epub.Accessor
	LLM      *llm.Adapter
	Quiz     *quiz.Generator
}

// New creates a new application instance with all dependencies wired up.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	h := health.New()

	// Create database connection
	store, err := db.NewStore(ctx, cfg.DatabasePath, log)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	h.SetHealthy("database", cfg.DatabasePath)

	// Parsed books are dropped together with their registry entry
	cache, err := epub.NewCache(epub.CacheConfig{
		Library:      epub.NewSpineLibrary(),
		Size:         cfg.BookCacheSize,
		ParseTimeout: cfg.ParseTimeout,
		Logger:       log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	registry, err := books.NewRegistry(books.Config{
		Size:    cfg.BookRegistrySize,
		OnEvict: cache.Forget,
		Logger:  log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	accessor := epub.NewAccessor(cache, registry, log)

	adapter := llm.NewAdapter(llm.Config{
		Provider:          cfg.LLMProvider,
		APIKey:            cfg.LLMAPIKey(),
		Model:             cfg.LLMModel(),
		Timeout:           cfg.LLMTimeout,
		RequestsPerMinute: cfg.LLMRequestsPerMinute,
		Logger:            log,
	})
	if adapter.Configured() {
		h.SetHealthy("llm", adapter.Provider())
	} else {
		h.SetHealthy("llm", "no API key, serving mock quizzes")
	}

	generator := quiz.NewGenerator(quiz.Config{
		Content:  accessor,
		Model:    adapter,
		Recorder: store,
		Health:   h,
		Logger:   log,
	})

	return &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Health:   h,
		Books:    registry,
		Cache:    cache,
		Accessor: accessor,
		LLM:      adapter,
		Quiz:     generator,
	}, nil
}

// Server builds the HTTP API. The upload directory is created if missing.
func (a *App) Server() (*server.Server, error) {
	if err := os.MkdirAll(a.Config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return server.New(server.Config{
		Books:          a.Books,
		Reader:         a.Accessor,
		Quiz:           a.Quiz,
		Health:         a.Health,
		UploadDir:      a.Config.UploadDir,
		MaxUploadBytes: a.Config.MaxUploadBytes,
		CORSOrigins:    a.Config.CORSOrigins,
		Logger:         a.Log,
	}), nil
}

// OpenFile registers a local EPUB file so it can be read by id.
func (a *App) OpenFile(path string) (books.Book, error) {
	if _, err := os.Stat(path); err != nil {
		return books.Book{}, fmt.Errorf("open %s: %w", path, err)
	}
	return a.Books.Add(books.Book{
		Title:            path,
		OriginalFilename: path,
		FilePath:         path,
	}), nil
}

// Close closes all resources.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		a.Cache.Purge()
	}
	if a.LLM != nil {
		errs = append(errs, a.LLM.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
