// Package books tracks uploaded EPUB files.
package books

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/abdulachik/novelquiz/internal/epub"
	"github.com/abdulachik/novelquiz/internal/logger"
)

// MetadataStatus is the state of a book's page-count backfill.
type MetadataStatus string

const (
	MetadataPending MetadataStatus = "pending"
	MetadataReady   MetadataStatus = "ready"
	MetadataFailed  MetadataStatus = "failed"
)

// Book is an uploaded EPUB.
type Book struct {
	ID               string         `json:"bookId"`
	Title            string         `json:"title"`
	OriginalFilename string         `json:"originalFilename"`
	FilePath         string         `json:"-"`
	UploadedAt       time.Time      `json:"uploadedAt"`
	PageNumberHint   int            `json:"pageNumber"`
	TotalPages       int            `json:"totalPages"`
	ProgressPercent  float64        `json:"progress"`
	MetadataStatus   MetadataStatus `json:"metadataStatus"`
	MetadataError    string         `json:"metadataError,omitempty"`
}

// NewBookID returns a fresh book id.
func NewBookID() string {
	return "book-" + uuid.NewString()
}

type entry struct {
	book Book
	task *Task
}

// Registry holds the most recently used books. Evicted ids are passed to
// the OnEvict hook so dependent caches can drop them too.
type Registry struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
	onEvict func(bookID string)
	log     *logger.Logger
}

// Config holds configuration for the registry.
type Config struct {
	Size    int
	OnEvict func(bookID string)
	Logger  *logger.Logger
}

// NewRegistry creates a book registry.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	r := &Registry{
		onEvict: cfg.OnEvict,
		log:     cfg.Logger,
	}

	entries, err := lru.NewWithEvict(cfg.Size, func(id string, _ *entry) {
		r.log.Debug("book evicted from registry", "book_id", id)
		if r.onEvict != nil {
			r.onEvict(id)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create book registry: %w", err)
	}
	r.entries = entries

	return r, nil
}

// Add registers a book. Missing fields get upload defaults.
func (r *Registry) Add(book Book) Book {
	if book.ID == "" {
		book.ID = NewBookID()
	}
	if book.UploadedAt.IsZero() {
		book.UploadedAt = time.Now()
	}
	book.PageNumberHint = max(book.PageNumberHint, 1)
	book.TotalPages = max(book.TotalPages, 1)
	if book.MetadataStatus == "" {
		book.MetadataStatus = MetadataPending
	}

	r.mu.Lock()
	r.entries.Add(book.ID, &entry{book: book})
	r.mu.Unlock()

	return book
}

// Get returns a copy of a book.
func (r *Registry) Get(id string) (Book, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries.Get(id)
	if !ok {
		return Book{}, false
	}
	return e.book, true
}

// Resolve implements epub.Resolver.
func (r *Registry) Resolve(bookID string) (epub.BookRef, bool) {
	book, ok := r.Get(bookID)
	if !ok {
		return epub.BookRef{}, false
	}
	return epub.BookRef{
		ID:       book.ID,
		Path:     book.FilePath,
		Progress: book.ProgressPercent,
	}, true
}

// SetProgress stores the reading progress (0-100) of a book.
func (r *Registry) SetProgress(id string, progress float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries.Peek(id)
	if !ok {
		return false
	}
	e.book.ProgressPercent = min(max(progress, 0), 100)
	return true
}

// Remove drops a book and fires the eviction hook.
func (r *Registry) Remove(id string) {
	r.entries.Remove(id)
}

// Len returns the number of books held.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// MetadataFunc computes a book's total page count.
type MetadataFunc func(ctx context.Context, bookID string) (int, error)

// StartMetadata runs fn in the background and records its outcome on the
// book. The returned task can be awaited; its failure never removes the book.
func (r *Registry) StartMetadata(ctx context.Context, id string, fn MetadataFunc) (*Task, error) {
	r.mu.Lock()
	e, ok := r.entries.Peek(id)
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("start metadata: unknown book %s", id)
	}
	task := newTask()
	e.task = task
	e.book.MetadataStatus = MetadataPending
	e.book.MetadataError = ""
	r.mu.Unlock()

	go func() {
		pages, err := fn(ctx, id)
		r.finishMetadata(id, task, pages, err)
		task.finish(pages, err)
	}()

	return task, nil
}

// Task returns the latest metadata task of a book.
func (r *Registry) Task(id string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries.Peek(id)
	if !ok || e.task == nil {
		return nil, false
	}
	return e.task, true
}

func (r *Registry) finishMetadata(id string, task *Task, pages int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries.Peek(id)
	if !ok || e.task != task {
		// Evicted or superseded.
		return
	}

	if err != nil {
		e.book.MetadataStatus = MetadataFailed
		e.book.MetadataError = err.Error()
		r.log.Warn("book metadata failed", "book_id", id, "error", err)
		return
	}

	e.book.TotalPages = max(pages, 1)
	e.book.MetadataStatus = MetadataReady
	r.log.Info("book metadata ready", "book_id", id, "total_pages", e.book.TotalPages)
}
