package epub

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/abdulachik/novelquiz/internal/logger"
)

const (
	// CharsPerPage is the page-size heuristic used for page estimates.
	CharsPerPage = 2500

	metadataSampleSize = 5
	pageSampleSize     = 10
	minContentLength   = 10
)

// BookRef locates an uploaded book.
type BookRef struct {
	ID       string
	Path     string
	Progress float64 // reading progress, 0-100
}

// Resolver looks up uploaded books by id.
type Resolver interface {
	Resolve(bookID string) (BookRef, bool)
}

// Metadata is the estimated shape of a book.
type Metadata struct {
	TotalPages  int  `json:"totalPages"`
	SpineItems  int  `json:"spineItems"`
	HasPageList bool `json:"hasPageList"`
}

// Accessor serves chapter text by progress, page or chapter index.
type Accessor struct {
	cache *Cache
	books Resolver
	log   *logger.Logger
}

// NewAccessor creates an accessor.
func NewAccessor(cache *Cache, books Resolver, log *logger.Logger) *Accessor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Accessor{cache: cache, books: books, log: log}
}

// open resolves and leases a parsed book. The caller releases the lease.
func (a *Accessor) open(ctx context.Context, bookID string) (*Lease, BookRef, error) {
	ref, ok := a.books.Resolve(bookID)
	if !ok {
		return nil, ref, fmt.Errorf("%w: %s", ErrBookNotFound, bookID)
	}
	if _, err := os.Stat(ref.Path); err != nil {
		return nil, ref, fmt.Errorf("%w: %s: %w", ErrBookNotFound, bookID, err)
	}

	book, err := a.cache.Get(ctx, bookID, ref.Path)
	if err != nil {
		return nil, ref, err
	}
	return book, ref, nil
}

func (a *Accessor) chapters(ctx context.Context, bookID string) (*Lease, []Chapter, error) {
	book, _, err := a.open(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}
	return book, RealChapters(book.Flow()), nil
}

// Chapters returns the numbered chapters of a book.
func (a *Accessor) Chapters(ctx context.Context, bookID string) ([]Chapter, error) {
	book, chapters, err := a.chapters(ctx, bookID)
	if err != nil {
		return nil, err
	}
	book.Release()

	for i := range chapters {
		if strings.TrimSpace(chapters[i].Title) == "" {
			chapters[i].Title = "Untitled"
		}
	}
	return chapters, nil
}

// ChapterCount returns the number of numbered chapters.
func (a *Accessor) ChapterCount(ctx context.Context, bookID string) (int, error) {
	book, chapters, err := a.chapters(ctx, bookID)
	if err != nil {
		return 0, err
	}
	book.Release()
	return len(chapters), nil
}

// BookMetadata estimates the page count from the first few chapters.
// There is no page-list lookup; HasPageList is always false.
func (a *Accessor) BookMetadata(ctx context.Context, bookID string) (Metadata, error) {
	book, chapters, err := a.chapters(ctx, bookID)
	if err != nil {
		return Metadata{}, err
	}
	defer book.Release()

	total := 1
	if len(chapters) > 0 {
		avg := a.averageLength(book, chapters, metadataSampleSize)
		perChapter := max(int(math.Ceil(avg/CharsPerPage)), 1)
		total = max(perChapter*len(chapters), 1)
	}

	a.log.Info("estimated book length",
		"book_id", bookID,
		"chapters", len(chapters),
		"total_pages", total,
	)

	return Metadata{
		TotalPages:  total,
		SpineItems:  len(chapters),
		HasPageList: false,
	}, nil
}

// averageLength samples up to n chapters; unreadable chapters count as empty.
func (a *Accessor) averageLength(book Contents, chapters []Chapter, n int) float64 {
	sample := chapters[:min(n, len(chapters))]
	if len(sample) == 0 {
		return 0
	}

	sum := 0
	for _, ch := range sample {
		text, err := ChapterText(book, ch.ID)
		if err != nil {
			a.log.Warn("failed to sample chapter", "chapter", ch.Title, "error", err)
			continue
		}
		sum += utf8.RuneCountInString(text)
	}
	return float64(sum) / float64(len(sample))
}

// ContentByProgress maps a 0-100 progress value onto a chapter.
func (a *Accessor) ContentByProgress(ctx context.Context, bookID string, progress float64) (string, error) {
	book, chapters, err := a.chapters(ctx, bookID)
	if err != nil {
		return "", err
	}
	defer book.Release()
	if len(chapters) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoChapters, bookID)
	}

	idx := progressIndex(progress, len(chapters))
	text, err := ChapterText(book, chapters[idx].ID)
	if err != nil {
		return "", err
	}

	a.log.Debug("content by progress",
		"book_id", bookID,
		"progress", progress,
		"chapter", chapters[idx].Title,
		"chars", len(text),
	)

	return sectionText(text), nil
}

// sectionText replaces a section too short to quiz on with the sentinel.
func sectionText(text string) string {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minContentLength {
		return EmptySectionText
	}
	return text
}

func progressIndex(progress float64, n int) int {
	idx := int(math.Floor(progress / 100 * float64(n-1)))
	return min(max(idx, 0), n-1)
}

// ValidateChapterIndex checks index against the book's chapter list.
func (a *Accessor) ValidateChapterIndex(ctx context.Context, bookID string, index int) error {
	book, chapters, err := a.chapters(ctx, bookID)
	if err != nil {
		return err
	}
	book.Release()
	return checkIndex(index, len(chapters))
}

func checkIndex(index, n int) error {
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d (book has %d chapters)", ErrInvalidChapterIndex, index, n)
	}
	return nil
}

// ContentByChapterIndex returns chapters 0..index joined by blank lines.
// Chapters that fail to load are skipped.
func (a *Accessor) ContentByChapterIndex(ctx context.Context, bookID string, index int) (string, error) {
	book, chapters, err := a.chapters(ctx, bookID)
	if err != nil {
		return "", err
	}
	defer book.Release()
	if err := checkIndex(index, len(chapters)); err != nil {
		return "", err
	}

	var parts []string
	for _, ch := range chapters[:index+1] {
		text, err := ChapterText(book, ch.ID)
		if err != nil {
			a.log.Warn("skipping chapter", "book_id", bookID, "chapter", ch.Title, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	content := strings.TrimSpace(strings.Join(parts, "\n\n"))
	a.log.Debug("content by chapter index",
		"book_id", bookID,
		"index", index,
		"chapters_read", len(parts),
		"chars", len(content),
	)

	if utf8.RuneCountInString(content) < minContentLength {
		return EmptyChaptersText, nil
	}
	return content, nil
}

// ContentByPageNumber maps a page estimate onto a chapter. When that fails
// the first chapter is returned instead.
func (a *Accessor) ContentByPageNumber(ctx context.Context, bookID string, page int) (string, error) {
	book, chapters, err := a.chapters(ctx, bookID)
	if errors.Is(err, ErrBookNotFound) {
		return "", err
	}
	if err == nil {
		defer book.Release()

		var text string
		text, err = a.pageText(book, chapters, page)
		if err == nil {
			return sectionText(text), nil
		}
	}

	a.log.Warn("page lookup failed, falling back to first chapter",
		"book_id", bookID,
		"page", page,
		"error", err,
	)

	if len(chapters) == 0 {
		return "", fmt.Errorf("%w %d: %w", ErrPageLoad, page, err)
	}
	text, ferr := ChapterText(book, chapters[0].ID)
	if ferr != nil {
		return "", fmt.Errorf("%w %d: %w", ErrPageLoad, page, ferr)
	}
	return sectionText(text), nil
}

func (a *Accessor) pageText(book Contents, chapters []Chapter, page int) (string, error) {
	n := len(chapters)
	if n == 0 {
		return "", ErrNoChapters
	}

	avg := a.averageLength(book, chapters, pageSampleSize)
	estimated := int(math.Ceil(avg * float64(n) / CharsPerPage))
	ratio := math.Min(float64(max(page, 1))/float64(max(estimated, 1)), 1)
	idx := int(math.Floor(ratio * float64(n-1)))

	return ChapterText(book, chapters[idx].ID)
}

// ContentByCFI serves a content-location identifier. CFIs are not
// resolved; the book's stored progress is used instead.
func (a *Accessor) ContentByCFI(ctx context.Context, bookID, cfi string) (string, error) {
	ref, ok := a.books.Resolve(bookID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrBookNotFound, bookID)
	}
	a.log.Debug("cfi lookup uses stored progress", "book_id", bookID, "cfi", cfi, "progress", ref.Progress)
	return a.ContentByProgress(ctx, bookID, ref.Progress)
}

// StoredProgress returns the book's saved reading progress.
func (a *Accessor) StoredProgress(bookID string) (float64, error) {
	ref, ok := a.books.Resolve(bookID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrBookNotFound, bookID)
	}
	return ref.Progress, nil
}
