package epub

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/abdulachik/novelquiz/internal/logger"
)

// DefaultParseTimeout bounds a single EPUB parse.
const DefaultParseTimeout = 30 * time.Second

// Cache keeps parsed books by book id. Concurrent requests for a book that
// is not parsed yet share one parse. Books are handed out as leases; an
// evicted book is closed once its last lease is released.
type Cache struct {
	lib     Library
	timeout time.Duration
	log     *logger.Logger
	books   *lru.Cache[string, *cachedBook]
	group   singleflight.Group
}

// CacheConfig holds configuration for the cache.
type CacheConfig struct {
	Library      Library
	Size         int
	ParseTimeout time.Duration
	Logger       *logger.Logger
}

// NewCache creates a parsed-book cache.
func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.ParseTimeout <= 0 {
		cfg.ParseTimeout = DefaultParseTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	c := &Cache{
		lib:     cfg.Library,
		timeout: cfg.ParseTimeout,
		log:     cfg.Logger,
	}

	books, err := lru.NewWithEvict(cfg.Size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create book cache: %w", err)
	}
	c.books = books

	return c, nil
}

// cachedBook counts the leases held on a parsed book.
type cachedBook struct {
	id   string
	book ParsedBook
	log  *logger.Logger

	mu      sync.Mutex
	refs    int
	evicted bool
}

// acquire takes a lease unless the book was already evicted.
func (b *cachedBook) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.evicted {
		return false
	}
	b.refs++
	return true
}

func (b *cachedBook) release() {
	b.mu.Lock()
	b.refs--
	closeNow := b.evicted && b.refs == 0
	b.mu.Unlock()

	if closeNow {
		b.close()
	}
}

func (b *cachedBook) evict() {
	b.mu.Lock()
	b.evicted = true
	closeNow := b.refs == 0
	b.mu.Unlock()

	if closeNow {
		b.close()
		return
	}
	b.log.Debug("evicted book still leased, closing on release", "book_id", b.id)
}

func (b *cachedBook) close() {
	if err := b.book.Close(); err != nil {
		b.log.Warn("failed to close evicted book", "book_id", b.id, "error", err)
		return
	}
	b.log.Debug("closed parsed book", "book_id", b.id)
}

// Lease is a parsed book checked out of the cache. The book stays open
// until Release is called, even if it is evicted meanwhile.
type Lease struct {
	b    *cachedBook
	once sync.Once
}

// Flow returns the reading order.
func (l *Lease) Flow() []FlowItem {
	return l.b.book.Flow()
}

// RawHTML returns the XHTML of a flow item.
func (l *Lease) RawHTML(id string) (string, error) {
	return l.b.book.RawHTML(id)
}

// Release returns the lease. Extra calls are no-ops.
func (l *Lease) Release() {
	l.once.Do(l.b.release)
}

// maxLeaseAttempts bounds retries when a book is evicted between lookup
// and lease.
const maxLeaseAttempts = 3

// Get leases the parsed book for bookID, parsing path on first access.
// The caller must Release the lease.
func (c *Cache) Get(ctx context.Context, bookID, path string) (*Lease, error) {
	for range maxLeaseAttempts {
		b, err := c.load(ctx, bookID, path)
		if err != nil {
			return nil, err
		}
		if b.acquire() {
			return &Lease{b: b}, nil
		}
		c.log.Debug("book evicted before lease, reloading", "book_id", bookID)
	}
	return nil, fmt.Errorf("%w: %s evicted while opening", ErrParse, bookID)
}

func (c *Cache) load(ctx context.Context, bookID, path string) (*cachedBook, error) {
	if b, ok := c.books.Get(bookID); ok {
		return b, nil
	}

	// The parse outlives any single caller's cancellation; the timeout
	// still applies.
	parseCtx := context.WithoutCancel(ctx)

	v, err, shared := c.group.Do(bookID, func() (interface{}, error) {
		if b, ok := c.books.Get(bookID); ok {
			return b, nil
		}

		c.log.Info("parsing epub", "book_id", bookID, "path", path)
		start := time.Now()

		book, err := c.parse(parseCtx, path)
		if err != nil {
			return nil, err
		}

		b := &cachedBook{id: bookID, book: book, log: c.log}
		c.books.Add(bookID, b)
		c.log.Info("epub parsed",
			"book_id", bookID,
			"flow_items", len(book.Flow()),
			"duration", time.Since(start),
		)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("joined in-flight parse", "book_id", bookID)
	}

	return v.(*cachedBook), nil
}

func (c *Cache) parse(ctx context.Context, path string) (ParsedBook, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		book ParsedBook
		err  error
	}
	done := make(chan result, 1)

	go func() {
		book, err := c.lib.Open(ctx, path)
		done <- result{book: book, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, r.err)
		}
		return r.book, nil
	case <-ctx.Done():
		// Close whatever the abandoned parse eventually produces.
		go func() {
			if r := <-done; r.book != nil {
				r.book.Close()
			}
		}()
		return nil, fmt.Errorf("%w after %s", ErrParseTimeout, c.timeout)
	}
}

// Forget drops a book. It is closed once no lease is held.
func (c *Cache) Forget(bookID string) {
	c.books.Remove(bookID)
}

// Purge drops every book. Leased books close on release.
func (c *Cache) Purge() {
	c.books.Purge()
}

// Len returns the number of parsed books held.
func (c *Cache) Len() int {
	return c.books.Len()
}

func (c *Cache) onEvict(_ string, b *cachedBook) {
	b.evict()
}
