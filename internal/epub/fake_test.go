package epub

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeBook struct {
	flow   []FlowItem
	html   map[string]string
	errs   map[string]error
	closed atomic.Bool
}

func (b *fakeBook) Flow() []FlowItem { return b.flow }

func (b *fakeBook) RawHTML(id string) (string, error) {
	if err, ok := b.errs[id]; ok {
		return "", err
	}
	return b.html[id], nil
}

func (b *fakeBook) Close() error {
	b.closed.Store(true)
	return nil
}

type fakeLibrary struct {
	books map[string]*fakeBook
	opens atomic.Int32
	delay time.Duration
	block chan struct{}
	err   error
}

func (l *fakeLibrary) Open(ctx context.Context, path string) (ParsedBook, error) {
	l.opens.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.block != nil {
		<-l.block
	}
	if l.err != nil {
		return nil, l.err
	}
	book, ok := l.books[path]
	if !ok {
		return nil, errors.New("no such book")
	}
	return book, nil
}

type mapResolver map[string]BookRef

func (m mapResolver) Resolve(bookID string) (BookRef, bool) {
	ref, ok := m[bookID]
	return ref, ok
}

// newFakeBook builds a book whose numbered chapters carry the given bodies,
// with a front-matter item first.
func newFakeBook(bodies ...string) *fakeBook {
	b := &fakeBook{
		flow: []FlowItem{{ID: "cover", Title: "Cover"}},
		html: map[string]string{"cover": "<html><body><p>Cover page</p></body></html>"},
		errs: map[string]error{},
	}
	for i, body := range bodies {
		id := fmt.Sprintf("ch%d", i)
		b.flow = append(b.flow, FlowItem{ID: id, Title: fmt.Sprintf("%d. Chapter %d", i+1, i+1)})
		b.html[id] = "<html><body><p>" + body + "</p></body></html>"
	}
	return b
}

// touch creates an empty file so lookups find the book on disk.
func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("epub"), 0644))
	return path
}

// newTestAccessor wires a book into a fresh cache and resolver under "book-1".
func newTestAccessor(t *testing.T, book *fakeBook, progress float64) (*Accessor, *fakeLibrary) {
	t.Helper()
	path := touch(t, "book.epub")
	lib := &fakeLibrary{books: map[string]*fakeBook{path: book}}

	cache, err := NewCache(CacheConfig{Library: lib, Size: 4, ParseTimeout: time.Second})
	require.NoError(t, err)

	resolver := mapResolver{"book-1": {ID: "book-1", Path: path, Progress: progress}}
	return NewAccessor(cache, resolver, nil), lib
}
