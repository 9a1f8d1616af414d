package epub

import (
	"context"
	"fmt"

	sepub "github.com/simp-lee/epub"
)

// SpineLibrary opens books with github.com/simp-lee/epub. Flow items are
// the spine documents in reading order, titled from the table of contents.
type SpineLibrary struct{}

// NewSpineLibrary returns the production Library.
func NewSpineLibrary() SpineLibrary {
	return SpineLibrary{}
}

// Open parses the EPUB at path.
func (SpineLibrary) Open(ctx context.Context, path string) (ParsedBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	book, err := sepub.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	sb := &spineBook{
		content: make(map[string]func() (string, error)),
		close: func() error {
			book.Close()
			return nil
		},
	}

	for i, ch := range book.Chapters() {
		id := fmt.Sprintf("item-%03d", i)
		sb.flow = append(sb.flow, FlowItem{ID: id, Title: ch.Title})
		sb.content[id] = func() (string, error) {
			raw, err := ch.RawContent()
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}
	}

	return sb, nil
}

type spineBook struct {
	flow    []FlowItem
	content map[string]func() (string, error)
	close   func() error
}

func (b *spineBook) Flow() []FlowItem {
	return b.flow
}

func (b *spineBook) RawHTML(id string) (string, error) {
	load, ok := b.content[id]
	if !ok {
		return "", fmt.Errorf("unknown flow item %q", id)
	}
	return load()
}

func (b *spineBook) Close() error {
	return b.close()
}
