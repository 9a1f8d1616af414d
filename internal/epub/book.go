// Package epub reads chapter text out of uploaded EPUB files.
package epub

import (
	"context"
	"regexp"
)

// FlowItem is one entry of a book's reading order.
type FlowItem struct {
	ID    string
	Title string
}

// Contents reads the documents of an opened EPUB.
type Contents interface {
	// Flow returns the reading order.
	Flow() []FlowItem
	// RawHTML returns the XHTML of a flow item.
	RawHTML(id string) (string, error)
}

// ParsedBook is an opened EPUB.
type ParsedBook interface {
	Contents
	Close() error
}

// Library opens EPUB files.
type Library interface {
	Open(ctx context.Context, path string) (ParsedBook, error)
}

// Chapter is a numbered chapter. Index is its position among numbered
// chapters, not in the full flow.
type Chapter struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Index int    `json:"index"`
}

var chapterTitlePattern = regexp.MustCompile(`^\d+\.\s`)

// RealChapters keeps the flow items titled like "12. Something".
func RealChapters(flow []FlowItem) []Chapter {
	var chapters []Chapter
	for _, item := range flow {
		if !chapterTitlePattern.MatchString(item.Title) {
			continue
		}
		chapters = append(chapters, Chapter{
			ID:    item.ID,
			Title: item.Title,
			Index: len(chapters),
		})
	}
	return chapters
}
