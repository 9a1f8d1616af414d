package epub

import "errors"

var (
	// ErrBookNotFound is returned for unknown book ids or a missing file on disk.
	ErrBookNotFound = errors.New("book not found")
	// ErrParse is returned when the EPUB structure cannot be read.
	ErrParse = errors.New("parse epub")
	// ErrParseTimeout is returned when parsing takes longer than the cache timeout.
	ErrParseTimeout = errors.New("epub parse timed out")
	// ErrChapterLoad is returned when a chapter's content cannot be extracted.
	ErrChapterLoad = errors.New("load chapter")
	// ErrInvalidChapterIndex is returned for chapter indexes outside the chapter list.
	ErrInvalidChapterIndex = errors.New("invalid chapter index")
	// ErrPageLoad is returned when neither the estimated page nor the first chapter can be read.
	ErrPageLoad = errors.New("load page")
	// ErrNoChapters is returned when a book has no numbered chapters.
	ErrNoChapters = errors.New("no chapters found")
)

// Sentinel texts returned instead of an error when extracted text is too short.
const (
	EmptySectionText  = "No text content found in this section."
	EmptyChaptersText = "No text content found in these chapters."
)

// IsEmptyContent reports whether text is one of the empty-content sentinels.
func IsEmptyContent(text string) bool {
	return text == EmptySectionText || text == EmptyChaptersText
}
