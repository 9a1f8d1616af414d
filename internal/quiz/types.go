// Package quiz turns book passages into multiple-choice quiz nodes.
package quiz

import (
	"strconv"
)

// Choice is one answer option.
type Choice struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Feedback  string `json:"feedback"`
}

// Question is a multiple-choice question. Exactly one choice is correct.
type Question struct {
	Question string   `json:"question"`
	Choices  []Choice `json:"choices"`
}

// Node is a quiz step of the visual-novel dialogue.
type Node struct {
	ID                   string     `json:"id"`
	Type                 string     `json:"type"`
	Speaker              string     `json:"speaker"`
	Text                 string     `json:"text,omitempty"`
	Summary              string     `json:"summary,omitempty"`
	Questions            []Question `json:"questions"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Next                 string     `json:"next"`
}

// Locator selects the book content a quiz is built from. When several
// fields are set, chapter index wins over CFI, CFI over page number and
// page number over progress.
type Locator struct {
	ChapterIndex *int
	CFI          string
	PageNumber   *int
	Progress     *float64 // 0-100; nil uses the book's stored progress
	NodeID       string
}

// Locator kinds.
const (
	KindChapter  = "chapter"
	KindCFI      = "cfi"
	KindPage     = "page"
	KindProgress = "progress"
)

// Kind returns which field the locator resolves through.
func (l Locator) Kind() string {
	switch {
	case l.ChapterIndex != nil:
		return KindChapter
	case l.CFI != "":
		return KindCFI
	case l.PageNumber != nil:
		return KindPage
	default:
		return KindProgress
	}
}

// Value returns the effective locator value as text.
func (l Locator) Value() string {
	switch l.Kind() {
	case KindChapter:
		return strconv.Itoa(*l.ChapterIndex)
	case KindCFI:
		return l.CFI
	case KindPage:
		return strconv.Itoa(*l.PageNumber)
	default:
		if l.Progress == nil {
			return ""
		}
		return strconv.FormatFloat(*l.Progress, 'f', -1, 64)
	}
}
