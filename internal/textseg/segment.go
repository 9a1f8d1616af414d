// Package textseg splits book text into sentence-bounded segments and
// samples fixed-size passages for quiz prompts.
package textseg

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultSegmentLength is the segment length used when none is given.
const DefaultSegmentLength = 1000

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Segment greedily packs whole sentences into segments of at most maxLength
// runes. A sentence longer than maxLength becomes its own segment. The
// result is never empty.
func Segment(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultSegmentLength
	}

	sentences := Sentences(text)

	var segments []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+1+n > maxLength {
			segments = append(segments, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += n
	}
	if currentLen > 0 {
		segments = append(segments, current.String())
	}

	if len(segments) == 0 {
		return []string{text}
	}
	return segments
}

// Sentences returns the trimmed sentences of text. Text without any
// terminator is treated as a single sentence.
func Sentences(text string) []string {
	matches := sentencePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		matches = []string{text}
	}

	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
