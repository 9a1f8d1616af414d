package epub

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Elements that start a new paragraph.
var paragraphElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "pre": true, "hr": true,
	"header": true, "footer": true, "aside": true, "figure": true,
}

// Elements that start a new line.
var lineElements = map[string]bool{
	"li": true, "tr": true, "dt": true, "dd": true, "figcaption": true,
}

// HTMLToText converts chapter XHTML to plain text. Paragraphs are separated
// by blank lines and whitespace runs collapse to single spaces.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("head, script, style, noscript, template").Remove()

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	walk(root, &b)
	return normalizeText(b.String()), nil
}

func walk(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch {
		case name == "#text":
			writeText(b, node.Text())
		case name == "br":
			b.WriteByte('\n')
		case paragraphElements[name]:
			ensureBreaks(b, 2)
			walk(node, b)
			ensureBreaks(b, 2)
		case lineElements[name]:
			ensureBreaks(b, 1)
			walk(node, b)
			ensureBreaks(b, 1)
		case strings.HasPrefix(name, "#"):
			// comments, doctype
		default:
			walk(node, b)
		}
	})
}

func writeText(b *strings.Builder, text string) {
	if text == "" {
		return
	}
	atLineStart := b.Len() == 0 || strings.HasSuffix(b.String(), "\n")

	fields := strings.Fields(text)
	if len(fields) == 0 {
		if !atLineStart {
			b.WriteByte(' ')
		}
		return
	}

	first, _ := utf8.DecodeRuneInString(text)
	if unicode.IsSpace(first) && !atLineStart {
		b.WriteByte(' ')
	}
	b.WriteString(strings.Join(fields, " "))
	last, _ := utf8.DecodeLastRuneInString(text)
	if unicode.IsSpace(last) {
		b.WriteByte(' ')
	}
}

// ensureBreaks makes the builder end with at least n newlines.
func ensureBreaks(b *strings.Builder, n int) {
	s := b.String()
	if s == "" {
		return
	}
	have := len(s) - len(strings.TrimRight(s, "\n"))
	for ; have < n; have++ {
		b.WriteByte('\n')
	}
}

// normalizeText trims every line and collapses runs of blank lines.
func normalizeText(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ChapterText returns the plain text of a flow item. A chapter without
// content yields "".
func ChapterText(book Contents, chapterID string) (string, error) {
	raw, err := book.RawHTML(chapterID)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrChapterLoad, chapterID, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	text, err := HTMLToText(raw)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrChapterLoad, chapterID, err)
	}
	return text, nil
}
