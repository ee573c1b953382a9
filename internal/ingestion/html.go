package ingestion

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// noiseSelector matches elements that never hold description text.
const noiseSelector = "nav, footer, header, script, style, noscript, template, iframe, form, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup"

// paragraphElements are separated from their neighbours by a blank line.
var paragraphElements = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Ul: true, atom.Ol: true, atom.Table: true,
	atom.Blockquote: true, atom.Section: true, atom.Article: true, atom.Pre: true,
	atom.Dl: true, atom.Hr: true,
}

// lineElements start on a new line.
var lineElements = map[atom.Atom]bool{
	atom.Div: true, atom.Tr: true, atom.Dt: true, atom.Dd: true,
	atom.Main: true, atom.Figcaption: true,
}

// JobPostingSelectors returns content selectors for common job board
// markup, most specific first.
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		".job-content",
		"#job-description",
		"#job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		".content",
		"#content",
	}
}

// HTMLToText extracts the visible text of a job description. The first
// matching content selector wins; without a match the whole body is used.
// Block elements become line breaks, paragraphs are separated by a blank
// line and list items are prefixed with "- ". Markup without visible text
// yields ErrContentExtractionFailed.
func HTMLToText(markup string, contentSelectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrContentExtractionFailed, err)
	}

	doc.Find(noiseSelector).Remove()

	var content *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			content = selection.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	w := &blockWriter{}
	for _, n := range content.Nodes {
		w.walk(n)
	}
	text := CleanText(w.buf.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text found", ErrContentExtractionFailed)
	}
	return text, nil
}

// blockWriter flattens a node tree into lines.
type blockWriter struct {
	buf bytes.Buffer
}

func (w *blockWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	default:
		w.children(n)
		return
	}

	switch {
	case n.DataAtom == atom.Br:
		w.trimTrailingSpace()
		w.buf.WriteByte('\n')
	case n.DataAtom == atom.Li:
		w.newline()
		w.buf.WriteString("- ")
		w.children(n)
		w.newline()
	case paragraphElements[n.DataAtom]:
		w.blankLine()
		w.children(n)
		w.blankLine()
	case lineElements[n.DataAtom]:
		w.newline()
		w.children(n)
		w.newline()
	case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
		w.children(n)
		w.space()
	default:
		w.children(n)
	}
}

func (w *blockWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *blockWriter) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.space()
		}
		return
	}

	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	if unicode.IsSpace(first) {
		w.space()
	}
	w.buf.WriteString(strings.Join(fields, " "))
	if unicode.IsSpace(last) {
		w.space()
	}
}

// space separates inline runs without ever starting a line with a space.
func (w *blockWriter) space() {
	if !w.atLineStart() && !bytes.HasSuffix(w.buf.Bytes(), []byte(" ")) {
		w.buf.WriteByte(' ')
	}
}

func (w *blockWriter) atLineStart() bool {
	b := w.buf.Bytes()
	return len(b) == 0 || b[len(b)-1] == '\n'
}

func (w *blockWriter) trimTrailingSpace() {
	b := w.buf.Bytes()
	n := len(b)
	for n > 0 && b[n-1] == ' ' {
		n--
	}
	w.buf.Truncate(n)
}

func (w *blockWriter) newline() {
	w.trimTrailingSpace()
	if !w.atLineStart() {
		w.buf.WriteByte('\n')
	}
}

func (w *blockWriter) blankLine() {
	w.newline()
	if w.buf.Len() > 0 && !bytes.HasSuffix(w.buf.Bytes(), []byte("\n\n")) {
		w.buf.WriteByte('\n')
	}
}
