package rendering

import (
	"strings"

	"github.com/jonathan/jd-highlighter/internal/highlight"
)

// RenderPlain returns the document text without any markup.
func RenderPlain(doc *highlight.Document) string {
	return doc.Text()
}

// RenderAnnotated marks typed segments inline as [text]{category} and, for
// emails and links, appends the target: [text]{url -> https://...}.
// Plain text and blank lines pass through unchanged.
func RenderAnnotated(doc *highlight.Document) string {
	lines := make([]string, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		if p.Blank {
			lines[i] = p.Text
			continue
		}

		var sb strings.Builder
		for _, seg := range p.Segments {
			if seg.Plain() {
				sb.WriteString(seg.Text)
				continue
			}
			sb.WriteString("[")
			sb.WriteString(seg.Text)
			sb.WriteString("]{")
			sb.WriteString(seg.CategoryID)
			if seg.Href != "" && seg.Href != seg.Text {
				sb.WriteString(" -> ")
				sb.WriteString(seg.Href)
			}
			sb.WriteString("}")
		}
		lines[i] = sb.String()
	}
	return strings.Join(lines, "\n")
}
