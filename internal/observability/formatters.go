// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/jd-highlighter/internal/highlight"
	"github.com/jonathan/jd-highlighter/internal/ingestion"
	"github.com/jonathan/jd-highlighter/internal/legend"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of examples to display per category
	maxItemsToShow = 3
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// PrintDocumentSummary outputs paragraph and segment counts and the typed
// text found for each category, in precedence order.
func (p *Printer) PrintDocumentSummary(doc *highlight.Document, reg *highlight.Registry, meta *ingestion.Metadata) {
	if doc == nil || reg == nil {
		return
	}

	blank, total := 0, 0
	found := make(map[string][]string)
	for _, para := range doc.Paragraphs {
		if para.Blank {
			blank++
			continue
		}
		total += len(para.Segments)
		for _, seg := range para.Segments {
			if !seg.Plain() {
				found[seg.CategoryID] = append(found[seg.CategoryID], seg.Text)
			}
		}
	}
	stats := doc.Stats()
	typed := 0
	for _, n := range stats {
		typed += n
	}

	var sb strings.Builder
	if meta != nil {
		if meta.Source != "" {
			sb.WriteString(fmt.Sprintf("Source:     %s (%s)\n", meta.Source, meta.Format))
		}
		sb.WriteString(fmt.Sprintf("Hash:       %s\n", truncate(meta.Hash, 16)))
	}
	sb.WriteString(fmt.Sprintf("Paragraphs: %d (%d blank)\n", len(doc.Paragraphs), blank))
	sb.WriteString(fmt.Sprintf("Segments:   %d typed / %d total\n", typed, total))
	if doc.Degraded {
		sb.WriteString("Degraded:   yes, budget exceeded\n")
	}

	if typed > 0 {
		sb.WriteString("\nBy category:\n")
		for _, c := range reg.Categories() {
			texts := found[c.ID]
			if len(texts) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", c.Label, stats[c.ID]))
			count := min(len(texts), maxItemsToShow)
			for _, text := range texts[:count] {
				sb.WriteString(fmt.Sprintf("      %q\n", text))
			}
			if len(texts) > maxItemsToShow {
				sb.WriteString(fmt.Sprintf("      ... and %d more\n", len(texts)-maxItemsToShow))
			}
		}
	}

	p.printBox("HIGHLIGHT SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintLegend outputs one line per legend entry with its color and
// examples.
func (p *Printer) PrintLegend(leg *legend.Legend) {
	if leg == nil || leg.Len() == 0 {
		return
	}

	var sb strings.Builder
	for _, e := range leg.Entries() {
		quoted := make([]string, len(e.Examples))
		for i, ex := range e.Examples {
			quoted[i] = fmt.Sprintf("%q", ex)
		}
		sb.WriteString(fmt.Sprintf("● %-18s %-8s %s\n", e.Label, e.Color, strings.Join(quoted, ", ")))
	}

	p.printBox("LEGEND", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRegistry outputs the categories in precedence order.
func (p *Printer) PrintRegistry(reg *highlight.Registry) {
	if reg == nil || reg.Len() == 0 {
		return
	}

	var sb strings.Builder
	for i, c := range reg.Categories() {
		sb.WriteString(fmt.Sprintf("%2d. %-18s %-10s %s\n", i+1, c.ID, c.Kind, c.Label))
	}

	p.printBox(fmt.Sprintf("CATEGORY REGISTRY (%d)", reg.Len()), strings.TrimSuffix(sb.String(), "\n"))
}
