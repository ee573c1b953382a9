package highlight

import (
	"strings"
)

// Paragraph is one line of the input. Blank paragraphs are spacers and are
// never segmented; Text keeps their raw content so the input can be rebuilt.
type Paragraph struct {
	Text     string    `json:"text"`
	Blank    bool      `json:"blank"`
	Segments []Segment `json:"segments,omitempty"`
}

// Document is the segmented form of a whole description.
type Document struct {
	Paragraphs []Paragraph `json:"paragraphs"`
	// Degraded is set when the budget ran out and every paragraph was
	// returned as plain text.
	Degraded bool `json:"degraded,omitempty"`
}

// SplitParagraphs splits text on line feeds. Empty and whitespace-only lines
// become blank spacers.
func SplitParagraphs(text string) []Paragraph {
	lines := strings.Split(text, "\n")
	paragraphs := make([]Paragraph, len(lines))
	for i, line := range lines {
		paragraphs[i] = Paragraph{
			Text:  line,
			Blank: strings.TrimSpace(line) == "",
		}
	}
	return paragraphs
}

// Text reassembles the original input.
func (d *Document) Text() string {
	lines := make([]string, len(d.Paragraphs))
	for i, p := range d.Paragraphs {
		lines[i] = p.Text
	}
	return strings.Join(lines, "\n")
}

// Stats counts typed segments per category identifier.
func (d *Document) Stats() map[string]int {
	counts := make(map[string]int)
	for _, p := range d.Paragraphs {
		for _, seg := range p.Segments {
			if seg.Plain() {
				continue
			}
			counts[seg.CategoryID]++
		}
	}
	return counts
}

// SegmentDocument splits text into paragraphs and segments each one with
// the default options. It never fails: see Segmenter.SegmentDocument.
func SegmentDocument(text string, reg *Registry) *Document {
	return NewSegmenter(reg).SegmentDocument(text)
}

// SegmentDocument splits text into paragraphs and segments every non-blank
// paragraph. The budget covers the whole call. If it runs out, the overrun
// is logged and every non-blank paragraph becomes a single plain segment.
func (s *Segmenter) SegmentDocument(text string) *Document {
	paragraphs := SplitParagraphs(text)
	m := newMeter(s.budget, s.now)

	for i := range paragraphs {
		if paragraphs[i].Blank {
			continue
		}
		segments, err := s.segment(paragraphs[i].Text, m)
		if err != nil {
			s.logger.Printf("[highlight] %v; rendering %d paragraphs (%d bytes) as plain text",
				err, len(paragraphs), len(text))
			return degrade(paragraphs)
		}
		paragraphs[i].Segments = segments
	}

	return &Document{Paragraphs: paragraphs}
}

func degrade(paragraphs []Paragraph) *Document {
	for i := range paragraphs {
		if paragraphs[i].Blank {
			paragraphs[i].Segments = nil
			continue
		}
		paragraphs[i].Segments = []Segment{{
			Text:  paragraphs[i].Text,
			Kind:  KindPlain,
			Start: 0,
			End:   len(paragraphs[i].Text),
		}}
	}
	return &Document{Paragraphs: paragraphs, Degraded: true}
}
