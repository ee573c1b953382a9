package highlight

import (
	"log"
	"time"
	"unicode/utf8"
)

// Segment is a contiguous slice of a paragraph. Start and End are byte
// offsets into the paragraph text.
type Segment struct {
	Text       string   `json:"text"`
	Kind       SpanKind `json:"kind"`
	CategoryID string   `json:"category,omitempty"`
	Href       string   `json:"href,omitempty"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
}

// Plain reports whether no category claimed the segment.
func (s Segment) Plain() bool {
	return s.Kind == KindPlain
}

// untyped marks a piece no category has claimed yet.
const untyped = -1

// piece is a byte range of the paragraph claimed by category cat.
type piece struct {
	start, end int
	cat        int
}

// Segmenter applies a Registry to text. It holds no per-call state and is
// safe for concurrent use.
type Segmenter struct {
	registry *Registry
	budget   Budget
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithBudget replaces the default per-call budget.
func WithBudget(b Budget) Option {
	return func(s *Segmenter) {
		s.budget = b
	}
}

// WithLogger sends budget overruns to l instead of the standard logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Segmenter) {
		s.logger = l
	}
}

// NewSegmenter returns a Segmenter for reg. A nil reg matches nothing, so
// every paragraph comes back as one plain segment.
func NewSegmenter(reg *Registry, opts ...Option) *Segmenter {
	if reg == nil {
		reg = &Registry{}
	}
	s := &Segmenter{
		registry: reg,
		budget:   DefaultBudget(),
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the segmenter applies.
func (s *Segmenter) Registry() *Registry {
	return s.registry
}

// SegmentParagraph splits one paragraph into typed segments. It returns a
// *BudgetExceededError when the budget runs out; callers that feed a
// renderer should use SegmentDocument, which degrades instead.
func (s *Segmenter) SegmentParagraph(text string) ([]Segment, error) {
	return s.segment(text, newMeter(s.budget, s.now))
}

func (s *Segmenter) segment(text string, m *meter) ([]Segment, error) {
	if text == "" {
		return []Segment{}, nil
	}

	pieces := []piece{{start: 0, end: len(text), cat: untyped}}
	for ci, cat := range s.registry.categories {
		next := make([]piece, 0, len(pieces)+2)
		for _, p := range pieces {
			if p.cat != untyped {
				next = append(next, p)
				continue
			}
			var err error
			next, err = refine(next, text, p, ci, cat.Matcher, m)
			if err != nil {
				return nil, err
			}
		}
		pieces = next
	}

	segments := make([]Segment, 0, len(pieces))
	for _, p := range pieces {
		seg := Segment{
			Text:  text[p.start:p.end],
			Kind:  KindPlain,
			Start: p.start,
			End:   p.end,
		}
		if p.cat != untyped {
			cat := s.registry.categories[p.cat]
			seg.Kind = cat.Kind
			seg.CategoryID = cat.ID
			seg.Href = cat.Href(seg.Text)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// refine splits the untyped piece p with category ci and appends the
// resulting pieces to dst. Matches are found leftmost first; after each
// match the remaining suffix is scanned again for the same category.
// Zero-length matches never split: the scan moves one rune forward.
func refine(dst []piece, text string, p piece, ci int, matcher Matcher, m *meter) ([]piece, error) {
	cursor, scan := p.start, p.start
	for scan < p.end {
		if err := m.step(); err != nil {
			return dst, err
		}

		window := text[scan:p.end]
		loc := matcher.FindStringIndex(window)
		if loc == nil || loc[0] < 0 || loc[1] > len(window) || loc[1] < loc[0] {
			break
		}

		start, end := scan+loc[0], scan+loc[1]
		if start == end {
			_, size := utf8.DecodeRuneInString(text[start:p.end])
			if size == 0 {
				break
			}
			scan = start + size
			continue
		}

		if start > cursor {
			dst = append(dst, piece{start: cursor, end: start, cat: untyped})
		}
		dst = append(dst, piece{start: start, end: end, cat: ci})
		cursor, scan = end, end
	}

	if cursor < p.end {
		dst = append(dst, piece{start: cursor, end: p.end, cat: untyped})
	}
	return dst, nil
}
