// Package highlight classifies free-form job description text into ordered,
// non-overlapping typed segments for highlighting and link rendering.
//
// A Registry holds the categories in precedence order. A Segmenter applies
// them one category at a time: each category may only split text that no
// earlier category has claimed, so the first listed category always wins an
// overlap. Concatenating the segments of a paragraph always reproduces the
// paragraph exactly.
package highlight

import "fmt"

// SpanKind tells a renderer what to do with a segment.
type SpanKind int

const (
	// KindPlain is untyped text. Categories never have this kind.
	KindPlain SpanKind = iota
	// KindDecorative is highlighted but not interactive.
	KindDecorative
	// KindEmail renders as a mailto: link.
	KindEmail
	// KindLink renders as a hyperlink to the matched URL.
	KindLink
)

var spanKindNames = map[SpanKind]string{
	KindPlain:      "plain",
	KindDecorative: "decorative",
	KindEmail:      "email",
	KindLink:       "link",
}

func (k SpanKind) String() string {
	if name, ok := spanKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SpanKind(%d)", int(k))
}

// Actionable reports whether segments of this kind carry an href.
func (k SpanKind) Actionable() bool {
	return k == KindEmail || k == KindLink
}

// ParseSpanKind parses the textual form produced by String.
func ParseSpanKind(s string) (SpanKind, error) {
	for kind, name := range spanKindNames {
		if name == s {
			return kind, nil
		}
	}
	return KindPlain, fmt.Errorf("unknown span kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k SpanKind) MarshalText() ([]byte, error) {
	name, ok := spanKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown span kind %d", int(k))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SpanKind) UnmarshalText(text []byte) error {
	kind, err := ParseSpanKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Matcher finds the leftmost match in s and returns its byte range as a
// two-element slice, or nil when there is no match. *regexp.Regexp
// satisfies it.
type Matcher interface {
	FindStringIndex(s string) []int
}

// Category is one class of highlighted text. Its precedence is its position
// in the Registry it belongs to.
type Category struct {
	ID          string
	Label       string
	Description string
	Class       string
	Kind        SpanKind
	Matcher     Matcher
}

// Href builds the target reference for a segment of this category.
// Decorative categories have none.
func (c Category) Href(text string) string {
	switch c.Kind {
	case KindEmail:
		return "mailto:" + text
	case KindLink:
		return text
	default:
		return ""
	}
}
