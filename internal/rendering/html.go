package rendering

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jonathan/jd-highlighter/internal/highlight"
)

// HTMLNodes builds one node per paragraph: a <p> for text and a spacer <br>
// for blank lines. Segments map to text nodes, <span>s and <a>s.
func HTMLNodes(doc *highlight.Document, ctx Context) ([]*html.Node, error) {
	nodes := make([]*html.Node, 0, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		if p.Blank {
			nodes = append(nodes, element(atom.Br, html.Attribute{Key: "class", Val: "spacer"}))
			continue
		}

		para := element(atom.P)
		for _, seg := range p.Segments {
			node, err := segmentNode(seg, ctx)
			if err != nil {
				return nil, &RenderError{
					Message: fmt.Sprintf("paragraph %d", i),
					Cause:   err,
				}
			}
			para.AppendChild(node)
		}
		nodes = append(nodes, para)
	}
	return nodes, nil
}

// RenderHTML writes the document as an HTML fragment.
func RenderHTML(w io.Writer, doc *highlight.Document, ctx Context) error {
	nodes, err := HTMLNodes(doc, ctx)
	if err != nil {
		return err
	}
	for i, n := range nodes {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return &RenderError{Message: "failed to write html", Cause: err}
			}
		}
		if err := html.Render(w, n); err != nil {
			return &RenderError{Message: "failed to write html", Cause: err}
		}
	}
	return nil
}

func segmentNode(seg highlight.Segment, ctx Context) (*html.Node, error) {
	switch seg.Kind {
	case highlight.KindPlain:
		return text(seg.Text), nil

	case highlight.KindDecorative:
		span := element(atom.Span,
			html.Attribute{Key: "class", Val: ctx.classFor(seg.CategoryID)},
			html.Attribute{Key: "data-category", Val: seg.CategoryID},
		)
		span.AppendChild(text(seg.Text))
		return span, nil

	case highlight.KindEmail:
		a := element(atom.A,
			html.Attribute{Key: "href", Val: seg.Href},
			html.Attribute{Key: "class", Val: ctx.classFor(seg.CategoryID)},
		)
		a.AppendChild(text(seg.Text))
		return a, nil

	case highlight.KindLink:
		attrs := []html.Attribute{
			{Key: "href", Val: seg.Href},
			{Key: "class", Val: ctx.classFor(seg.CategoryID)},
		}
		if ctx.LinkTarget != "" {
			attrs = append(attrs,
				html.Attribute{Key: "target", Val: ctx.LinkTarget},
				html.Attribute{Key: "rel", Val: "noopener noreferrer"},
			)
		}
		a := element(atom.A, attrs...)
		a.AppendChild(text(seg.Text))
		if ctx.ExternalIndicator != "" {
			indicator := element(atom.Span,
				html.Attribute{Key: "class", Val: "external"},
				html.Attribute{Key: "aria-hidden", Val: "true"},
			)
			indicator.AppendChild(text(ctx.ExternalIndicator))
			a.AppendChild(indicator)
		}
		return a, nil

	default:
		return nil, fmt.Errorf("unsupported span kind %s", seg.Kind)
	}
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
