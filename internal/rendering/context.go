// Package rendering turns segmented documents into display output: HTML
// nodes for web hosts, LaTeX for print and annotated plain text for
// terminals. Renderers never reclassify text; the visible label of every
// segment is its exact text.
package rendering

import "github.com/jonathan/jd-highlighter/internal/highlight"

// DefaultExternalIndicator trails every external link.
const DefaultExternalIndicator = "↗"

// Context carries host styling. Classes maps category identifiers to display
// classes; categories missing from the map fall back to "hl-<id>".
//
// Link hrefs are the matched text as written. A scheme-less match such as
// "www.acme.io/jobs" is emitted unchanged and browsers resolve it relative
// to the host page; hosts that need absolute links rewrite Segment.Href
// before rendering.
type Context struct {
	Classes           map[string]string
	ExternalIndicator string
	LinkTarget        string
}

// DefaultContext takes classes from the registry and opens links in a new
// tab with the default indicator.
func DefaultContext(reg *highlight.Registry) Context {
	ctx := Context{
		Classes:           make(map[string]string),
		ExternalIndicator: DefaultExternalIndicator,
		LinkTarget:        "_blank",
	}
	if reg == nil {
		return ctx
	}
	for _, c := range reg.Categories() {
		ctx.Classes[c.ID] = c.Class
	}
	return ctx
}

func (c Context) classFor(categoryID string) string {
	if class, ok := c.Classes[categoryID]; ok && class != "" {
		return class
	}
	return "hl-" + categoryID
}
