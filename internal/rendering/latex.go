package rendering

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/jonathan/jd-highlighter/internal/highlight"
)

//go:embed templates/*.tex.tmpl
var templateFS embed.FS

const defaultTemplate = "templates/highlight.tex.tmpl"

// TemplateData is passed to LaTeX templates. Body is already escaped.
type TemplateData struct {
	Title string
	Body  string
}

// RenderLaTeX renders the document into the built-in standalone template.
func RenderLaTeX(doc *highlight.Document, ctx Context, title string) (string, error) {
	content, err := templateFS.ReadFile(defaultTemplate)
	if err != nil {
		return "", &TemplateError{Message: "built-in template missing", Cause: err}
	}
	tmpl, err := parseTemplate("highlight", string(content))
	if err != nil {
		return "", err
	}
	return renderTemplate(tmpl, doc, ctx, title)
}

// RenderLaTeXWithTemplate renders the document into a template file. The
// template receives TemplateData and an "escape" function.
func RenderLaTeXWithTemplate(doc *highlight.Document, ctx Context, title, templatePath string) (string, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &TemplateError{
				Message: fmt.Sprintf("template file not found: %s", templatePath),
				Cause:   err,
			}
		}
		return "", &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", templatePath),
			Cause:   err,
		}
	}
	tmpl, err := parseTemplate(templatePath, string(content))
	if err != nil {
		return "", err
	}
	return renderTemplate(tmpl, doc, ctx, title)
}

// LaTeXBody renders only the paragraphs: one LaTeX paragraph per text line
// and \medskip per blank line.
func LaTeXBody(doc *highlight.Document, ctx Context) (string, error) {
	var sb strings.Builder
	for i, p := range doc.Paragraphs {
		if i > 0 {
			sb.WriteString("\n")
		}
		if p.Blank {
			sb.WriteString(`\medskip`)
			sb.WriteString("\n")
			continue
		}
		for _, seg := range p.Segments {
			if err := writeLaTeXSegment(&sb, seg, ctx); err != nil {
				return "", &RenderError{Message: fmt.Sprintf("paragraph %d", i), Cause: err}
			}
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func parseTemplate(name, content string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"escape": EscapeLaTeX,
	}).Parse(content)
	if err != nil {
		return nil, &TemplateError{
			Message: "failed to parse template",
			Cause:   err,
		}
	}
	return tmpl, nil
}

func renderTemplate(tmpl *template.Template, doc *highlight.Document, ctx Context, title string) (string, error) {
	body, err := LaTeXBody(doc, ctx)
	if err != nil {
		return "", err
	}

	var result strings.Builder
	if err := tmpl.Execute(&result, TemplateData{Title: title, Body: body}); err != nil {
		return "", &TemplateError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return result.String(), nil
}

func writeLaTeXSegment(sb *strings.Builder, seg highlight.Segment, ctx Context) error {
	switch seg.Kind {
	case highlight.KindPlain:
		sb.WriteString(EscapeLaTeX(seg.Text))
	case highlight.KindDecorative:
		fmt.Fprintf(sb, `\hl{%s}{%s}`, EscapeLaTeX(ctx.classFor(seg.CategoryID)), EscapeLaTeX(seg.Text))
	case highlight.KindEmail, highlight.KindLink:
		fmt.Fprintf(sb, `\href{%s}{%s}`, escapeHref(seg.Href), EscapeLaTeX(seg.Text))
	default:
		return fmt.Errorf("unsupported span kind %s", seg.Kind)
	}
	return nil
}

// EscapeLaTeX escapes the characters LaTeX treats specially:
// \ { } $ & % # ^ _ ~
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) * 2)

	for _, r := range text {
		switch r {
		case '\\':
			result.WriteString(`\textbackslash{}`)
		case '{', '}', '$', '&', '%', '#', '_':
			result.WriteByte('\\')
			result.WriteRune(r)
		case '^':
			result.WriteString(`\textasciicircum{}`)
		case '~':
			result.WriteString(`\textasciitilde{}`)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// escapeHref prepares a URL for the first argument of \href. Braces and
// backslashes are percent-encoded; % and # are backslash-escaped.
func escapeHref(href string) string {
	var result strings.Builder
	for _, r := range href {
		switch r {
		case '%', '#':
			result.WriteByte('\\')
			result.WriteRune(r)
		case '\\':
			result.WriteString(`\%5C`)
		case '{':
			result.WriteString(`\%7B`)
		case '}':
			result.WriteString(`\%7D`)
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}
