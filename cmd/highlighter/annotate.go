package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-highlighter/internal/highlight"
	"github.com/jonathan/jd-highlighter/internal/ingestion"
	"github.com/jonathan/jd-highlighter/internal/observability"
	"github.com/jonathan/jd-highlighter/internal/rendering"
	"github.com/jonathan/jd-highlighter/internal/schemas"
)

// Output formats accepted by --format.
const (
	formatJSON  = "json"
	formatHTML  = "html"
	formatLaTeX = "latex"
	formatText  = "text"
	formatPlain = "plain"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Highlight a job description",
	Long:  "Segments a job description into typed spans and writes it as JSON, an HTML fragment, a LaTeX document, annotated text or the bare extracted text.",
	RunE:  runAnnotate,
}

var (
	annotateInput      string
	annotateFormat     string
	annotateOutput     string
	annotateHTMLInput  bool
	annotateClean      bool
	annotateCategories string
	annotateTitle      string
	annotateMeta       string
	annotateTemplate   string
)

func init() {
	annotateCmd.Flags().StringVarP(&annotateInput, "in", "i", "-", "Path to job description file (\"-\" for stdin)")
	annotateCmd.Flags().StringVarP(&annotateFormat, "format", "f", formatJSON, "Output format: json, html, latex, text or plain")
	annotateCmd.Flags().StringVarP(&annotateOutput, "out", "o", "", "Output file path (default stdout)")
	annotateCmd.Flags().BoolVar(&annotateHTMLInput, "html-input", false, "Treat the input as HTML and extract its visible text")
	annotateCmd.Flags().BoolVar(&annotateClean, "clean", false, "Normalize whitespace and bullet markers before highlighting")
	annotateCmd.Flags().StringVar(&annotateCategories, "categories", "", "Path to custom categories JSON")
	annotateCmd.Flags().StringVar(&annotateTitle, "title", "Job Description", "Document title for LaTeX output")
	annotateCmd.Flags().StringVar(&annotateMeta, "meta", "", "Write ingestion metadata JSON to this path")
	annotateCmd.Flags().StringVar(&annotateTemplate, "template", "", "Custom LaTeX template (latex format only)")

	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(annotateFormat)
	if !validFormat(format) {
		return fmt.Errorf("unsupported format %q (want json, html, latex, text or plain)", annotateFormat)
	}
	if annotateTemplate != "" && format != formatLaTeX {
		return fmt.Errorf("--template only applies to latex output")
	}

	cfg, reg, err := loadSettings(annotateCategories, "")
	if err != nil {
		return err
	}

	text, meta, err := ingestion.IngestFromFile(annotateInput, ingestion.Options{
		HTML:  annotateHTMLInput,
		Clean: annotateClean,
	})
	if err != nil {
		return fmt.Errorf("failed to read job description: %w", err)
	}

	stderr := cmd.ErrOrStderr()
	opts := []highlight.Option{highlight.WithBudget(cfg.Budget())}
	if cfg.Verbose {
		opts = append(opts, highlight.WithLogger(newLogger(stderr)))
	}
	seg := highlight.NewSegmenter(reg, opts...)
	doc := seg.SegmentDocument(text)

	if cfg.Verbose {
		observability.NewPrinter(stderr).PrintDocumentSummary(doc, seg.Registry(), meta)
	}
	if doc.Degraded {
		_, _ = fmt.Fprintln(stderr, "Warning: segmentation budget exceeded; output is unhighlighted plain text")
	}

	out, err := renderDocument(doc, seg.Registry(), format, annotateTitle, annotateTemplate)
	if err != nil {
		return err
	}
	if format == formatJSON {
		if err := schemas.Validate(schemas.Document, out); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: output does not match document schema: %v\n", err)
		}
	}

	if err := writeOutput(annotateOutput, out, cmd.OutOrStdout()); err != nil {
		return err
	}

	if annotateMeta != "" {
		metaJSON, err := meta.ToJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(annotateMeta, metaJSON, 0644); err != nil {
			return fmt.Errorf("failed to write metadata file: %w", err)
		}
	}

	if annotateOutput != "" && annotateOutput != "-" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s output to %s\n", format, annotateOutput)
	}
	return nil
}

func validFormat(format string) bool {
	switch format {
	case formatJSON, formatHTML, formatLaTeX, formatText, formatPlain:
		return true
	}
	return false
}

// renderDocument converts doc to the bytes written for format.
func renderDocument(doc *highlight.Document, reg *highlight.Registry, format, title, templatePath string) ([]byte, error) {
	ctx := rendering.DefaultContext(reg)

	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
		return append(data, '\n'), nil
	case formatHTML:
		var buf bytes.Buffer
		if err := rendering.RenderHTML(&buf, doc, ctx); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case formatLaTeX:
		var (
			latex string
			err   error
		)
		if templatePath != "" {
			latex, err = rendering.RenderLaTeXWithTemplate(doc, ctx, title, templatePath)
		} else {
			latex, err = rendering.RenderLaTeX(doc, ctx, title)
		}
		if err != nil {
			return nil, err
		}
		return []byte(latex), nil
	case formatText:
		return []byte(rendering.RenderAnnotated(doc) + "\n"), nil
	case formatPlain:
		return []byte(rendering.RenderPlain(doc) + "\n"), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
