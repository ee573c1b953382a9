// Package ingestion turns raw job description input (plain text or HTML)
// into the line-oriented text the highlighter segments.
package ingestion

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	// ErrInputTooLarge is returned when input exceeds Options.MaxBytes.
	ErrInputTooLarge = errors.New("input too large")
	// ErrContentExtractionFailed is returned when HTML has no extractable text.
	ErrContentExtractionFailed = errors.New("content extraction failed")
)

var (
	spaceRun            = regexp.MustCompile(`[ \t\f\v]+`)
	excessiveBlankLines = regexp.MustCompile(`\n\n\n+`)
)

// Options controls how input is read.
type Options struct {
	// Source names the input in metadata (a path, "-" or a URL).
	Source string
	// HTML treats the input as markup and extracts its visible text.
	HTML bool
	// Clean normalizes plain text with CleanText. HTML input is always
	// cleaned.
	Clean bool
	// MaxBytes caps the input size; zero means no limit.
	MaxBytes int64
}

// CleanText normalizes line endings, trims trailing whitespace, collapses
// runs of spaces, unifies bullet markers and keeps at most one blank line
// between blocks.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := strings.Join(lines, "\n")
	result = excessiveBlankLines.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine keeps leading indentation but normalizes everything after it.
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}
	indent := line[:len(line)-len(trimmed)]

	for _, marker := range []string{"• ", "· ", "* ", "– "} {
		if strings.HasPrefix(trimmed, marker) {
			trimmed = "- " + strings.TrimPrefix(trimmed, marker)
			break
		}
	}

	return indent + spaceRun.ReplaceAllString(trimmed, " ")
}

// Ingest reads a job description from r.
func Ingest(r io.Reader, opts Options) (string, *Metadata, error) {
	if opts.MaxBytes > 0 {
		r = io.LimitReader(r, opts.MaxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read input: %w", err)
	}
	if opts.MaxBytes > 0 && int64(len(content)) > opts.MaxBytes {
		return "", nil, fmt.Errorf("%w: more than %d bytes", ErrInputTooLarge, opts.MaxBytes)
	}

	text := string(content)
	format := FormatText
	switch {
	case opts.HTML:
		format = FormatHTML
		text, err = HTMLToText(text, JobPostingSelectors())
		if err != nil {
			return "", nil, err
		}
	case opts.Clean:
		text = CleanText(text)
	}

	metadata := NewMetadata(text, opts.Source)
	metadata.Format = format
	metadata.InputBytes = len(content)
	return text, metadata, nil
}

// IngestFromFile reads a job description from a file, or from stdin when
// path is "-".
func IngestFromFile(path string, opts Options) (string, *Metadata, error) {
	if opts.Source == "" {
		opts.Source = path
	}
	if path == "-" {
		return Ingest(os.Stdin, opts)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Ingest(f, opts)
}
