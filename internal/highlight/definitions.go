package highlight

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jd-highlighter/internal/schemas"
)

// MaxPatternLength is the longest single pattern a category file may carry.
const MaxPatternLength = 2048

//go:embed categories.json
var defaultCategories []byte

// CategoryFile is the on-disk form of a registry.
type CategoryFile struct {
	Version    int           `json:"version,omitempty"`
	Categories []CategoryDef `json:"categories" validate:"required,min=1,dive"`
}

// CategoryDef describes one category as data. Patterns are RE2 expressions;
// keywords are literal phrases matched on word boundaries with flexible
// whitespace. Matching is case-insensitive unless CaseSensitive is set.
type CategoryDef struct {
	ID            string   `json:"id" validate:"required,max=64"`
	Label         string   `json:"label" validate:"required"`
	Description   string   `json:"description,omitempty"`
	Kind          string   `json:"kind" validate:"required,oneof=decorative email link"`
	Class         string   `json:"class,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
	Patterns      []string `json:"patterns,omitempty" validate:"dive,required,max=2048"`
	Keywords      []string `json:"keywords,omitempty" validate:"dive,required"`
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// DefaultRegistry returns the built-in job description categories. The
// registry is built once and shared.
func DefaultRegistry() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = LoadRegistry(defaultCategories)
	})
	return defaultRegistry, defaultErr
}

// MustDefaultRegistry is DefaultRegistry for initialization paths that
// cannot continue without it.
func MustDefaultRegistry() *Registry {
	reg, err := DefaultRegistry()
	if err != nil {
		panic(fmt.Sprintf("failed to load default categories: %v", err))
	}
	return reg
}

// DefaultCategoryFile returns the raw embedded category definitions.
func DefaultCategoryFile() []byte {
	out := make([]byte, len(defaultCategories))
	copy(out, defaultCategories)
	return out
}

// LoadRegistry parses a category file, validates it and compiles every
// category into a matcher.
func LoadRegistry(data []byte) (*Registry, error) {
	if err := schemas.Validate(schemas.Categories, data); err != nil {
		return nil, &ConfigError{Message: "category file does not match schema", Cause: err}
	}

	var file CategoryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Message: "failed to parse category file", Cause: err}
	}

	return CompileDefinitions(file.Categories)
}

// CompileDefinitions turns definitions into a Registry, preserving order.
func CompileDefinitions(defs []CategoryDef) (*Registry, error) {
	validate := validator.New()

	categories := make([]Category, 0, len(defs))
	var ids []string
	var problems []string
	for i, def := range defs {
		id := def.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}

		if err := validate.Struct(def); err != nil {
			ids = append(ids, id)
			problems = append(problems, fmt.Sprintf("%s: %v", id, err))
			continue
		}

		cat, err := def.Compile()
		if err != nil {
			ids = append(ids, id)
			problems = append(problems, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		categories = append(categories, cat)
	}

	if len(problems) > 0 {
		return nil, &ConfigError{IDs: ids, Message: strings.Join(problems, "; ")}
	}
	return NewRegistry(categories)
}

// Compile builds the Category for a single definition.
func (d CategoryDef) Compile() (Category, error) {
	kind, err := ParseSpanKind(d.Kind)
	if err != nil || kind == KindPlain {
		return Category{}, fmt.Errorf("invalid kind %q", d.Kind)
	}

	expr, err := d.expression()
	if err != nil {
		return Category{}, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Category{}, fmt.Errorf("invalid pattern: %w", err)
	}

	class := d.Class
	if class == "" {
		class = "hl-" + strings.ReplaceAll(d.ID, "_", "-")
	}

	return Category{
		ID:          d.ID,
		Label:       d.Label,
		Description: d.Description,
		Class:       class,
		Kind:        kind,
		Matcher:     re,
	}, nil
}

// expression joins patterns and keywords into one alternation. Patterns come
// first in file order; keywords follow, longest first, so that a longer
// phrase wins over its own prefix at the same position.
func (d CategoryDef) expression() (string, error) {
	if len(d.Patterns) == 0 && len(d.Keywords) == 0 {
		return "", fmt.Errorf("at least one pattern or keyword is required")
	}

	alternatives := make([]string, 0, len(d.Patterns)+len(d.Keywords))
	for _, p := range d.Patterns {
		if len(p) > MaxPatternLength {
			return "", fmt.Errorf("pattern exceeds %d bytes", MaxPatternLength)
		}
		// Compile alone first so errors point at the offending pattern.
		if _, err := regexp.Compile(p); err != nil {
			return "", fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		alternatives = append(alternatives, "(?:"+p+")")
	}

	keywords := make([]string, len(d.Keywords))
	copy(keywords, d.Keywords)
	sort.SliceStable(keywords, func(i, j int) bool {
		return len(keywords[i]) > len(keywords[j])
	})
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			return "", fmt.Errorf("empty keyword")
		}
		alternatives = append(alternatives, KeywordPattern(k))
	}

	expr := "(?:" + strings.Join(alternatives, "|") + ")"
	if !d.CaseSensitive {
		expr = "(?i)" + expr
	}
	return expr, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// KeywordPattern quotes a literal phrase. Word boundaries are added on the
// sides that start or end with a word character, and internal whitespace
// matches any run of whitespace.
func KeywordPattern(keyword string) string {
	words := whitespaceRun.Split(keyword, -1)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	quoted := strings.Join(words, `\s+`)

	first, _ := utf8.DecodeRuneInString(keyword)
	last, _ := utf8.DecodeLastRuneInString(keyword)
	if isWordRune(first) {
		quoted = `\b` + quoted
	}
	if isWordRune(last) {
		quoted += `\b`
	}
	return quoted
}

// isWordRune matches RE2's ASCII definition of \w.
func isWordRune(r rune) bool {
	return r < unicode.MaxASCII && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}
