// Package legend holds the help-surface metadata for highlight categories:
// a label, one or two example strings and a color token per category.
package legend

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jd-highlighter/internal/highlight"
	"github.com/jonathan/jd-highlighter/internal/schemas"
)

//go:embed legend.json
var defaultLegend []byte

// Entry describes one category for end users.
type Entry struct {
	Category string   `json:"category" validate:"required"`
	Label    string   `json:"label" validate:"required"`
	Examples []string `json:"examples" validate:"min=1,max=2,dive,required"`
	Color    string   `json:"color" validate:"required"`
}

type file struct {
	Entries []Entry `json:"entries"`
}

// Legend is a validated set of entries in registry order.
type Legend struct {
	entries []Entry
	index   map[string]int
}

// New checks that entries correspond one-to-one with the categories of reg
// and returns them ordered by precedence. Mismatches are reported as a
// *highlight.ConfigError naming every offending category.
func New(reg *highlight.Registry, entries []Entry) (*Legend, error) {
	if reg == nil {
		return nil, &highlight.ConfigError{Message: "legend requires a registry"}
	}

	validate := validator.New()
	byCategory := make(map[string]Entry, len(entries))
	var ids []string
	var problems []string
	flag := func(id, problem string) {
		ids = appendUnique(ids, id)
		problems = append(problems, fmt.Sprintf("%s: %s", id, problem))
	}

	for i, e := range entries {
		id := e.Category
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		if err := validate.Struct(e); err != nil {
			flag(id, err.Error())
			continue
		}
		if _, dup := byCategory[e.Category]; dup {
			flag(id, "duplicate legend entry")
			continue
		}
		if reg.Rank(e.Category) < 0 {
			flag(id, "legend entry for unknown category")
			continue
		}
		byCategory[e.Category] = e
	}

	ordered := make([]Entry, 0, reg.Len())
	for _, id := range reg.IDs() {
		e, ok := byCategory[id]
		if !ok {
			flag(id, "category has no legend entry")
			continue
		}
		ordered = append(ordered, e)
	}

	if len(problems) > 0 {
		return nil, &highlight.ConfigError{IDs: ids, Message: strings.Join(problems, "; ")}
	}

	l := &Legend{entries: ordered, index: make(map[string]int, len(ordered))}
	for i, e := range ordered {
		l.index[e.Category] = i
	}
	return l, nil
}

// Load parses a legend file and checks it against reg.
func Load(reg *highlight.Registry, data []byte) (*Legend, error) {
	if err := schemas.Validate(schemas.Legend, data); err != nil {
		return nil, &highlight.ConfigError{Message: "legend file does not match schema", Cause: err}
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &highlight.ConfigError{Message: "failed to parse legend file", Cause: err}
	}
	return New(reg, f.Entries)
}

// Default returns the built-in legend checked against reg.
func Default(reg *highlight.Registry) (*Legend, error) {
	return Load(reg, defaultLegend)
}

// Entries returns the entries in precedence order.
func (l *Legend) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Lookup returns the entry for a category.
func (l *Legend) Lookup(category string) (Entry, bool) {
	i, ok := l.index[category]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Len returns the number of entries.
func (l *Legend) Len() int {
	return len(l.entries)
}

// MarshalJSON encodes the legend in its file form.
func (l *Legend) MarshalJSON() ([]byte, error) {
	return json.Marshal(file{Entries: l.entries})
}

func appendUnique(ids []string, id string) []string {
	for _, seen := range ids {
		if seen == id {
			return ids
		}
	}
	return append(ids, id)
}
