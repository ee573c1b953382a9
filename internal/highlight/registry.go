package highlight

import (
	"fmt"
	"strings"
)

// Registry is an immutable, ordered set of categories. Index 0 has the
// highest precedence. A Registry is safe for concurrent use.
type Registry struct {
	categories []Category
	index      map[string]int
}

// NewRegistry validates the categories and returns a registry that owns a
// copy of them. Every problem is reported in a single *ConfigError.
func NewRegistry(categories []Category) (*Registry, error) {
	if err := validateCategories(categories); err != nil {
		return nil, err
	}

	r := &Registry{
		categories: make([]Category, len(categories)),
		index:      make(map[string]int, len(categories)),
	}
	copy(r.categories, categories)
	for i, c := range r.categories {
		r.index[c.ID] = i
	}
	return r, nil
}

// Validate re-checks the registry. Hosts call it once at startup; it also
// rejects a zero-value Registry.
func (r *Registry) Validate() error {
	if r == nil {
		return &ConfigError{Message: "registry is nil"}
	}
	if err := validateCategories(r.categories); err != nil {
		return err
	}
	if len(r.index) != len(r.categories) {
		return &ConfigError{Message: "registry index is out of sync with its categories"}
	}
	return nil
}

// Extend returns a new registry with extra appended at the lowest
// precedence. The receiver is left untouched.
func (r *Registry) Extend(extra ...Category) (*Registry, error) {
	combined := make([]Category, 0, len(r.categories)+len(extra))
	combined = append(combined, r.categories...)
	combined = append(combined, extra...)
	return NewRegistry(combined)
}

// Categories returns the categories in precedence order.
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// IDs returns the category identifiers in precedence order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.categories))
	for i, c := range r.categories {
		ids[i] = c.ID
	}
	return ids
}

// Len returns the number of categories.
func (r *Registry) Len() int {
	return len(r.categories)
}

// Lookup returns the category with the given identifier.
func (r *Registry) Lookup(id string) (Category, bool) {
	i, ok := r.index[id]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// Rank returns the precedence rank of a category (0 is highest), or -1.
func (r *Registry) Rank(id string) int {
	i, ok := r.index[id]
	if !ok {
		return -1
	}
	return i
}

func validateCategories(categories []Category) error {
	if len(categories) == 0 {
		return &ConfigError{Message: "registry must define at least one category"}
	}

	var ids []string
	var problems []string
	flag := func(id, problem string) {
		problems = append(problems, fmt.Sprintf("%s: %s", id, problem))
		for _, seen := range ids {
			if seen == id {
				return
			}
		}
		ids = append(ids, id)
	}

	seen := make(map[string]bool, len(categories))
	for i, c := range categories {
		id := c.ID
		if strings.TrimSpace(id) == "" {
			flag(fmt.Sprintf("#%d", i), "missing identifier")
			continue
		}
		if seen[id] {
			flag(id, "duplicate identifier")
		}
		seen[id] = true

		if c.Matcher == nil {
			flag(id, "missing matcher")
		}
		switch c.Kind {
		case KindDecorative, KindEmail, KindLink:
		default:
			flag(id, fmt.Sprintf("invalid span kind %s", c.Kind))
		}
	}

	if len(problems) > 0 {
		return &ConfigError{
			IDs:     ids,
			Message: strings.Join(problems, "; "),
		}
	}
	return nil
}
