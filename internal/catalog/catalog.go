package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

//go:embed categories.yaml
var embeddedCategories []byte

// Catalog maps each ticket kind to its categories and their allowed subcategories.
type Catalog struct {
	kinds map[domain.Kind]map[string][]string
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(embeddedCategories)
	if err != nil {
		panic(fmt.Sprintf("failed to load embedded categories: %v", err))
	}
	return c
}

// Load reads a catalog file, falling back to the embedded defaults when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog keyed by kind, then category.
func Parse(data []byte) (*Catalog, error) {
	var payload map[string]map[string][]string
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse category yaml: %w", err)
	}
	c := &Catalog{kinds: make(map[domain.Kind]map[string][]string, len(payload))}
	for rawKind, categories := range payload {
		kind := domain.Kind(rawKind)
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown ticket kind %q in catalog", rawKind)
		}
		clean := make(map[string][]string, len(categories))
		for category, subs := range categories {
			category = strings.TrimSpace(category)
			if category == "" {
				continue
			}
			trimmed := make([]string, 0, len(subs))
			for _, sub := range subs {
				if sub = strings.TrimSpace(sub); sub != "" {
					trimmed = append(trimmed, sub)
				}
			}
			clean[category] = trimmed
		}
		c.kinds[kind] = clean
	}
	if len(c.kinds) == 0 {
		return nil, errors.New("category catalog is empty")
	}
	return c, nil
}

// Categories returns the category names of a kind, sorted.
func (c *Catalog) Categories(kind domain.Kind) []string {
	categories := c.kinds[kind]
	out := make([]string, 0, len(categories))
	for name := range categories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Subcategories returns the allowed subcategories of a category.
func (c *Catalog) Subcategories(kind domain.Kind, category string) []string {
	return slices.Clone(c.kinds[kind][category])
}

// HasCategory reports whether the category exists for the kind.
func (c *Catalog) HasCategory(kind domain.Kind, category string) bool {
	_, ok := c.kinds[kind][category]
	return ok
}

// Allows reports whether subcategory belongs to category. Categories without a
// subcategory set accept any value, including none.
func (c *Catalog) Allows(kind domain.Kind, category, subcategory string) bool {
	subs, ok := c.kinds[kind][category]
	if !ok {
		return false
	}
	if len(subs) == 0 {
		return true
	}
	return slices.Contains(subs, subcategory)
}

// RequiresSubcategory reports whether the category defines a subcategory set.
func (c *Catalog) RequiresSubcategory(kind domain.Kind, category string) bool {
	return len(c.kinds[kind][category]) > 0
}
