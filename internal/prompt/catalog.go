package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sparkcards/spark/internal/errors"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is a fixed, ordered collection of normalized prompts.
// It is read-only after construction.
type Catalog struct {
	records []Record
	index   map[string]int
}

// FromEntries normalizes entries and builds a Catalog in entry order.
// An entry without text or a text seen twice fails the whole load.
func FromEntries(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		records: make([]Record, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}

	for i, e := range entries {
		r := Normalize(e)
		if r.Text == "" {
			return nil, errors.NewInvalidCatalog(fmt.Sprintf("entry %d", i), fmt.Errorf("missing text"))
		}
		if first, ok := c.index[r.Text]; ok {
			return nil, errors.NewDuplicatePrompt(r.Text, first, i)
		}
		c.index[r.Text] = len(c.records)
		c.records = append(c.records, r)
	}

	return c, nil
}

// Parse decodes a YAML or JSON catalog (a top-level sequence of entries).
// source names the input in error messages.
func Parse(data []byte, source string) (*Catalog, error) {
	var raw []any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewInvalidCatalog(source, err)
	}

	entries := make([]Entry, len(raw))
	for i, item := range raw {
		// Non-mapping items normalize to an empty entry and are rejected for missing text.
		if m, ok := item.(map[string]any); ok {
			entries[i] = Entry(m)
		}
	}

	return FromEntries(entries)
}

// LoadFile reads and parses a catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInvalidCatalog(path, err)
	}
	return Parse(data, path)
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, "embedded catalog")
}

// Load returns the catalog at path, or the embedded catalog if path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Len returns the number of prompts.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Records returns all prompts in catalog order.
// The returned slice is a copy; Tags slices are shared and must not be modified.
func (c *Catalog) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Lookup resolves a prompt by its text.
func (c *Catalog) Lookup(text string) (Record, bool) {
	i, ok := c.index[text]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

// Position returns the catalog index of text, or -1.
func (c *Catalog) Position(text string) int {
	if i, ok := c.index[text]; ok {
		return i
	}
	return -1
}

// Types returns every non-empty type in the catalog, sorted.
func (c *Catalog) Types() []string {
	seen := make(map[string]bool)
	types := make([]string, 0)
	for _, r := range c.records {
		if r.Type != "" && !seen[r.Type] {
			seen[r.Type] = true
			types = append(types, r.Type)
		}
	}
	sort.Strings(types)
	return types
}

// Tags returns every tag used in the catalog, sorted.
func (c *Catalog) Tags() []string {
	seen := make(map[string]bool)
	tags := make([]string, 0)
	for _, r := range c.records {
		for _, t := range r.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}
