package ops

import (
	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/prompt"
)

// Pagination limits
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Prompt is a catalog record decorated with the user's flags.
type Prompt struct {
	prompt.Record

	Favorite bool `json:"favorite"`
	Hidden   bool `json:"hidden"`

	// InCatalog is false for collection entries whose text no longer resolves
	InCatalog bool `json:"in_catalog"`
}

// decorate attaches favorite and hidden flags to r.
func decorate(store *collections.Store, r prompt.Record) Prompt {
	return Prompt{
		Record:    r,
		Favorite:  store.IsFavorite(r.Text),
		Hidden:    store.IsHidden(r.Text),
		InCatalog: true,
	}
}

// resolve looks text up in the catalog, falling back to a bare record.
func resolve(cat *prompt.Catalog, store *collections.Store, text string) Prompt {
	if r, ok := cat.Lookup(text); ok {
		return decorate(store, r)
	}
	p := decorate(store, prompt.Record{Text: text, Tags: []string{}})
	p.InCatalog = false
	return p
}

// paginate clamps limit and offset and slices items accordingly.
func paginate[T any](items []T, limit, offset int) ([]T, Pagination) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset = max(offset, 0)

	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)

	page := make([]T, 0, end-start)
	page = append(page, items[start:end]...)

	return page, Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}
