package ops

import (
	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/deck"
	"github.com/sparkcards/spark/internal/filter"
	"github.com/sparkcards/spark/internal/prompt"
)

// ListPromptsInput contains parameters for the ListPrompts operation.
type ListPromptsInput struct {
	Selection filter.Selection

	// IncludeHidden keeps hidden prompts (flagged) in the result.
	// This is the "all prompts" view; the default excludes them.
	IncludeHidden bool

	Limit  int // default: 100, max: 500
	Offset int // default: 0
}

// ListPromptsOutput contains the result of the ListPrompts operation.
type ListPromptsOutput struct {
	Items      []Prompt   `json:"items"`
	Pagination Pagination `json:"pagination"`
	Sort       string     `json:"sort"`
}

// ListPrompts returns the filtered catalog in catalog (or list-union) order.
func ListPrompts(cat *prompt.Catalog, store *collections.Store, input ListPromptsInput) (*ListPromptsOutput, error) {
	records := filter.Select(cat, input.Selection, store.Lists(), store.HiddenSet(), !input.IncludeHidden)

	items := make([]Prompt, 0, len(records))
	for _, r := range records {
		items = append(items, decorate(store, r))
	}

	page, pagination := paginate(items, input.Limit, input.Offset)
	return &ListPromptsOutput{
		Items:      page,
		Pagination: pagination,
		Sort:       "catalog",
	}, nil
}

// FacetsOutput contains the filterable values of the catalog.
type FacetsOutput struct {
	Types []string `json:"types"`
	Tags  []string `json:"tags"`
	Lists []string `json:"lists"`
	Total int      `json:"total"`
}

// Facets returns every type, tag and list name a selection can refer to.
func Facets(cat *prompt.Catalog, store *collections.Store) *FacetsOutput {
	return &FacetsOutput{
		Types: cat.Types(),
		Tags:  cat.Tags(),
		Lists: store.ListNames(),
		Total: cat.Len(),
	}
}

// DrawInput contains parameters for the Draw operation.
type DrawInput struct {
	Selection filter.Selection
	Count     int // default: 1
}

// DrawOutput contains the result of the Draw operation.
type DrawOutput struct {
	Items   []Prompt `json:"items"`
	Matches int      `json:"matches"`
}

// Draw shuffles the candidate set once and returns the first Count prompts.
// Hidden prompts are never drawn.
func Draw(cat *prompt.Catalog, store *collections.Store, rnd deck.Source, input DrawInput) (*DrawOutput, error) {
	count := input.Count
	if count <= 0 {
		count = 1
	}

	candidates := filter.Select(cat, input.Selection, store.Lists(), store.HiddenSet(), true)
	shuffled := deck.Shuffle(candidates, rnd)
	count = min(count, len(shuffled))

	items := make([]Prompt, 0, count)
	for _, r := range shuffled[:count] {
		items = append(items, decorate(store, r))
	}
	return &DrawOutput{Items: items, Matches: len(candidates)}, nil
}
