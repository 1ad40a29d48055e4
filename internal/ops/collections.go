package ops

import (
	"sort"
	"strings"

	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/errors"
	"github.com/sparkcards/spark/internal/prompt"
)

// ToggleInput names the prompt a toggle applies to.
type ToggleInput struct {
	Text string
}

// ToggleOutput reports the prompt's flags after a toggle.
type ToggleOutput struct {
	Text      string `json:"text"`
	Favorite  bool   `json:"favorite"`
	Hidden    bool   `json:"hidden"`
	InCatalog bool   `json:"in_catalog"`
	Changed   bool   `json:"changed"`
}

// ToggleFavorite flips the favorite flag of Text. Text need not be in the catalog.
// Blank text is a no-op.
func ToggleFavorite(cat *prompt.Catalog, store *collections.Store, input ToggleInput) (*ToggleOutput, error) {
	changed := input.Text != ""
	if changed {
		store.ToggleFavorite(input.Text)
	}
	return toggleOutput(cat, store, input.Text, changed), nil
}

// ToggleHidden flips the hidden flag of Text. Text need not be in the catalog.
// Blank text is a no-op.
func ToggleHidden(cat *prompt.Catalog, store *collections.Store, input ToggleInput) (*ToggleOutput, error) {
	changed := input.Text != ""
	if changed {
		store.ToggleHidden(input.Text)
	}
	return toggleOutput(cat, store, input.Text, changed), nil
}

func toggleOutput(cat *prompt.Catalog, store *collections.Store, text string, changed bool) *ToggleOutput {
	_, inCatalog := cat.Lookup(text)
	return &ToggleOutput{
		Text:      text,
		Favorite:  store.IsFavorite(text),
		Hidden:    store.IsHidden(text),
		InCatalog: inCatalog,
		Changed:   changed,
	}
}

// CollectionOutput is a resolved set of prompts.
type CollectionOutput struct {
	Items []Prompt `json:"items"`
	Count int      `json:"count"`
}

// Favorites returns every favorite. Catalog prompts come first in catalog
// order; texts missing from the catalog follow in ascending order.
func Favorites(cat *prompt.Catalog, store *collections.Store) *CollectionOutput {
	return resolveAll(cat, store, store.Favorites())
}

// Hidden returns every hidden prompt, ordered like Favorites.
func Hidden(cat *prompt.Catalog, store *collections.Store) *CollectionOutput {
	return resolveAll(cat, store, store.Hidden())
}

func resolveAll(cat *prompt.Catalog, store *collections.Store, texts []string) *CollectionOutput {
	sort.SliceStable(texts, func(i, j int) bool {
		return catalogRank(cat, texts[i]) < catalogRank(cat, texts[j])
	})

	items := make([]Prompt, 0, len(texts))
	for _, text := range texts {
		items = append(items, resolve(cat, store, text))
	}
	return &CollectionOutput{Items: items, Count: len(items)}
}

// catalogRank orders catalog texts by position and unknown texts last.
func catalogRank(cat *prompt.Catalog, text string) int {
	if pos := cat.Position(text); pos >= 0 {
		return pos
	}
	return cat.Len()
}

// ListNameInput names a list.
type ListNameInput struct {
	Name string
}

// ListEntryInput names a list and a prompt text.
type ListEntryInput struct {
	Name string
	Text string
}

// ListMutationOutput reports a list after a mutation.
type ListMutationOutput struct {
	Name    string `json:"name"`
	Changed bool   `json:"changed"`
	Exists  bool   `json:"exists"`
	Count   int    `json:"count"`
}

func listMutation(store *collections.Store, name string, changed bool) *ListMutationOutput {
	texts, exists := store.List(name)
	return &ListMutationOutput{Name: name, Changed: changed, Exists: exists, Count: len(texts)}
}

// CreateList creates an empty list. The name is trimmed; a blank name or an
// existing list is a no-op.
func CreateList(store *collections.Store, input ListNameInput) (*ListMutationOutput, error) {
	name := collections.ListName(input.Name)
	changed := store.CreateList(name)
	return listMutation(store, name, changed), nil
}

// AddToList appends Text to the named list, creating the list if needed.
// The name is trimmed. Adding a text already present is a no-op.
func AddToList(store *collections.Store, input ListEntryInput) (*ListMutationOutput, error) {
	name := collections.ListName(input.Name)
	changed := store.AddToList(name, input.Text)
	return listMutation(store, name, changed), nil
}

// RemoveFromList removes Text from the named list. The list is kept when it becomes empty.
func RemoveFromList(store *collections.Store, input ListEntryInput) (*ListMutationOutput, error) {
	name := collections.ListName(input.Name)
	changed := store.RemoveFromList(name, input.Text)
	return listMutation(store, name, changed), nil
}

// DeleteList removes the named list entirely.
func DeleteList(store *collections.Store, input ListNameInput) (*ListMutationOutput, error) {
	name := collections.ListName(input.Name)
	changed := store.DeleteList(name)
	return listMutation(store, name, changed), nil
}

// ShowListOutput is one list with its entries resolved in list order.
type ShowListOutput struct {
	Name  string   `json:"name"`
	Items []Prompt `json:"items"`
	Count int      `json:"count"`
}

// ShowList resolves the named list. Texts missing from the catalog are kept as
// bare entries.
func ShowList(cat *prompt.Catalog, store *collections.Store, input ListNameInput) (*ShowListOutput, error) {
	name := collections.ListName(input.Name)
	texts, ok := store.List(name)
	if !ok {
		return nil, errors.NewNotFound("list", input.Name)
	}

	items := make([]Prompt, 0, len(texts))
	for _, text := range texts {
		items = append(items, resolve(cat, store, text))
	}
	return &ShowListOutput{Name: name, Items: items, Count: len(items)}, nil
}

// ListSummary describes one list.
type ListSummary struct {
	Name  string   `json:"name"`
	Texts []string `json:"texts"`
	Count int      `json:"count"`
}

// ListsOutput contains every list sorted by name.
type ListsOutput struct {
	Lists []ListSummary `json:"lists"`
}

// Lists returns every list with its texts.
func Lists(store *collections.Store) *ListsOutput {
	all := store.Lists()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &ListsOutput{Lists: make([]ListSummary, 0, len(all))}
	for _, name := range names {
		texts := all[name]
		out.Lists = append(out.Lists, ListSummary{Name: name, Texts: texts, Count: len(texts)})
	}
	return out
}

// CategoriesInput replaces the persisted category selection.
type CategoriesInput struct {
	Categories []string
}

// CategoriesOutput reports the persisted category selection.
type CategoriesOutput struct {
	Categories []string `json:"categories"`
}

// GetCategories returns the persisted category selection.
func GetCategories(store *collections.Store) *CategoriesOutput {
	return &CategoriesOutput{Categories: store.SelectedCategories()}
}

// SetCategories trims and stores the category selection. Blank values are dropped.
func SetCategories(store *collections.Store, input CategoriesInput) (*CategoriesOutput, error) {
	cleaned := make([]string, 0, len(input.Categories))
	for _, c := range input.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	store.SetSelectedCategories(cleaned)
	return GetCategories(store), nil
}
