package filter

import (
	"github.com/sparkcards/spark/internal/prompt"
)

// Source is the catalog the filter engine reads from.
type Source interface {
	// Records returns every normalized prompt in catalog order.
	Records() []prompt.Record

	// Lookup resolves a prompt by text.
	Lookup(text string) (prompt.Record, bool)
}

// Select narrows the catalog to the prompts matching sel.
//
// Stages run in order, each narrowing the previous output without reordering it:
//  1. base pool: the deduplicated union of the selected lists (list names in
//     ascending order, texts in list order, unknown texts dropped), or the
//     whole catalog in catalog order when no list is selected
//  2. keep records whose type is in IncludeTypes (untyped records never match)
//  3. drop records whose type is in ExcludeTypes (untyped records never drop)
//  4. keep records with at least one tag in IncludeTags
//  5. drop records with any tag in ExcludeTags
//  6. when excludeHidden, drop records whose text is in hidden
//
// An empty result is valid and returned as an empty, non-nil slice.
func Select(src Source, sel Selection, lists map[string][]string, hidden map[string]struct{}, excludeHidden bool) []prompt.Record {
	pool := basePool(src, sel.IncludeLists, lists)

	out := make([]prompt.Record, 0, len(pool))
	for _, r := range pool {
		if len(sel.IncludeTypes) > 0 && (!r.HasType() || !sel.IncludeTypes.Has(r.Type)) {
			continue
		}
		if r.HasType() && sel.ExcludeTypes.Has(r.Type) {
			continue
		}
		if len(sel.IncludeTags) > 0 && !r.HasAnyTag(sel.IncludeTags) {
			continue
		}
		if len(sel.ExcludeTags) > 0 && r.HasAnyTag(sel.ExcludeTags) {
			continue
		}
		if excludeHidden {
			if _, ok := hidden[r.Text]; ok {
				continue
			}
		}
		out = append(out, r)
	}

	return out
}

// basePool returns the stage-1 pool.
func basePool(src Source, selected Set, lists map[string][]string) []prompt.Record {
	if len(selected) == 0 {
		return src.Records()
	}

	seen := make(map[string]bool)
	pool := make([]prompt.Record, 0)
	for _, name := range selected.Sorted() {
		for _, text := range lists[name] {
			if seen[text] {
				continue
			}
			seen[text] = true
			if r, ok := src.Lookup(text); ok {
				pool = append(pool, r)
			}
		}
	}
	return pool
}
