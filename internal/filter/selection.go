package filter

import (
	"encoding/json"
	"sort"
)

// Set is a set of strings. It marshals as a sorted JSON array.
type Set map[string]struct{}

// NewSet returns a Set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Has reports whether key is in the set.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy (never nil).
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of strings.
func (s *Set) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewSet(items...)
	return nil
}

// Dimension names a filterable axis.
type Dimension string

const (
	DimensionType Dimension = "type"
	DimensionTag  Dimension = "tag"
	DimensionList Dimension = "list"
)

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, bool) {
	switch d := Dimension(s); d {
	case DimensionType, DimensionTag, DimensionList:
		return d, true
	}
	return "", false
}

// State is the selection state of one key within a dimension.
type State string

const (
	Unselected State = "unselected"
	Included   State = "included"
	Excluded   State = "excluded"
)

// Selection is the user's include/exclude criteria for one view.
// For types and tags a key is never in both the include and exclude set.
type Selection struct {
	IncludeTypes Set `json:"includeTypes"`
	ExcludeTypes Set `json:"excludeTypes"`
	IncludeTags  Set `json:"includeTags"`
	ExcludeTags  Set `json:"excludeTags"`
	IncludeLists Set `json:"includeLists"`

	// ExcludeLists is carried for UI parity only; Select never applies it.
	ExcludeLists Set `json:"excludeLists"`
}

// NewSelection returns an empty selection with every set allocated.
func NewSelection() Selection {
	return Selection{
		IncludeTypes: Set{},
		ExcludeTypes: Set{},
		IncludeTags:  Set{},
		ExcludeTags:  Set{},
		IncludeLists: Set{},
		ExcludeLists: Set{},
	}
}

// ensure allocates any nil set so zero-value selections can be mutated.
func (s *Selection) ensure() {
	if s.IncludeTypes == nil {
		s.IncludeTypes = Set{}
	}
	if s.ExcludeTypes == nil {
		s.ExcludeTypes = Set{}
	}
	if s.IncludeTags == nil {
		s.IncludeTags = Set{}
	}
	if s.ExcludeTags == nil {
		s.ExcludeTags = Set{}
	}
	if s.IncludeLists == nil {
		s.IncludeLists = Set{}
	}
	if s.ExcludeLists == nil {
		s.ExcludeLists = Set{}
	}
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	return Selection{
		IncludeTypes: s.IncludeTypes.Clone(),
		ExcludeTypes: s.ExcludeTypes.Clone(),
		IncludeTags:  s.IncludeTags.Clone(),
		ExcludeTags:  s.ExcludeTags.Clone(),
		IncludeLists: s.IncludeLists.Clone(),
		ExcludeLists: s.ExcludeLists.Clone(),
	}
}

// IsEmpty reports whether no criterion is set.
func (s Selection) IsEmpty() bool {
	return len(s.IncludeTypes) == 0 && len(s.ExcludeTypes) == 0 &&
		len(s.IncludeTags) == 0 && len(s.ExcludeTags) == 0 &&
		len(s.IncludeLists) == 0 && len(s.ExcludeLists) == 0
}

// Clear removes every criterion.
func (s *Selection) Clear() {
	*s = NewSelection()
}

// sets returns the include and exclude set for d.
func (s *Selection) sets(d Dimension) (include, exclude Set) {
	s.ensure()
	switch d {
	case DimensionType:
		return s.IncludeTypes, s.ExcludeTypes
	case DimensionTag:
		return s.IncludeTags, s.ExcludeTags
	case DimensionList:
		return s.IncludeLists, s.ExcludeLists
	}
	return nil, nil
}

// State reports the state of key in dimension d.
func (s Selection) State(d Dimension, key string) State {
	include, exclude := s.sets(d)
	switch {
	case include.Has(key):
		return Included
	case exclude.Has(key):
		return Excluded
	}
	return Unselected
}

// Toggle advances key in dimension d and returns its new state.
// Types and tags cycle unselected → included → excluded → unselected.
// Lists are inclusion-only and cycle unselected ↔ included.
// Unknown dimensions are a no-op.
func (s *Selection) Toggle(d Dimension, key string) State {
	include, exclude := s.sets(d)
	if include == nil {
		return Unselected
	}

	if d == DimensionList {
		if include.Has(key) {
			delete(include, key)
			return Unselected
		}
		include[key] = struct{}{}
		return Included
	}

	switch {
	case include.Has(key):
		delete(include, key)
		exclude[key] = struct{}{}
		return Excluded
	case exclude.Has(key):
		delete(exclude, key)
		return Unselected
	default:
		delete(exclude, key)
		include[key] = struct{}{}
		return Included
	}
}

// Assign forces key in dimension d into state. Moving into one set always
// removes the key from the other. Lists reject Excluded as Unselected.
func (s *Selection) Assign(d Dimension, key string, state State) {
	include, exclude := s.sets(d)
	if include == nil {
		return
	}
	delete(include, key)
	delete(exclude, key)

	switch state {
	case Included:
		include[key] = struct{}{}
	case Excluded:
		if d != DimensionList {
			exclude[key] = struct{}{}
		}
	}
}
