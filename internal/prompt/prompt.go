package prompt

// Record is a single movement prompt in canonical shape.
// Every field is always defined: absent values are empty strings or an empty slice.
type Record struct {
	// Text is the display content and the unique identifier within a catalog
	Text string `json:"text"`

	// Type is a single category (e.g. "pole", "floor"); empty means no type
	Type string `json:"type"`

	// Tags are free-form labels kept in catalog order for display
	Tags []string `json:"tags"`

	// Credit and CreditURL are optional attribution, never used in filtering
	Credit    string `json:"credit"`
	CreditURL string `json:"creditUrl"`
}

// HasType reports whether the record carries a non-empty type.
func (r Record) HasType() bool {
	return r.Type != ""
}

// HasAnyTag reports whether at least one of the record's tags is in set.
func (r Record) HasAnyTag(set map[string]struct{}) bool {
	for _, tag := range r.Tags {
		if _, ok := set[tag]; ok {
			return true
		}
	}
	return false
}

// Entry is a raw catalog entry as decoded from JSON or YAML.
// Any subset of fields may be present, with any value shape.
type Entry map[string]any
