package prompt

import "strings"

// Normalize maps a raw entry to a canonical Record.
// It is total: missing or mistyped fields become empty values.
//   - text, credit, creditUrl: passed through when strings, else ""
//   - type: "" when absent, not a string, or whitespace-only; otherwise verbatim
//   - tags: string elements of a sequence, in order; anything else yields []
func Normalize(e Entry) Record {
	r := Record{
		Text:      stringField(e, "text"),
		Type:      stringField(e, "type"),
		Tags:      []string{},
		Credit:    stringField(e, "credit"),
		CreditURL: stringField(e, "creditUrl"),
	}

	if strings.TrimSpace(r.Type) == "" {
		r.Type = ""
	}

	switch tags := e["tags"].(type) {
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok {
				r.Tags = append(r.Tags, s)
			}
		}
	case []string:
		r.Tags = append(r.Tags, tags...)
	}

	return r
}

// stringField returns e[key] when it holds a string, else "".
func stringField(e Entry, key string) string {
	if e == nil {
		return ""
	}
	s, _ := e[key].(string)
	return s
}
