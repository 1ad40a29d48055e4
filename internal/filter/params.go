package filter

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// Query parameter names shared with shareable filter links.
const (
	ParamIncludeTypes = "includeTypes"
	ParamExcludeTypes = "excludeTypes"
	ParamIncludeTags  = "includeTags"
	ParamExcludeTags  = "excludeTags"
	ParamIncludeLists = "includeLists"
)

// EncodeParams renders sel as query parameters. Each non-empty set becomes
// one comma-joined, sorted value; empty sets are omitted. Keys holding a
// comma, a percent sign or surrounding whitespace are escaped so ParseParams
// returns them unchanged.
func EncodeParams(sel Selection) url.Values {
	v := url.Values{}
	set := func(key string, s Set) {
		if len(s) == 0 {
			return
		}
		items := s.Sorted()
		for i, item := range items {
			items[i] = escapeItem(item)
		}
		v.Set(key, strings.Join(items, ","))
	}
	set(ParamIncludeTypes, sel.IncludeTypes)
	set(ParamExcludeTypes, sel.ExcludeTypes)
	set(ParamIncludeTags, sel.IncludeTags)
	set(ParamExcludeTags, sel.ExcludeTags)
	set(ParamIncludeLists, sel.IncludeLists)
	return v
}

// ParseParams builds a Selection from query parameters. Values may repeat
// and may be comma-separated; blank items are ignored. A key listed as both
// included and excluded resolves to included.
func ParseParams(v url.Values) Selection {
	sel := NewSelection()

	for _, key := range splitParam(v, ParamExcludeTypes) {
		sel.Assign(DimensionType, key, Excluded)
	}
	for _, key := range splitParam(v, ParamIncludeTypes) {
		sel.Assign(DimensionType, key, Included)
	}
	for _, key := range splitParam(v, ParamExcludeTags) {
		sel.Assign(DimensionTag, key, Excluded)
	}
	for _, key := range splitParam(v, ParamIncludeTags) {
		sel.Assign(DimensionTag, key, Included)
	}
	for _, key := range splitParam(v, ParamIncludeLists) {
		sel.Assign(DimensionList, key, Included)
	}

	return sel
}

// splitParam flattens every value of key on commas. Items are trimmed, then
// unescaped; blank items are dropped.
func splitParam(v url.Values, key string) []string {
	var out []string
	for _, raw := range v[key] {
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, unescapeItem(p))
			}
		}
	}
	return out
}

// escapeItem percent-encodes the characters splitParam would otherwise eat:
// commas, percent signs, and whitespace at either end.
func escapeItem(item string) string {
	if !strings.ContainsAny(item, ",%") && strings.TrimSpace(item) == item {
		return item
	}

	lead := len(item) - len(strings.TrimLeftFunc(item, unicode.IsSpace))
	trail := len(strings.TrimRightFunc(item, unicode.IsSpace))

	var b strings.Builder
	for i := 0; i < len(item); i++ {
		c := item[i]
		switch {
		case c == ',' || c == '%':
			fmt.Fprintf(&b, "%%%02X", c)
		case i < lead || i >= trail:
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// unescapeItem reverses escapeItem. Items that are not valid escapes, such as
// a hand-written "100%", are kept as typed.
func unescapeItem(item string) string {
	if !strings.Contains(item, "%") {
		return item
	}
	out, err := url.PathUnescape(item)
	if err != nil {
		return item
	}
	return out
}
