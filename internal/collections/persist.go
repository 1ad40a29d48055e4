package collections

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Persisted slot keys.
const (
	KeyFavorites          = "favorites"
	KeyHiddenPrompts      = "hiddenPrompts"
	KeyHiddenLegacy       = "hidden"
	KeyLists              = "lists"
	KeySelectedCategories = "selectedCategories"
)

// SchemaVersion is written into every versioned slot.
const SchemaVersion = 1

// Backend is the key/value store behind a Store.
type Backend interface {
	// Get returns the raw value under key; false when absent.
	Get(key string) (string, bool, error)

	// Put replaces the raw value under key.
	Put(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// envelope is the versioned wrapper around a slot value.
type envelope struct {
	Version int             `json:"version"`
	SavedAt int64           `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// encodeSlot wraps v in a versioned envelope.
func encodeSlot(v any, now time.Time) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(envelope{Version: SchemaVersion, SavedAt: now.UnixMilli(), Data: data})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// unwrapSlot returns the payload of a stored value. A value is versioned when
// it is an object with a numeric "version" and a "data" member; anything else
// that is valid JSON is a legacy bare value.
func unwrapSlot(raw string) (payload json.RawMessage, legacy bool, err error) {
	if !json.Valid([]byte(raw)) {
		return nil, false, fmt.Errorf("value is not valid JSON")
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal([]byte(raw), &fields) == nil {
		version, hasVersion := fields["version"]
		data, hasData := fields["data"]
		var n float64
		if hasVersion && hasData && json.Unmarshal(version, &n) == nil {
			return data, false, nil
		}
	}
	return json.RawMessage(raw), true, nil
}

// decodeStrings parses a JSON array, keeping string elements only.
func decodeStrings(payload json.RawMessage) ([]string, error) {
	var items []any
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("expected array: %w", err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// decodeLists parses a JSON object of list name to text array.
// Non-array members become empty lists; duplicate texts are collapsed.
// Names are trimmed. Blank names are dropped and names that trim to the same
// value are merged in ascending order of the raw name.
func decodeLists(payload json.RawMessage) (map[string][]string, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(payload, &members); err != nil {
		return nil, fmt.Errorf("expected object: %w", err)
	}
	if members == nil {
		return nil, fmt.Errorf("expected object, got null")
	}

	rawNames := make([]string, 0, len(members))
	for name := range members {
		rawNames = append(rawNames, name)
	}
	sort.Strings(rawNames)

	lists := make(map[string][]string, len(members))
	for _, rawName := range rawNames {
		name := strings.TrimSpace(rawName)
		if name == "" {
			continue
		}
		texts, err := decodeStrings(members[rawName])
		if err != nil {
			texts = nil
		}
		lists[name] = dedupe(append(lists[name], texts...))
	}
	return lists, nil
}

func dedupe(texts []string) []string {
	seen := make(map[string]bool, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MemoryBackend is an in-process Backend. It does not survive restarts.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get implements Backend.
func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Put implements Backend.
func (m *MemoryBackend) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
