package collections

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChangeKind names the collection a mutation touched.
type ChangeKind string

const (
	ChangeFavorite   ChangeKind = "favorite"
	ChangeHidden     ChangeKind = "hidden"
	ChangeList       ChangeKind = "list"
	ChangeCategories ChangeKind = "categories"
)

// Change describes one applied mutation. Subscribers receive it after the
// store lock is released.
type Change struct {
	Kind ChangeKind

	// Text is the prompt text for favorite, hidden and list entry changes
	Text string

	// List is the list name for list changes
	List string

	// Member reports the new membership of Text (favorite, hidden, list entry)
	Member bool
}

// Store owns favorites, hidden prompts, named lists and selected categories.
// Every mutation is written through to the backend before subscribers run.
// A failed write is logged; the in-memory state keeps the mutation.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	favorites  map[string]struct{}
	hidden     map[string]struct{}
	lists      map[string][]string
	categories []string

	// legacyHidden is set when hidden prompts came from the legacy key,
	// which Flush removes once hiddenPrompts is written.
	legacyHidden bool

	subMu       sync.Mutex
	subscribers []func(Change)
}

// Open loads every slot from backend. Missing, unreadable or malformed slots
// fall back to empty values and are logged; Open never fails.
func Open(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		backend:    backend,
		logger:     logger,
		now:        time.Now,
		favorites:  make(map[string]struct{}),
		hidden:     make(map[string]struct{}),
		lists:      make(map[string][]string),
		categories: []string{},
	}

	if texts, ok := s.loadStrings(KeyFavorites); ok {
		s.favorites = toSet(texts)
	}

	if texts, ok := s.loadStrings(KeyHiddenPrompts); ok {
		s.hidden = toSet(texts)
	} else if texts, ok := s.loadStrings(KeyHiddenLegacy); ok {
		s.hidden = toSet(texts)
		s.legacyHidden = true
	}

	if payload, ok := s.load(KeyLists); ok {
		lists, err := decodeLists(payload)
		if err != nil {
			s.logger.Warn("discarding malformed slot", zap.String("key", KeyLists), zap.Error(err))
		} else {
			s.lists = lists
		}
	}

	if texts, ok := s.loadStrings(KeySelectedCategories); ok {
		s.categories = texts
	}

	return s
}

// load reads and unwraps a slot. The boolean is false when the slot is absent
// or unreadable.
func (s *Store) load(key string) (json.RawMessage, bool) {
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		s.logger.Warn("failed to read slot", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	payload, legacy, err := unwrapSlot(raw)
	if err != nil {
		s.logger.Warn("discarding malformed slot", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if legacy {
		s.logger.Debug("loaded legacy slot", zap.String("key", key))
	}
	return payload, true
}

func (s *Store) loadStrings(key string) ([]string, bool) {
	payload, ok := s.load(key)
	if !ok {
		return nil, false
	}
	texts, err := decodeStrings(payload)
	if err != nil {
		s.logger.Warn("discarding malformed slot", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return texts, true
}

// Subscribe registers fn to receive every applied mutation.
func (s *Store) Subscribe(fn func(Change)) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	subs := make([]func(Change), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(c)
	}
}

// ToggleFavorite flips text's favorite membership and returns the new state.
// Empty text is ignored.
func (s *Store) ToggleFavorite(text string) bool {
	if text == "" {
		return false
	}
	s.mu.Lock()
	member := toggle(s.favorites, text)
	s.saveLocked(KeyFavorites, sortedKeys(s.favorites))
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeFavorite, Text: text, Member: member})
	return member
}

// ToggleHidden flips text's hidden membership and returns the new state.
// Empty text is ignored.
func (s *Store) ToggleHidden(text string) bool {
	if text == "" {
		return false
	}
	s.mu.Lock()
	member := toggle(s.hidden, text)
	s.saveLocked(KeyHiddenPrompts, sortedKeys(s.hidden))
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeHidden, Text: text, Member: member})
	return member
}

// ListName normalizes a list name. Every list operation trims the name, so
// " warmup" and "warmup" address the same list.
func ListName(name string) string {
	return strings.TrimSpace(name)
}

// CreateList creates an empty list named by the trimmed name.
// It reports false when the name is blank or the list already exists.
func (s *Store) CreateList(name string) bool {
	name = ListName(name)
	if name == "" {
		return false
	}

	s.mu.Lock()
	if _, ok := s.lists[name]; ok {
		s.mu.Unlock()
		return false
	}
	s.lists[name] = []string{}
	s.saveLocked(KeyLists, s.lists)
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeList, List: name})
	return true
}

// AddToList appends text to the named list, creating the list if needed.
// It reports false for a blank name or text, or when text is already present.
func (s *Store) AddToList(name, text string) bool {
	name = ListName(name)
	if name == "" || text == "" {
		return false
	}

	s.mu.Lock()
	for _, existing := range s.lists[name] {
		if existing == text {
			s.mu.Unlock()
			return false
		}
	}
	s.lists[name] = append(s.lists[name], text)
	s.saveLocked(KeyLists, s.lists)
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeList, List: name, Text: text, Member: true})
	return true
}

// RemoveFromList removes text from the named list. The list itself is kept
// even when it becomes empty. It reports whether anything was removed.
func (s *Store) RemoveFromList(name, text string) bool {
	name = ListName(name)
	s.mu.Lock()
	entries, ok := s.lists[name]
	idx := -1
	if ok {
		for i, existing := range entries {
			if existing == text {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	next := make([]string, 0, len(entries)-1)
	next = append(next, entries[:idx]...)
	next = append(next, entries[idx+1:]...)
	s.lists[name] = next
	s.saveLocked(KeyLists, s.lists)
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeList, List: name, Text: text, Member: false})
	return true
}

// DeleteList removes the named list. It reports whether the list existed.
func (s *Store) DeleteList(name string) bool {
	name = ListName(name)
	s.mu.Lock()
	if _, ok := s.lists[name]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.lists, name)
	s.saveLocked(KeyLists, s.lists)
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeList, List: name})
	return true
}

// SetSelectedCategories replaces the persisted category selection.
func (s *Store) SetSelectedCategories(categories []string) {
	s.mu.Lock()
	s.categories = dedupe(categories)
	s.saveLocked(KeySelectedCategories, s.categories)
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeCategories})
}

// saveLocked writes one slot in the versioned shape. Caller holds mu.
func (s *Store) saveLocked(key string, v any) {
	if err := s.writeLocked(key, v); err != nil {
		s.logger.Error("failed to persist slot", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) writeLocked(key string, v any) error {
	value, err := encodeSlot(v, s.now())
	if err != nil {
		return err
	}
	return s.backend.Put(key, value)
}

// Flush rewrites every slot in the versioned shape, upgrading legacy values.
// The legacy hidden key is deleted once hiddenPrompts has been written.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := errors.Join(
		s.writeLocked(KeyFavorites, sortedKeys(s.favorites)),
		s.writeLocked(KeyHiddenPrompts, sortedKeys(s.hidden)),
		s.writeLocked(KeyLists, s.lists),
		s.writeLocked(KeySelectedCategories, s.categories),
	)
	if err != nil || !s.legacyHidden {
		return err
	}

	if err := s.backend.Delete(KeyHiddenLegacy); err != nil {
		return err
	}
	s.legacyHidden = false
	s.logger.Debug("removed legacy slot", zap.String("key", KeyHiddenLegacy))
	return nil
}

// IsFavorite reports whether text is a favorite.
func (s *Store) IsFavorite(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.favorites[text]
	return ok
}

// IsHidden reports whether text is hidden.
func (s *Store) IsHidden(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.hidden[text]
	return ok
}

// Favorites returns favorite texts in ascending order.
func (s *Store) Favorites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.favorites)
}

// Hidden returns hidden texts in ascending order.
func (s *Store) Hidden() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.hidden)
}

// FavoriteSet returns a copy of the favorites set.
func (s *Store) FavoriteSet() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSet(s.favorites)
}

// HiddenSet returns a copy of the hidden set.
func (s *Store) HiddenSet() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSet(s.hidden)
}

// Lists returns a deep copy of every list.
func (s *Store) Lists() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string, len(s.lists))
	for name, texts := range s.lists {
		out[name] = append([]string{}, texts...)
	}
	return out
}

// List returns the texts of one list.
func (s *Store) List(name string) ([]string, bool) {
	name = ListName(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	texts, ok := s.lists[name]
	if !ok {
		return nil, false
	}
	return append([]string{}, texts...), true
}

// ListNames returns every list name in ascending order.
func (s *Store) ListNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.lists))
	for name := range s.lists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectedCategories returns the persisted category selection.
func (s *Store) SelectedCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.categories...)
}

func toggle(set map[string]struct{}, key string) bool {
	if _, ok := set[key]; ok {
		delete(set, key)
		return false
	}
	set[key] = struct{}{}
	return true
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func cloneSet(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for k := range set {
		out[k] = struct{}{}
	}
	return out
}
