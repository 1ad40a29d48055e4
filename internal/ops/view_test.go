package ops

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/filter"
	"github.com/sparkcards/spark/internal/prompt"
)

func testCatalog(t *testing.T) *prompt.Catalog {
	t.Helper()
	c, err := prompt.FromEntries([]prompt.Entry{
		{"text": "A", "type": "pole", "tags": []any{"restriction", "music"}},
		{"text": "B", "type": "floor", "tags": []any{"music"}},
		{"text": "C", "tags": []any{"tempo"}},
		{"text": "D", "type": "pole"},
		{"text": "E", "type": "heels", "tags": []any{"fun"}},
	})
	require.NoError(t, err)
	return c
}

func testStore(t *testing.T) *collections.Store {
	t.Helper()
	return collections.Open(collections.NewMemoryBackend(), zaptest.NewLogger(t))
}

func newTestView(t *testing.T, cat *prompt.Catalog, store *collections.Store, excludeHidden bool) *View {
	t.Helper()
	v := NewView(cat, store, ViewOptions{
		ExcludeHidden: excludeHidden,
		Rand:          rand.New(rand.NewPCG(3, 5)),
		Logger:        zaptest.NewLogger(t),
	})
	t.Cleanup(v.Close)
	return v
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func TestView_InitialState(t *testing.T) {
	v := newTestView(t, testCatalog(t), testStore(t), true)
	s := v.State()

	assert.Equal(t, 5, s.Matches)
	assert.Equal(t, 0, s.Cursor)
	assert.Equal(t, 1, s.Viewed)
	assert.False(t, s.Complete)
	assert.True(t, s.ExcludeHidden)
	require.NotNil(t, s.Current)
	assert.True(t, s.Current.InCatalog)
	assert.NotEmpty(t, s.ShuffleID)
}

func TestView_AdvanceToExhaustion(t *testing.T) {
	v := newTestView(t, testCatalog(t), testStore(t), true)
	rec := &recorder{}
	v.Subscribe(rec.record)

	seen := map[string]bool{v.State().Current.Text: true}
	for i := 0; i < 4; i++ {
		s, ok := v.Advance()
		require.True(t, ok)
		seen[s.Current.Text] = true
	}
	assert.True(t, v.State().Complete)
	assert.Len(t, seen, 5, "every candidate is shown exactly once per deck")

	_, ok := v.Advance()
	assert.False(t, ok)

	s := v.Reset()
	assert.False(t, s.Complete)
	assert.Equal(t, 1, s.Viewed)

	assert.Equal(t, []EventKind{EventAdvanced, EventAdvanced, EventAdvanced, EventExhausted, EventReset}, rec.kinds())
}

func TestView_ToggleFilterReshuffles(t *testing.T) {
	v := newTestView(t, testCatalog(t), testStore(t), true)
	rec := &recorder{}
	v.Subscribe(rec.record)
	v.Advance()

	state, s := v.ToggleFilter(filter.DimensionType, "pole")
	assert.Equal(t, filter.Included, state)
	assert.Equal(t, 2, s.Matches)
	assert.Equal(t, 0, s.Cursor)
	assert.Contains(t, []string{"A", "D"}, s.Current.Text)
	assert.True(t, s.Selection.IncludeTypes.Has("pole"))

	state, s = v.ToggleFilter(filter.DimensionType, "pole")
	assert.Equal(t, filter.Excluded, state)
	assert.Equal(t, 3, s.Matches)

	state, s = v.ToggleFilter(filter.DimensionType, "pole")
	assert.Equal(t, filter.Unselected, state)
	assert.Equal(t, 5, s.Matches)

	assert.Equal(t, []EventKind{EventAdvanced, EventReshuffled, EventReshuffled, EventReshuffled}, rec.kinds())
}

func TestView_UnchangedCandidatesKeepDeck(t *testing.T) {
	store := testStore(t)
	v := newTestView(t, testCatalog(t), store, true)

	// Including a tag nobody carries empties the deck; excluding it restores
	// every prompt; clearing it leaves that same candidate set in place.
	_, s := v.ToggleFilter(filter.DimensionTag, "nobody")
	assert.Equal(t, 0, s.Matches)
	_, s = v.ToggleFilter(filter.DimensionTag, "nobody")
	assert.Equal(t, 5, s.Matches)
	v.Advance()
	excluded := v.State()
	_, s = v.ToggleFilter(filter.DimensionTag, "nobody")
	assert.Equal(t, excluded.ShuffleID, s.ShuffleID)
	assert.Equal(t, 1, s.Cursor)

	v2 := newTestView(t, testCatalog(t), store, true)
	v2.Advance()
	id := v2.State().ShuffleID
	store.ToggleFavorite("A")
	store.AddToList("unused", "B")
	after := v2.State()
	assert.Equal(t, id, after.ShuffleID, "mutations that leave the candidate set alone do not reshuffle")
	assert.Equal(t, 1, after.Cursor)
}

func TestView_CurrentFlagsFollowStore(t *testing.T) {
	store := testStore(t)
	v := newTestView(t, testCatalog(t), store, true)

	cur := v.State().Current.Text
	store.ToggleFavorite(cur)
	assert.True(t, v.State().Current.Favorite)
}

// Hiding the displayed prompt in the shuffle view removes it from the deck.
func TestView_HideCurrentPrompt(t *testing.T) {
	store := testStore(t)
	v := newTestView(t, testCatalog(t), store, true)
	rec := &recorder{}
	v.Subscribe(rec.record)

	current := v.State().Current.Text
	store.ToggleHidden(current)

	s := v.State()
	assert.Equal(t, 4, s.Matches)
	require.NotNil(t, s.Current)
	assert.NotEqual(t, current, s.Current.Text)
	assert.Equal(t, []EventKind{EventCurrentHidden, EventReshuffled}, rec.kinds())
	assert.Equal(t, current, rec.events[0].Text)

	for {
		s, ok := v.Advance()
		if !ok {
			break
		}
		assert.NotEqual(t, current, s.Current.Text, "hidden prompt never shown again")
	}
}

func TestView_HideCurrentInAllPromptsView(t *testing.T) {
	store := testStore(t)
	v := newTestView(t, testCatalog(t), store, false)
	rec := &recorder{}
	v.Subscribe(rec.record)

	id := v.State().ShuffleID
	current := v.State().Current.Text
	store.ToggleHidden(current)

	s := v.State()
	assert.Equal(t, 5, s.Matches, "all prompts view keeps hidden prompts")
	assert.Equal(t, id, s.ShuffleID)
	assert.True(t, s.Current.Hidden, "but flags them")
	assert.Equal(t, []EventKind{EventCurrentHidden}, rec.kinds())
}

func TestView_HideLastCandidate(t *testing.T) {
	store := testStore(t)
	v := newTestView(t, testCatalog(t), store, true)
	v.ToggleFilter(filter.DimensionType, "heels")
	require.Equal(t, "E", v.State().Current.Text)

	store.ToggleHidden("E")
	s := v.State()
	assert.Equal(t, 0, s.Matches)
	assert.Nil(t, s.Current)

	_, ok := v.Advance()
	assert.False(t, ok)
}

func TestView_ListSelectionFollowsStore(t *testing.T) {
	store := testStore(t)
	store.AddToList("warmup", "A")
	store.AddToList("warmup", "B")
	v := newTestView(t, testCatalog(t), store, true)

	_, s := v.ToggleFilter(filter.DimensionList, "warmup")
	assert.Equal(t, 2, s.Matches)

	store.AddToList("warmup", "C")
	assert.Equal(t, 3, v.State().Matches)

	store.DeleteList("warmup")
	s = v.State()
	assert.Equal(t, 0, s.Matches, "a deleted list is an empty pool")
	assert.True(t, s.Selection.IncludeLists.Has("warmup"), "selection is not cleaned up")
}

func TestView_SetSelectionAndClear(t *testing.T) {
	v := newTestView(t, testCatalog(t), testStore(t), true)

	sel := filter.NewSelection()
	sel.Assign(filter.DimensionTag, "restriction", filter.Excluded)
	s := v.SetSelection(sel)
	assert.Equal(t, 4, s.Matches)

	// The view keeps its own copy.
	sel.Assign(filter.DimensionTag, "music", filter.Excluded)
	assert.False(t, v.Selection().ExcludeTags.Has("music"))

	s = v.ClearFilters()
	assert.Equal(t, 5, s.Matches)
	assert.True(t, v.Selection().IsEmpty())
}

func TestView_Upcoming(t *testing.T) {
	v := newTestView(t, testCatalog(t), testStore(t), true)
	up := v.Upcoming(2)
	require.Len(t, up, 2)
	assert.NotEqual(t, v.State().Current.Text, up[0].Text)
}

func TestView_CloseStopsReacting(t *testing.T) {
	store := testStore(t)
	v := newTestView(t, testCatalog(t), store, true)
	v.Close()

	id := v.State().ShuffleID
	store.ToggleHidden(v.State().Current.Text)
	assert.Equal(t, id, v.State().ShuffleID)
}

func TestView_DelayedAdvance(t *testing.T) {
	defer goleak.VerifyNone(t)

	v := NewView(testCatalog(t), testStore(t), ViewOptions{
		ExcludeHidden: true,
		Delay:         10 * time.Millisecond,
		Rand:          rand.New(rand.NewPCG(1, 1)),
	})
	defer v.Close()

	done := make(chan Event, 1)
	v.Subscribe(func(e Event) { done <- e })

	s, ok := v.Advance()
	require.True(t, ok)
	assert.True(t, s.Pending)
	_, ok = v.Advance()
	assert.False(t, ok, "re-entrant advance is ignored")

	select {
	case e := <-done:
		assert.Equal(t, EventAdvanced, e.Kind)
		assert.Equal(t, 1, e.State.Cursor)
	case <-time.After(2 * time.Second):
		t.Fatal("advance never applied")
	}
}

func TestView_ConcurrentMutations(t *testing.T) {
	store := testStore(t)
	v := newTestView(t, testCatalog(t), store, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			v.Advance()
		}()
		go func(i int) {
			defer wg.Done()
			store.ToggleHidden(fmt.Sprintf("%c", 'A'+i%5))
		}(i)
		go func() {
			defer wg.Done()
			v.ToggleFilter(filter.DimensionTag, "music")
		}()
	}
	wg.Wait()

	// After the dust settles the deck must match a fresh recomputation.
	s := v.Recompute()
	want := filter.Select(testCatalog(t), v.Selection(), store.Lists(), store.HiddenSet(), true)
	assert.Equal(t, len(want), s.Matches)
	assert.LessOrEqual(t, s.Cursor, max(s.Matches-1, 0))
}
