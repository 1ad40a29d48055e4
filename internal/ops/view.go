package ops

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/deck"
	"github.com/sparkcards/spark/internal/filter"
	"github.com/sparkcards/spark/internal/prompt"
)

// EventKind names a view transition.
type EventKind string

const (
	EventReshuffled    EventKind = "reshuffled"     // candidate set changed
	EventAdvanced      EventKind = "advanced"       // cursor moved
	EventExhausted     EventKind = "exhausted"      // deck complete
	EventReset         EventKind = "reset"          // reshuffled on request
	EventCurrentHidden EventKind = "current_hidden" // the displayed prompt was hidden
)

// Event is delivered to view subscribers.
type Event struct {
	Kind  EventKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	State ViewState `json:"state"`
}

// ViewState is what a rendering layer needs to draw the deck.
type ViewState struct {
	ShuffleID     string           `json:"shuffle_id"`
	Matches       int              `json:"matches"`
	Cursor        int              `json:"cursor"`
	Viewed        int              `json:"viewed"`
	Complete      bool             `json:"complete"`
	Pending       bool             `json:"pending"`
	Current       *Prompt          `json:"current,omitempty"`
	Selection     filter.Selection `json:"selection"`
	ExcludeHidden bool             `json:"exclude_hidden"`
}

// ViewOptions configures a View.
type ViewOptions struct {
	// ExcludeHidden drops hidden prompts from the deck (the shuffle view).
	ExcludeHidden bool

	// Selection is the initial filter selection.
	Selection filter.Selection

	// Delay is the transition delay between an advance request and the cursor update.
	Delay time.Duration

	// Rand drives shuffles. nil means a randomly seeded source.
	Rand deck.Source

	Logger *zap.Logger
}

// View is one browsing session: a filter selection over the catalog and the
// store, and a deck navigator over the resulting candidate set.
//
// The candidate set is recomputed whenever the selection changes or the store
// reports a mutation. The deck is reshuffled only when the candidate set
// actually changes.
type View struct {
	cat    *prompt.Catalog
	store  *collections.Store
	nav    *deck.Navigator
	logger *zap.Logger

	// recomputeMu serializes recomputation so deck loads apply in order
	recomputeMu sync.Mutex

	mu            sync.Mutex
	sel           filter.Selection
	excludeHidden bool
	candidateKey  string
	closed        bool

	subMu       sync.Mutex
	subscribers []func(Event)
}

// NewView builds the candidate set, shuffles the first deck and subscribes
// to store mutations.
func NewView(cat *prompt.Catalog, store *collections.Store, opts ViewOptions) *View {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = deck.NewSource(0)
	}

	v := &View{
		cat:           cat,
		store:         store,
		logger:        logger,
		sel:           opts.Selection.Clone(),
		excludeHidden: opts.ExcludeHidden,
	}

	candidates := v.candidates(v.sel)
	v.candidateKey = identity(candidates)
	v.nav = deck.New(rnd, candidates,
		deck.WithDelay(opts.Delay),
		deck.WithOnChange(v.onDeckChange),
	)

	store.Subscribe(v.onStoreChange)
	return v
}

// Subscribe registers fn to receive view events.
func (v *View) Subscribe(fn func(Event)) {
	v.subMu.Lock()
	v.subscribers = append(v.subscribers, fn)
	v.subMu.Unlock()
}

func (v *View) publish(e Event) {
	v.subMu.Lock()
	subs := make([]func(Event), len(v.subscribers))
	copy(subs, v.subscribers)
	v.subMu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Close stops reacting to store mutations and cancels a pending advance.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.nav.Close()
}

// State returns the current view state.
func (v *View) State() ViewState {
	return v.viewState(v.nav.State())
}

// Selection returns a copy of the active filter selection.
func (v *View) Selection() filter.Selection {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sel.Clone()
}

// Advance requests the next card. The boolean is false when the request was
// a no-op (empty deck, complete deck, or an advance still pending).
func (v *View) Advance() (ViewState, bool) {
	ok := v.nav.Advance()
	return v.State(), ok
}

// Reset reshuffles the current candidate set.
func (v *View) Reset() ViewState {
	v.nav.Reset()
	return v.State()
}

// Upcoming returns up to k prompts after the current one.
func (v *View) Upcoming(k int) []Prompt {
	records := v.nav.Upcoming(k)
	out := make([]Prompt, 0, len(records))
	for _, r := range records {
		out = append(out, decorate(v.store, r))
	}
	return out
}

// ToggleFilter cycles the state of one type, tag or list key and recomputes.
func (v *View) ToggleFilter(d filter.Dimension, key string) (filter.State, ViewState) {
	v.recomputeMu.Lock()
	v.mu.Lock()
	state := v.sel.Toggle(d, key)
	sel := v.sel.Clone()
	v.mu.Unlock()

	v.recomputeLocked(sel)
	v.recomputeMu.Unlock()

	return state, v.State()
}

// SetSelection replaces the filter selection and recomputes.
func (v *View) SetSelection(sel filter.Selection) ViewState {
	v.recomputeMu.Lock()
	v.mu.Lock()
	v.sel = sel.Clone()
	snapshot := v.sel.Clone()
	v.mu.Unlock()

	v.recomputeLocked(snapshot)
	v.recomputeMu.Unlock()

	return v.State()
}

// ClearFilters empties every include and exclude set and recomputes.
func (v *View) ClearFilters() ViewState {
	return v.SetSelection(filter.NewSelection())
}

// Recompute rebuilds the candidate set from the current selection and store.
func (v *View) Recompute() ViewState {
	v.recomputeMu.Lock()
	sel := v.Selection()
	v.recomputeLocked(sel)
	v.recomputeMu.Unlock()

	return v.State()
}

// recomputeLocked reloads the deck when the candidate set changed.
// Caller holds recomputeMu but not mu.
func (v *View) recomputeLocked(sel filter.Selection) {
	candidates := v.candidates(sel)
	key := identity(candidates)

	v.mu.Lock()
	if key == v.candidateKey {
		v.mu.Unlock()
		return
	}
	v.candidateKey = key
	v.mu.Unlock()

	v.logger.Debug("candidate set changed", zap.Int("matches", len(candidates)))
	v.nav.Load(candidates)
}

func (v *View) candidates(sel filter.Selection) []prompt.Record {
	return filter.Select(v.cat, sel, v.store.Lists(), v.store.HiddenSet(), v.excludeHidden)
}

// onStoreChange runs after every store mutation, outside the store lock.
func (v *View) onStoreChange(c collections.Change) {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}

	switch c.Kind {
	case collections.ChangeHidden:
		if c.Member {
			if cur, ok := v.nav.Current(); ok && cur.Text == c.Text {
				v.publish(Event{Kind: EventCurrentHidden, Text: c.Text, State: v.State()})
			}
		}
		v.Recompute()
	case collections.ChangeList:
		v.Recompute()
	}
}

// onDeckChange forwards navigator transitions as view events.
func (v *View) onDeckChange(c deck.Change) {
	var kind EventKind
	switch c.Kind {
	case deck.ChangeReshuffled:
		kind = EventReshuffled
	case deck.ChangeAdvanced:
		kind = EventAdvanced
	case deck.ChangeExhausted:
		kind = EventExhausted
	case deck.ChangeReset:
		kind = EventReset
	default:
		return
	}
	v.publish(Event{Kind: kind, State: v.viewState(c.State)})
}

func (v *View) viewState(s deck.State) ViewState {
	v.mu.Lock()
	sel := v.sel.Clone()
	excludeHidden := v.excludeHidden
	v.mu.Unlock()

	out := ViewState{
		ShuffleID:     s.ShuffleID,
		Matches:       s.Len,
		Cursor:        s.Cursor,
		Viewed:        s.Viewed,
		Complete:      s.Complete,
		Pending:       s.Pending,
		Selection:     sel,
		ExcludeHidden: excludeHidden,
	}
	if s.Current != nil {
		p := decorate(v.store, *s.Current)
		out.Current = &p
	}
	return out
}

// identity keys a candidate set by its ordered texts.
func identity(records []prompt.Record) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.Text)
		b.WriteByte(0)
	}
	return b.String()
}
