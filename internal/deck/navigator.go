package deck

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sparkcards/spark/internal/prompt"
)

// ChangeKind describes what a navigator transition did.
type ChangeKind string

const (
	ChangeReshuffled ChangeKind = "reshuffled" // new candidate set loaded
	ChangeAdvanced   ChangeKind = "advanced"   // cursor moved by one
	ChangeExhausted  ChangeKind = "exhausted"  // deck became complete
	ChangeReset      ChangeKind = "reset"      // same candidates reshuffled on request
)

// Change is delivered to the OnChange callback after every transition.
type Change struct {
	Kind  ChangeKind
	State State
}

// State is a snapshot of the deck.
type State struct {
	// ShuffleID identifies the current permutation; it changes on every shuffle
	ShuffleID string `json:"shuffle_id"`

	Len      int  `json:"len"`
	Cursor   int  `json:"cursor"`
	Viewed   int  `json:"viewed"`
	Complete bool `json:"complete"`

	// Pending is true while a delayed advance has not yet been applied
	Pending bool `json:"pending"`

	// Current is nil when the deck is empty
	Current *prompt.Record `json:"current,omitempty"`
}

// Empty reports whether the deck has no cards ("no matches").
func (s State) Empty() bool {
	return s.Len == 0
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithDelay inserts a transition delay between an advance request and the
// cursor update. While the delay is pending further advance requests are ignored.
func WithDelay(d time.Duration) Option {
	return func(n *Navigator) {
		if d > 0 {
			n.delay = d
		}
	}
}

// WithOnChange registers a callback invoked after every transition.
// It runs without the navigator lock held, so it may call back into the navigator.
func WithOnChange(fn func(Change)) Option {
	return func(n *Navigator) {
		n.onChange = fn
	}
}

// Navigator owns a shuffled deck over one candidate set.
//
// States are Active and Exhausted (Complete). A new deck starts Active with the
// first card already viewed. Advance moves the cursor by one and never wraps;
// the advance that shows the last card, or any advance attempted on the last
// card, makes the deck Exhausted. Reset reshuffles the same candidates and
// Load replaces them, both returning to Active.
//
// All methods are safe for concurrent use; advance requests are serialized.
type Navigator struct {
	mu       sync.Mutex
	rnd      Source
	delay    time.Duration
	onChange func(Change)

	candidates []prompt.Record
	order      []prompt.Record
	cursor     int
	viewed     int
	complete   bool
	shuffleID  string

	// generation increments on every shuffle so a stale pending advance is dropped
	generation uint64
	pending    *time.Timer
}

// New creates a navigator over candidates and performs the initial shuffle.
func New(rnd Source, candidates []prompt.Record, opts ...Option) *Navigator {
	n := &Navigator{rnd: rnd}
	for _, opt := range opts {
		opt(n)
	}

	n.mu.Lock()
	n.candidates = copyRecords(candidates)
	n.reshuffleLocked()
	n.mu.Unlock()

	return n
}

// Load replaces the candidate set, discarding the cursor and any pending advance.
func (n *Navigator) Load(candidates []prompt.Record) {
	n.mu.Lock()
	n.candidates = copyRecords(candidates)
	n.reshuffleLocked()
	change := Change{Kind: ChangeReshuffled, State: n.stateLocked()}
	n.mu.Unlock()

	n.notify(change)
}

// Reset reshuffles the current candidate set and returns to Active.
func (n *Navigator) Reset() {
	n.mu.Lock()
	n.reshuffleLocked()
	change := Change{Kind: ChangeReset, State: n.stateLocked()}
	n.mu.Unlock()

	n.notify(change)
}

// Advance requests the next card. It returns false when the request is a
// no-op: the deck is empty, already complete, or an advance is still pending.
// With a delay configured the step is applied after the delay; otherwise
// it is applied before Advance returns.
func (n *Navigator) Advance() bool {
	n.mu.Lock()
	if len(n.order) == 0 || n.complete || n.pending != nil {
		n.mu.Unlock()
		return false
	}

	if n.delay > 0 {
		gen := n.generation
		n.pending = time.AfterFunc(n.delay, func() { n.commit(gen) })
		n.mu.Unlock()
		return true
	}

	change := n.stepLocked()
	n.mu.Unlock()

	n.notify(change)
	return true
}

// commit applies a delayed advance unless the deck was reshuffled meanwhile.
func (n *Navigator) commit(gen uint64) {
	n.mu.Lock()
	if gen != n.generation || n.pending == nil {
		n.mu.Unlock()
		return
	}
	n.pending = nil
	change := n.stepLocked()
	n.mu.Unlock()

	n.notify(change)
}

// stepLocked performs one advance. Caller holds mu.
func (n *Navigator) stepLocked() Change {
	if n.cursor+1 >= len(n.order) {
		n.complete = true
		return Change{Kind: ChangeExhausted, State: n.stateLocked()}
	}

	n.cursor++
	n.viewed++
	if n.viewed >= len(n.order) {
		n.complete = true
		return Change{Kind: ChangeExhausted, State: n.stateLocked()}
	}
	return Change{Kind: ChangeAdvanced, State: n.stateLocked()}
}

// reshuffleLocked builds a fresh permutation of candidates. Caller holds mu.
func (n *Navigator) reshuffleLocked() {
	n.cancelPendingLocked()
	n.generation++
	n.order = Shuffle(n.candidates, n.rnd)
	n.cursor = 0
	n.complete = false
	n.viewed = 0
	if len(n.order) > 0 {
		n.viewed = 1
	}
	n.shuffleID = ulid.Make().String()
}

func (n *Navigator) cancelPendingLocked() {
	if n.pending != nil {
		n.pending.Stop()
		n.pending = nil
	}
}

// Close cancels a pending advance. The navigator remains usable.
func (n *Navigator) Close() {
	n.mu.Lock()
	n.cancelPendingLocked()
	n.generation++
	n.mu.Unlock()
}

// Current returns the card under the cursor, or false when the deck is empty.
func (n *Navigator) Current() (prompt.Record, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.order) == 0 {
		return prompt.Record{}, false
	}
	return n.order[n.cursor], true
}

// State returns a snapshot of the deck.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stateLocked()
}

// Order returns the current permutation.
func (n *Navigator) Order() []prompt.Record {
	n.mu.Lock()
	defer n.mu.Unlock()
	return copyRecords(n.order)
}

// Upcoming returns up to k cards after the cursor, wrapping around the deck.
// Rendering layers use it for the background cards of the stack.
func (n *Navigator) Upcoming(k int) []prompt.Record {
	n.mu.Lock()
	defer n.mu.Unlock()

	size := len(n.order)
	if k > size-1 {
		k = size - 1
	}
	if k <= 0 {
		return nil
	}
	out := make([]prompt.Record, 0, k)
	for i := 1; i <= k; i++ {
		out = append(out, n.order[(n.cursor+i)%size])
	}
	return out
}

func (n *Navigator) stateLocked() State {
	s := State{
		ShuffleID: n.shuffleID,
		Len:       len(n.order),
		Cursor:    n.cursor,
		Viewed:    n.viewed,
		Complete:  n.complete,
		Pending:   n.pending != nil,
	}
	if len(n.order) > 0 {
		current := n.order[n.cursor]
		s.Current = &current
	}
	return s
}

func (n *Navigator) notify(c Change) {
	if n.onChange != nil {
		n.onChange(c)
	}
}

func copyRecords(records []prompt.Record) []prompt.Record {
	out := make([]prompt.Record, len(records))
	copy(out, records)
	return out
}
