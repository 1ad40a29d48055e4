// Package tui is a terminal deck browser over an ops.View.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/filter"
	"github.com/sparkcards/spark/internal/ops"
	"github.com/sparkcards/spark/internal/prompt"
)

// upcomingPreview is how many cards the preview pane lists.
const upcomingPreview = 3

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("212")).Padding(1, 3)
	hiddenStyle  = cardStyle.BorderForeground(lipgloss.Color("240")).Faint(true)
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("219"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	upcomingHead = metaStyle.Underline(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
)

type mode int

const (
	modeDeck mode = iota
	modeFilters
	modeAddToList
)

type keyMap struct {
	Next      key.Binding
	Reset     key.Binding
	Favorite  key.Binding
	Hide      key.Binding
	AddToList key.Binding
	Filters   key.Binding
	Clear     key.Binding
	Upcoming  key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Next:      key.NewBinding(key.WithKeys("n", " ", "space", "right", "enter"), key.WithHelp("n", "next")),
	Reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reshuffle")),
	Favorite:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
	Hide:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "hide")),
	AddToList: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "add to list")),
	Filters:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filters")),
	Clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
	Upcoming:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "up next")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Reset, k.Favorite, k.Hide, k.AddToList, k.Filters, k.Clear, k.Upcoming, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Reset, k.Upcoming},
		{k.Favorite, k.Hide, k.AddToList},
		{k.Filters, k.Clear, k.Quit},
	}
}

// pickerKeyMap drives the filter picker.
type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Clear  key.Binding
	Close  key.Binding
}

var pickerKeys = pickerKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle: key.NewBinding(key.WithKeys(" ", "space", "enter"), key.WithHelp("space", "cycle")),
	Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	Close:  key.NewBinding(key.WithKeys("esc", "/", "q"), key.WithHelp("esc", "back")),
}

// ShortHelp implements help.KeyMap.
func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Clear, k.Close}
}

// FullHelp implements help.KeyMap.
func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// inputKeyMap drives the add-to-list prompt.
type inputKeyMap struct {
	Submit key.Binding
	Accept key.Binding
	Cancel key.Binding
}

var inputKeys = inputKeyMap{
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
	Accept: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

// ShortHelp implements help.KeyMap.
func (k inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Accept, k.Cancel}
}

// FullHelp implements help.KeyMap.
func (k inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// filterItem is one row of the filter picker.
type filterItem struct {
	dimension filter.Dimension
	key       string
}

// EventMsg carries a view event into the program loop.
type EventMsg ops.Event

// Model is the bubbletea model for the deck browser.
type Model struct {
	cat   *prompt.Catalog
	store *collections.Store
	view  *ops.View
	help  help.Model
	input textinput.Model

	mode         mode
	state        ops.ViewState
	status       string
	showUpcoming bool
	width        int
	quitting     bool

	// filter picker
	items  []filterItem
	cursor int

	// text the add-to-list prompt targets
	pending string
}

// New creates a Model over view. The catalog supplies the filter keys; the
// store receives favorite, hide and list changes.
func New(cat *prompt.Catalog, store *collections.Store, view *ops.View) *Model {
	input := textinput.New()
	input.Prompt = "add to list: "
	input.Placeholder = "list name"
	input.ShowSuggestions = true
	return &Model{cat: cat, store: store, view: view, help: help.New(), input: input, state: view.State()}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case EventMsg:
		// Events may arrive out of order; the view's current state is authoritative.
		m.state = m.view.State()
		switch msg.Kind {
		case ops.EventCurrentHidden:
			m.status = fmt.Sprintf("hidden: %s", msg.Text)
		case ops.EventExhausted:
			m.status = "every card shown, press r to reshuffle"
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeFilters:
		return m.handlePickerKey(msg)
	case modeAddToList:
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Next):
		state, ok := m.view.Advance()
		m.state = state
		if !ok && state.Complete {
			m.status = "every card shown, press r to reshuffle"
		} else {
			m.status = ""
		}

	case key.Matches(msg, keys.Reset):
		m.state = m.view.Reset()
		m.status = "reshuffled"

	case key.Matches(msg, keys.Clear):
		m.state = m.view.ClearFilters()
		m.status = "filters cleared"

	case key.Matches(msg, keys.Favorite):
		if cur := m.state.Current; cur != nil {
			if m.store.ToggleFavorite(cur.Text) {
				m.status = "favorited"
			} else {
				m.status = "unfavorited"
			}
			m.state = m.view.State()
		}

	case key.Matches(msg, keys.Hide):
		if cur := m.state.Current; cur != nil {
			m.store.ToggleHidden(cur.Text)
			m.state = m.view.State()
		}

	case key.Matches(msg, keys.AddToList):
		if cur := m.state.Current; cur != nil {
			m.pending = cur.Text
			m.mode = modeAddToList
			m.input.Reset()
			m.input.SetSuggestions(m.store.ListNames())
			m.status = ""
			return m, m.input.Focus()
		}

	case key.Matches(msg, keys.Filters):
		m.items = m.filterItems()
		m.cursor = min(m.cursor, max(len(m.items)-1, 0))
		m.mode = modeFilters
		m.status = ""

	case key.Matches(msg, keys.Upcoming):
		m.showUpcoming = !m.showUpcoming
	}
	return m, nil
}

// filterItems lists every type, tag and list key in that order.
func (m *Model) filterItems() []filterItem {
	var items []filterItem
	for _, t := range m.cat.Types() {
		items = append(items, filterItem{dimension: filter.DimensionType, key: t})
	}
	for _, t := range m.cat.Tags() {
		items = append(items, filterItem{dimension: filter.DimensionTag, key: t})
	}
	for _, name := range m.store.ListNames() {
		items = append(items, filterItem{dimension: filter.DimensionList, key: name})
	}
	return items
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, pickerKeys.Close):
		m.mode = modeDeck

	case key.Matches(msg, pickerKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, pickerKeys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case key.Matches(msg, pickerKeys.Toggle):
		if m.cursor < len(m.items) {
			item := m.items[m.cursor]
			_, m.state = m.view.ToggleFilter(item.dimension, item.key)
		}

	case key.Matches(msg, pickerKeys.Clear):
		m.state = m.view.ClearFilters()
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, inputKeys.Cancel):
		m.closeInput()
		return m, nil

	case key.Matches(msg, inputKeys.Submit):
		name := collections.ListName(m.input.Value())
		text := m.pending
		m.closeInput()
		switch {
		case name == "":
			m.status = "no list name given"
		case m.store.AddToList(name, text):
			m.status = fmt.Sprintf("added to %s", name)
		default:
			m.status = fmt.Sprintf("already in %s", name)
		}
		m.state = m.view.State()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closeInput() {
	m.input.Blur()
	m.input.Reset()
	m.pending = ""
	m.mode = modeDeck
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("spark"))
	b.WriteString(metaStyle.Render("  " + m.position()))
	b.WriteString("\n\n")

	if cur := m.state.Current; cur != nil {
		b.WriteString(m.card(*cur))
	} else {
		b.WriteString(metaStyle.Render("No prompts match the current filters."))
	}
	b.WriteString("\n")

	if filters := describeSelection(m.state); filters != "" {
		b.WriteString(metaStyle.Render("filters: " + filters))
		b.WriteString("\n")
	}

	switch m.mode {
	case modeFilters:
		b.WriteString("\n" + m.picker())
		b.WriteString("\n" + m.help.View(pickerKeys))
		return b.String()
	case modeAddToList:
		b.WriteString("\n" + m.input.View() + "\n")
		b.WriteString("\n" + m.help.View(inputKeys))
		return b.String()
	}

	if m.showUpcoming {
		b.WriteString("\n" + upcomingHead.Render("up next") + "\n")
		for _, p := range m.view.Upcoming(upcomingPreview) {
			b.WriteString(metaStyle.Render("  · "+p.Text) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n" + m.help.View(keys))
	return b.String()
}

func (m *Model) position() string {
	s := m.state
	if s.Matches == 0 {
		return "0 cards"
	}
	pos := fmt.Sprintf("%d/%d", s.Cursor+1, s.Matches)
	if s.Complete {
		pos += " (done)"
	}
	return pos
}

func (m *Model) card(p ops.Prompt) string {
	style := cardStyle
	if p.Hidden {
		style = hiddenStyle
	}
	if m.width > 8 {
		style = style.Width(min(m.width-4, 72))
	}

	var body strings.Builder
	if p.Favorite {
		body.WriteString("★ ")
	}
	body.WriteString(p.Text)

	var meta []string
	if p.Type != "" {
		meta = append(meta, metaStyle.Render(p.Type))
	}
	for _, t := range p.Tags {
		meta = append(meta, tagStyle.Render("#"+t))
	}
	if len(meta) > 0 {
		body.WriteString("\n\n" + strings.Join(meta, " "))
	}
	if p.Credit != "" {
		body.WriteString("\n" + metaStyle.Render("credit: "+p.Credit))
	}
	return style.Render(body.String())
}

// picker renders every filter key with its state and the cursor.
func (m *Model) picker() string {
	if len(m.items) == 0 {
		return metaStyle.Render("no filters available") + "\n"
	}

	var b strings.Builder
	for i, item := range m.items {
		mark := "[ ]"
		switch m.state.Selection.State(item.dimension, item.key) {
		case filter.Included:
			mark = "[+]"
		case filter.Excluded:
			mark = "[-]"
		}

		label := item.key
		switch item.dimension {
		case filter.DimensionTag:
			label = "#" + label
		case filter.DimensionList:
			label = "@" + label
		}

		line := fmt.Sprintf("%s %s", mark, label)
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func describeSelection(s ops.ViewState) string {
	var parts []string
	add := func(prefix string, keys []string) {
		for _, k := range keys {
			parts = append(parts, prefix+k)
		}
	}
	add("+", s.Selection.IncludeTypes.Sorted())
	add("-", s.Selection.ExcludeTypes.Sorted())
	add("+#", s.Selection.IncludeTags.Sorted())
	add("-#", s.Selection.ExcludeTags.Sorted())
	add("@", s.Selection.IncludeLists.Sorted())
	return strings.Join(parts, " ")
}

// Run starts the terminal browser and blocks until the user quits.
func Run(cat *prompt.Catalog, store *collections.Store, view *ops.View, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := tea.NewProgram(New(cat, store, view), tea.WithAltScreen())

	// Send from a goroutine: events published during Update would otherwise
	// block on the program loop that is running that Update.
	view.Subscribe(func(e ops.Event) {
		go p.Send(EventMsg(e))
	})

	_, err := p.Run()
	if err != nil {
		logger.Error("terminal UI failed", zap.Error(err))
	}
	return err
}
