package web

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/errors"
	"github.com/sparkcards/spark/internal/filter"
	"github.com/sparkcards/spark/internal/ops"
	"github.com/sparkcards/spark/internal/prompt"
)

// upcomingPreview is how many cards the deck page lists after the current one.
const upcomingPreview = 3

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	cat      *prompt.Catalog
	store    *collections.Store
	view     *ops.View
	logger   *zap.Logger
	renderer *Renderer
}

func (h *Handlers) page(title, nav string) PageData {
	return PageData{Title: title, Version: h.renderer.version, Nav: nav}
}

// HandleShuffle handles GET /shuffle: the deck view.
// Filter query parameters, when present, replace the view's selection.
func (h *Handlers) HandleShuffle(w http.ResponseWriter, r *http.Request) {
	var state ops.ViewState
	if hasFilterParams(r.URL.Query()) {
		state = h.view.SetSelection(filter.ParseParams(r.URL.Query()))
	} else {
		state = h.view.State()
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, state)
		return
	}

	lists := h.store.ListNames()
	data := ShufflePageData{
		PageData:  h.page("Shuffle", "shuffle"),
		State:     state,
		Upcoming:  h.view.Upcoming(upcomingPreview),
		Types:     chips(state.Selection, filter.DimensionType, h.cat.Types()),
		Tags:      chips(state.Selection, filter.DimensionTag, h.cat.Tags()),
		Lists:     chips(state.Selection, filter.DimensionList, lists),
		ListNames: lists,
	}
	if state.Current != nil {
		data.Card = renderMarkdown(state.Current.Text)
	}
	h.renderer.renderPage(w, r, "shuffle", data)
}

// HandleAdvance handles POST /shuffle/next: move to the next card.
func (h *Handlers) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	state, ok := h.view.Advance()
	h.respond(w, r, "/shuffle", map[string]any{"advanced": ok, "state": state})
}

// HandleReset handles POST /shuffle/reset: reshuffle and start over.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "/shuffle", h.view.Reset())
}

// HandleToggleFilter handles POST /shuffle/filter: cycle one filter key.
func (h *Handlers) HandleToggleFilter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	d, ok := filter.ParseDimension(r.FormValue("dimension"))
	if !ok {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("dimension must be one of: type, tag, list"))
		return
	}
	key := r.FormValue("key")
	if strings.TrimSpace(key) == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("key is required"))
		return
	}

	fs, state := h.view.ToggleFilter(d, key)
	h.respond(w, r, "/shuffle", map[string]any{"filter_state": fs, "state": state})
}

// HandleClearFilters handles DELETE /shuffle/filter: clear every filter.
func (h *Handlers) HandleClearFilters(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "/shuffle", h.view.ClearFilters())
}

// HandlePrompts handles GET /prompts: every prompt matching the query filters,
// hidden ones included and flagged.
func (h *Handlers) HandlePrompts(w http.ResponseWriter, r *http.Request) {
	sel := filter.ParseParams(r.URL.Query())

	result, err := ops.ListPrompts(h.cat, h.store, ops.ListPromptsInput{
		Selection:     sel,
		IncludeHidden: true,
		Limit:         parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:        parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "prompts", PromptsPageData{
		PageData:   h.page("All prompts", "prompts"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Query:      template.URL(filter.EncodeParams(sel).Encode()),
		Self:       r.URL.RequestURI(),
		Types:      linkChips("/prompts", sel, filter.DimensionType, h.cat.Types()),
		Tags:       linkChips("/prompts", sel, filter.DimensionTag, h.cat.Tags()),
		ListNames:  h.store.ListNames(),
	})
}

// HandleFavorites handles GET /favorites.
func (h *Handlers) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	h.renderCollection(w, r, "Favorites", "favorites", ops.Favorites(h.cat, h.store))
}

// HandleHidden handles GET /hidden.
func (h *Handlers) HandleHidden(w http.ResponseWriter, r *http.Request) {
	h.renderCollection(w, r, "Hidden", "hidden", ops.Hidden(h.cat, h.store))
}

func (h *Handlers) renderCollection(w http.ResponseWriter, r *http.Request, title, nav string, out *ops.CollectionOutput) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	h.renderer.renderPage(w, r, "collection", CollectionPageData{
		PageData: h.page(title, nav),
		Items:    out.Items,
		Count:    out.Count,
		Action:   "/" + nav,
	})
}

// HandleToggleFavorite handles POST /favorites: toggle the favorite flag of a text.
func (h *Handlers) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	h.handleToggle(w, r, ops.ToggleFavorite)
}

// HandleToggleHidden handles POST /hidden: toggle the hidden flag of a text.
func (h *Handlers) HandleToggleHidden(w http.ResponseWriter, r *http.Request) {
	h.handleToggle(w, r, ops.ToggleHidden)
}

type toggleFunc func(*prompt.Catalog, *collections.Store, ops.ToggleInput) (*ops.ToggleOutput, error)

func (h *Handlers) handleToggle(w http.ResponseWriter, r *http.Request, toggle toggleFunc) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	text := r.FormValue("text")
	if text == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("text is required"))
		return
	}

	result, err := toggle(h.cat, h.store, ops.ToggleInput{Text: text})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respond(w, r, "/shuffle", result)
}

// HandleLists handles GET /lists: every list with its entries.
func (h *Handlers) HandleLists(w http.ResponseWriter, r *http.Request) {
	out := ops.Lists(h.store)
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	h.renderer.renderPage(w, r, "lists", ListsPageData{
		PageData: h.page("Lists", "lists"),
		Lists:    out.Lists,
	})
}

// HandleCreateList handles POST /lists: create an empty list. With a "text"
// field the text is added as well, creating the list if needed.
func (h *Handlers) HandleCreateList(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("name is required"))
		return
	}

	if text := r.FormValue("text"); text != "" {
		result, err := ops.AddToList(h.store, ops.ListEntryInput{Name: name, Text: text})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		h.respond(w, r, listPath(result.Name), result)
		return
	}

	result, err := ops.CreateList(h.store, ops.ListNameInput{Name: name})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respond(w, r, listPath(result.Name), result)
}

// HandleShowList handles GET /lists/{name}.
func (h *Handlers) HandleShowList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ShowList(h.cat, h.store, ops.ListNameInput{Name: r.PathValue("name")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: h.page(result.Name, "lists"),
		List:     result,
	})
}

// HandleDeleteList handles DELETE /lists/{name}.
func (h *Handlers) HandleDeleteList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DeleteList(h.store, ops.ListNameInput{Name: r.PathValue("name")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respond(w, r, "/lists", result)
}

// HandleAddToList handles POST /lists/{name}/items: append a text.
func (h *Handlers) HandleAddToList(w http.ResponseWriter, r *http.Request) {
	input, ok := h.listEntry(w, r)
	if !ok {
		return
	}
	result, err := ops.AddToList(h.store, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respond(w, r, listPath(input.Name), result)
}

// HandleRemoveFromList handles DELETE /lists/{name}/items: remove a text.
func (h *Handlers) HandleRemoveFromList(w http.ResponseWriter, r *http.Request) {
	input, ok := h.listEntry(w, r)
	if !ok {
		return
	}
	result, err := ops.RemoveFromList(h.store, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respond(w, r, listPath(input.Name), result)
}

// listEntry reads the list name from the path and the text from the form
// (or the query string for DELETE requests without a body).
func (h *Handlers) listEntry(w http.ResponseWriter, r *http.Request) (ops.ListEntryInput, bool) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return ops.ListEntryInput{}, false
	}
	input := ops.ListEntryInput{Name: r.PathValue("name"), Text: r.FormValue("text")}
	if input.Text == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("text is required"))
		return ops.ListEntryInput{}, false
	}
	return input, true
}

// respond finishes a mutation: JSON for API clients, HX-Redirect for htmx,
// otherwise a See Other redirect to the form's "redirect" field or fallback.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, fallback string, data any) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, data)
		return
	}

	target := safeRedirect(r.FormValue("redirect"), fallback)

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeRedirect accepts only same-site absolute paths.
func safeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	return target
}

func listPath(name string) string {
	return "/lists/" + url.PathEscape(name)
}

// hasFilterParams reports whether v carries any selection parameter.
func hasFilterParams(v url.Values) bool {
	for _, key := range []string{
		filter.ParamIncludeTypes, filter.ParamExcludeTypes,
		filter.ParamIncludeTags, filter.ParamExcludeTags,
		filter.ParamIncludeLists,
	} {
		if _, ok := v[key]; ok {
			return true
		}
	}
	return false
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
