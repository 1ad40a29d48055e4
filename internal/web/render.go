package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/sparkcards/spark/internal/errors"
	"github.com/sparkcards/spark/internal/filter"
	"github.com/sparkcards/spark/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "shuffle", "prompts", "favorites", "hidden", "lists"
}

// Chip is one filter key with its selection state.
type Chip struct {
	Dimension filter.Dimension
	Key       string
	State     filter.State

	// Href links to the current page with only this key toggled. Empty on
	// pages where chips post to the shuffle view instead.
	Href string
}

// AddToListForm is the data for the "add-to-list" template.
type AddToListForm struct {
	Text     string
	Lists    []string
	Redirect string
}

// ShufflePageData is the template data for the deck page.
type ShufflePageData struct {
	PageData
	State    ops.ViewState
	Card      template.HTML
	Upcoming  []ops.Prompt
	Types     []Chip
	Tags      []Chip
	Lists     []Chip
	ListNames []string
}

// PromptsPageData is the template data for the all prompts page.
type PromptsPageData struct {
	PageData
	Items      []ops.Prompt
	Pagination ops.Pagination
	Query      template.URL // encoded filter selection, reused by pagination links
	Self       string       // this page's URL, where row actions return
	Types      []Chip
	Tags       []Chip
	ListNames  []string
}

// CollectionPageData is the template data for the favorites and hidden pages.
type CollectionPageData struct {
	PageData
	Items  []ops.Prompt
	Count  int
	Action string // form target that toggles an item back out
}

// ListsPageData is the template data for the lists overview.
type ListsPageData struct {
	PageData
	Lists []ops.ListSummary
}

// ListPageData is the template data for a single list.
type ListPageData struct {
	PageData
	List *ops.ShowListOutput
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *zap.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}

	funcMap := template.FuncMap{
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		"markdown": renderMarkdown,
		"join":     strings.Join,
		"listPath": listPath,
		"addForm": func(text string, lists []string, redirect string) AddToListForm {
			return AddToListForm{Text: text, Lists: lists, Redirect: redirect}
		},
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"shuffle":    "shuffle.html",
		"prompts":    "prompts.html",
		"collection": "collection.html",
		"lists":      "lists.html",
		"list":       "list.html",
		"error":      "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error("template execution failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var sErr *errors.SparkError
	if !stderrors.As(err, &sErr) {
		sErr = errors.NewInternal(err)
	}

	status := sErr.Status
	message := sErr.Message
	if sErr.Code == errors.ErrInternal {
		r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		message = "an internal error occurred"
	}

	// HTMX request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	// JSON request
	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(sErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	// Full error page
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts prompt text to HTML using goldmark.
// Raw HTML in the source is dropped (goldmark runs without WithUnsafe).
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// chips pairs every key with its state in sel.
func chips(sel filter.Selection, d filter.Dimension, keys []string) []Chip {
	out := make([]Chip, 0, len(keys))
	for _, k := range keys {
		out = append(out, Chip{Dimension: d, Key: k, State: sel.State(d, k)})
	}
	return out
}

// linkChips is chips with each Href set to path carrying sel with that one
// key toggled. Every other key keeps its state.
func linkChips(path string, sel filter.Selection, d filter.Dimension, keys []string) []Chip {
	out := chips(sel, d, keys)
	for i := range out {
		next := sel.Clone()
		next.Toggle(d, out[i].Key)
		out[i].Href = filterURL(path, next)
	}
	return out
}

// filterURL is path with sel encoded as its query.
func filterURL(path string, sel filter.Selection) string {
	if q := filter.EncodeParams(sel).Encode(); q != "" {
		return path + "?" + q
	}
	return path
}
