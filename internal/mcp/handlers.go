package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/errors"
	"github.com/sparkcards/spark/internal/filter"
	"github.com/sparkcards/spark/internal/ops"
	"github.com/sparkcards/spark/internal/prompt"
)

// Handlers holds dependencies for MCP tool handlers.
// The view is the single deck shared by every tool call of the session.
type Handlers struct {
	cat    *prompt.Catalog
	store  *collections.Store
	view   *ops.View
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cat *prompt.Catalog, store *collections.Store, view *ops.View, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{cat: cat, store: store, view: view, logger: logger}
}

// Request types for each tool

// PromptListRequest represents the arguments for prompt_list.
type PromptListRequest struct {
	IncludeTypes  []string `json:"include_types,omitempty"`
	ExcludeTypes  []string `json:"exclude_types,omitempty"`
	IncludeTags   []string `json:"include_tags,omitempty"`
	ExcludeTags   []string `json:"exclude_tags,omitempty"`
	IncludeLists  []string `json:"include_lists,omitempty"`
	IncludeHidden bool     `json:"include_hidden,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
}

func (r PromptListRequest) selection() filter.Selection {
	sel := filter.NewSelection()
	for _, k := range r.IncludeTypes {
		sel.Assign(filter.DimensionType, k, filter.Included)
	}
	for _, k := range r.ExcludeTypes {
		sel.Assign(filter.DimensionType, k, filter.Excluded)
	}
	for _, k := range r.IncludeTags {
		sel.Assign(filter.DimensionTag, k, filter.Included)
	}
	for _, k := range r.ExcludeTags {
		sel.Assign(filter.DimensionTag, k, filter.Excluded)
	}
	for _, k := range r.IncludeLists {
		sel.Assign(filter.DimensionList, k, filter.Included)
	}
	return sel
}

// DeckStateRequest represents the arguments for deck_state.
type DeckStateRequest struct {
	Upcoming int `json:"upcoming,omitempty"`
}

// FilterToggleRequest represents the arguments for filter_toggle.
type FilterToggleRequest struct {
	Dimension string `json:"dimension"`
	Key       string `json:"key"`
}

// TextRequest represents the arguments for favorite_toggle and hidden_toggle.
type TextRequest struct {
	Text string `json:"text"`
}

// ListNameRequest represents the arguments for list_create, list_delete and list_show.
type ListNameRequest struct {
	Name string `json:"name"`
}

// ListEntryRequest represents the arguments for list_add and list_remove.
type ListEntryRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// DeckOutput is returned by the deck and filter tools.
type DeckOutput struct {
	ops.ViewState
	Advanced bool          `json:"advanced,omitempty"`
	State    *filter.State `json:"filter_state,omitempty"`
	Upcoming []ops.Prompt  `json:"upcoming,omitempty"`
}

// HandlePromptList handles the prompt_list tool call.
func (h *Handlers) HandlePromptList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[PromptListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListPrompts(h.cat, h.store, ops.ListPromptsInput{
		Selection:     args.selection(),
		IncludeHidden: args.IncludeHidden,
		Limit:         args.Limit,
		Offset:        args.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePromptFacets handles the prompt_facets tool call.
func (h *Handlers) HandlePromptFacets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Facets(h.cat, h.store))
}

// HandleDeckState handles the deck_state tool call.
func (h *Handlers) HandleDeckState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[DeckStateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if args.Upcoming < 0 {
		return errorResult(errors.NewInvalidRequest("upcoming must not be negative")), nil
	}

	out := DeckOutput{ViewState: h.view.State()}
	if args.Upcoming > 0 {
		out.Upcoming = h.view.Upcoming(args.Upcoming)
	}
	return successResult(out)
}

// HandleDeckAdvance handles the deck_advance tool call.
func (h *Handlers) HandleDeckAdvance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, ok := h.view.Advance()
	return successResult(DeckOutput{ViewState: state, Advanced: ok})
}

// HandleDeckReset handles the deck_reset tool call.
func (h *Handlers) HandleDeckReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(DeckOutput{ViewState: h.view.Reset()})
}

// HandleFilterToggle handles the filter_toggle tool call.
func (h *Handlers) HandleFilterToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[FilterToggleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	d, ok := filter.ParseDimension(args.Dimension)
	if !ok {
		return errorResult(errors.NewInvalidRequest("dimension must be one of: type, tag, list")), nil
	}
	if strings.TrimSpace(args.Key) == "" {
		return errorResult(errors.NewInvalidRequest("key is required")), nil
	}

	fs, state := h.view.ToggleFilter(d, args.Key)
	return successResult(DeckOutput{ViewState: state, State: &fs})
}

// HandleFilterClear handles the filter_clear tool call.
func (h *Handlers) HandleFilterClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(DeckOutput{ViewState: h.view.ClearFilters()})
}

// HandleFavoriteToggle handles the favorite_toggle tool call.
func (h *Handlers) HandleFavoriteToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[TextRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if args.Text == "" {
		return errorResult(errors.NewInvalidRequest("text is required")), nil
	}

	result, err := ops.ToggleFavorite(h.cat, h.store, ops.ToggleInput{Text: args.Text})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFavoriteList handles the favorite_list tool call.
func (h *Handlers) HandleFavoriteList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Favorites(h.cat, h.store))
}

// HandleHiddenToggle handles the hidden_toggle tool call.
func (h *Handlers) HandleHiddenToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[TextRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if args.Text == "" {
		return errorResult(errors.NewInvalidRequest("text is required")), nil
	}

	result, err := ops.ToggleHidden(h.cat, h.store, ops.ToggleInput{Text: args.Text})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHiddenList handles the hidden_list tool call.
func (h *Handlers) HandleHiddenList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Hidden(h.cat, h.store))
}

// HandleListCreate handles the list_create tool call.
func (h *Handlers) HandleListCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ListNameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(args.Name) == "" {
		return errorResult(errors.NewInvalidRequest("name is required")), nil
	}

	result, err := ops.CreateList(h.store, ops.ListNameInput{Name: args.Name})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListAdd handles the list_add tool call.
func (h *Handlers) HandleListAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ListEntryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := validateEntry(args); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.AddToList(h.store, ops.ListEntryInput{Name: args.Name, Text: args.Text})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListRemove handles the list_remove tool call.
func (h *Handlers) HandleListRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ListEntryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := validateEntry(args); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RemoveFromList(h.store, ops.ListEntryInput{Name: args.Name, Text: args.Text})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListDelete handles the list_delete tool call.
func (h *Handlers) HandleListDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ListNameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(args.Name) == "" {
		return errorResult(errors.NewInvalidRequest("name is required")), nil
	}

	result, err := ops.DeleteList(h.store, ops.ListNameInput{Name: args.Name})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListShow handles the list_show tool call.
func (h *Handlers) HandleListShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ListNameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if strings.TrimSpace(args.Name) == "" {
		return successResult(ops.Lists(h.store))
	}

	result, err := ops.ShowList(h.cat, h.store, ops.ListNameInput{Name: args.Name})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

func validateEntry(args ListEntryRequest) error {
	if strings.TrimSpace(args.Name) == "" {
		return errors.NewInvalidRequest("name is required")
	}
	if args.Text == "" {
		return errors.NewInvalidRequest("text is required")
	}
	return nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sparkErr *errors.SparkError
	if stderrors.As(err, &sparkErr) {
		message := sparkErr.Message
		if err != error(sparkErr) {
			// Keep the wrapping context, e.g. "lists[2]: NOT_FOUND: ..."
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    sparkErr.Code,
			"message": message,
			"status":  sparkErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if sparkErr.Code != errors.ErrInternal && sparkErr.Details != nil {
			errorObj["details"] = sparkErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
