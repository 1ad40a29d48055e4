package mcp

import "github.com/mark3labs/mcp-go/mcp"

// toolDef builds a tool definition on registration.
type toolDef func() mcp.Tool

// selectionOptions are the filter arguments shared by prompt_list.
func selectionOptions() []mcp.ToolOption {
	strs := map[string]any{"type": "string"}
	return []mcp.ToolOption{
		mcp.WithArray("include_types", mcp.Items(strs), mcp.Description("Keep only prompts of these types")),
		mcp.WithArray("exclude_types", mcp.Items(strs), mcp.Description("Drop prompts of these types")),
		mcp.WithArray("include_tags", mcp.Items(strs), mcp.Description("Keep only prompts carrying any of these tags")),
		mcp.WithArray("exclude_tags", mcp.Items(strs), mcp.Description("Drop prompts carrying any of these tags")),
		mcp.WithArray("include_lists", mcp.Items(strs), mcp.Description("Draw from the union of these lists instead of the whole catalog")),
	}
}

func promptListToolDef() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("List catalog prompts matching a filter selection, in catalog order. Hidden prompts are excluded unless include_hidden is set, in which case they are returned flagged."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithBoolean("include_hidden", mcp.Description("Include hidden prompts (the all prompts view)")),
		mcp.WithNumber("limit", mcp.Description("Max items (default 100, max 500)")),
		mcp.WithNumber("offset", mcp.Description("Items to skip (default 0)")),
	}
	opts = append(opts, selectionOptions()...)
	return mcp.NewTool("prompt_list", opts...)
}

func promptFacetsToolDef() mcp.Tool {
	return mcp.NewTool("prompt_facets",
		mcp.WithDescription("Return every type, tag and list name that can be used in a filter, plus the catalog size."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func deckStateToolDef() mcp.Tool {
	return mcp.NewTool("deck_state",
		mcp.WithDescription("Show the current card of the shuffled deck, its position and the active filter selection."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("upcoming", mcp.Description("Also return this many upcoming cards (default 0)")),
	)
}

func deckAdvanceToolDef() mcp.Tool {
	return mcp.NewTool("deck_advance",
		mcp.WithDescription("Move to the next card. Does nothing once every card has been shown; use deck_reset to reshuffle."),
	)
}

func deckResetToolDef() mcp.Tool {
	return mcp.NewTool("deck_reset",
		mcp.WithDescription("Reshuffle the current candidates and start again from the first card."),
	)
}

func filterToggleToolDef() mcp.Tool {
	return mcp.NewTool("filter_toggle",
		mcp.WithDescription("Cycle a filter key through unselected, included and excluded, then reshuffle the deck if the candidates change."),
		mcp.WithString("dimension",
			mcp.Required(),
			mcp.Enum("type", "tag", "list"),
			mcp.Description("Which axis the key belongs to"),
		),
		mcp.WithString("key", mcp.Required(), mcp.Description("Type, tag or list name")),
	)
}

func filterClearToolDef() mcp.Tool {
	return mcp.NewTool("filter_clear",
		mcp.WithDescription("Clear every filter and reshuffle over the whole catalog."),
	)
}

func favoriteToggleToolDef() mcp.Tool {
	return mcp.NewTool("favorite_toggle",
		mcp.WithDescription("Add a prompt to favorites, or remove it if already there."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Prompt text")),
	)
}

func favoriteListToolDef() mcp.Tool {
	return mcp.NewTool("favorite_list",
		mcp.WithDescription("List favorite prompts in catalog order. Texts no longer in the catalog come last."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func hiddenToggleToolDef() mcp.Tool {
	return mcp.NewTool("hidden_toggle",
		mcp.WithDescription("Hide a prompt from the shuffled deck, or unhide it if already hidden."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Prompt text")),
	)
}

func hiddenListToolDef() mcp.Tool {
	return mcp.NewTool("hidden_list",
		mcp.WithDescription("List hidden prompts in catalog order."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func listCreateToolDef() mcp.Tool {
	return mcp.NewTool("list_create",
		mcp.WithDescription("Create an empty named list. Existing lists are left unchanged."),
		mcp.WithString("name", mcp.Required(), mcp.Description("List name (surrounding whitespace is trimmed)")),
	)
}

func listAddToolDef() mcp.Tool {
	return mcp.NewTool("list_add",
		mcp.WithDescription("Append a prompt to a named list, creating the list if needed."),
		mcp.WithString("name", mcp.Required(), mcp.Description("List name")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Prompt text")),
	)
}

func listRemoveToolDef() mcp.Tool {
	return mcp.NewTool("list_remove",
		mcp.WithDescription("Remove a prompt from a named list."),
		mcp.WithString("name", mcp.Required(), mcp.Description("List name")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Prompt text")),
	)
}

func listDeleteToolDef() mcp.Tool {
	return mcp.NewTool("list_delete",
		mcp.WithDescription("Delete a named list. Filters that refer to it match nothing afterwards."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("name", mcp.Required(), mcp.Description("List name")),
	)
}

func listShowToolDef() mcp.Tool {
	return mcp.NewTool("list_show",
		mcp.WithDescription("Show the prompts of one list in list order, plus a summary of all lists when name is omitted."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("name", mcp.Description("List name; omit to summarize every list")),
	)
}
