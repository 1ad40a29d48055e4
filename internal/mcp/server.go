package mcp

import (
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/sparkcards/spark/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"prompt", "deck", "filter", "favorite", "hidden", "list"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     toolDef
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"prompt_list": {
		def:     promptListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePromptList },
	},
	"prompt_facets": {
		def:     promptFacetsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePromptFacets },
	},
	"deck_state": {
		def:     deckStateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeckState },
	},
	"deck_advance": {
		def:     deckAdvanceToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeckAdvance },
	},
	"deck_reset": {
		def:     deckResetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeckReset },
	},
	"filter_toggle": {
		def:     filterToggleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilterToggle },
	},
	"filter_clear": {
		def:     filterClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilterClear },
	},
	"favorite_toggle": {
		def:     favoriteToggleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFavoriteToggle },
	},
	"favorite_list": {
		def:     favoriteListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFavoriteList },
	},
	"hidden_toggle": {
		def:     hiddenToggleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHiddenToggle },
	},
	"hidden_list": {
		def:     hiddenListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHiddenList },
	},
	"list_create": {
		def:     listCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListCreate },
	},
	"list_add": {
		def:     listAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListAdd },
	},
	"list_remove": {
		def:     listRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListRemove },
	},
	"list_delete": {
		def:     listDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListDelete },
	},
	"list_show": {
		def:     listShowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListShow },
	},
}

// AllToolNames returns every valid tool name in ascending order.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "deck_advance" → "deck").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)
	return tools
}

// NewServer creates a new MCP server with Spark tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(h *Handlers, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"spark",
		version,
		server.WithToolCapabilities(true),
	)

	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def(), entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(h *Handlers, cfg *config.Config, version string) error {
	s := NewServer(h, cfg, version)
	return server.ServeStdio(s)
}
