package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"group"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"group_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"group_open": {
		def:     openToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOpen },
	},
	"group_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"group_add_tab": {
		def:     addTabToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddTab },
	},
	"group_remove_tab": {
		def:     removeTabToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemoveTab },
	},
	"group_reorder_tab": {
		def:     reorderTabToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReorderTab },
	},
	"group_move_tab": {
		def:     moveTabToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMoveTab },
	},
	"group_merge": {
		def:     mergeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMerge },
	},
	"group_auto": {
		def:     autoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAuto },
	},
	"group_pattern": {
		def:     patternToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePattern },
	},
	"group_rename": {
		def:     renameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRename },
	},
	"group_deleted": {
		def:     deletedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeleted },
	},
	"group_restore": {
		def:     restoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore },
	},
	"group_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"group_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"group_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"group_evict": {
		def:     evictToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEvict },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
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
// Tool names follow the pattern "type_action" (e.g., "group_save" → "group").
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
	return tools
}

// enabledTools returns the registry names left after cfg's exclusions.
func enabledTools(cfg *config.Config) map[string]toolEntry {
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	out := make(map[string]toolEntry, len(toolRegistry))
	for name, entry := range toolRegistry {
		if !disabled[name] {
			out[name] = entry
		}
	}
	return out
}

// NewServer creates an MCP server with the group tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(e *ops.Engine, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tabstash",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(e)
	for _, entry := range enabledTools(cfg) {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run starts the MCP server using stdio transport.
func Run(e *ops.Engine, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(e, cfg, version))
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
