package mcp

import "github.com/mark3labs/mcp-go/mcp"

// tabSchema describes one browser tab in tool arguments.
var tabSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"url":    map[string]any{"type": "string"},
		"title":  map[string]any{"type": "string"},
		"pinned": map[string]any{"type": "boolean"},
		"active": map[string]any{"type": "boolean"},
	},
	"required": []string{"url"},
}

func tabsArg(desc string) mcp.ToolOption {
	return mcp.WithArray("tabs", mcp.Description(desc), mcp.Items(tabSchema))
}

func includePinnedArg() mcp.ToolOption {
	return mcp.WithBoolean("include_pinned",
		mcp.Description("Keep pinned tabs. Defaults to the includePinnedTabs setting."))
}

func groupIDArg(desc string) mcp.ToolOption {
	return mcp.WithString("id", mcp.Required(), mcp.Description(desc))
}

var saveToolDef = mcp.NewTool("group_save",
	mcp.WithDescription("Save a list of tabs as a new group. Without tabs, the current window of the connected tab host is saved."),
	mcp.WithString("name", mcp.Description("Group name. Defaults to the first tab's domain.")),
	tabsArg("Tabs to save, in order."),
	includePinnedArg(),
)

var openToolDef = mcp.NewTool("group_open",
	mcp.WithDescription("Open every tab of a group in the connected tab host and mark the group accessed."),
	groupIDArg("Group id."),
	mcp.WithBoolean("new_window", mcp.Description("Open the tabs in a new window.")),
)

var deleteToolDef = mcp.NewTool("group_delete",
	mcp.WithDescription("Delete a group. It stays recoverable in the recently deleted list."),
	groupIDArg("Group id."),
)

var addTabToolDef = mcp.NewTool("group_add_tab",
	mcp.WithDescription("Append a tab to a group. Without a tab, the active tab of the tab host is added."),
	groupIDArg("Group id."),
	mcp.WithObject("tab", mcp.Description("Tab to append."), mcp.Properties(tabSchema["properties"].(map[string]any))),
)

var removeTabToolDef = mcp.NewTool("group_remove_tab",
	mcp.WithDescription("Remove the tab at an index from a group."),
	groupIDArg("Group id."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based tab index.")),
)

var reorderTabToolDef = mcp.NewTool("group_reorder_tab",
	mcp.WithDescription("Move a tab to a new position within its group."),
	groupIDArg("Group id."),
	mcp.WithNumber("old_index", mcp.Required(), mcp.Description("Current zero-based index.")),
	mcp.WithNumber("new_index", mcp.Required(), mcp.Description("Target zero-based index.")),
)

var moveTabToolDef = mcp.NewTool("group_move_tab",
	mcp.WithDescription("Move a tab from one group to the end of another."),
	mcp.WithString("source_id", mcp.Required(), mcp.Description("Group holding the tab.")),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based index in the source group.")),
	mcp.WithString("target_id", mcp.Required(), mcp.Description("Group receiving the tab.")),
)

var mergeToolDef = mcp.NewTool("group_merge",
	mcp.WithDescription("Append every tab of the source group to the target group and delete the source."),
	mcp.WithString("source_id", mcp.Required(), mcp.Description("Group merged away.")),
	mcp.WithString("target_id", mcp.Required(), mcp.Description("Group kept.")),
)

var autoToolDef = mcp.NewTool("group_auto",
	mcp.WithDescription("Create one group per domain that has at least min_count tabs."),
	tabsArg("Tabs to group. Defaults to the tab host's current window."),
	mcp.WithNumber("min_count", mcp.Description("Minimum tabs per domain. Defaults to the minTabsForSuggestion setting.")),
	includePinnedArg(),
	mcp.WithBoolean("merge_existing", mcp.Description("Append to an existing auto-domain group for the same domain.")),
)

var patternToolDef = mcp.NewTool("group_pattern",
	mcp.WithDescription("Create a group from the tabs whose URL matches a case-insensitive regular expression."),
	mcp.WithString("pattern", mcp.Required(), mcp.Description("Regular expression matched against tab URLs.")),
	mcp.WithString("name", mcp.Description("Group name. Defaults to \"Pattern: \" and the start of the pattern.")),
	tabsArg("Tabs to match. Defaults to the tab host's current window."),
	includePinnedArg(),
)

var renameToolDef = mcp.NewTool("group_rename",
	mcp.WithDescription("Rename a group."),
	groupIDArg("Group id."),
	mcp.WithString("name", mcp.Required(), mcp.Description("New name.")),
)

var deletedToolDef = mcp.NewTool("group_deleted",
	mcp.WithDescription("List recently deleted groups, oldest first."),
)

var restoreToolDef = mcp.NewTool("group_restore",
	mcp.WithDescription("Restore a recently deleted group as a new group."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based index in the recently deleted list.")),
)

var exportToolDef = mcp.NewTool("group_export",
	mcp.WithDescription("Export every group as a JSON document keyed by group id."),
)

var importToolDef = mcp.NewTool("group_import",
	mcp.WithDescription("Import groups from a JSON document produced by group_export. Groups with the same id are replaced."),
	mcp.WithString("data", mcp.Required(), mcp.Description("Exported JSON document.")),
)

var listToolDef = mcp.NewTool("group_list",
	mcp.WithDescription("List groups, optionally filtered by name or an expression."),
	mcp.WithString("sort", mcp.Description("Sort order."), mcp.Enum("recent", "created", "name")),
	mcp.WithString("query", mcp.Description("Case-insensitive name substring.")),
	mcp.WithString("filter", mcp.Description("Boolean expression over name, origin, tabCount, domains, urls, created, lastAccessed, lastUsed and ageDays.")),
	mcp.WithNumber("limit", mcp.Description("Maximum groups to return (default 50, max 500).")),
)

var evictToolDef = mcp.NewTool("group_evict",
	mcp.WithDescription("Remove groups not used within maxInactiveGroupAgeMs, then the least recently used groups beyond maxGroups."),
)
