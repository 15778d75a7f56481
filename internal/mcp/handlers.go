package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	engine *ops.Engine
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(e *ops.Engine) *Handlers {
	return &Handlers{engine: e}
}

// Request types for each tool

// SaveRequest represents the arguments for group_save.
type SaveRequest struct {
	Name          string      `json:"name,omitempty"`
	Tabs          []group.Tab `json:"tabs,omitempty"`
	IncludePinned *bool       `json:"include_pinned,omitempty"`
}

// IDRequest addresses a single group.
type IDRequest struct {
	ID string `json:"id"`
}

// OpenRequest represents the arguments for group_open.
type OpenRequest struct {
	ID        string `json:"id"`
	NewWindow bool   `json:"new_window,omitempty"`
}

// AddTabRequest represents the arguments for group_add_tab.
type AddTabRequest struct {
	ID  string     `json:"id"`
	Tab *group.Tab `json:"tab,omitempty"`
}

// RemoveTabRequest represents the arguments for group_remove_tab.
type RemoveTabRequest struct {
	ID    string `json:"id"`
	Index *int   `json:"index"`
}

// ReorderTabRequest represents the arguments for group_reorder_tab.
type ReorderTabRequest struct {
	ID       string `json:"id"`
	OldIndex *int   `json:"old_index"`
	NewIndex *int   `json:"new_index"`
}

// MoveTabRequest represents the arguments for group_move_tab.
type MoveTabRequest struct {
	SourceID string `json:"source_id"`
	Index    *int   `json:"index"`
	TargetID string `json:"target_id"`
}

// MergeRequest represents the arguments for group_merge.
type MergeRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// AutoRequest represents the arguments for group_auto.
type AutoRequest struct {
	Tabs          []group.Tab `json:"tabs,omitempty"`
	MinCount      *int        `json:"min_count,omitempty"`
	IncludePinned *bool       `json:"include_pinned,omitempty"`
	MergeExisting bool        `json:"merge_existing,omitempty"`
}

// PatternRequest represents the arguments for group_pattern.
type PatternRequest struct {
	Pattern       string      `json:"pattern"`
	Name          string      `json:"name,omitempty"`
	Tabs          []group.Tab `json:"tabs,omitempty"`
	IncludePinned *bool       `json:"include_pinned,omitempty"`
}

// RenameRequest represents the arguments for group_rename.
type RenameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RestoreRequest represents the arguments for group_restore.
type RestoreRequest struct {
	Index *int `json:"index"`
}

// ImportRequest represents the arguments for group_import.
type ImportRequest struct {
	Data string `json:"data"`
}

// ListRequest represents the arguments for group_list.
type ListRequest struct {
	Sort   string `json:"sort,omitempty"`
	Query  string `json:"query,omitempty"`
	Filter string `json:"filter,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// DeletedOutput is the group_deleted response.
type DeletedOutput struct {
	Items []group.DeletedEntry `json:"items"`
	Count int                  `json:"count"`
}

// Handler implementations

// HandleSave handles the group_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.CreateGroup(ctx, ops.CreateGroupInput{
		Name:          input.Name,
		Tabs:          input.Tabs,
		IncludePinned: input.IncludePinned,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleOpen handles the group_open tool call.
func (h *Handlers) HandleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OpenRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.OpenGroup(ctx, ops.OpenGroupInput{ID: input.ID, NewWindow: input.NewWindow})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the group_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.DeleteGroup(ctx, ops.DeleteGroupInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAddTab handles the group_add_tab tool call.
func (h *Handlers) HandleAddTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddTabRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.AddTab(ctx, ops.AddTabInput{ID: input.ID, Tab: input.Tab})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRemoveTab handles the group_remove_tab tool call.
func (h *Handlers) HandleRemoveTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RemoveTabRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	index, err := requireIndex("index", input.Index)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.RemoveTab(ctx, ops.RemoveTabInput{ID: input.ID, Index: index})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleReorderTab handles the group_reorder_tab tool call.
func (h *Handlers) HandleReorderTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReorderTabRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	oldIndex, err := requireIndex("old_index", input.OldIndex)
	if err != nil {
		return errorResult(err), nil
	}
	newIndex, err := requireIndex("new_index", input.NewIndex)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.ReorderTab(ctx, ops.ReorderTabInput{ID: input.ID, OldIndex: oldIndex, NewIndex: newIndex})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMoveTab handles the group_move_tab tool call.
func (h *Handlers) HandleMoveTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MoveTabRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	index, err := requireIndex("index", input.Index)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.MoveTab(ctx, ops.MoveTabInput{SourceID: input.SourceID, Index: index, TargetID: input.TargetID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMerge handles the group_merge tool call.
func (h *Handlers) HandleMerge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MergeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.MergeGroups(ctx, ops.MergeGroupsInput{SourceID: input.SourceID, TargetID: input.TargetID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAuto handles the group_auto tool call.
func (h *Handlers) HandleAuto(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AutoRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.AutoGroupByDomain(ctx, ops.AutoGroupInput{
		Tabs:          input.Tabs,
		MinCount:      input.MinCount,
		IncludePinned: input.IncludePinned,
		MergeExisting: input.MergeExisting,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePattern handles the group_pattern tool call.
func (h *Handlers) HandlePattern(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PatternRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.GroupByPattern(ctx, ops.GroupByPatternInput{
		Tabs:          input.Tabs,
		Pattern:       input.Pattern,
		Name:          input.Name,
		IncludePinned: input.IncludePinned,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRename handles the group_rename tool call.
func (h *Handlers) HandleRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.RenameGroup(ctx, ops.RenameGroupInput{ID: input.ID, NewName: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDeleted handles the group_deleted tool call.
func (h *Handlers) HandleDeleted(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.engine.RecentlyDeleted(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if entries == nil {
		entries = []group.DeletedEntry{}
	}
	return successResult(DeletedOutput{Items: entries, Count: len(entries)})
}

// HandleRestore handles the group_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RestoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	index, err := requireIndex("index", input.Index)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.RestoreDeleted(ctx, ops.RestoreDeletedInput{Index: index})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the group_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.engine.Export(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the group_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.Import(ctx, ops.ImportInput{Data: input.Data})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the group_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.ListGroups(ctx, ops.ListGroupsInput{
		Sort:   group.SortOrder(input.Sort),
		Query:  input.Query,
		Filter: input.Filter,
		Limit:  input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleEvict handles the group_evict tool call.
func (h *Handlers) HandleEvict(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.engine.Evict(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

func requireIndex(field string, index *int) (int, error) {
	if index == nil {
		return 0, errors.NewInvalidRequest(field + " is required")
	}
	return *index, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	se := errors.As(err)

	errorObj := map[string]any{
		"code":    se.Code,
		"message": se.Message,
		"status":  se.Status,
	}
	if se.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if se.Details != nil {
		errorObj["details"] = se.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
