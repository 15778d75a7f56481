package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/storage"
	"github.com/hpungsan/tabstash/internal/tabhost"
)

// testSetup creates an engine over memory storage with a recording tab host.
func testSetup(t *testing.T, tabs ...group.Tab) (*Handlers, *tabhost.Recorder) {
	t.Helper()
	host := tabhost.NewRecorder(tabs...)
	e := ops.NewEngine(storage.NewMemory(), ops.WithTabHost(host))
	t.Cleanup(func() { _ = e.Close() })
	return NewHandlers(e), host
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func tabArgs(urls ...string) []any {
	out := make([]any, 0, len(urls))
	for _, u := range urls {
		out = append(out, map[string]any{"url": u, "title": u})
	}
	return out
}

func saveGroup(t *testing.T, h *Handlers, name string, urls ...string) string {
	t.Helper()
	result, err := h.HandleSave(context.Background(), makeRequest(map[string]any{
		"name": name,
		"tabs": tabArgs(urls...),
	}))
	if err != nil {
		t.Fatalf("HandleSave() error = %v", err)
	}
	output := parseOutput(t, result)
	id, _ := output["id"].(string)
	if id == "" {
		t.Fatalf("HandleSave() returned no id: %v", output)
	}
	return id
}

func tabCount(t *testing.T, h *Handlers, id string) int {
	t.Helper()
	g, err := h.engine.GetGroup(context.Background(), id)
	if err != nil {
		t.Fatalf("GetGroup(%s) error = %v", id, err)
	}
	return len(g.Tabs)
}

func TestHandleSave(t *testing.T) {
	h, _ := testSetup(t, group.Tab{URL: "https://host.com/a"}, group.Tab{URL: "https://host.com/b"})
	ctx := context.Background()

	t.Run("explicit tabs", func(t *testing.T) {
		result, err := h.HandleSave(ctx, makeRequest(map[string]any{
			"name": "Reading",
			"tabs": tabArgs("https://a.com", "https://b.com"),
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)
		g := output["group"].(map[string]any)
		if g["name"] != "Reading" {
			t.Errorf("name = %v, want Reading", g["name"])
		}
		if tabs := g["tabs"].([]any); len(tabs) != 2 {
			t.Errorf("tabs = %d, want 2", len(tabs))
		}
		if g["origin"] != group.OriginManual {
			t.Errorf("origin = %v, want %s", g["origin"], group.OriginManual)
		}
	})

	t.Run("host window tabs", func(t *testing.T) {
		result, _ := h.HandleSave(ctx, makeRequest(map[string]any{}))
		output := parseOutput(t, result)
		g := output["group"].(map[string]any)
		if g["name"] != "host.com" {
			t.Errorf("name = %v, want host.com", g["name"])
		}
	})

	t.Run("bad arguments", func(t *testing.T) {
		result, _ := h.HandleSave(ctx, makeRequest(map[string]any{"tabs": "not a list"}))
		assertErrorCode(t, result, string(errors.ErrInvalidRequest))
	})
}

func TestHandleOpen(t *testing.T) {
	h, host := testSetup(t)
	ctx := context.Background()
	id := saveGroup(t, h, "Docs", "https://go.dev", "https://pkg.go.dev")

	result, _ := h.HandleOpen(ctx, makeRequest(map[string]any{"id": id, "new_window": true}))
	output := parseOutput(t, result)
	if output["opened"] != float64(2) {
		t.Errorf("opened = %v, want 2", output["opened"])
	}

	opened := host.Opened()
	if len(opened) != 1 || !opened[0].NewWindow || len(opened[0].URLs) != 2 {
		t.Fatalf("Opened() = %+v", opened)
	}

	result, _ = h.HandleOpen(ctx, makeRequest(map[string]any{"id": "missing"}))
	assertErrorCode(t, result, string(errors.ErrNotFound))
}

func TestHandleTabEditing(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()
	a := saveGroup(t, h, "A", "https://a.com", "https://b.com", "https://c.com")
	b := saveGroup(t, h, "B", "https://z.com")

	result, _ := h.HandleAddTab(ctx, makeRequest(map[string]any{
		"id":  b,
		"tab": map[string]any{"url": "https://y.com", "title": "Y"},
	}))
	output := parseOutput(t, result)
	if output["index"] != float64(1) {
		t.Errorf("index = %v, want 1", output["index"])
	}

	result, _ = h.HandleReorderTab(ctx, makeRequest(map[string]any{"id": a, "old_index": 2, "new_index": 0}))
	output = parseOutput(t, result)
	tabs := output["tabs"].([]any)
	if first := tabs[0].(map[string]any)["url"]; first != "https://c.com" {
		t.Errorf("first tab = %v, want https://c.com", first)
	}

	result, _ = h.HandleMoveTab(ctx, makeRequest(map[string]any{"source_id": a, "index": 0, "target_id": b}))
	parseOutput(t, result)
	if n := tabCount(t, h, b); n != 3 {
		t.Errorf("target tabs = %d, want 3", n)
	}

	result, _ = h.HandleRemoveTab(ctx, makeRequest(map[string]any{"id": a, "index": 0}))
	output = parseOutput(t, result)
	if removed := output["removed"].(map[string]any)["url"]; removed != "https://a.com" {
		t.Errorf("removed = %v, want https://a.com", removed)
	}

	result, _ = h.HandleRemoveTab(ctx, makeRequest(map[string]any{"id": a, "index": 7}))
	assertErrorCode(t, result, string(errors.ErrIndexOutOfRange))

	result, _ = h.HandleRemoveTab(ctx, makeRequest(map[string]any{"id": a}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))

	result, _ = h.HandleMerge(ctx, makeRequest(map[string]any{"source_id": a, "target_id": b}))
	output = parseOutput(t, result)
	if output["tab_count"] != float64(4) {
		t.Errorf("tab_count = %v, want 4", output["tab_count"])
	}
}

func TestHandleRename(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()
	id := saveGroup(t, h, "Old", "https://a.com")

	result, _ := h.HandleRename(ctx, makeRequest(map[string]any{"id": id, "name": "  New  "}))
	output := parseOutput(t, result)
	if output["name"] != "New" {
		t.Errorf("name = %v, want New", output["name"])
	}

	result, _ = h.HandleRename(ctx, makeRequest(map[string]any{"id": id, "name": " "}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))
}

func TestHandleDeleteAndRestore(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()
	id := saveGroup(t, h, "Gone", "https://a.com")

	result, _ := h.HandleDelete(ctx, makeRequest(map[string]any{"id": id}))
	parseOutput(t, result)

	result, _ = h.HandleDelete(ctx, makeRequest(map[string]any{"id": id}))
	assertErrorCode(t, result, string(errors.ErrNotFound))

	result, _ = h.HandleDeleted(ctx, makeRequest(nil))
	output := parseOutput(t, result)
	if output["count"] != float64(1) {
		t.Fatalf("count = %v, want 1", output["count"])
	}

	result, _ = h.HandleRestore(ctx, makeRequest(map[string]any{"index": 0}))
	output = parseOutput(t, result)
	if output["id"] == id {
		t.Error("restored group should get a new id")
	}
	g := output["group"].(map[string]any)
	if g["origin"] != group.OriginRestored {
		t.Errorf("origin = %v, want %s", g["origin"], group.OriginRestored)
	}

	result, _ = h.HandleRestore(ctx, makeRequest(map[string]any{"index": 0}))
	assertErrorCode(t, result, string(errors.ErrIndexOutOfRange))
}

func TestHandleAutoAndPattern(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()
	tabs := tabArgs("https://news.com/1", "https://news.com/2", "https://solo.com", "https://docs.dev/x")

	result, _ := h.HandleAuto(ctx, makeRequest(map[string]any{"tabs": tabs}))
	output := parseOutput(t, result)
	created := output["created"].([]any)
	if len(created) != 1 {
		t.Fatalf("created = %d, want 1", len(created))
	}
	if name := created[0].(map[string]any)["name"]; name != "news.com" {
		t.Errorf("name = %v, want news.com", name)
	}

	result, _ = h.HandleAuto(ctx, makeRequest(map[string]any{"tabs": tabs, "min_count": 1}))
	output = parseOutput(t, result)
	if len(output["created"].([]any)) != 3 {
		t.Errorf("created with min_count 1 = %v, want 3", len(output["created"].([]any)))
	}

	result, _ = h.HandlePattern(ctx, makeRequest(map[string]any{"tabs": tabs, "pattern": `DOCS\.dev`}))
	output = parseOutput(t, result)
	if output["matched"] != float64(1) {
		t.Errorf("matched = %v, want 1", output["matched"])
	}

	result, _ = h.HandlePattern(ctx, makeRequest(map[string]any{"tabs": tabs, "pattern": "nowhere"}))
	assertErrorCode(t, result, string(errors.ErrNoMatches))

	result, _ = h.HandlePattern(ctx, makeRequest(map[string]any{"tabs": tabs}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))
}

func TestHandleList(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()
	saveGroup(t, h, "beta", "https://b.com")
	saveGroup(t, h, "alpha", "https://a.com", "https://a.com/2")

	result, _ := h.HandleList(ctx, makeRequest(map[string]any{"sort": "name"}))
	output := parseOutput(t, result)
	items := output["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if name := items[0].(map[string]any)["name"]; name != "alpha" {
		t.Errorf("first = %v, want alpha", name)
	}

	result, _ = h.HandleList(ctx, makeRequest(map[string]any{"filter": "tabCount > 1"}))
	output = parseOutput(t, result)
	if output["total"] != float64(1) {
		t.Errorf("total = %v, want 1", output["total"])
	}

	result, _ = h.HandleList(ctx, makeRequest(map[string]any{"filter": "tabCount >"}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))
}

func TestHandleExportImport(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()
	id := saveGroup(t, h, "Keep", "https://a.com")

	result, _ := h.HandleExport(ctx, makeRequest(nil))
	output := parseOutput(t, result)
	data, _ := output["data"].(string)
	if output["count"] != float64(1) || data == "" {
		t.Fatalf("export = %v", output)
	}

	target, _ := testSetup(t)
	result, _ = target.HandleImport(ctx, makeRequest(map[string]any{"data": data}))
	output = parseOutput(t, result)
	if output["imported"] != float64(1) {
		t.Errorf("imported = %v, want 1", output["imported"])
	}
	if n := tabCount(t, target, id); n != 1 {
		t.Errorf("imported tabs = %d, want 1", n)
	}

	result, _ = target.HandleImport(ctx, makeRequest(map[string]any{"data": "{broken"}))
	assertErrorCode(t, result, string(errors.ErrImportParse))
}

func TestHandleEvict(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()
	saveGroup(t, h, "one", "https://a.com")

	maxGroups := 1
	if _, err := h.engine.UpdateSettings(ctx, config.SettingsPatch{MaxGroups: &maxGroups}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	saveGroup(t, h, "two", "https://b.com")

	result, _ := h.HandleEvict(ctx, makeRequest(nil))
	output := parseOutput(t, result)
	if output["remaining"] != float64(1) {
		t.Errorf("remaining = %v, want 1", output["remaining"])
	}
	if byCount := output["by_count"].([]any); len(byCount) != 1 {
		t.Errorf("by_count = %v, want 1 id", byCount)
	}
}

func TestHandle_CancelledContextReturnsCancelled(t *testing.T) {
	h, _ := testSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, _ := h.HandleSave(ctx, makeRequest(map[string]any{"tabs": tabArgs("https://a.com")}))
	assertErrorCode(t, result, string(errors.ErrCancelled))
}

func TestServerRegistration(t *testing.T) {
	h, _ := testSetup(t)
	cfg := config.DefaultConfig()

	s := NewServer(h.engine, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"group_save",
		"group_open",
		"group_delete",
		"group_add_tab",
		"group_remove_tab",
		"group_reorder_tab",
		"group_move_tab",
		"group_merge",
		"group_auto",
		"group_pattern",
		"group_rename",
		"group_deleted",
		"group_restore",
		"group_export",
		"group_import",
		"group_list",
		"group_evict",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	h, _ := testSetup(t)
	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"group_evict", "group_import", "group_import"}

	tools := NewServer(h.engine, cfg, "test").ListTools()
	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"group_evict", "group_import"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["group_save"]; !ok {
		t.Error("group_save should be registered")
	}
}

func TestServerRegistration_DisabledType(t *testing.T) {
	h, _ := testSetup(t)
	cfg := config.DefaultConfig()
	cfg.DisabledTypes = []string{"group"}

	tools := NewServer(h.engine, cfg, "test").ListTools()
	if len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0", len(tools))
	}
}

func TestValidateDisabled(t *testing.T) {
	tests := []struct {
		name    string
		tools   []string
		types   []string
		wantLen int
	}{
		{name: "all valid", tools: []string{"group_evict", "group_merge"}, types: []string{"group"}, wantLen: 0},
		{name: "unknown tool", tools: []string{"group_evict", "fake_tool"}, wantLen: 1},
		{name: "unknown type", types: []string{"window"}, wantLen: 1},
		{name: "empty", wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := append(ValidateDisabledTools(tt.tools), ValidateDisabledTypes(tt.types)...)
			if len(unknown) != tt.wantLen {
				t.Errorf("unknown = %v, want %d entries", unknown, tt.wantLen)
			}
		})
	}
}

func TestToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 17 {
		t.Errorf("AllToolNames() returned %d names, want 17", len(names))
	}
	for _, name := range names {
		if GetTypeForTool(name) != "group" {
			t.Errorf("GetTypeForTool(%q) = %q, want group", name, GetTypeForTool(name))
		}
	}
	if got := ExpandTypesToTools([]string{"group"}); len(got) != len(names) {
		t.Errorf("ExpandTypesToTools(group) = %d tools, want %d", len(got), len(names))
	}
	if got := ExpandTypesToTools(nil); got != nil {
		t.Errorf("ExpandTypesToTools(nil) = %v, want nil", got)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}
	errObj := errorObject(t, r)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if errObj["message"] != "an internal error occurred" {
		t.Errorf("message=%v leaks internal detail", errObj["message"])
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorKeepsCode(t *testing.T) {
	r := errorResult(fmt.Errorf("source: %w", errors.NewNotFound("abc")))
	errObj := errorObject(t, r)

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if !result.IsError {
		t.Errorf("expected error %s, got success: %s", expectedCode, extractErrorMessage(result))
		return
	}
	if code := errorObject(t, result)["code"]; code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
