package protocol

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/storage"
	"github.com/hpungsan/tabstash/internal/tabhost"
)

func intPtr(i int) *int { return &i }

func newDispatcher(t *testing.T, tabs ...group.Tab) (*Dispatcher, *tabhost.Recorder) {
	t.Helper()
	host := tabhost.NewRecorder(tabs...)
	e := ops.NewEngine(storage.NewMemory(), ops.WithTabHost(host))
	t.Cleanup(func() { _ = e.Close() })
	return NewDispatcher(e, nil), host
}

func mustSucceed(t *testing.T, d *Dispatcher, cmd Command) Result {
	t.Helper()
	res := d.Dispatch(context.Background(), cmd)
	require.True(t, res.Success, "%s failed: %+v", cmd.Action, res.Error)
	return res
}

func requireFailure(t *testing.T, res Result, code errors.ErrorCode) {
	t.Helper()
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, code, res.Error.Code)
}

func TestDispatch_SaveAndGetGroups(t *testing.T) {
	d, _ := newDispatcher(t,
		group.Tab{URL: "https://a.com", Title: "A"},
		group.Tab{URL: "https://b.com", Title: "B", Active: true},
	)

	saved := mustSucceed(t, d, Command{Action: ActionSaveGroup, GroupName: "Work"})
	require.NotEmpty(t, saved.GroupID)

	res := mustSucceed(t, d, Command{Action: ActionGetGroups})
	require.Contains(t, res.Groups, saved.GroupID)
	assert.Equal(t, "Work", res.Groups[saved.GroupID].Name)
	assert.Len(t, res.Groups[saved.GroupID].Tabs, 2)

	named := mustSucceed(t, d, Command{Action: ActionSaveTabsWithName, Name: "Prompted", Tabs: []group.Tab{{URL: "https://x.com"}}})
	res = mustSucceed(t, d, Command{Action: ActionGetGroups})
	assert.Len(t, res.Groups[named.GroupID].Tabs, 1)
}

func TestDispatch_TabEditing(t *testing.T) {
	d, host := newDispatcher(t,
		group.Tab{URL: "https://a.com"},
		group.Tab{URL: "https://b.com"},
		group.Tab{URL: "https://c.com", Active: true},
	)
	a := mustSucceed(t, d, Command{Action: ActionSaveGroup, GroupName: "A"}).GroupID
	b := mustSucceed(t, d, Command{Action: ActionSaveGroup, GroupName: "B", Tabs: []group.Tab{{URL: "https://z.com"}}}).GroupID

	mustSucceed(t, d, Command{Action: ActionAddTabToGroup, GroupID: b})
	mustSucceed(t, d, Command{Action: ActionRemoveTabFromGroup, GroupID: a, TabIndex: intPtr(0)})
	mustSucceed(t, d, Command{Action: ActionReorderTabInGroup, GroupID: a, OldIndex: intPtr(0), NewIndex: intPtr(1)})
	mustSucceed(t, d, Command{Action: ActionMoveTabBetweenGroups, SourceGroupID: a, TabIndex: intPtr(0), TargetGroupID: b})
	mustSucceed(t, d, Command{Action: ActionRenameGroup, GroupID: b, NewName: "Renamed"})
	mustSucceed(t, d, Command{Action: ActionOpenGroup, GroupID: b, OpenInNewWindow: true})

	res := mustSucceed(t, d, Command{Action: ActionGetGroups})
	gb := res.Groups[b]
	assert.Equal(t, "Renamed", gb.Name)
	urls := make([]string, len(gb.Tabs))
	for i, tab := range gb.Tabs {
		urls[i] = tab.URL
	}
	assert.Equal(t, []string{"https://z.com", "https://c.com", "https://c.com"}, urls)

	opened := host.Opened()
	require.Len(t, opened, 1)
	assert.True(t, opened[0].NewWindow)

	mustSucceed(t, d, Command{Action: ActionMergeGroups, SourceGroupID: a, TargetGroupID: b})
	res = mustSucceed(t, d, Command{Action: ActionGetGroups})
	assert.NotContains(t, res.Groups, a)
}

func TestDispatch_DeleteAndRestore(t *testing.T) {
	d, _ := newDispatcher(t, group.Tab{URL: "https://a.com"})
	id := mustSucceed(t, d, Command{Action: ActionSaveGroup, GroupName: "A"}).GroupID

	mustSucceed(t, d, Command{Action: ActionDeleteGroup, GroupID: id})
	res := mustSucceed(t, d, Command{Action: ActionGetRecentlyDeletedGroups})
	require.Len(t, res.RecentlyDeleted, 1)
	assert.Equal(t, "A", res.RecentlyDeleted[0].Group.Name)

	restored := mustSucceed(t, d, Command{Action: ActionRestoreRecentlyDeleted, Index: intPtr(0)})
	assert.NotEqual(t, id, restored.GroupID)

	requireFailure(t, d.Dispatch(context.Background(), Command{Action: ActionRestoreRecentlyDeleted, Index: intPtr(0)}), errors.ErrIndexOutOfRange)
	requireFailure(t, d.Dispatch(context.Background(), Command{Action: ActionRestoreRecentlyDeleted}), errors.ErrInvalidRequest)
}

func TestDispatch_AutoGroupAndPattern(t *testing.T) {
	d, _ := newDispatcher(t,
		group.Tab{URL: "https://news.com/a"},
		group.Tab{URL: "https://x.com"},
		group.Tab{URL: "https://news.com/b"},
	)
	res := mustSucceed(t, d, Command{Action: ActionAutoGroupTabs})
	assert.Len(t, res.GroupIDs, 1)

	res = mustSucceed(t, d, Command{Action: ActionGroupTabsByPattern, Pattern: "x\\.com", GroupName: "X"})
	assert.NotEmpty(t, res.GroupID)

	requireFailure(t, d.Dispatch(context.Background(), Command{Action: ActionGroupTabsByPattern, Pattern: "nothing"}), errors.ErrNoMatches)
}

func TestDispatch_ExportImport(t *testing.T) {
	src, _ := newDispatcher(t, group.Tab{URL: "https://a.com"})
	mustSucceed(t, src, Command{Action: ActionSaveGroup, GroupName: "A"})
	exported := mustSucceed(t, src, Command{Action: ActionExportGroups})
	require.NotEmpty(t, exported.Data)

	dst, _ := newDispatcher(t)
	imported := mustSucceed(t, dst, Command{Action: ActionImportGroups, Data: exported.Data})
	assert.Len(t, imported.GroupIDs, 1)

	requireFailure(t, dst.Dispatch(context.Background(), Command{Action: ActionImportGroups, Data: "{"}), errors.ErrImportParse)
	requireFailure(t, dst.Dispatch(context.Background(), Command{Action: ActionImportGroups}), errors.ErrInvalidRequest)
}

func TestDispatch_SettingsAndEvict(t *testing.T) {
	d, _ := newDispatcher(t)
	for _, u := range []string{"https://a.com", "https://b.com"} {
		mustSucceed(t, d, Command{Action: ActionSaveGroup, Tabs: []group.Tab{{URL: u}}})
	}

	res := mustSucceed(t, d, Command{Action: ActionGetSettings})
	require.NotNil(t, res.Settings)
	assert.Equal(t, 50, res.Settings.MaxGroups)

	cmd, err := Decode([]byte(`{"action":"updateSettings","settings":{"maxGroups":1}}`))
	require.NoError(t, err)
	res = mustSucceed(t, d, cmd)
	assert.Equal(t, 1, res.Settings.MaxGroups)

	res = mustSucceed(t, d, Command{Action: ActionEvictNow})
	assert.Len(t, res.GroupIDs, 1)

	requireFailure(t, d.Dispatch(context.Background(), Command{Action: ActionUpdateSettings}), errors.ErrInvalidRequest)
}

func TestDispatch_Failures(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	requireFailure(t, d.Dispatch(ctx, Command{Action: "launchRockets"}), errors.ErrInvalidRequest)
	requireFailure(t, d.Dispatch(ctx, Command{Action: ActionDeleteGroup, GroupID: "missing"}), errors.ErrNotFound)
	requireFailure(t, d.Dispatch(ctx, Command{Action: ActionRemoveTabFromGroup, GroupID: "x"}), errors.ErrInvalidRequest)
}

func TestResult_JSONShape(t *testing.T) {
	data, err := json.Marshal(Failure(errors.NewNotFound("g1")))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, "NOT_FOUND", decoded["error"].(map[string]any)["code"])

	data, err = json.Marshal(Result{Success: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(data))
}

func TestDispatch_EmptyStoreResults(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	data, err := json.Marshal(d.Dispatch(ctx, Command{Action: ActionGetGroups}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"groups":{}}`, string(data))

	data, err = json.Marshal(d.Dispatch(ctx, Command{Action: ActionGetRecentlyDeletedGroups}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"recentlyDeleted":[]}`, string(data))
}

func TestFailure_HidesInternalDetails(t *testing.T) {
	res := Failure(errors.NewInternal(assert.AnError))
	assert.Equal(t, "an internal error occurred", res.Error.Message)
	assert.Nil(t, res.Error.Details)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte(`{"action":"getGroups","bogus":1}`))
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	cmd, err := Decode([]byte(`{"action":"removeTabFromGroup","groupId":"g","tabIndex":0}`))
	require.NoError(t, err)
	require.NotNil(t, cmd.TabIndex)
	assert.Equal(t, 0, *cmd.TabIndex)
}

func TestActions_CoversProtocol(t *testing.T) {
	assert.Len(t, Actions(), 21)
	assert.Contains(t, Actions(), ActionGetGroups)
}
