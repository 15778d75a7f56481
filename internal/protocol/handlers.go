package protocol

import (
	"context"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/ops"
)

var handlers = map[string]handlerFunc{
	ActionSaveGroup:                saveGroup,
	ActionSaveTabsWithName:         saveTabsWithName,
	ActionOpenGroup:                openGroup,
	ActionDeleteGroup:              deleteGroup,
	ActionAddTabToGroup:            addTabToGroup,
	ActionRemoveTabFromGroup:       removeTabFromGroup,
	ActionReorderTabInGroup:        reorderTabInGroup,
	ActionMoveTabBetweenGroups:     moveTabBetweenGroups,
	ActionMergeGroups:              mergeGroups,
	ActionAutoGroupTabs:            autoGroupTabs,
	ActionGroupTabsByPattern:       groupTabsByPattern,
	ActionRenameGroup:              renameGroup,
	ActionGetRecentlyDeletedGroups: getRecentlyDeleted,
	ActionRestoreRecentlyDeleted:   restoreRecentlyDeleted,
	ActionExportGroups:             exportGroups,
	ActionImportGroups:             importGroups,
	ActionGetGroups:                getGroups,
	ActionTouchGroup:               touchGroup,
	ActionEvictNow:                 evictNow,
	ActionGetSettings:              getSettings,
	ActionUpdateSettings:           updateSettings,
}

func requireIndex(field string, v *int) (int, error) {
	if v == nil {
		return 0, errors.NewInvalidRequest(field + " is required")
	}
	return *v, nil
}

func saveGroup(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	out, err := e.CreateGroup(ctx, ops.CreateGroupInput{Name: cmd.GroupName, Tabs: cmd.Tabs, IncludePinned: cmd.IncludePinned})
	if err != nil {
		return Result{}, err
	}
	return Result{GroupID: out.ID}, nil
}

// saveTabsWithName is the naming prompt's variant of saveGroup.
func saveTabsWithName(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	out, err := e.CreateGroup(ctx, ops.CreateGroupInput{Name: cmd.Name, Tabs: cmd.Tabs, IncludePinned: cmd.IncludePinned})
	if err != nil {
		return Result{}, err
	}
	return Result{GroupID: out.ID}, nil
}

func openGroup(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	if _, err := e.OpenGroup(ctx, ops.OpenGroupInput{ID: cmd.GroupID, NewWindow: cmd.OpenInNewWindow}); err != nil {
		return Result{}, err
	}
	return Result{GroupID: cmd.GroupID}, nil
}

func deleteGroup(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	if _, err := e.DeleteGroup(ctx, ops.DeleteGroupInput{ID: cmd.GroupID}); err != nil {
		return Result{}, err
	}
	return Result{GroupID: cmd.GroupID}, nil
}

func addTabToGroup(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	if _, err := e.AddTab(ctx, ops.AddTabInput{ID: cmd.GroupID, Tab: cmd.Tab}); err != nil {
		return Result{}, err
	}
	return Result{GroupID: cmd.GroupID}, nil
}

func removeTabFromGroup(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	index, err := requireIndex("tabIndex", cmd.TabIndex)
	if err != nil {
		return Result{}, err
	}
	if _, err := e.RemoveTab(ctx, ops.RemoveTabInput{ID: cmd.GroupID, Index: index}); err != nil {
		return Result{}, err
	}
	return Result{GroupID: cmd.GroupID}, nil
}

func reorderTabInGroup(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	oldIndex, err := requireIndex("oldIndex", cmd.OldIndex)
	if err != nil {
		return Result{}, err
	}
	newIndex, err := requireIndex("newIndex", cmd.NewIndex)
	if err != nil {
		return Result{}, err
	}
	if _, err := e.ReorderTab(ctx, ops.ReorderTabInput{ID: cmd.GroupID, OldIndex: oldIndex, NewIndex: newIndex}); err != nil {
		return Result{}, err
	}
	return Result{GroupID: cmd.GroupID}, nil
}

func moveTabBetweenGroups(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	index, err := requireIndex("tabIndex", cmd.TabIndex)
	if err != nil {
		return Result{}, err
	}
	out, err := e.MoveTab(ctx, ops.MoveTabInput{SourceID: cmd.SourceGroupID, Index: index, TargetID: cmd.TargetGroupID})
	if err != nil {
		return Result{}, err
	}
	return Result{GroupIDs: []string{out.SourceID, out.TargetID}}, nil
}

func mergeGroups(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	out, err := e.MergeGroups(ctx, ops.MergeGroupsInput{SourceID: cmd.SourceGroupID, TargetID: cmd.TargetGroupID})
	if err != nil {
		return Result{}, err
	}
	return Result{GroupID: out.TargetID}, nil
}

func autoGroupTabs(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	out, err := e.AutoGroupByDomain(ctx, ops.AutoGroupInput{
		Tabs:          cmd.Tabs,
		MinCount:      cmd.MinCount,
		IncludePinned: cmd.IncludePinned,
		MergeExisting: cmd.MergeExisting,
	})
	if err != nil {
		return Result{}, err
	}
	var ids []string
	for _, g := range out.Created {
		ids = append(ids, g.ID)
	}
	for _, g := range out.Updated {
		ids = append(ids, g.ID)
	}
	return Result{GroupIDs: ids}, nil
}

func groupTabsByPattern(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	out, err := e.GroupByPattern(ctx, ops.GroupByPatternInput{
		Tabs:          cmd.Tabs,
		Pattern:       cmd.Pattern,
		Name:          cmd.GroupName,
		IncludePinned: cmd.IncludePinned,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{GroupID: out.ID}, nil
}

func renameGroup(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	if _, err := e.RenameGroup(ctx, ops.RenameGroupInput{ID: cmd.GroupID, NewName: cmd.NewName}); err != nil {
		return Result{}, err
	}
	return Result{GroupID: cmd.GroupID}, nil
}

func getRecentlyDeleted(ctx context.Context, e *ops.Engine, _ Command) (Result, error) {
	deleted, err := e.RecentlyDeleted(ctx)
	if err != nil {
		return Result{}, err
	}
	if deleted == nil {
		deleted = []group.DeletedEntry{}
	}
	return Result{RecentlyDeleted: deleted}, nil
}

func restoreRecentlyDeleted(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	index, err := requireIndex("index", cmd.Index)
	if err != nil {
		return Result{}, err
	}
	out, err := e.RestoreDeleted(ctx, ops.RestoreDeletedInput{Index: index})
	if err != nil {
		return Result{}, err
	}
	return Result{GroupID: out.ID}, nil
}

func exportGroups(ctx context.Context, e *ops.Engine, _ Command) (Result, error) {
	out, err := e.Export(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: out.Data}, nil
}

func importGroups(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	out, err := e.Import(ctx, ops.ImportInput{Data: cmd.Data})
	if err != nil {
		return Result{}, err
	}
	return Result{GroupIDs: out.IDs}, nil
}

func getGroups(ctx context.Context, e *ops.Engine, _ Command) (Result, error) {
	groups, err := e.GetGroups(ctx)
	if err != nil {
		return Result{}, err
	}
	if groups == nil {
		groups = group.Collection{}
	}
	return Result{Groups: groups}, nil
}

func touchGroup(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	if _, err := e.TouchGroup(ctx, ops.TouchGroupInput{ID: cmd.GroupID}); err != nil {
		return Result{}, err
	}
	return Result{GroupID: cmd.GroupID}, nil
}

func evictNow(ctx context.Context, e *ops.Engine, _ Command) (Result, error) {
	out, err := e.Evict(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{GroupIDs: append(out.ByAge, out.ByCount...)}, nil
}

func getSettings(ctx context.Context, e *ops.Engine, _ Command) (Result, error) {
	s, err := e.Settings(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Settings: &s}, nil
}

func updateSettings(ctx context.Context, e *ops.Engine, cmd Command) (Result, error) {
	if cmd.Settings == nil {
		return Result{}, errors.NewInvalidRequest("settings is required")
	}
	s, err := e.UpdateSettings(ctx, *cmd.Settings)
	if err != nil {
		return Result{}, err
	}
	return Result{Settings: &s}, nil
}
