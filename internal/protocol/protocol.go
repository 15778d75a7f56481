// Package protocol implements the action/payload command messages used by
// browser surfaces to drive the group store.
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/ops"
)

// Actions.
const (
	ActionSaveGroup                = "saveGroup"
	ActionSaveTabsWithName         = "saveTabsWithName"
	ActionOpenGroup                = "openGroup"
	ActionDeleteGroup              = "deleteGroup"
	ActionAddTabToGroup            = "addTabToGroup"
	ActionRemoveTabFromGroup       = "removeTabFromGroup"
	ActionReorderTabInGroup        = "reorderTabInGroup"
	ActionMoveTabBetweenGroups     = "moveTabBetweenGroups"
	ActionMergeGroups              = "mergeGroups"
	ActionAutoGroupTabs            = "autoGroupTabs"
	ActionGroupTabsByPattern       = "groupTabsByPattern"
	ActionRenameGroup              = "renameGroup"
	ActionGetRecentlyDeletedGroups = "getRecentlyDeletedGroups"
	ActionRestoreRecentlyDeleted   = "restoreRecentlyDeleted"
	ActionExportGroups             = "exportGroups"
	ActionImportGroups             = "importGroups"
	ActionGetGroups                = "getGroups"
	ActionTouchGroup               = "touchGroup"
	ActionEvictNow                 = "evictNow"
	ActionGetSettings              = "getSettings"
	ActionUpdateSettings           = "updateSettings"
)

// Command is one flat protocol message. Only the fields an action uses are read.
type Command struct {
	Action string `json:"action"`

	GroupID         string `json:"groupId,omitempty"`
	GroupName       string `json:"groupName,omitempty"`
	Name            string `json:"name,omitempty"`
	NewName         string `json:"newName,omitempty"`
	OpenInNewWindow bool   `json:"openInNewWindow,omitempty"`

	TabIndex *int `json:"tabIndex,omitempty"`
	OldIndex *int `json:"oldIndex,omitempty"`
	NewIndex *int `json:"newIndex,omitempty"`
	Index    *int `json:"index,omitempty"`

	SourceGroupID string `json:"sourceGroupId,omitempty"`
	TargetGroupID string `json:"targetGroupId,omitempty"`

	Pattern string `json:"pattern,omitempty"`
	Data    string `json:"data,omitempty"`

	// Tabs and Tab override the tab host's current window and active tab.
	Tabs []group.Tab `json:"tabs,omitempty"`
	Tab  *group.Tab  `json:"tab,omitempty"`

	MinCount      *int  `json:"minCount,omitempty"`
	IncludePinned *bool `json:"includePinned,omitempty"`
	MergeExisting bool  `json:"mergeExisting,omitempty"`

	Settings *config.SettingsPatch `json:"settings,omitempty"`
}

// ErrorInfo is the error part of a failed Result.
type ErrorInfo struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Status  int              `json:"status"`
	Details map[string]any   `json:"details,omitempty"`
}

// Result is the reply to a Command. Success is always present.
type Result struct {
	Success         bool                 `json:"success"`
	GroupID         string               `json:"groupId,omitempty"`
	GroupIDs        []string             `json:"groupIds,omitempty"`
	Groups          group.Collection     `json:"groups,omitzero"`
	RecentlyDeleted []group.DeletedEntry `json:"recentlyDeleted,omitzero"`
	Data            string               `json:"data,omitempty"`
	Settings        *config.Settings     `json:"settings,omitempty"`
	Error           *ErrorInfo           `json:"error,omitempty"`
}

type handlerFunc func(ctx context.Context, e *ops.Engine, cmd Command) (Result, error)

// Dispatcher routes commands to engine operations.
type Dispatcher struct {
	engine *ops.Engine
	logger *slog.Logger
}

// NewDispatcher returns a dispatcher over e.
func NewDispatcher(e *ops.Engine, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{engine: e, logger: logger}
}

// Actions returns every supported action name, sorted.
func Actions() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode parses a JSON command. Unknown fields are rejected.
func Decode(data []byte) (Command, error) {
	var cmd Command
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return Command{}, errors.NewInvalidRequest(fmt.Sprintf("invalid command: %v", err))
	}
	return cmd, nil
}

// Dispatch runs cmd. Failures are reported in the Result, never as panics.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("command panicked", "action", cmd.Action, "panic", r)
			res = Failure(errors.NewInternal(fmt.Errorf("panic: %v", r)))
		}
	}()

	h, ok := handlers[cmd.Action]
	if !ok {
		return Failure(errors.NewInvalidRequest(fmt.Sprintf("unknown action %q", cmd.Action)))
	}
	res, err := h(ctx, d.engine, cmd)
	if err != nil {
		d.logger.Debug("command failed", "action", cmd.Action, "error", err)
		return Failure(err)
	}
	res.Success = true
	return res
}

// Failure converts err into an unsuccessful Result. Internal error details
// are not exposed.
func Failure(err error) Result {
	se := errors.As(err)
	info := &ErrorInfo{Code: se.Code, Message: se.Message, Status: se.Status}
	if se.Code == errors.ErrInternal {
		info.Message = "an internal error occurred"
	} else {
		info.Details = se.Details
	}
	return Result{Success: false, Error: info}
}
