package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/ops"
)

// newCLIApp creates the CLI application with all commands. env may be nil
// when only help or version output is needed.
func newCLIApp(env *appEnv, out io.Writer) *cli.App {
	app := &cli.App{
		Name:    "tabstash",
		Usage:   "Saved browser tab groups",
		Version: Version,
		Writer:  out,
		Commands: []*cli.Command{
			saveCmd(env),
			openCmd(env),
			deleteCmd(env),
			addTabCmd(env),
			removeTabCmd(env),
			reorderCmd(env),
			moveTabCmd(env),
			mergeCmd(env),
			autoGroupCmd(env),
			patternCmd(env),
			renameCmd(env),
			deletedCmd(env),
			restoreCmd(env),
			exportCmd(env),
			importCmd(env),
			listCmd(env),
			showCmd(env),
			evictCmd(env),
			settingsCmd(env),
			backupCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// tabFlags are shared by commands that take a tab list.
func tabFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "url", Aliases: []string{"u"}, Usage: "Tab URL (repeatable)"},
		&cli.StringFlag{Name: "tabs-file", Usage: "JSON array of tabs ({url, title, pinned, active}); - reads stdin"},
		&cli.BoolFlag{Name: "include-pinned", Usage: "Keep pinned tabs (default: includePinnedTabs setting)"},
	}
}

// saveCmd creates the save command.
func saveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save tabs as a new group",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Group name (defaults to the first tab's domain)"},
		}, tabFlags()...),
		Action: func(c *cli.Context) error {
			tabs, err := readTabs(c)
			if err != nil {
				return outputError(err)
			}
			output, err := env.Engine().CreateGroup(c.Context, ops.CreateGroupInput{
				Name:          c.String("name"),
				Tabs:          tabs,
				IncludePinned: boolFlag(c, "include-pinned"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// openCmd creates the open command.
func openCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Print a group's URLs, one per line, and mark it accessed",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "new-window", Usage: "Request a new window"},
		},
		Action: func(c *cli.Context) error {
			_, err := env.Engine().OpenGroup(c.Context, ops.OpenGroupInput{
				ID:        c.Args().First(),
				NewWindow: c.Bool("new-window"),
			})
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a group (recoverable with restore)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := env.Engine().DeleteGroup(c.Context, ops.DeleteGroupInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// addTabCmd creates the add-tab command.
func addTabCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "add-tab",
		Usage:     "Append a tab to a group",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Tab URL"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Tab title"},
		},
		Action: func(c *cli.Context) error {
			tab := group.Tab{URL: c.String("url"), Title: c.String("title")}
			output, err := env.Engine().AddTab(c.Context, ops.AddTabInput{ID: c.Args().First(), Tab: &tab})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// removeTabCmd creates the remove-tab command.
func removeTabCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "remove-tab",
		Usage:     "Remove the tab at an index from a group",
		ArgsUsage: "<id> <index>",
		Action: func(c *cli.Context) error {
			index, err := indexArg(c, 1, "index")
			if err != nil {
				return outputError(err)
			}
			output, err := env.Engine().RemoveTab(c.Context, ops.RemoveTabInput{ID: c.Args().First(), Index: index})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// reorderCmd creates the reorder command.
func reorderCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "reorder",
		Usage:     "Move a tab to a new position within its group",
		ArgsUsage: "<id> <old-index> <new-index>",
		Action: func(c *cli.Context) error {
			oldIndex, err := indexArg(c, 1, "old-index")
			if err != nil {
				return outputError(err)
			}
			newIndex, err := indexArg(c, 2, "new-index")
			if err != nil {
				return outputError(err)
			}
			output, err := env.Engine().ReorderTab(c.Context, ops.ReorderTabInput{
				ID:       c.Args().First(),
				OldIndex: oldIndex,
				NewIndex: newIndex,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// moveTabCmd creates the move-tab command.
func moveTabCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "move-tab",
		Usage:     "Move a tab to the end of another group",
		ArgsUsage: "<source-id> <index> <target-id>",
		Action: func(c *cli.Context) error {
			index, err := indexArg(c, 1, "index")
			if err != nil {
				return outputError(err)
			}
			output, err := env.Engine().MoveTab(c.Context, ops.MoveTabInput{
				SourceID: c.Args().Get(0),
				Index:    index,
				TargetID: c.Args().Get(2),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// mergeCmd creates the merge command.
func mergeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Append every tab of the source group to the target and delete the source",
		ArgsUsage: "<source-id> <target-id>",
		Action: func(c *cli.Context) error {
			output, err := env.Engine().MergeGroups(c.Context, ops.MergeGroupsInput{
				SourceID: c.Args().Get(0),
				TargetID: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// autoGroupCmd creates the auto-group command.
func autoGroupCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "auto-group",
		Usage: "Create one group per domain with enough tabs",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "min-count", Usage: "Minimum tabs per domain (default: minTabsForSuggestion setting)"},
			&cli.BoolFlag{Name: "merge-existing", Usage: "Append to existing auto-domain groups"},
		}, tabFlags()...),
		Action: func(c *cli.Context) error {
			tabs, err := readTabs(c)
			if err != nil {
				return outputError(err)
			}
			input := ops.AutoGroupInput{
				Tabs:          tabs,
				IncludePinned: boolFlag(c, "include-pinned"),
				MergeExisting: c.Bool("merge-existing"),
			}
			if c.IsSet("min-count") {
				n := c.Int("min-count")
				input.MinCount = &n
			}
			output, err := env.Engine().AutoGroupByDomain(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// patternCmd creates the pattern command.
func patternCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "pattern",
		Usage:     "Create a group from tabs whose URL matches a regular expression",
		ArgsUsage: "<pattern>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Group name"},
		}, tabFlags()...),
		Action: func(c *cli.Context) error {
			tabs, err := readTabs(c)
			if err != nil {
				return outputError(err)
			}
			output, err := env.Engine().GroupByPattern(c.Context, ops.GroupByPatternInput{
				Tabs:          tabs,
				Pattern:       c.Args().First(),
				Name:          c.String("name"),
				IncludePinned: boolFlag(c, "include-pinned"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// renameCmd creates the rename command.
func renameCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename a group",
		ArgsUsage: "<id> <name>",
		Action: func(c *cli.Context) error {
			output, err := env.Engine().RenameGroup(c.Context, ops.RenameGroupInput{
				ID:      c.Args().Get(0),
				NewName: strings.Join(c.Args().Tail(), " "),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// deletedCmd creates the deleted command.
func deletedCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "deleted",
		Usage: "List recently deleted groups, oldest first",
		Action: func(c *cli.Context) error {
			entries, err := env.Engine().RecentlyDeleted(c.Context)
			if err != nil {
				return outputError(err)
			}
			if entries == nil {
				entries = []group.DeletedEntry{}
			}
			return outputJSON(c, entries)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore a recently deleted group as a new group",
		ArgsUsage: "<index>",
		Action: func(c *cli.Context) error {
			index, err := indexArg(c, 0, "index")
			if err != nil {
				return outputError(err)
			}
			output, err := env.Engine().RestoreDeleted(c.Context, ops.RestoreDeletedInput{Index: index})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export every group",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|markdown"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to a file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			var doc string
			switch c.String("format") {
			case "json":
				output, err := env.Engine().Export(c.Context)
				if err != nil {
					return outputError(err)
				}
				doc = output.Data + "\n"
			case "markdown", "md":
				groups, err := env.Engine().GetGroups(c.Context)
				if err != nil {
					return outputError(err)
				}
				doc = group.RenderMarkdown(group.Sorted(groups, group.SortCreated))
			default:
				return outputError(errors.NewInvalidRequest("format must be json or markdown"))
			}

			if path := c.String("output"); path != "" {
				if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
					return outputError(errors.NewInternal(err))
				}
				return nil
			}
			_, err := io.WriteString(c.App.Writer, doc)
			return err
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import groups from an export (reads stdin when no file is given)",
		ArgsUsage: "[file]",
		Action: func(c *cli.Context) error {
			data, err := readInput(c, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			output, err := env.Engine().Import(c.Context, ops.ImportInput{Data: string(data)})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List groups",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Value: "recent", Usage: "Sort order: recent|created|name"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Case-insensitive name substring"},
			&cli.StringFlag{Name: "filter", Usage: `Expression, e.g. 'tabCount > 3 && "github.com" in domains'`},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum groups"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.Engine().ListGroups(c.Context, ops.ListGroupsInput{
				Sort:   group.SortOrder(c.String("sort")),
				Query:  c.String("query"),
				Filter: c.String("filter"),
				Limit:  c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one group",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := env.Engine().GetGroup(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// evictCmd creates the evict command.
func evictCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "evict",
		Usage: "Remove inactive groups and groups beyond maxGroups",
		Action: func(c *cli.Context) error {
			output, err := env.Engine().Evict(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// settingsCmd creates the settings command. Without flags it prints the
// current settings.
func settingsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change settings",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max-groups", Usage: "Maximum stored groups"},
			&cli.Int64Flag{Name: "max-age-days", Usage: "Evict groups unused for this many days"},
			&cli.Int64Flag{Name: "cleanup-days", Usage: "Days between eviction passes"},
			&cli.BoolFlag{Name: "include-pinned", Usage: "Save pinned tabs by default"},
			&cli.IntFlag{Name: "min-tabs", Usage: "Minimum tabs per domain for auto-grouping"},
			&cli.BoolFlag{Name: "auto-backup", Usage: "Enable automatic backups"},
			&cli.StringFlag{Name: "backup-frequency", Usage: "daily|weekly|monthly"},
		},
		Action: func(c *cli.Context) error {
			patch := settingsPatch(c)
			if patch.Empty() {
				settings, err := env.Engine().Settings(c.Context)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, settings)
			}
			settings, err := env.Engine().UpdateSettings(c.Context, patch)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, settings)
		},
	}
}

const dayMillis = int64(24 * 60 * 60 * 1000)

func settingsPatch(c *cli.Context) config.SettingsPatch {
	var p config.SettingsPatch
	if c.IsSet("max-groups") {
		v := c.Int("max-groups")
		p.MaxGroups = &v
	}
	if c.IsSet("max-age-days") {
		v := c.Int64("max-age-days") * dayMillis
		p.MaxInactiveGroupAgeMs = &v
	}
	if c.IsSet("cleanup-days") {
		v := c.Int64("cleanup-days") * dayMillis
		p.StorageCleanupIntervalMs = &v
	}
	p.IncludePinnedTabs = boolFlag(c, "include-pinned")
	if c.IsSet("min-tabs") {
		v := c.Int("min-tabs")
		p.MinTabsForSuggestion = &v
	}
	p.AutoBackup = boolFlag(c, "auto-backup")
	if c.IsSet("backup-frequency") {
		v := c.String("backup-frequency")
		p.AutoBackupFrequency = &v
	}
	return p
}

// Helper functions

// outputJSON marshals result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	se := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", se.Code, se.Message), 1)
}

// boolFlag returns a pointer to the flag value when it was set explicitly.
func boolFlag(c *cli.Context, name string) *bool {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Bool(name)
	return &v
}

// indexArg parses positional argument i as a tab or buffer index.
func indexArg(c *cli.Context, i int, name string) (int, error) {
	s := c.Args().Get(i)
	if s == "" {
		return 0, errors.NewInvalidRequest(name + " is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("%s must be an integer, got %q", name, s))
	}
	return n, nil
}

// readInput reads path, or the app's reader when path is empty or "-".
func readInput(c *cli.Context, path string) ([]byte, error) {
	if path == "" || path == "-" {
		if c.App.Reader == nil {
			return nil, errors.NewInvalidRequest("no input: pass a file or pipe data on stdin")
		}
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("read %s: %v", path, err))
	}
	return data, nil
}

// readTabs collects tabs from --tabs-file and --url, in that order.
func readTabs(c *cli.Context) ([]group.Tab, error) {
	var tabs []group.Tab
	if path := c.String("tabs-file"); path != "" {
		data, err := readInput(c, path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &tabs); err != nil {
			return nil, errors.NewInvalidRequest("tabs file must be a JSON array of tabs: " + err.Error())
		}
	}
	for _, u := range c.StringSlice("url") {
		tabs = append(tabs, group.Tab{URL: u})
	}
	if len(tabs) == 0 {
		return nil, errors.NewInvalidRequest("tabs are required: pass --url or --tabs-file")
	}
	return tabs, nil
}
