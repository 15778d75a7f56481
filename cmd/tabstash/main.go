package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/mcp"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/storage"
	"github.com/hpungsan/tabstash/internal/tabhost"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"save": true, "open": true, "delete": true, "add-tab": true,
	"remove-tab": true, "reorder": true, "move-tab": true, "merge": true,
	"auto-group": true, "pattern": true, "rename": true, "deleted": true,
	"restore": true, "export": true, "import": true, "list": true,
	"show": true, "evict": true, "settings": true, "backup": true,
	"serve": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _        _         _            _
  | |_ __ _| |__  ___| |_ __ _ ___| |__
  | __/ _' | '_ \/ __| __/ _' / __| '_ \
  | || (_| | |_) \__ \ || (_| \__ \ | | |
   \__\__,_|_.__/|___/\__\__,_|___/_| |_|

  Saved browser tab groups

  Usage: tabstash <command> [options]
         tabstash --help

  MCP server mode requires piped input.`)
}

// appEnv carries what every command needs. The CLI engine is created on
// first use so help and serve never start it.
type appEnv struct {
	cfg     *config.Config
	baseDir string
	backend storage.Backend
	logger  *slog.Logger

	once   sync.Once
	engine *ops.Engine
	out    io.Writer
}

// Engine returns the CLI engine. Opened groups are printed to the app's writer.
func (env *appEnv) Engine() *ops.Engine {
	env.once.Do(func() {
		env.engine = ops.NewEngine(env.backend,
			ops.WithLogger(env.logger),
			ops.WithTabHost(tabhost.NewPrinter(env.out)),
		)
	})
	return env.engine
}

// Close stops the CLI engine if it was started.
func (env *appEnv) Close() {
	if env.engine != nil {
		_ = env.engine.Close()
	}
}

// newLogger builds the stderr text logger for level.
func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before storage init
	if isHelpOrVersion() {
		app := newCLIApp(nil, os.Stdout)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".tabstash")
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		fatal("could not create %s: %v", baseDir, err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	logger := newLogger(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	backend, err := storage.Open(cfg.ResolveStorageDSN(baseDir))
	if err != nil {
		fatal("failed to open storage: %v", err)
	}
	defer backend.Close()

	env := &appEnv{cfg: cfg, baseDir: baseDir, backend: backend, logger: logger, out: os.Stdout}
	defer env.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env, os.Stdout)
		if err := app.Run(os.Args); err != nil {
			env.Close()
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tabstash --help' for usage.\n")
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled types", "types", unknown)
	}

	// MCP server mode (default). Tools pass tabs explicitly.
	engine := ops.NewEngine(backend, ops.WithLogger(logger))
	defer engine.Close()
	if err := mcp.Run(engine, cfg, Version); err != nil {
		fatal("%v", err)
	}
}
