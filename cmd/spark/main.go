package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/config"
	"github.com/sparkcards/spark/internal/db"
	"github.com/sparkcards/spark/internal/deck"
	"github.com/sparkcards/spark/internal/mcp"
	"github.com/sparkcards/spark/internal/ops"
	"github.com/sparkcards/spark/internal/prompt"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"prompts": true, "types": true, "tags": true, "draw": true,
	"deck": true, "favorite": true, "hide": true, "lists": true,
	"categories": true, "serve": true,
	"help": true,
}

// env holds the components shared by every command.
type env struct {
	cfg    *config.Config
	cat    *prompt.Catalog
	store  *collections.Store
	logger *zap.Logger
	level  zap.AtomicLevel
}

// newView opens a shuffle view (hidden prompts excluded) over the catalog.
func (e *env) newView(delay time.Duration) *ops.View {
	return ops.NewView(e.cat, e.store, ops.ViewOptions{
		ExcludeHidden: true,
		Delay:         delay,
		Rand:          deck.NewSource(e.cfg.ShuffleSeed),
		Logger:        e.logger,
	})
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	// Global flags ahead of a subcommand
	if arg == "--verbose" && len(os.Args) > 2 && cliCommands[os.Args[2]] {
		return true
	}
	return false // Default → MCP server
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
   ___ _ __   __ _ _ __| | __
  / __| '_ \ / _' | '__| |/ /
  \__ \ |_) | (_| | |  |   <
  |___/ .__/ \__,_|_|  |_|\_\
      |_|

  Shuffled movement prompts

  Usage: spark <command> [options]
         spark deck       browse the deck in the terminal
         spark serve      open the web UI
         spark --help

  MCP server mode requires piped input.`)
}

// newLogger builds a JSON logger on stderr. Stdout is reserved for command
// output and the MCP stdio protocol.
func newLogger(levelName string) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	if levelName != "" {
		parsed, err := zap.ParseAtomicLevel(levelName)
		if err != nil {
			return nil, level, fmt.Errorf("invalid log_level %q: %w", levelName, err)
		}
		level = parsed
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	logger, err := zc.Build()
	if err != nil {
		return nil, level, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, level, nil
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

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".spark")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	logger, level, err := newLogger(cfg.LogLevel)
	if err != nil {
		fatal("%v", err)
	}

	e, database, err := openEnv(baseDir, cfg, logger)
	if err != nil {
		fatal("%v", err)
	}
	e.level = level

	code := run(e)
	if err := e.store.Flush(); err != nil {
		logger.Error("failed to flush collections", zap.Error(err))
	}
	database.Close()
	_ = logger.Sync()
	os.Exit(code)
}

// run dispatches to CLI or MCP mode and returns the process exit code.
func run(e *env) int {
	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(e)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'spark --help' for usage.\n")
		return 1
	}

	if err := runMCP(e); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// runMCP serves the MCP tools over stdio. Agents advance without the
// transition delay.
func runMCP(e *env) error {
	if unknown := mcp.ValidateDisabledTools(e.cfg.DisabledTools); len(unknown) > 0 {
		e.logger.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
	}
	if unknown := mcp.ValidateDisabledTypes(e.cfg.DisabledTypes); len(unknown) > 0 {
		e.logger.Warn("unknown types in disabled_types", zap.Strings("types", unknown))
	}

	view := e.newView(0)
	defer view.Close()

	return mcp.Run(mcp.NewHandlers(e.cat, e.store, view, e.logger), e.cfg, Version)
}

// openEnv opens the database under baseDir, loads the catalog and the
// collections store.
func openEnv(baseDir string, cfg *config.Config, logger *zap.Logger) (*env, *sql.DB, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	cat, err := prompt.Load(cfg.CatalogPath)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Debug("catalog loaded", zap.Int("prompts", cat.Len()), zap.String("path", cfg.CatalogPath))

	return &env{
		cfg:    cfg,
		cat:    cat,
		store:  collections.Open(db.NewKV(database), logger),
		logger: logger,
		level:  zap.NewAtomicLevel(),
	}, database, nil
}
