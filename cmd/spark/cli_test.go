package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sparkcards/spark/internal/config"
	"github.com/sparkcards/spark/internal/filter"
	"github.com/sparkcards/spark/internal/ops"
)

const testCatalog = `
- text: "Spin slowly"
  type: "pole"
  tags: ["tempo"]
- text: "Only use your left hand"
  type: "pole"
  tags: ["restriction"]
- text: "Roll to the floor"
  type: "floor"
- text: "Walk in a circle"
  type: "heels"
  tags: ["tempo", "fun"]
`

// setupTestEnv creates an env over a temporary database and a small catalog.
func setupTestEnv(t *testing.T) (*env, string) {
	t.Helper()
	tmpDir := t.TempDir()
	e, database := openTestEnv(t, tmpDir)
	t.Cleanup(func() { database.Close() })
	return e, tmpDir
}

func openTestEnv(t *testing.T, dir string) (*env, *sql.DB) {
	t.Helper()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	if _, err := os.Stat(catalogPath); os.IsNotExist(err) {
		if err := os.WriteFile(catalogPath, []byte(testCatalog), 0o600); err != nil {
			t.Fatalf("failed to write catalog: %v", err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.CatalogPath = catalogPath
	cfg.ShuffleSeed = 7

	e, database, err := openEnv(dir, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open env: %v", err)
	}
	return e, database
}

// runCLI runs args against a fresh app and returns captured stdout.
func runCLI(t *testing.T, e *env, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(e)

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	runErr := app.Run(append([]string{"spark"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), runErr
}

// mustRun runs args and decodes the JSON output into v.
func mustRun(t *testing.T, e *env, v any, args ...string) {
	t.Helper()
	out, err := runCLI(t, e, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
}

func texts(items []ops.Prompt) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Text
	}
	return out
}

// TestParseTags tests the parseTags helper function.
func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single tag", input: "pole", expected: []string{"pole"}},
		{name: "multiple tags", input: "pole,floor,heels", expected: []string{"pole", "floor", "heels"}},
		{name: "tags with spaces", input: " pole , floor ", expected: []string{"pole", "floor"}},
		{name: "empty items skipped", input: "pole,,  ,floor", expected: []string{"pole", "floor"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseTags(tt.input)
			if diff := cmp.Diff(tt.expected, result); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestSelectionFromFlags tests that filter flags follow the filter link rules.
func TestSelectionFromFlags(t *testing.T) {
	var got filter.Selection
	app := &cli.App{
		Flags: selectionFlags(),
		Action: func(c *cli.Context) error {
			got = selectionFromFlags(c)
			return nil
		},
	}

	err := app.Run([]string{"spark", "--include-types=pole,floor", "--exclude-types=pole", "--exclude-tags=tempo", "--lists=warm up"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got.State(filter.DimensionType, "pole") != filter.Included {
		t.Errorf("pole in both sets should resolve to included, got %s", got.State(filter.DimensionType, "pole"))
	}
	if got.State(filter.DimensionType, "floor") != filter.Included {
		t.Errorf("expected floor included")
	}
	if got.State(filter.DimensionTag, "tempo") != filter.Excluded {
		t.Errorf("expected tempo excluded")
	}
	if got.State(filter.DimensionList, "warm up") != filter.Included {
		t.Errorf("expected list included")
	}
}

// TestCLIPrompts tests the prompts command.
func TestCLIPrompts(t *testing.T) {
	e, _ := setupTestEnv(t)

	t.Run("all prompts in catalog order", func(t *testing.T) {
		var output ops.ListPromptsOutput
		mustRun(t, e, &output, "prompts")

		expected := []string{"Spin slowly", "Only use your left hand", "Roll to the floor", "Walk in a circle"}
		if diff := cmp.Diff(expected, texts(output.Items)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if output.Pagination.Total != 4 {
			t.Errorf("expected total=4, got %d", output.Pagination.Total)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		var output ops.ListPromptsOutput
		mustRun(t, e, &output, "prompts", "--include-types=pole", "--exclude-tags=restriction")

		expected := []string{"Spin slowly"}
		if diff := cmp.Diff(expected, texts(output.Items)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("paginated", func(t *testing.T) {
		var output ops.ListPromptsOutput
		mustRun(t, e, &output, "prompts", "--limit=2", "--offset=1")

		expected := []string{"Only use your left hand", "Roll to the floor"}
		if diff := cmp.Diff(expected, texts(output.Items)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if !output.Pagination.HasMore {
			t.Error("expected has_more=true")
		}
	})
}

// TestCLITypesAndTags tests the types and tags commands.
func TestCLITypesAndTags(t *testing.T) {
	e, _ := setupTestEnv(t)

	var types map[string][]string
	mustRun(t, e, &types, "types")
	if diff := cmp.Diff([]string{"floor", "heels", "pole"}, types["types"]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	var tags map[string][]string
	mustRun(t, e, &tags, "tags")
	if diff := cmp.Diff([]string{"fun", "restriction", "tempo"}, tags["tags"]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// TestCLIDraw tests the draw command.
func TestCLIDraw(t *testing.T) {
	e, _ := setupTestEnv(t)

	t.Run("count within candidates", func(t *testing.T) {
		var output ops.DrawOutput
		mustRun(t, e, &output, "draw", "--include-tags=tempo", "--count=5")

		if output.Matches != 2 {
			t.Errorf("expected matches=2, got %d", output.Matches)
		}
		if len(output.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(output.Items))
		}
		for _, p := range output.Items {
			if p.Text != "Spin slowly" && p.Text != "Walk in a circle" {
				t.Errorf("unexpected draw: %q", p.Text)
			}
		}
	})

	t.Run("hidden prompts are never drawn", func(t *testing.T) {
		if _, err := runCLI(t, e, "hide", "toggle", "Roll to the floor"); err != nil {
			t.Fatalf("hide failed: %v", err)
		}

		var output ops.DrawOutput
		mustRun(t, e, &output, "draw", "--include-types=floor")
		if output.Matches != 0 || len(output.Items) != 0 {
			t.Errorf("expected empty draw, got %+v", output)
		}
	})

	t.Run("negative count", func(t *testing.T) {
		if _, err := runCLI(t, e, "draw", "--count=-1"); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

// TestCLIFavorites tests favorite toggle and list.
func TestCLIFavorites(t *testing.T) {
	e, _ := setupTestEnv(t)

	var toggled ops.ToggleOutput
	mustRun(t, e, &toggled, "favorite", "toggle", "Walk", "in", "a", "circle")
	if !toggled.Favorite || !toggled.InCatalog || !toggled.Changed {
		t.Errorf("unexpected toggle output: %+v", toggled)
	}

	mustRun(t, e, &toggled, "favorite", "toggle", "Spin slowly")

	var list ops.CollectionOutput
	mustRun(t, e, &list, "favorite", "list")
	expected := []string{"Spin slowly", "Walk in a circle"}
	if diff := cmp.Diff(expected, texts(list.Items)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	mustRun(t, e, &toggled, "favorite", "toggle", "Spin slowly")
	if toggled.Favorite {
		t.Error("expected second toggle to unfavorite")
	}
}

// TestCLIHidden tests hide toggle, hide list and the hidden flag in prompts.
func TestCLIHidden(t *testing.T) {
	e, _ := setupTestEnv(t)

	var toggled ops.ToggleOutput
	mustRun(t, e, &toggled, "hide", "toggle", "Spin slowly")
	if !toggled.Hidden {
		t.Fatalf("expected hidden=true, got %+v", toggled)
	}

	var list ops.CollectionOutput
	mustRun(t, e, &list, "hide", "list")
	if list.Count != 1 || list.Items[0].Text != "Spin slowly" {
		t.Errorf("unexpected hidden list: %+v", list)
	}

	var visible ops.ListPromptsOutput
	mustRun(t, e, &visible, "prompts", "--include-types=pole")
	if diff := cmp.Diff([]string{"Only use your left hand"}, texts(visible.Items)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	var all ops.ListPromptsOutput
	mustRun(t, e, &all, "prompts", "--include-types=pole", "--include-hidden")
	if len(all.Items) != 2 || !all.Items[0].Hidden {
		t.Errorf("expected hidden prompt flagged, got %+v", all.Items)
	}
}

// TestCLILists tests the lists subcommands end to end.
func TestCLILists(t *testing.T) {
	e, _ := setupTestEnv(t)

	var mutation ops.ListMutationOutput
	mustRun(t, e, &mutation, "lists", "create", "warm up")
	if !mutation.Changed || !mutation.Exists || mutation.Count != 0 {
		t.Errorf("unexpected create output: %+v", mutation)
	}

	mustRun(t, e, &mutation, "lists", "add", "warm up", "Walk in a circle")
	mustRun(t, e, &mutation, "lists", "add", "warm up", "Spin slowly")
	mustRun(t, e, &mutation, "lists", "add", "warm up", "Spin slowly")
	if mutation.Changed || mutation.Count != 2 {
		t.Errorf("duplicate add should be a no-op, got %+v", mutation)
	}

	var shown ops.ShowListOutput
	mustRun(t, e, &shown, "lists", "show", "warm up")
	expected := []string{"Walk in a circle", "Spin slowly"}
	if diff := cmp.Diff(expected, texts(shown.Items)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// The list drives prompt filtering in list order.
	var filtered ops.ListPromptsOutput
	mustRun(t, e, &filtered, "prompts", "--lists=warm up")
	if diff := cmp.Diff(expected, texts(filtered.Items)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	mustRun(t, e, &mutation, "lists", "remove", "warm up", "Walk in a circle")
	if !mutation.Changed || mutation.Count != 1 {
		t.Errorf("unexpected remove output: %+v", mutation)
	}

	var all ops.ListsOutput
	mustRun(t, e, &all, "lists", "show")
	if len(all.Lists) != 1 || all.Lists[0].Name != "warm up" {
		t.Errorf("unexpected lists: %+v", all.Lists)
	}

	mustRun(t, e, &mutation, "lists", "delete", "warm up")
	if !mutation.Changed || mutation.Exists {
		t.Errorf("unexpected delete output: %+v", mutation)
	}

	if _, err := runCLI(t, e, "lists", "show", "warm up"); err == nil {
		t.Error("expected error showing a deleted list")
	}
}

// TestCLICategories tests categories get and set.
func TestCLICategories(t *testing.T) {
	e, _ := setupTestEnv(t)

	var output ops.CategoriesOutput
	mustRun(t, e, &output, "categories", "get")
	if len(output.Categories) != 0 {
		t.Errorf("expected no categories, got %v", output.Categories)
	}

	mustRun(t, e, &output, "categories", "set", "pole, floor", "heels")
	expected := []string{"pole", "floor", "heels"}
	if diff := cmp.Diff(expected, output.Categories); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	mustRun(t, e, &output, "categories", "get")
	if diff := cmp.Diff(expected, output.Categories); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// TestCLIPersistence tests that collections survive a reopen of the database.
func TestCLIPersistence(t *testing.T) {
	dir := t.TempDir()

	first, database := openTestEnv(t, dir)
	if _, err := runCLI(t, first, "favorite", "toggle", "Roll to the floor"); err != nil {
		t.Fatalf("favorite failed: %v", err)
	}
	if _, err := runCLI(t, first, "lists", "add", "cooldown", "Spin slowly"); err != nil {
		t.Fatalf("lists add failed: %v", err)
	}
	if err := first.store.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	database.Close()

	second, database := openTestEnv(t, dir)
	defer database.Close()

	var favorites ops.CollectionOutput
	mustRun(t, second, &favorites, "favorite", "list")
	if diff := cmp.Diff([]string{"Roll to the floor"}, texts(favorites.Items)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	var shown ops.ShowListOutput
	mustRun(t, second, &shown, "lists", "show", "cooldown")
	if shown.Count != 1 {
		t.Errorf("list not restored: %+v", shown)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	e, _ := setupTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "blank favorite text", args: []string{"favorite", "toggle", "  "}},
		{name: "missing list name", args: []string{"lists", "create"}},
		{name: "blank list name", args: []string{"lists", "delete", " "}},
		{name: "missing list", args: []string{"lists", "show", "nonexistent"}},
		{name: "blank list entry", args: []string{"lists", "add", "warm up", " "}},
		{name: "invalid port", args: []string{"serve", "--port=0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// cli.Exit writes to stderr, so just verify the error is returned
			if _, err := runCLI(t, e, tt.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	t.Run("error carries code", func(t *testing.T) {
		_, err := runCLI(t, e, "lists", "show", "nonexistent")
		if err == nil || !strings.Contains(err.Error(), "[NOT_FOUND]") {
			t.Errorf("expected [NOT_FOUND] error, got %v", err)
		}
	})
}

// TestCLIVerbose tests that --verbose raises the log level.
func TestCLIVerbose(t *testing.T) {
	e, _ := setupTestEnv(t)
	e.level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	if _, err := runCLI(t, e, "--verbose", "types"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if e.level.Level() != zapcore.DebugLevel {
		t.Errorf("expected debug level, got %s", e.level.Level())
	}
}

// TestNewLogger tests log level parsing.
func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "default", level: "", want: zapcore.InfoLevel},
		{name: "debug", level: "debug", want: zapcore.DebugLevel},
		{name: "warn", level: "warn", want: zapcore.WarnLevel},
		{name: "invalid", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, level, err := newLogger(tt.level)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if level.Level() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, level.Level())
			}
			if logger == nil {
				t.Error("expected logger")
			}
		})
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"spark"}, expected: false},
		{name: "prompts command", args: []string{"spark", "prompts"}, expected: true},
		{name: "deck command", args: []string{"spark", "deck"}, expected: true},
		{name: "serve command", args: []string{"spark", "serve"}, expected: true},
		{name: "help flag", args: []string{"spark", "--help"}, expected: true},
		{name: "version flag", args: []string{"spark", "--version"}, expected: true},
		{name: "short help flag", args: []string{"spark", "-h"}, expected: true},
		{name: "short version flag", args: []string{"spark", "-v"}, expected: true},
		{name: "verbose before command", args: []string{"spark", "--verbose", "lists"}, expected: true},
		{name: "verbose alone defaults to MCP", args: []string{"spark", "--verbose"}, expected: false},
		{name: "unknown arg defaults to MCP", args: []string{"spark", "--unknown"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save and restore os.Args
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isCLIMode()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"spark"}, expected: false},
		{name: "help flag", args: []string{"spark", "--help"}, expected: true},
		{name: "short help flag", args: []string{"spark", "-h"}, expected: true},
		{name: "version flag", args: []string{"spark", "--version"}, expected: true},
		{name: "short version flag", args: []string{"spark", "-v"}, expected: true},
		{name: "help subcommand", args: []string{"spark", "help"}, expected: true},
		{name: "draw command is not help", args: []string{"spark", "draw"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isHelpOrVersion()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestHelpWithoutEnv tests that help output works before any database exists.
func TestHelpWithoutEnv(t *testing.T) {
	out, err := runCLI(t, nil, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, cmd := range []string{"prompts", "draw", "deck", "favorite", "hide", "lists", "categories", "serve"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("help output missing %q", cmd)
		}
	}
}

// TestTextFromStdin tests that toggle reads the prompt text from a pipe.
func TestTextFromStdin(t *testing.T) {
	e, _ := setupTestEnv(t)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	go func() {
		_, _ = stdinW.WriteString("Spin slowly\n")
		stdinW.Close()
	}()

	oldStdin := os.Stdin
	os.Stdin = stdinR
	defer func() { os.Stdin = oldStdin }()

	var toggled ops.ToggleOutput
	mustRun(t, e, &toggled, "favorite", "toggle")
	if toggled.Text != "Spin slowly" || !toggled.Favorite {
		t.Errorf("unexpected toggle output: %+v", toggled)
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		content := "small content"
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}

		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()

		oldStdin := os.Stdin
		os.Stdin = r
		defer func() { os.Stdin = oldStdin }()

		result, err := readStdin(1000)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != content {
			t.Errorf("expected %q, got %q", content, result)
		}
	})

	t.Run("exceeds limit", func(t *testing.T) {
		content := strings.Repeat("x", 100)
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}

		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()

		oldStdin := os.Stdin
		os.Stdin = r
		defer func() { os.Stdin = oldStdin }()

		// Limit is 50 bytes, content is 100
		_, err = readStdin(50)
		if err == nil {
			t.Error("expected error for content exceeding limit, got nil")
		}
	})
}
