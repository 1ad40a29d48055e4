package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/deck"
	"github.com/sparkcards/spark/internal/errors"
	"github.com/sparkcards/spark/internal/filter"
	"github.com/sparkcards/spark/internal/ops"
	"github.com/sparkcards/spark/internal/prompt"
	"github.com/sparkcards/spark/internal/tui"
	"github.com/sparkcards/spark/internal/web"
)

// maxStdinBytes bounds prompt text read from a pipe.
const maxStdinBytes = 64 * 1024

// newCLIApp creates the CLI application with all commands.
// e may be nil when only help or version output is needed.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "spark",
		Usage:   "Shuffled movement prompts",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Log at debug level"},
		},
		Before: func(c *cli.Context) error {
			if e != nil && c.Bool("verbose") {
				e.level.SetLevel(zap.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			promptsCmd(e),
			typesCmd(e),
			tagsCmd(e),
			drawCmd(e),
			deckCmd(e),
			favoriteCmd(e),
			hideCmd(e),
			listsCmd(e),
			categoriesCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// selectionFlags are the filter flags shared by prompts, draw and deck.
func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "include-types", Aliases: []string{"t"}, Usage: "Comma-separated types to include"},
		&cli.StringFlag{Name: "exclude-types", Usage: "Comma-separated types to exclude"},
		&cli.StringFlag{Name: "include-tags", Aliases: []string{"g"}, Usage: "Comma-separated tags to include"},
		&cli.StringFlag{Name: "exclude-tags", Usage: "Comma-separated tags to exclude"},
		&cli.StringFlag{Name: "lists", Aliases: []string{"l"}, Usage: "Comma-separated lists to draw from"},
	}
}

// selectionFromFlags builds a selection with the same rules as filter links.
func selectionFromFlags(c *cli.Context) filter.Selection {
	v := url.Values{}
	add := func(param, flag string) {
		if s := c.String(flag); s != "" {
			v.Set(param, s)
		}
	}
	add(filter.ParamIncludeTypes, "include-types")
	add(filter.ParamExcludeTypes, "exclude-types")
	add(filter.ParamIncludeTags, "include-tags")
	add(filter.ParamExcludeTags, "exclude-tags")
	add(filter.ParamIncludeLists, "lists")
	return filter.ParseParams(v)
}

// promptsCmd creates the prompts command.
func promptsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "prompts",
		Usage: "List prompts matching the filters in catalog order",
		Flags: append(selectionFlags(),
			&cli.BoolFlag{Name: "include-hidden", Usage: "Include hidden prompts (flagged)"},
			&cli.IntFlag{Name: "limit", Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
		),
		Action: func(c *cli.Context) error {
			output, err := ops.ListPrompts(e.cat, e.store, ops.ListPromptsInput{
				Selection:     selectionFromFlags(c),
				IncludeHidden: c.Bool("include-hidden"),
				Limit:         c.Int("limit"),
				Offset:        c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// typesCmd creates the types command.
func typesCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "types",
		Usage: "List every prompt type",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string][]string{"types": e.cat.Types()})
		},
	}
}

// tagsCmd creates the tags command.
func tagsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List every prompt tag",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string][]string{"tags": e.cat.Tags()})
		},
	}
}

// drawCmd creates the draw command.
func drawCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "draw",
		Usage: "Draw random prompts from a fresh shuffle",
		Flags: append(selectionFlags(),
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1, Usage: "Number of prompts"},
		),
		Action: func(c *cli.Context) error {
			if c.Int("count") < 0 {
				return outputError(errors.NewInvalidRequest("count must be non-negative"))
			}
			output, err := ops.Draw(e.cat, e.store, deck.NewSource(e.cfg.ShuffleSeed), ops.DrawInput{
				Selection: selectionFromFlags(c),
				Count:     c.Int("count"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deckCmd creates the deck command (terminal browser).
func deckCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "deck",
		Usage: "Browse the shuffled deck in the terminal",
		Flags: selectionFlags(),
		Action: func(c *cli.Context) error {
			view := e.newView(e.cfg.AdvanceDelay())
			defer view.Close()
			if sel := selectionFromFlags(c); !sel.IsEmpty() {
				view.SetSelection(sel)
			}
			if err := tui.Run(e.cat, e.store, view, e.logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// favoriteCmd creates the favorite command.
func favoriteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "favorite",
		Usage: "Manage favorite prompts",
		Subcommands: []*cli.Command{
			toggleCmd(e, "Toggle a prompt's favorite flag (text as args or stdin)", ops.ToggleFavorite),
			{
				Name:  "list",
				Usage: "List favorites in catalog order",
				Action: func(c *cli.Context) error {
					return outputJSON(ops.Favorites(e.cat, e.store))
				},
			},
		},
	}
}

// hideCmd creates the hide command.
func hideCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "hide",
		Usage: "Manage hidden prompts",
		Subcommands: []*cli.Command{
			toggleCmd(e, "Toggle a prompt's hidden flag (text as args or stdin)", ops.ToggleHidden),
			{
				Name:  "list",
				Usage: "List hidden prompts",
				Action: func(c *cli.Context) error {
					return outputJSON(ops.Hidden(e.cat, e.store))
				},
			},
		},
	}
}

type toggleFunc func(*prompt.Catalog, *collections.Store, ops.ToggleInput) (*ops.ToggleOutput, error)

// toggleCmd creates a "toggle" subcommand around a flag toggle.
func toggleCmd(e *env, usage string, toggle toggleFunc) *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Usage:     usage,
		ArgsUsage: "[text]",
		Action: func(c *cli.Context) error {
			text, err := textArg(c, 0)
			if err != nil {
				return outputError(err)
			}
			output, err := toggle(e.cat, e.store, ops.ToggleInput{Text: text})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listsCmd creates the lists command.
func listsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "lists",
		Usage: "Manage custom prompt lists",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create an empty list",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					name, err := nameArg(c)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.CreateList(e.store, ops.ListNameInput{Name: name})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "add",
				Usage:     "Append a prompt to a list (creates the list if needed)",
				ArgsUsage: "<name> [text]",
				Action: func(c *cli.Context) error {
					input, err := entryArgs(c)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.AddToList(e.store, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a prompt from a list",
				ArgsUsage: "<name> [text]",
				Action: func(c *cli.Context) error {
					input, err := entryArgs(c)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.RemoveFromList(e.store, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a list",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					name, err := nameArg(c)
					if err != nil {
						return outputError(err)
					}
					output, err := ops.DeleteList(e.store, ops.ListNameInput{Name: name})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "show",
				Usage:     "Show one list, or every list when no name is given",
				ArgsUsage: "[name]",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputJSON(ops.Lists(e.store))
					}
					output, err := ops.ShowList(e.cat, e.store, ops.ListNameInput{Name: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// categoriesCmd creates the categories command.
func categoriesCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "Read or replace the saved category selection",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the saved categories",
				Action: func(c *cli.Context) error {
					return outputJSON(ops.GetCategories(e.store))
				},
			},
			{
				Name:      "set",
				Usage:     "Replace the saved categories",
				ArgsUsage: "<a,b,c>",
				Action: func(c *cli.Context) error {
					output, err := ops.SetCategories(e.store, ops.CategoriesInput{
						Categories: parseTags(strings.Join(c.Args().Slice(), ",")),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// serveCmd creates the serve command (web UI).
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the local web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8088, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			if port := c.Int("port"); port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest("port must be between 1 and 65535"))
			}

			// The web deck advances without the transition delay.
			view := e.newView(0)
			defer view.Close()

			srv, err := web.NewServer(web.Deps{
				Catalog: e.cat,
				Store:   e.store,
				View:    view,
				Logger:  e.logger,
			}, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			fmt.Fprintf(os.Stderr, "spark UI: http://%s\n", srv.Addr)

			if err := web.Run(srv, e.logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// textArg returns the prompt text from the positional args starting at
// index start, or from stdin when no such args were given.
func textArg(c *cli.Context, start int) (string, error) {
	args := c.Args().Slice()
	if len(args) > start {
		text := strings.TrimSpace(strings.Join(args[start:], " "))
		if text == "" {
			return "", errors.NewInvalidRequest("text is required")
		}
		return text, nil
	}

	if !stdinHasData() {
		return "", errors.NewInvalidRequest("text is required (as arguments or via stdin)")
	}
	text, err := readStdin(maxStdinBytes)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	if text == "" {
		return "", errors.NewInvalidRequest("text is required")
	}
	return text, nil
}

// nameArg returns the first positional argument as a list name.
func nameArg(c *cli.Context) (string, error) {
	name := strings.TrimSpace(c.Args().First())
	if name == "" {
		return "", errors.NewInvalidRequest("name is required")
	}
	return name, nil
}

// entryArgs reads "<name> [text]" arguments.
func entryArgs(c *cli.Context) (ops.ListEntryInput, error) {
	name, err := nameArg(c)
	if err != nil {
		return ops.ListEntryInput{}, err
	}
	text, err := textArg(c, 1)
	if err != nil {
		return ops.ListEntryInput{}, err
	}
	return ops.ListEntryInput{Name: name, Text: text}, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sparkErr *errors.SparkError
	if stderrors.As(err, &sparkErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sparkErr.Code, sparkErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
