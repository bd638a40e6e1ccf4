package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/engine"
	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(store engine.Store, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "verso",
		Usage:   "Versioned business-state store",
		Version: Version,
		Commands: []*cli.Command{
			commitCmd(store, cfg),
			currentCmd(store, cfg),
			stateCmd(store),
			atCmd(store, cfg),
			logCmd(store, cfg),
			diffCmd(store),
			rollbackCmd(store, cfg),
			historyCmd(store, cfg),
			tagCmd(store),
			statsCmd(store, cfg),
			serveCmd(store, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// resolveOwner applies the configured default owner when the flag is empty.
func resolveOwner(c *cli.Context, cfg *config.Config) string {
	owner := c.String("owner")
	if owner == "" && cfg != nil {
		owner = cfg.DefaultOwner
	}
	return owner
}

// ownerFlag is the shared owner selector.
func ownerFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "owner", Aliases: []string{"o"}, Usage: "Owner identifier (defaults to configured owner)"}
}

// commitCmd creates the commit command.
func commitCmd(store engine.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "commit",
		Usage: "Commit field updates as a new version (reads a JSON update array from stdin)",
		Flags: []cli.Flag{
			ownerFlag(),
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Commit message", Required: true},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Commit author (default: user)"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewValidation("updates must be piped via stdin as a JSON array"))
			}

			raw, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			var updates []engine.FieldUpdate
			if err := json.Unmarshal([]byte(raw), &updates); err != nil {
				return outputError(errors.NewValidation(fmt.Sprintf("invalid updates JSON: %v", err)))
			}

			output, err := engine.Commit(c.Context, store, cfg, engine.CommitInput{
				Owner:   resolveOwner(c, cfg),
				Message: c.String("message"),
				Updates: updates,
				Tags:    parseTags(c.String("tags")),
				Author:  c.String("author"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// currentCmd creates the current command.
func currentCmd(store engine.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "current",
		Usage: "Show the owner's current version and field set",
		Flags: []cli.Flag{ownerFlag()},
		Action: func(c *cli.Context) error {
			output, err := engine.Current(c.Context, store, resolveOwner(c, cfg))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// stateCmd creates the state command.
func stateCmd(store engine.Store) *cli.Command {
	return &cli.Command{
		Name:      "state",
		Usage:     "Show a version's full field set by id",
		ArgsUsage: "<version-id>",
		Action: func(c *cli.Context) error {
			output, err := engine.State(c.Context, store, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// atCmd creates the at command.
func atCmd(store engine.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "at",
		Usage: "Reconstruct the owner's state at a point in time",
		Flags: []cli.Flag{
			ownerFlag(),
			&cli.StringFlag{Name: "time", Aliases: []string{"t"}, Usage: "RFC 3339 or Unix milliseconds", Required: true},
		},
		Action: func(c *cli.Context) error {
			ts, err := engine.ParseTimestamp(c.String("time"))
			if err != nil {
				return outputError(err)
			}

			output, err := engine.StateAt(c.Context, store, resolveOwner(c, cfg), ts)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// logCmd creates the log command.
func logCmd(store engine.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "List the owner's versions, newest first",
		Flags: []cli.Flag{
			ownerFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Page size"},
			&cli.IntFlag{Name: "offset", Usage: "Page offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := engine.History(c.Context, store, cfg, engine.HistoryInput{
				Owner:  resolveOwner(c, cfg),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// diffCmd creates the diff command.
func diffCmd(store engine.Store) *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Compare two versions' field sets",
		ArgsUsage: "<from-version-id> <to-version-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "unchanged", Usage: "Include fields equal on both sides"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewValidation("diff requires exactly two version ids"))
			}

			output, err := engine.Diff(c.Context, store, engine.DiffInput{
				From:             c.Args().Get(0),
				To:               c.Args().Get(1),
				IncludeUnchanged: c.Bool("unchanged"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// rollbackCmd creates the rollback command.
func rollbackCmd(store engine.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "rollback",
		Usage:     "Author a new commit whose content equals a past version",
		ArgsUsage: "<version-id>",
		Flags: []cli.Flag{
			ownerFlag(),
			&cli.StringFlag{Name: "reason", Aliases: []string{"r"}, Usage: "Why the rollback happened"},
		},
		Action: func(c *cli.Context) error {
			output, err := engine.Rollback(c.Context, store, cfg, engine.RollbackInput{
				Owner:     resolveOwner(c, cfg),
				VersionID: c.Args().First(),
				Reason:    c.String("reason"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command (per-field change log).
func historyCmd(store engine.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List one field's value transitions, newest first",
		ArgsUsage: "<field-name>",
		Flags: []cli.Flag{
			ownerFlag(),
			&cli.StringFlag{Name: "from", Usage: "Range start (RFC 3339 or Unix milliseconds)"},
			&cli.StringFlag{Name: "to", Usage: "Range end (RFC 3339 or Unix milliseconds)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum entries"},
		},
		Action: func(c *cli.Context) error {
			var from, to int64
			var err error
			if s := c.String("from"); s != "" {
				if from, err = engine.ParseTimestamp(s); err != nil {
					return outputError(err)
				}
			}
			if s := c.String("to"); s != "" {
				if to, err = engine.ParseTimestamp(s); err != nil {
					return outputError(err)
				}
			}

			output, err := engine.FieldHistory(c.Context, store, cfg, engine.FieldHistoryInput{
				Owner:     resolveOwner(c, cfg),
				FieldName: c.Args().First(),
				From:      from,
				To:        to,
				Limit:     c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// tagCmd creates the tag command.
func tagCmd(store engine.Store) *cli.Command {
	return &cli.Command{
		Name:      "tag",
		Usage:     "Replace a version's tag set",
		ArgsUsage: "<version-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags (empty clears)", Required: true},
		},
		Action: func(c *cli.Context) error {
			output, err := engine.Tag(c.Context, store, engine.TagInput{
				VersionID: c.Args().First(),
				Tags:      parseTags(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(store engine.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Aggregate statistics over the owner's versions and changes",
		Flags: []cli.Flag{
			ownerFlag(),
			&cli.IntFlag{Name: "top-n", Usage: "How many top fields to report (default 5)"},
			&cli.IntFlag{Name: "window", Usage: "Trailing window in days (default 30)"},
		},
		Action: func(c *cli.Context) error {
			output, err := engine.Stats(c.Context, store, cfg, engine.StatsInput{
				Owner:      resolveOwner(c, cfg),
				TopN:       c.Int("top-n"),
				WindowDays: c.Int("window"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command (web dashboard).
func serveCmd(store engine.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the read-only web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 7317, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(store, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if vErr, ok := err.(*errors.VersoError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", vErr.Code, vErr.Message), 1)
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

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
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
