package main

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sadopc/restbench/internal/core/history"
)

const historyUsage = "history [list|search <text>|suggest <text>|show [-curl] <id>|delete <id>|clear]"

func historyCmd(ctx context.Context, rt *runtime, args []string) error {
	action, rest := subcommand(args, "list")

	fs := newFlagSet("history", historyUsage)
	limit := fs.Int("limit", 10, "Maximum number of suggestions")
	curl := fs.Bool("curl", false, "Show the entry as a curl command")
	if err := parseFlags(fs, rest); err != nil {
		return err
	}
	rest = fs.Args()

	switch action {
	case "list":
		entries, err := rt.history.List(ctx)
		if err != nil {
			return err
		}
		printEntries(rt, entries)
	case "search":
		if err := needArgs(rest, 1, "search text"); err != nil {
			return err
		}
		entries, err := rt.history.Search(ctx, rest[0])
		if err != nil {
			return err
		}
		printEntries(rt, entries)
	case "suggest":
		query := ""
		if len(rest) > 0 {
			query = rest[0]
		}
		urls, err := rt.history.Suggest(ctx, query, *limit)
		if err != nil {
			return err
		}
		for _, u := range urls {
			rt.printf("%s\n", u)
		}
	case "show":
		if err := needArgs(rest, 1, "an entry id"); err != nil {
			return err
		}
		e, err := rt.history.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		if *curl {
			r, reqErr := e.Request()
			if reqErr != nil {
				return reqErr
			}
			rt.printf("%s\n", r.Curl())

			return nil
		}
		rt.printf("%s %s\n%s", e.Method, e.URL, e.Headers)
		if e.Data != "" {
			rt.printf("\n[%s] %s\n", e.DataMode, e.Data)
		}
	case "delete":
		if err := needArgs(rest, 1, "an entry id"); err != nil {
			return err
		}

		return rt.history.Delete(ctx, rest[0])
	case "clear":
		return rt.history.Clear(ctx)
	default:
		return usageErrorf("unknown history action %q", action)
	}

	return nil
}

func printEntries(rt *runtime, entries []history.Entry) {
	if len(entries) == 0 {
		rt.printf("No history.\n")

		return
	}

	for _, e := range entries {
		rt.printf("%s  %-7s %s  (%s)\n",
			e.ID, e.Method, e.URL, humanize.Time(time.UnixMilli(e.Timestamp)))
	}
}
