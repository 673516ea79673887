package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/sadopc/restbench/internal/config"
)

// Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// command runs one subcommand with its arguments.
type command func(ctx context.Context, rt *runtime, args []string) error

var commands = map[string]command{
	"send":       sendCmd,
	"history":    historyCmd,
	"collection": collectionCmd,
	"env":        envCmd,
	"globals":    globalsCmd,
	"settings":   settingsCmd,
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(osutil.ExitCodeArgumentError)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("restbench %s (%s) built %s\n", version, commit, date)
		return
	case "help", "-h", "--help":
		printHelp()
		return
	case "completion":
		os.Exit(completionCmd(os.Args[2:], os.Stdout))
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(osutil.ExitCodeArgumentError)
	}

	os.Exit(run(cmd, os.Args[2:], os.Stdout))
}

// run opens the runtime, executes cmd and returns the exit code.
func run(cmd command, args []string, out io.Writer) (code int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Load()
	logger := newLogger(cfg, os.Stderr)

	rt, err := openRuntime(ctx, cfg, logger, out)
	if err != nil {
		logger.ErrorContext(ctx, "opening data", slogutil.KeyError, err)

		return osutil.ExitCodeFailure
	}

	err = cmd(ctx, rt, args)
	err = errors.WithDeferred(err, rt.Close())
	switch {
	case err == nil:
		return osutil.ExitCodeSuccess
	case errors.Is(err, flag.ErrHelp):
		return osutil.ExitCodeSuccess
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return osutil.ExitCodeArgumentError
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return osutil.ExitCodeFailure
	}
}

func newLogger(cfg config.Config, w io.Writer) (l *slog.Logger) {
	lvl := slog.LevelInfo
	if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		lvl = slog.LevelInfo
	}

	format := slogutil.FormatDefault
	switch cfg.LogFormat {
	case "json":
		format = slogutil.FormatJSON
	case "text":
		format = slogutil.FormatText
	}

	return slogutil.New(&slogutil.Config{
		Output: w,
		Format: format,
		Level:  lvl,
	})
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `restbench - a request workbench with history, collections and environments

Usage:
  restbench <command> [args] [flags]

Commands:
  send        Send a request, rendering {{variables}} from the selected environment
  history     List, search, delete or clear sent requests
  collection  Manage collections of saved requests
  env         Manage environments and the selected environment
  globals     Show or replace the global variables
  settings    Show or change preferences
  completion  Generate shell completion scripts (bash, zsh, fish)
  version     Print version information
  help        Show this help message

Configuration is read from ~/.config/restbench/config.yaml.
Run 'restbench <command> --help' for more information about a command.
`)
}
