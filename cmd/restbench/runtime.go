package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/sadopc/restbench/internal/app"
	"github.com/sadopc/restbench/internal/config"
	"github.com/sadopc/restbench/internal/core/collection"
	"github.com/sadopc/restbench/internal/core/environment"
	"github.com/sadopc/restbench/internal/core/history"
	"github.com/sadopc/restbench/internal/core/state"
	"github.com/sadopc/restbench/internal/protocol"
	httpproto "github.com/sadopc/restbench/internal/protocol/http"
	"github.com/sadopc/restbench/internal/settings"
	"github.com/sadopc/restbench/internal/store"
)

// errUsage marks errors caused by bad command-line arguments.
const errUsage errors.Error = "usage"

// usageErrorf returns an error wrapping errUsage.
func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// runtime is everything a subcommand works with.
type runtime struct {
	cfg          config.Config
	logger       *slog.Logger
	out          io.Writer
	store        *store.Store
	settings     *settings.Store
	history      *history.Manager
	collections  *collection.Manager
	environments *environment.Registry
	engine       *app.Engine
}

func openRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer) (rt *runtime, err error) {
	set, err := settings.Open(cfg.SettingsFile())
	if err != nil {
		return nil, err
	}
	if err = set.Init(); err != nil {
		return nil, err
	}

	tlsConf, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("tls: %w", err)
	}

	s, err := store.Open(ctx, cfg.DatabasePath(), logger)
	if err != nil {
		return nil, err
	}

	client := httpproto.New()
	client.SetTimeout(cfg.DefaultTimeout)
	client.SetTLSConfig(tlsConf)
	if set.Bool(settings.KeyUseProxy, false) {
		client.SetProxy(set.String(settings.KeyProxyURL, ""), cfg.NoProxy)
	}

	dispatchers := protocol.NewRegistry()
	dispatchers.Register(client)

	rt = &runtime{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		store:    s,
		settings: set,
		history: history.NewManager(&history.Config{
			Logger:   logger,
			Store:    s,
			Settings: set,
		}),
		collections: collection.NewManager(&collection.Config{
			Logger: logger,
			Store:  s,
		}),
		environments: environment.NewRegistry(&environment.Config{
			Logger:   logger,
			Store:    s,
			Settings: set,
		}),
	}

	rt.engine = app.New(&app.Config{
		Logger:       logger,
		Dispatcher:   dispatchers,
		History:      rt.history,
		Collections:  rt.collections,
		Environments: rt.environments,
		Settings:     set,
		Drafts:       state.NewDrafts(set),
		Timeout:      cfg.DefaultTimeout,
	})

	return rt, nil
}

// Close releases the store.
func (rt *runtime) Close() error {
	return rt.store.Close()
}

// printf writes to the command output.
func (rt *runtime) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(rt.out, format, args...)
}
