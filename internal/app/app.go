// Package app ties the stores, the resolver and the dispatcher together into
// the request session used by the command line.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/sadopc/restbench/internal/core/collection"
	"github.com/sadopc/restbench/internal/core/environment"
	"github.com/sadopc/restbench/internal/core/history"
	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/core/state"
	"github.com/sadopc/restbench/internal/protocol"
	"github.com/sadopc/restbench/internal/settings"
)

const (
	// ErrEmptyURL is returned by Send for a request without a URL.
	ErrEmptyURL errors.Error = "url is required"

	// ErrSuperseded is returned by Send when a newer Send replaced it before
	// it completed.
	ErrSuperseded errors.Error = "request superseded"
)

// Config is the configuration of an Engine.
type Config struct {
	// Logger is used for debug output. Nil means discard.
	Logger *slog.Logger

	Dispatcher   protocol.Dispatcher
	History      *history.Manager
	Collections  *collection.Manager
	Environments *environment.Registry
	Settings     *settings.Store
	Drafts       *state.Drafts

	// Timeout bounds every dispatch when positive.
	Timeout time.Duration
}

// Result is the outcome of a completed Send.
type Result struct {
	// Sent is the rendered request that went out.
	Sent *protocol.Request

	// Response is nil only when the dispatcher returned none.
	Response *protocol.Response

	// Entry is the history entry recorded for the send, if any.
	Entry *history.Entry
}

// Engine runs the request session. At most one dispatch is in flight:
// starting a new one cancels the previous.
type Engine struct {
	logger       *slog.Logger
	dispatcher   protocol.Dispatcher
	history      *history.Manager
	collections  *collection.Manager
	environments *environment.Registry
	settings     *settings.Store
	drafts       *state.Drafts
	timeout      time.Duration

	// mu protects cancel and gen.
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// New returns an engine over the collaborators in c.
func New(c *Config) (e *Engine) {
	e = &Engine{
		logger:       c.Logger,
		dispatcher:   c.Dispatcher,
		history:      c.History,
		collections:  c.Collections,
		environments: c.Environments,
		settings:     c.Settings,
		drafts:       c.Drafts,
		timeout:      c.Timeout,
	}
	if e.logger == nil {
		e.logger = slogutil.NewDiscardLogger()
	}

	return e
}

// begin cancels the dispatch in flight and registers a new one.
func (e *Engine) begin(ctx context.Context) (dctx context.Context, gen uint64, cancel context.CancelFunc) {
	dctx, cancel = context.WithCancel(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = cancel
	e.gen++

	return dctx, e.gen, cancel
}

// end unregisters the dispatch gen and reports whether it was still the
// current one.
func (e *Engine) end(gen uint64) (current bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gen != gen {
		return false
	}
	e.cancel = nil

	return true
}

// Cancel aborts the dispatch in flight, if any.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Send renders tmpl with the current environment and globals, dispatches it
// and, when auto-save is on, records tmpl itself in the history. Transport
// failures are recorded too and returned together with the result. A send
// that is cancelled or superseded is not recorded.
func (e *Engine) Send(ctx context.Context, tmpl request.Request) (res *Result, err error) {
	if tmpl.URL == "" {
		return nil, ErrEmptyURL
	}

	vars, err := e.environments.Context(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading variables: %w", err)
	}

	rendered := tmpl.Resolve(vars)
	sent := &protocol.Request{
		Method:  rendered.Method,
		URL:     request.EnsureScheme(rendered.URL),
		Headers: rendered.Headers,
		Body:    rendered.Body,
		Timeout: e.timeout,
	}
	if e.settings.Bool(settings.KeyUseProxy, false) {
		sent.ProxyURL = e.settings.String(settings.KeyProxyURL, "")
	}

	if missing := environment.Unresolved(sent.URL); len(missing) > 0 {
		e.logger.DebugContext(ctx, "unresolved variables", "names", missing)
	}

	dctx, gen, cancel := e.begin(ctx)
	defer cancel()

	resp, sendErr := e.dispatcher.Execute(dctx, sent)
	current := e.end(gen)

	switch {
	case !current:
		return nil, ErrSuperseded
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case dctx.Err() != nil:
		return nil, fmt.Errorf("request cancelled: %w", dctx.Err())
	}

	res = &Result{Sent: sent, Response: resp}
	if sendErr != nil && !errors.Is(sendErr, protocol.ErrTransport) {
		// Invalid requests never reached the network.
		return res, sendErr
	}

	if e.settings.Bool(settings.KeyAutoSaveRequest, true) {
		entry, histErr := e.history.AddRequest(ctx, tmpl)
		if histErr != nil {
			return res, errors.Join(sendErr, fmt.Errorf("recording history: %w", histErr))
		}
		res.Entry = &entry
	}

	return res, sendErr
}

// SaveRequest saves tmpl to a collection.
func (e *Engine) SaveRequest(
	ctx context.Context,
	t collection.Target,
	tmpl request.Request,
	name string,
	description string,
) (collection.Request, error) {
	return e.collections.AddRequest(ctx, t, collection.RequestFields{
		Name:        name,
		Description: description,
		Template:    tmpl,
	})
}

// UpdateRequest applies p to the saved request with the given id. Setting
// p.Template re-saves the request's method, url, headers and body.
func (e *Engine) UpdateRequest(
	ctx context.Context,
	id string,
	p collection.RequestPatch,
) (collection.Request, error) {
	return e.collections.UpdateRequest(ctx, id, p)
}

// OpenLink returns the request for a link followed from a response to prev.
func (e *Engine) OpenLink(link string, prev request.Request) request.Request {
	retain := e.settings.Bool(settings.KeyRetainLinkHeaders, false)

	return request.FromLink(link, prev.Headers, retain)
}

// SaveDraft remembers tmpl as the request being edited.
func (e *Engine) SaveDraft(tmpl request.Request) error {
	return e.drafts.Save(tmpl)
}

// DiscardDraft forgets the remembered request.
func (e *Engine) DiscardDraft() error {
	return e.drafts.Discard()
}

// RestoreDraft returns the remembered request, or an empty one.
func (e *Engine) RestoreDraft() request.Request {
	r, ok, err := e.drafts.Restore()
	if err != nil {
		e.logger.Warn("restoring draft", slogutil.KeyError, err)
	}
	if !ok || err != nil {
		return request.New()
	}

	return r
}
