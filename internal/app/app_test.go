package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/sadopc/restbench/internal/core/collection"
	"github.com/sadopc/restbench/internal/core/environment"
	"github.com/sadopc/restbench/internal/core/history"
	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/core/state"
	"github.com/sadopc/restbench/internal/protocol"
	"github.com/sadopc/restbench/internal/settings"
	"github.com/sadopc/restbench/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher records requests and answers through respond.
type fakeDispatcher struct {
	mu      sync.Mutex
	sent    []*protocol.Request
	respond func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
}

func (d *fakeDispatcher) Execute(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	d.mu.Lock()
	d.sent = append(d.sent, req)
	d.mu.Unlock()

	if d.respond == nil {
		return &protocol.Response{Status: 200}, nil
	}

	return d.respond(ctx, req)
}

type testEngine struct {
	*Engine
	dispatcher *fakeDispatcher
	settings   *settings.Store
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	logger := slogutil.NewDiscardLogger()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "app.db"), logger)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, s.Close)

	set := settings.NewMemory()
	require.NoError(t, set.Init())

	d := &fakeDispatcher{}
	e := New(&Config{
		Logger:       logger,
		Dispatcher:   d,
		History:      history.NewManager(&history.Config{Logger: logger, Store: s, Settings: set}),
		Collections:  collection.NewManager(&collection.Config{Logger: logger, Store: s}),
		Environments: environment.NewRegistry(&environment.Config{Logger: logger, Store: s, Settings: set}),
		Settings:     set,
		Drafts:       state.NewDrafts(set),
		Timeout:      time.Second,
	})

	return &testEngine{Engine: e, dispatcher: d, settings: set}
}

func TestEngine_SendResolvesAndRecordsTemplate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	env, err := e.environments.Create(ctx, "dev", []environment.Variable{{Key: "host", Value: "api.test"}})
	require.NoError(t, err)
	_, err = e.environments.Select(ctx, env.ID)
	require.NoError(t, err)
	require.NoError(t, e.environments.SetGlobals([]environment.Variable{{Key: "token", Value: "t0k"}}))

	tmpl := request.Request{
		Method:  request.MethodPost,
		URL:     "{{host}}/users",
		Headers: []request.Header{{Name: "Authorization", Value: "Bearer {{token}}"}},
		Body:    request.URLEncodedBody{Params: []request.Param{{Key: "who", Value: "{{token}}"}}},
	}

	res, err := e.Send(ctx, tmpl)
	require.NoError(t, err)
	require.NotNil(t, res.Entry)

	sent := e.dispatcher.sent[0]
	assert.Equal(t, "http://api.test/users", sent.URL)
	assert.Equal(t, "Bearer t0k", sent.Headers[0].Value)
	assert.Equal(t, "who=t0k", sent.Body.Data())
	assert.Equal(t, time.Second, sent.Timeout)

	assert.Equal(t, "{{host}}/users", res.Entry.URL)
	assert.Equal(t, "Authorization: Bearer {{token}}\n", res.Entry.Headers)
	assert.Equal(t, "who={{token}}", res.Entry.Data)
	assert.Equal(t, "{{host}}/users", tmpl.URL)
}

func TestEngine_SendEmptyURL(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Send(context.Background(), request.New())
	assert.ErrorIs(t, err, ErrEmptyURL)
	assert.Empty(t, e.dispatcher.sent)
}

func TestEngine_AutoSaveOff(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.settings.SetBool(settings.KeyAutoSaveRequest, false))

	res, err := e.Send(context.Background(), request.Request{Method: request.MethodGet, URL: "http://x"})
	require.NoError(t, err)
	assert.Nil(t, res.Entry)

	entries, err := e.history.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngine_TransportFailureIsRecorded(t *testing.T) {
	e := newTestEngine(t)
	e.dispatcher.respond = func(context.Context, *protocol.Request) (*protocol.Response, error) {
		return &protocol.Response{}, fmt.Errorf("%w: connection refused", protocol.ErrTransport)
	}

	res, err := e.Send(context.Background(), request.Request{Method: request.MethodGet, URL: "http://x"})
	assert.ErrorIs(t, err, protocol.ErrTransport)
	require.NotNil(t, res)
	assert.Zero(t, res.Response.Status)
	assert.NotNil(t, res.Entry)
}

func TestEngine_ProxyFromSettings(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.settings.Set(settings.KeyProxyURL, "http://proxy:3128"))

	_, err := e.Send(context.Background(), request.Request{Method: request.MethodGet, URL: "http://x"})
	require.NoError(t, err)
	assert.Empty(t, e.dispatcher.sent[0].ProxyURL)

	require.NoError(t, e.settings.SetBool(settings.KeyUseProxy, true))
	_, err = e.Send(context.Background(), request.Request{Method: request.MethodGet, URL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "http://proxy:3128", e.dispatcher.sent[1].ProxyURL)
}

func TestEngine_NewSendSupersedesPending(t *testing.T) {
	e := newTestEngine(t)

	started := make(chan struct{})
	e.dispatcher.respond = func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		if req.URL != "http://slow" {
			return &protocol.Response{Status: 200}, nil
		}

		close(started)
		<-ctx.Done()

		return &protocol.Response{}, fmt.Errorf("%w: %w", protocol.ErrTransport, ctx.Err())
	}

	slowErr := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), request.Request{Method: request.MethodGet, URL: "http://slow"})
		slowErr <- err
	}()

	<-started
	res, err := e.Send(context.Background(), request.Request{Method: request.MethodGet, URL: "http://fast"})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Response.Status)

	assert.ErrorIs(t, <-slowErr, ErrSuperseded)

	entries, err := e.history.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "http://fast", entries[0].URL)
}

func TestEngine_Cancel(t *testing.T) {
	e := newTestEngine(t)

	started := make(chan struct{})
	e.dispatcher.respond = func(ctx context.Context, _ *protocol.Request) (*protocol.Response, error) {
		close(started)
		<-ctx.Done()

		return nil, fmt.Errorf("%w: %w", protocol.ErrTransport, ctx.Err())
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), request.Request{Method: request.MethodGet, URL: "http://x"})
		errCh <- err
	}()

	<-started
	e.Cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)

	entries, err := e.history.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngine_SaveRequestAndOpenLink(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	prev := request.Request{
		Method:  request.MethodPost,
		URL:     "http://x/items",
		Headers: []request.Header{{Name: "Authorization", Value: "t"}},
	}

	saved, err := e.SaveRequest(ctx, collection.Target{NewCollection: "Items"}, prev, "", "")
	require.NoError(t, err)
	assert.Equal(t, "http://x/items", saved.Name)

	next := e.OpenLink("http://x/items?page=2", prev)
	assert.Equal(t, request.MethodGet, next.Method)
	assert.Empty(t, next.Headers)

	require.NoError(t, e.settings.SetBool(settings.KeyRetainLinkHeaders, true))
	next = e.OpenLink("http://x/items?page=2", prev)
	assert.Equal(t, prev.Headers, next.Headers)
}

func TestEngine_Drafts(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, request.New(), e.RestoreDraft())

	draft := request.Request{Method: request.MethodGet, URL: "http://x", Body: request.FormBody{}}
	require.NoError(t, e.SaveDraft(draft))
	got := e.RestoreDraft()
	assert.Equal(t, "http://x", got.URL)
	assert.Equal(t, request.MethodGet, got.Method)

	require.NoError(t, e.DiscardDraft())
	assert.Equal(t, request.New(), e.RestoreDraft())

	require.NoError(t, e.settings.Set(settings.KeyLastRequest, "{broken"))
	assert.Equal(t, request.New(), e.RestoreDraft())
}

func TestEngine_UpdateRequest(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	saved, err := e.SaveRequest(ctx, collection.Target{NewCollection: "Items"}, request.New(), "list", "")
	require.NoError(t, err)

	desc := "all items"
	tmpl := request.Request{Method: request.MethodPost, URL: "{{base}}/items", Body: request.RawBody{Text: "{}"}}
	updated, err := e.UpdateRequest(ctx, saved.ID, collection.RequestPatch{Description: &desc, Template: &tmpl})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, saved.CollectionID, updated.CollectionID)
	assert.Equal(t, "list", updated.Name)
	assert.Equal(t, desc, updated.Description)
	assert.Equal(t, request.MethodPost, updated.Method)
	assert.Equal(t, "{}", updated.Data)
	assert.Equal(t, request.ModeRaw, updated.DataMode)
}
