package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/sadopc/restbench/internal/config"
	"github.com/sadopc/restbench/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) (rt *runtime, out *bytes.Buffer) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	out = &bytes.Buffer{}
	rt, err := openRuntime(context.Background(), cfg, slogutil.NewDiscardLogger(), out)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, rt.Close)

	return rt, out
}

// echoServer answers every request with its method, path and body.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
			"body":   string(body),
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestSendRecordsTemplate(t *testing.T) {
	rt, out := newTestRuntime(t)
	srv := echoServer(t)
	ctx := context.Background()

	_, err := rt.environments.Create(ctx, "local", nil)
	require.NoError(t, err)
	envs, err := rt.environments.List(ctx)
	require.NoError(t, err)
	require.Len(t, envs, 1)

	require.NoError(t, envCmd(ctx, rt, []string{"set", envs[0].ID, "base=" + srv.URL}))
	require.NoError(t, envCmd(ctx, rt, []string{"select", envs[0].ID}))

	out.Reset()
	err = sendCmd(ctx, rt, []string{"-X", "post", "-d", `{"a":1}`, "{{base}}/items"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "200 OK")
	assert.Contains(t, out.String(), `"path": "/items"`)

	entries, err := rt.history.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "{{base}}/items", entries[0].URL)
	assert.Equal(t, `{"a":1}`, entries[0].Data)

	out.Reset()
	require.NoError(t, sendCmd(ctx, rt, []string{"-history", entries[0].ID}))
	assert.Contains(t, out.String(), `"method": "POST"`)
}

func TestSendSavesToNewCollection(t *testing.T) {
	rt, out := newTestRuntime(t)
	srv := echoServer(t)
	ctx := context.Background()

	err := sendCmd(ctx, rt, []string{"-new-collection", "api", "-name", "ping", srv.URL + "/ping"})
	require.NoError(t, err)

	cols, err := rt.collections.List(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "api", cols[0].Name)

	reqs, err := rt.collections.Requests(ctx, cols[0].ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "ping", reqs[0].Name)
	assert.Contains(t, out.String(), "saved as "+reqs[0].ID)

	out.Reset()
	require.NoError(t, sendCmd(ctx, rt, []string{"-request", reqs[0].ID, "-v"}))
	assert.Contains(t, out.String(), "Content-Type: application/json")
}

func TestSendUsageErrors(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx := context.Background()

	assert.ErrorIs(t, sendCmd(ctx, rt, nil), errUsage)
	assert.ErrorIs(t, sendCmd(ctx, rt, []string{"-X", "BREW", "http://x"}), errUsage)
	assert.ErrorIs(t, sendCmd(ctx, rt, []string{"-nope"}), errUsage)
	assert.ErrorIs(t, sendCmd(ctx, rt, []string{"a", "b"}), errUsage)
}

func TestSendDraft(t *testing.T) {
	rt, out := newTestRuntime(t)
	srv := echoServer(t)
	ctx := context.Background()

	require.NoError(t, sendCmd(ctx, rt, []string{"-X", "PUT", srv.URL + "/draft"}))

	out.Reset()
	require.NoError(t, sendCmd(ctx, rt, []string{"-draft"}))
	assert.Contains(t, out.String(), `"method": "PUT"`)
	assert.Contains(t, out.String(), `"path": "/draft"`)
}

func TestHistoryCmd(t *testing.T) {
	rt, out := newTestRuntime(t)
	srv := echoServer(t)
	ctx := context.Background()

	require.NoError(t, sendCmd(ctx, rt, []string{srv.URL + "/users"}))
	require.NoError(t, sendCmd(ctx, rt, []string{srv.URL + "/orders"}))

	out.Reset()
	require.NoError(t, historyCmd(ctx, rt, []string{"search", "USERS"}))
	assert.Contains(t, out.String(), "/users")
	assert.NotContains(t, out.String(), "/orders")

	out.Reset()
	require.NoError(t, historyCmd(ctx, rt, []string{"suggest", "-limit", "1"}))
	assert.Equal(t, srv.URL+"/orders\n", out.String())

	require.NoError(t, historyCmd(ctx, rt, []string{"clear"}))
	out.Reset()
	require.NoError(t, historyCmd(ctx, rt, nil))
	assert.Equal(t, "No history.\n", out.String())

	assert.ErrorIs(t, historyCmd(ctx, rt, []string{"show"}), errUsage)
	assert.ErrorIs(t, historyCmd(ctx, rt, []string{"rewind"}), errUsage)
}

func TestCollectionExportImport(t *testing.T) {
	rt, out := newTestRuntime(t)
	srv := echoServer(t)
	ctx := context.Background()

	require.NoError(t, collectionCmd(ctx, rt, []string{"create", "api"}))
	id := strings.TrimSpace(out.String())

	require.NoError(t, sendCmd(ctx, rt, []string{"-save", id, "-name", "down", srv.URL}))

	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, collectionCmd(ctx, rt, []string{"export", "-format", "yaml", "-o", path, id}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: down")

	out.Reset()
	require.NoError(t, collectionCmd(ctx, rt, []string{"import", path}))
	assert.Contains(t, out.String(), "imported api as ")

	cols, err := rt.collections.List(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 2)

	require.NoError(t, collectionCmd(ctx, rt, []string{"delete", id}))
	reqs, err := rt.collections.Requests(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, reqs)

	assert.ErrorIs(t, collectionCmd(ctx, rt, []string{"export", "-format", "xml", cols[1].ID}), errUsage)
}

func TestEnvAndGlobals(t *testing.T) {
	rt, out := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, envCmd(ctx, rt, []string{"create", "dev", "host=localhost", "port=8080"}))
	id := strings.TrimSpace(out.String())

	require.NoError(t, envCmd(ctx, rt, []string{"select", id}))
	out.Reset()
	require.NoError(t, envCmd(ctx, rt, []string{"list"}))
	assert.Contains(t, out.String(), "* "+id+"  dev (2 variables)")

	out.Reset()
	require.NoError(t, envCmd(ctx, rt, []string{"show"}))
	assert.Contains(t, out.String(), "port = 8080")

	require.NoError(t, envCmd(ctx, rt, []string{"delete", id}))
	out.Reset()
	require.NoError(t, envCmd(ctx, rt, []string{"show"}))
	assert.Equal(t, "No environment selected.\n", out.String())

	require.NoError(t, globalsCmd(ctx, rt, []string{"set", "token=abc"}))
	out.Reset()
	require.NoError(t, globalsCmd(ctx, rt, nil))
	assert.Equal(t, "  token = abc\n", out.String())

	require.NoError(t, globalsCmd(ctx, rt, []string{"clear"}))
	globals, err := rt.environments.Globals()
	require.NoError(t, err)
	assert.Empty(t, globals)
}

func TestSettingsCmd(t *testing.T) {
	rt, out := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, settingsCmd(ctx, rt, []string{"set", settings.KeyHistoryCount, "5"}))
	assert.Equal(t, 5, rt.settings.Int(settings.KeyHistoryCount, 0))

	assert.ErrorIs(t, settingsCmd(ctx, rt, []string{"set", settings.KeyHistoryCount, "0"}), errUsage)
	assert.ErrorIs(t, settingsCmd(ctx, rt, []string{"set", settings.KeyUseProxy, "maybe"}), errUsage)
	assert.ErrorIs(t, settingsCmd(ctx, rt, []string{"set", "theme", "dark"}), errUsage)

	out.Reset()
	require.NoError(t, settingsCmd(ctx, rt, []string{"get", settings.KeyHistoryCount}))
	assert.Equal(t, "5\n", out.String())

	out.Reset()
	require.NoError(t, settingsCmd(ctx, rt, nil))
	assert.Contains(t, out.String(), "autoSaveRequest = true\n")
}

func TestSendTransportFailureIsRecorded(t *testing.T) {
	rt, out := newTestRuntime(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	err := sendCmd(ctx, rt, []string{addr + "/gone"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errUsage)
	assert.Empty(t, out.String())

	entries, err := rt.history.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, addr+"/gone", entries[0].URL)
}

func TestShowAsCurl(t *testing.T) {
	rt, out := newTestRuntime(t)
	srv := echoServer(t)
	ctx := context.Background()

	args := []string{"-X", "POST", "-H", "X-Key: {{key}}", "-d", "hi", "-new-collection", "c", srv.URL}
	require.NoError(t, sendCmd(ctx, rt, args))

	entries, err := rt.history.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	want := "curl -X POST -H 'X-Key: {{key}}' --data-raw 'hi' '" + srv.URL + "'\n"

	out.Reset()
	require.NoError(t, historyCmd(ctx, rt, []string{"show", "-curl", entries[0].ID}))
	assert.Equal(t, want, out.String())

	cols, err := rt.collections.List(ctx)
	require.NoError(t, err)
	reqs, err := rt.collections.Requests(ctx, cols[0].ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	out.Reset()
	require.NoError(t, collectionCmd(ctx, rt, []string{"show-request", "-format", "curl", reqs[0].ID}))
	assert.Equal(t, want, out.String())
}

func TestEditAndResaveRequest(t *testing.T) {
	rt, out := newTestRuntime(t)
	srv := echoServer(t)
	ctx := context.Background()

	require.NoError(t, sendCmd(ctx, rt, []string{"-new-collection", "api", "-name", "ping", srv.URL + "/ping"}))

	cols, err := rt.collections.List(ctx)
	require.NoError(t, err)
	reqs, err := rt.collections.Requests(ctx, cols[0].ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	id := reqs[0].ID

	_, hasDraft := rt.settings.Get(settings.KeyLastRequest)
	assert.False(t, hasDraft, "saving should discard the draft")

	require.NoError(t, collectionCmd(ctx, rt, []string{"edit-request", "-description", "health check", id}))
	saved, err := rt.collections.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ping", saved.Name)
	assert.Equal(t, "health check", saved.Description)

	assert.ErrorIs(t, collectionCmd(ctx, rt, []string{"edit-request", id}), errUsage)

	out.Reset()
	args := []string{"-request", id, "-resave", "-X", "PUT", "-d", "v=1", "-name", "put ping", srv.URL + "/pong"}
	require.NoError(t, sendCmd(ctx, rt, args))
	assert.Contains(t, out.String(), `"method": "PUT"`)
	assert.Contains(t, out.String(), "updated "+id)

	saved, err = rt.collections.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, cols[0].ID, saved.CollectionID)
	assert.Equal(t, "put ping", saved.Name)
	assert.Equal(t, "health check", saved.Description)
	assert.Equal(t, srv.URL+"/pong", saved.URL)
	assert.Equal(t, "v=1", saved.Data)

	reqs, err = rt.collections.Requests(ctx, cols[0].ID)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)

	assert.ErrorIs(t, sendCmd(ctx, rt, []string{"-resave", srv.URL}), errUsage)
}
