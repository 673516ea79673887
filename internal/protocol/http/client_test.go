package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/protocol"
)

func TestClient_GETSkipsEmptyHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		if _, ok := r.Header["X-Empty"]; ok {
			t.Error("header with empty value was sent")
		}
		if b, _ := io.ReadAll(r.Body); len(b) != 0 {
			t.Errorf("GET carried a body: %q", b)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("X-Multi", "b")
		w.Header().Add("X-Multi", "a")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	resp, err := New().Execute(context.Background(), &protocol.Request{
		Method: request.MethodGet,
		URL:    server.URL + "/test",
		Headers: []request.Header{
			{Name: "Accept", Value: "application/json"},
			{Name: "X-Empty", Value: ""},
		},
		Body: request.RawBody{Text: "ignored"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Status != 200 || resp.StatusText != "200 OK" {
		t.Errorf("status = %d %q", resp.Status, resp.StatusText)
	}
	if resp.ContentType != "application/json" {
		t.Errorf("expected application/json, got %s", resp.ContentType)
	}
	if !strings.Contains(resp.Headers, "X-Multi: b\nX-Multi: a\n") {
		t.Errorf("header blob = %q", resp.Headers)
	}
	if got := request.UnpackHeaders(resp.Headers); len(got) < 3 {
		t.Errorf("unpacked %d headers from %q", len(got), resp.Headers)
	}
	if string(resp.Body) != `{"status":"ok"}` {
		t.Errorf("body = %q", resp.Body)
	}
	if resp.Elapsed <= 0 || resp.Timing == nil {
		t.Error("timing not recorded")
	}
}

func TestClient_URLEncodedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "a+b=x%26y&c=d" {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	resp, err := New().Execute(context.Background(), &protocol.Request{
		Method: request.MethodPost,
		URL:    server.URL,
		Body: request.URLEncodedBody{Params: []request.Param{
			{Key: "a b", Value: "x&y"},
			{Key: "c", Value: "d"},
		}},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Status != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.Status)
	}
}

func TestClient_RawBodyKeepsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name":"test"}` {
			t.Errorf("body = %q", body)
		}
	}))
	defer server.Close()

	_, err := New().Execute(context.Background(), &protocol.Request{
		Method:  request.MethodPut,
		URL:     server.URL,
		Headers: []request.Header{{Name: "Content-Type", Value: "application/json"}},
		Body:    request.RawBody{Text: `{"name":"test"}`},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
}

func TestClient_MultipartBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.txt")
	if err := os.WriteFile(path, []byte("file contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if got := r.FormValue("name"); got != "ann" {
			t.Errorf("name = %q", got)
		}
		f, hdr, err := r.FormFile("doc")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "upload.txt" || string(data) != "file contents" {
			t.Errorf("file = %q %q", hdr.Filename, data)
		}
	}))
	defer server.Close()

	_, err := New().Execute(context.Background(), &protocol.Request{
		Method: request.MethodPost,
		URL:    server.URL,
		Body: request.FormBody{Params: []request.Param{
			{Key: "name", Value: "ann"},
			{Key: "doc", Value: path, File: true},
			{Key: "", Value: "dropped"},
		}},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
}

func TestClient_MissingUploadFile(t *testing.T) {
	_, err := New().Execute(context.Background(), &protocol.Request{
		Method: request.MethodPost,
		URL:    "http://127.0.0.1:1",
		Body:   request.FormBody{Params: []request.Param{{Key: "f", Value: "/does/not/exist", File: true}}},
	})
	if err == nil || errors.Is(err, protocol.ErrTransport) {
		t.Fatalf("expected a body encoding error, got %v", err)
	}
}

func TestClient_ErrorStatusIsNotTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	resp, err := New().Execute(context.Background(), &protocol.Request{Method: request.MethodGet, URL: server.URL})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.Status)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	resp, err := New().Execute(context.Background(), &protocol.Request{Method: request.MethodGet, URL: url})
	if !errors.Is(err, protocol.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if resp == nil || resp.Status != 0 {
		t.Fatalf("response = %#v, want status 0", resp)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	_, err := New().Execute(context.Background(), &protocol.Request{
		Method:  request.MethodGet,
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, protocol.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestClient_Cancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := New().Execute(ctx, &protocol.Request{Method: request.MethodGet, URL: server.URL})
	if !errors.Is(err, context.Canceled) || !errors.Is(err, protocol.ErrTransport) {
		t.Fatalf("error = %v, want cancellation", err)
	}
}

func TestClient_Validate(t *testing.T) {
	c := New()
	for _, req := range []*protocol.Request{
		{Method: request.MethodGet},
		{URL: "http://example.com"},
		{Method: request.MethodGet, URL: "http://"},
		{Method: request.MethodGet, URL: "http://[::1"},
	} {
		if err := c.Validate(req); err == nil {
			t.Errorf("Validate(%#v) = nil, want error", req)
		}
	}
}
