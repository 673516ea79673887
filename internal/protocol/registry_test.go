package protocol

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

type stubProtocol struct {
	name        string
	schemes     []string
	validateErr error
	executeResp *Response
	executeErr  error

	validateCalls int
	executeCalls  int
}

func (s *stubProtocol) Name() string { return s.name }

func (s *stubProtocol) Schemes() []string { return s.schemes }

func (s *stubProtocol) Execute(context.Context, *Request) (*Response, error) {
	s.executeCalls++
	return s.executeResp, s.executeErr
}

func (s *stubProtocol) Validate(*Request) error {
	s.validateCalls++
	return s.validateErr
}

func newStub() *stubProtocol {
	return &stubProtocol{name: "http", schemes: []string{"http", "HTTPS"}}
}

func TestRegistryRegisterGetAndSchemes(t *testing.T) {
	r := NewRegistry()
	p := newStub()
	r.Register(p)

	if got, ok := r.Get("HTTPS"); !ok || got != p {
		t.Fatalf("Get(HTTPS) = (%v, %v), want registered protocol", got, ok)
	}

	schemes := r.Schemes()
	slices.Sort(schemes)
	if !slices.Equal(schemes, []string{"http", "https"}) {
		t.Fatalf("Schemes() = %v, want [http https]", schemes)
	}
}

func TestRegistryRegisterOverridesExistingProtocol(t *testing.T) {
	r := NewRegistry()
	first := newStub()
	second := newStub()

	r.Register(first)
	r.Register(second)

	got, ok := r.Get("http")
	if !ok {
		t.Fatal("expected protocol to be present")
	}
	if got != second {
		t.Fatalf("expected second registration to overwrite first, got %T", got)
	}
}

func TestRegistryExecuteRoutesByScheme(t *testing.T) {
	r := NewRegistry()
	p := newStub()
	p.executeResp = &Response{Status: 204}
	r.Register(p)

	resp, err := r.Execute(context.Background(), &Request{Method: "GET", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Execute() returned error: %v", err)
	}
	if resp == nil || resp.Status != 204 {
		t.Fatalf("Execute() response = %#v, want status 204", resp)
	}
	if p.validateCalls != 1 || p.executeCalls != 1 {
		t.Fatalf("unexpected calls validate=%d execute=%d", p.validateCalls, p.executeCalls)
	}
}

func TestRegistryExecuteUnknownScheme(t *testing.T) {
	r := NewRegistry()
	r.Register(newStub())

	_, err := r.Execute(context.Background(), &Request{URL: "smtp://mail.example.com"})
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("Execute() error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestRegistryExecuteReturnsValidationErrors(t *testing.T) {
	r := NewRegistry()
	p := newStub()
	p.validateErr = errors.New("missing method")
	r.Register(p)

	_, err := r.Execute(context.Background(), &Request{URL: "http://example.com"})
	if err == nil || !strings.Contains(err.Error(), "validation failed: missing method") {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if p.executeCalls != 0 {
		t.Fatalf("execute should not be called when validation fails; got %d", p.executeCalls)
	}
}

func TestRegistryExecuteReturnsProtocolExecutionError(t *testing.T) {
	r := NewRegistry()
	wantErr := errors.New("network down")
	p := newStub()
	p.executeErr = wantErr
	r.Register(p)

	_, err := r.Execute(context.Background(), &Request{Method: "GET", URL: "http://example.com"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Execute() error = %v, want %v", err, wantErr)
	}
}
