// Package protocol defines how a rendered request reaches the network and
// what comes back.
package protocol

import (
	"context"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/sadopc/restbench/internal/core/request"
)

const (
	// ErrTransport wraps every failure to obtain a response: DNS, connect,
	// TLS, timeouts and cancellation. HTTP error statuses are not transport
	// failures.
	ErrTransport errors.Error = "transport failure"

	// ErrUnsupportedScheme is returned for URLs no registered protocol
	// handles.
	ErrUnsupportedScheme errors.Error = "unsupported url scheme"
)

// Dispatcher sends a rendered request.
type Dispatcher interface {
	// Execute sends req and waits for the response. On a transport failure
	// the error wraps ErrTransport and the response, if not nil, has status
	// 0.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Protocol is a Dispatcher for a set of URL schemes.
type Protocol interface {
	Dispatcher

	// Name returns the protocol name used in logs.
	Name() string

	// Schemes returns the URL schemes handled, in lower case.
	Schemes() []string

	// Validate checks req before it is sent.
	Validate(req *Request) error
}

// Request is a fully resolved request ready to be sent.
type Request struct {
	Method  request.Method
	URL     string
	Headers []request.Header
	// Body is ignored for methods without a body.
	Body request.Body

	// Timeout overrides the default timeout of the protocol when positive.
	Timeout time.Duration

	// ProxyURL overrides the proxy of the protocol when not empty.
	ProxyURL string
}

// Timing breaks down where the time of a request went.
type Timing struct {
	DNSLookup    time.Duration
	TCPConnect   time.Duration
	TLSHandshake time.Duration
	TTFB         time.Duration
	Transfer     time.Duration
}

// Response is the outcome of a dispatch.
type Response struct {
	// Status is the HTTP status code, 0 on transport failure.
	Status int

	// StatusText is the full status line text, e.g. "404 Not Found".
	StatusText string

	// Headers is the raw header blob, one "Name: Value" line per value.
	Headers string

	Body        []byte
	ContentType string
	Proto       string
	Elapsed     time.Duration
	Timing      *Timing
}
