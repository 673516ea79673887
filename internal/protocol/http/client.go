// Package http is the net/http implementation of protocol.Protocol.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/protocol"
	"golang.org/x/net/proxy"
)

// DefaultTimeout is the request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// maxRedirects is the number of redirects followed before giving up.
const maxRedirects = 10

// ProxyConfig holds proxy settings.
type ProxyConfig struct {
	URL     string // http://, https://, or socks5:// proxy URL
	NoProxy string // comma-separated list of hosts to bypass proxy
}

// Client implements the HTTP protocol.
type Client struct {
	timeout   time.Duration
	proxyConf *ProxyConfig
	tlsConf   *tls.Config
}

// type check
var _ protocol.Protocol = (*Client)(nil)

// New creates a new HTTP client.
func New() *Client {
	return &Client{timeout: DefaultTimeout}
}

// SetTimeout sets the default request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	c.timeout = d
}

// SetProxy configures proxy settings for the client.
func (c *Client) SetProxy(proxyURL, noProxy string) {
	if proxyURL == "" {
		c.proxyConf = nil
		return
	}
	c.proxyConf = &ProxyConfig{URL: proxyURL, NoProxy: noProxy}
}

// SetTLSConfig sets the TLS configuration of every request. Nil means the
// system defaults.
func (c *Client) SetTLSConfig(conf *tls.Config) {
	c.tlsConf = conf
}

// Name implements the protocol.Protocol interface for *Client.
func (c *Client) Name() string { return "http" }

// Schemes implements the protocol.Protocol interface for *Client.
func (c *Client) Schemes() []string { return []string{"http", "https"} }

// Validate implements the protocol.Protocol interface for *Client.
func (c *Client) Validate(req *protocol.Request) error {
	if req.URL == "" {
		return fmt.Errorf("URL is required")
	}
	if req.Method == "" {
		return fmt.Errorf("method is required")
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL: no host in %q", req.URL)
	}
	return nil
}

// Execute implements the protocol.Protocol interface for *Client.
func (c *Client) Execute(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if err := c.Validate(req); err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Headers without a value are not sent.
	for _, h := range req.Headers {
		if h.Name == "" || h.Value == "" {
			continue
		}
		httpReq.Header.Add(h.Name, h.Value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	transport, err := c.buildTransport(req.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("configuring transport: %w", err)
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	var dnsStart, connStart, tlsStart, gotConn, gotFirstByte time.Time
	timing := &protocol.Timing{}

	trace := &httptrace.ClientTrace{
		DNSStart: func(_ httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(_ httptrace.DNSDoneInfo) {
			timing.DNSLookup = time.Since(dnsStart)
		},
		ConnectStart: func(_, _ string) {
			connStart = time.Now()
		},
		ConnectDone: func(_, _ string, _ error) {
			timing.TCPConnect = time.Since(connStart)
		},
		TLSHandshakeStart: func() {
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, _ error) {
			timing.TLSHandshake = time.Since(tlsStart)
		},
		GotConn: func(_ httptrace.GotConnInfo) {
			gotConn = time.Now()
		},
		GotFirstResponseByte: func() {
			gotFirstByte = time.Now()
		},
	}

	httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), trace))

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return &protocol.Response{Elapsed: time.Since(start)}, fmt.Errorf("%w: %w", protocol.ErrTransport, err)
	}

	transferStart := time.Now()
	respBody, err := io.ReadAll(resp.Body)
	err = errors.WithDeferred(err, resp.Body.Close())
	timing.Transfer = time.Since(transferStart)
	elapsed := time.Since(start)
	if err != nil {
		return &protocol.Response{Elapsed: elapsed}, fmt.Errorf("%w: reading response: %w", protocol.ErrTransport, err)
	}

	if !gotConn.IsZero() && !gotFirstByte.IsZero() {
		timing.TTFB = gotFirstByte.Sub(gotConn)
	}

	return &protocol.Response{
		Status:      resp.StatusCode,
		StatusText:  resp.Status,
		Headers:     packResponseHeaders(resp.Header),
		Body:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
		Proto:       resp.Proto,
		Elapsed:     elapsed,
		Timing:      timing,
	}, nil
}

// encodeBody returns the wire body of req and the content type it implies.
// Methods without a body yield a nil reader.
func encodeBody(req *protocol.Request) (body io.Reader, contentType string, err error) {
	if !req.Method.HasBody() || req.Body == nil {
		return nil, "", nil
	}

	switch b := req.Body.(type) {
	case request.RawBody:
		return strings.NewReader(b.Text), "", nil
	case request.URLEncodedBody:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	case request.FormBody:
		return encodeMultipart(b)
	default:
		return nil, "", fmt.Errorf("body of type %T: %w", req.Body, request.ErrBadDataMode)
	}
}

func encodeMultipart(b request.FormBody) (body io.Reader, contentType string, err error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, p := range b.Params {
		if p.Key == "" {
			continue
		}

		if !p.File {
			if err = w.WriteField(p.Key, p.Value); err != nil {
				return nil, "", err
			}

			continue
		}

		if err = writeFilePart(w, p); err != nil {
			return nil, "", err
		}
	}

	if err = w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, p request.Param) (err error) {
	f, err := os.Open(p.Value)
	if err != nil {
		return fmt.Errorf("opening %s: %w", p.Key, err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	part, err := w.CreateFormFile(p.Key, filepath.Base(p.Value))
	if err != nil {
		return err
	}

	_, err = io.Copy(part, f)

	return err
}

// packResponseHeaders renders h as a header blob with names sorted.
func packResponseHeaders(h http.Header) string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)

	var headers []request.Header
	for _, name := range names {
		for _, v := range h[name] {
			headers = append(headers, request.Header{Name: name, Value: v})
		}
	}

	return request.PackHeaders(headers)
}

// buildTransport creates an http.Transport configured with proxy settings.
// perRequestProxy overrides the client-level proxy URL if non-empty, the
// client-level bypass list still applies.
func (c *Client) buildTransport(perRequestProxy string) (*http.Transport, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if c.tlsConf != nil {
		transport.TLSClientConfig = c.tlsConf.Clone()
	}

	proxyURL := perRequestProxy
	noProxy := ""
	if c.proxyConf != nil {
		if proxyURL == "" {
			proxyURL = c.proxyConf.URL
		}
		noProxy = c.proxyConf.NoProxy
	}

	if proxyURL == "" {
		return transport, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{
				User:     parsed.User.Username(),
				Password: password,
			}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	case "http", "https":
		if noProxy != "" {
			noProxyHosts := parseNoProxy(noProxy)
			transport.Proxy = func(r *http.Request) (*url.URL, error) {
				if shouldBypassProxy(r.URL.Hostname(), noProxyHosts) {
					return nil, nil
				}
				return parsed, nil
			}
		} else {
			transport.Proxy = http.ProxyURL(parsed)
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsed.Scheme)
	}

	return transport, nil
}

// parseNoProxy splits a comma-separated no-proxy string into trimmed host entries.
func parseNoProxy(noProxy string) []string {
	parts := strings.Split(noProxy, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			hosts = append(hosts, strings.ToLower(p))
		}
	}
	return hosts
}

// shouldBypassProxy checks whether a host should bypass the proxy. Entries
// starting with a dot match any subdomain.
func shouldBypassProxy(host string, noProxyHosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range noProxyHosts {
		if h == host {
			return true
		}
		if strings.HasPrefix(h, ".") && strings.HasSuffix(host, h) {
			return true
		}
	}
	return false
}
