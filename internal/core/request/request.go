package request

import (
	"strings"
)

// Resolver renders {{name}} tokens in a template string.
type Resolver interface {
	Resolve(template string) string
}

// Request is a request template.
type Request struct {
	Method  Method
	URL     string
	Headers []Header
	// Body is nil for requests without a body.
	Body Body
}

// New returns an empty GET request with a form body, the state of a fresh
// editor.
func New() Request {
	return Request{Method: MethodGet, Body: FormBody{}}
}

// FromStored rebuilds a template from the flat form used by history entries
// and collection requests.
func FromStored(url, method, headers, data, dataMode string) (Request, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return Request{}, err
	}

	mode, err := ParseDataMode(dataMode)
	if err != nil {
		return Request{}, err
	}

	body, err := ParseBody(mode, data)
	if err != nil {
		return Request{}, err
	}

	return Request{
		Method:  m,
		URL:     url,
		Headers: UnpackHeaders(headers),
		Body:    body,
	}, nil
}

// PackedHeaders returns the header blob of r.
func (r Request) PackedHeaders() string {
	return PackHeaders(r.Headers)
}

// Data returns the stored body data, or "" when r has no body.
func (r Request) Data() string {
	if r.Body == nil {
		return ""
	}

	return r.Body.Data()
}

// DataMode returns the body data mode. Requests without a body report
// ModeParams.
func (r Request) DataMode() DataMode {
	if r.Body == nil {
		return ModeParams
	}

	return r.Body.Mode()
}

// Resolve returns a copy of r with the URL, every header value and every
// body value rendered by res. r itself is left untouched.
func (r Request) Resolve(res Resolver) Request {
	out := Request{
		Method: r.Method,
		URL:    res.Resolve(r.URL),
	}

	if r.Headers != nil {
		out.Headers = make([]Header, len(r.Headers))
		for i, h := range r.Headers {
			out.Headers[i] = Header{Name: h.Name, Value: res.Resolve(h.Value)}
		}
	}

	if r.Body != nil {
		out.Body = r.Body.resolve(res)
	}

	return out
}

// EnsureScheme prefixes rawURL with "http://" unless it already names an
// http or https scheme.
func EnsureScheme(rawURL string) string {
	lower := strings.ToLower(rawURL)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return rawURL
	}

	return "http://" + rawURL
}

// FromLink returns a fresh GET request for a link followed from a response.
// The headers of the previous request are kept only when retainHeaders is
// set.
func FromLink(link string, headers []Header, retainHeaders bool) Request {
	r := New()
	r.URL = link
	if retainHeaders && len(headers) > 0 {
		r.Headers = append([]Header(nil), headers...)
	}

	return r
}
