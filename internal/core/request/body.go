package request

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrBadDataMode is returned for unknown body data modes.
const ErrBadDataMode errors.Error = "unsupported data mode"

// DataMode tells how a body is encoded.
type DataMode string

// Supported data modes.
const (
	ModeParams     DataMode = "params"
	ModeURLEncoded DataMode = "urlencoded"
	ModeRaw        DataMode = "raw"
)

// ParseDataMode validates s. The empty string means ModeParams.
func ParseDataMode(s string) (DataMode, error) {
	switch m := DataMode(s); m {
	case "":
		return ModeParams, nil
	case ModeParams, ModeURLEncoded, ModeRaw:
		return m, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrBadDataMode)
	}
}

// Param is a key/value pair of a form or urlencoded body. For multipart
// bodies File marks Value as a path whose contents are uploaded.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	File  bool   `json:"file,omitempty"`
}

// Body is a request body in one of the data modes.
type Body interface {
	// Mode returns the data mode of the body.
	Mode() DataMode

	// Data returns the stored form of the body.
	Data() string

	// resolve returns a copy with every value rendered by r.
	resolve(r Resolver) Body
}

// FormBody is a multipart/form-data body.
type FormBody struct {
	Params []Param
}

// Mode implements the Body interface for FormBody.
func (FormBody) Mode() DataMode { return ModeParams }

// Data implements the Body interface for FormBody.
func (b FormBody) Data() string { return joinParams(b.Params) }

func (b FormBody) resolve(r Resolver) Body {
	return FormBody{Params: resolveParams(b.Params, r, true)}
}

// URLEncodedBody is an application/x-www-form-urlencoded body.
type URLEncodedBody struct {
	Params []Param
}

// Mode implements the Body interface for URLEncodedBody.
func (URLEncodedBody) Mode() DataMode { return ModeURLEncoded }

// Data implements the Body interface for URLEncodedBody.
func (b URLEncodedBody) Data() string { return joinParams(b.Params) }

func (b URLEncodedBody) resolve(r Resolver) Body {
	return URLEncodedBody{Params: resolveParams(b.Params, r, false)}
}

// Encode returns the wire form of the body. Keys and values are escaped
// like encodeURIComponent and spaces become '+'.
func (b URLEncodedBody) Encode() string {
	pairs := make([]string, 0, len(b.Params))
	for _, p := range b.Params {
		pairs = append(pairs, encodeFormComponent(p.Key)+"="+encodeFormComponent(p.Value))
	}

	return strings.Join(pairs, "&")
}

// RawBody is opaque text.
type RawBody struct {
	Text string
}

// Mode implements the Body interface for RawBody.
func (RawBody) Mode() DataMode { return ModeRaw }

// Data implements the Body interface for RawBody.
func (b RawBody) Data() string { return b.Text }

func (b RawBody) resolve(r Resolver) Body {
	return RawBody{Text: r.Resolve(b.Text)}
}

// ParseBody rebuilds a body from its stored form.
func ParseBody(mode DataMode, data string) (Body, error) {
	switch mode {
	case ModeRaw:
		return RawBody{Text: data}, nil
	case ModeParams, "":
		return FormBody{Params: splitParams(data)}, nil
	case ModeURLEncoded:
		return URLEncodedBody{Params: splitParams(data)}, nil
	default:
		return nil, fmt.Errorf("%q: %w", mode, ErrBadDataMode)
	}
}

// joinParams renders pairs as unescaped "key=value" joined with '&'. Pairs
// with an empty key are left out.
func joinParams(params []Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Key == "" {
			continue
		}
		parts = append(parts, p.Key+"="+p.Value)
	}

	return strings.Join(parts, "&")
}

func splitParams(data string) []Param {
	var params []Param
	for part := range strings.SplitSeq(data, "&") {
		if part == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")
		params = append(params, Param{Key: key, Value: value})
	}

	return params
}

func resolveParams(params []Param, r Resolver, skipFiles bool) []Param {
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = p
		if p.File && skipFiles {
			continue
		}
		out[i].Value = r.Resolve(p.Value)
	}

	return out
}

const upperHex = "0123456789ABCDEF"

// encodeFormComponent escapes everything except the characters
// encodeURIComponent leaves alone, then turns "%20" into '+'.
func encodeFormComponent(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := range len(s) {
		c := s[i]
		switch {
		case c == ' ':
			sb.WriteByte('+')
		case isUnreserved(c):
			sb.WriteByte(c)
		default:
			sb.WriteByte('%')
			sb.WriteByte(upperHex[c>>4])
			sb.WriteByte(upperHex[c&0x0f])
		}
	}

	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}

	return strings.IndexByte("-_.!~*'()", c) >= 0
}
