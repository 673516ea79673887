package request

import "strings"

// Curl renders r as a curl command line. Tokens are not resolved.
func (r Request) Curl() string {
	parts := []string{"curl"}

	if r.Method != "" && r.Method != MethodGet {
		parts = append(parts, "-X", string(r.Method))
	}

	for _, h := range r.Headers {
		if h.Name == "" {
			continue
		}
		parts = append(parts, "-H", shellQuote(h.Name+": "+h.Value))
	}

	switch b := r.Body.(type) {
	case RawBody:
		if b.Text != "" {
			parts = append(parts, "--data-raw", shellQuote(b.Text))
		}
	case URLEncodedBody:
		if enc := b.Encode(); enc != "" {
			parts = append(parts, "-d", shellQuote(enc))
		}
	case FormBody:
		for _, p := range b.Params {
			if p.Key == "" {
				continue
			}
			v := p.Value
			if p.File {
				v = "@" + v
			}
			parts = append(parts, "-F", shellQuote(p.Key+"="+v))
		}
	}

	parts = append(parts, shellQuote(r.URL))

	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
