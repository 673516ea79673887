package request

import "strings"

// Header is one request or response header line.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PackHeaders serializes headers as "Name: Value\n" lines. Headers with an
// empty name are skipped.
func PackHeaders(headers []Header) string {
	var sb strings.Builder
	for _, h := range headers {
		if h.Name == "" {
			continue
		}

		sb.WriteString(h.Name)
		sb.WriteString(": ")
		sb.WriteString(h.Value)
		sb.WriteByte('\n')
	}

	return sb.String()
}

// UnpackHeaders parses a packed header blob. Blank lines and lines without a
// colon are ignored. Each line is split on its first colon and both sides are
// trimmed.
func UnpackHeaders(blob string) []Header {
	var headers []Header
	for line := range strings.SplitSeq(blob, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		headers = append(headers, Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}

	return headers
}
