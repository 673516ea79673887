package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the exchange form of a collection with its requests.
type Document struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Requests []Request `json:"requests" yaml:"requests"`
}

// WriteJSON writes d as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}

	return nil
}

// WriteYAML writes d as YAML.
func (d *Document) WriteYAML(w io.Writer) (err error) {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err = enc.Encode(d); err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}

	return enc.Close()
}

// ParseDocument decodes a collection document. Input starting with '{' is
// decoded as JSON, anything else as YAML.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing collection: %w", err)
		}

		return &doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing collection: %w", err)
	}

	return &doc, nil
}

// ReadDocument reads and decodes a collection document from r.
func ReadDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}

	return ParseDocument(data)
}
