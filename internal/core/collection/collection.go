// Package collection manages named collections of saved request templates,
// including cascade deletion and document import and export.
package collection

import (
	"github.com/AdguardTeam/golibs/errors"
	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/store"
)

const (
	// ErrEmptyName is returned when a collection would be created without a
	// name.
	ErrEmptyName errors.Error = "empty collection name"

	// ErrNoTarget is returned when a request is saved without naming either
	// an existing or a new collection.
	ErrNoTarget errors.Error = "no target collection"
)

// Collection is a named group of saved requests.
type Collection struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
}

// RecordID implements the store.Record interface for Collection.
func (c Collection) RecordID() string { return c.ID }

// IndexKey implements the store.Record interface for Collection.
func (c Collection) IndexKey(idx store.Index) any {
	if idx == store.ByTimestamp {
		return c.Timestamp
	}

	return nil
}

// Request is a request template saved in a collection. CollectionID is not
// checked against existing collections.
type Request struct {
	ID           string           `json:"id" yaml:"id"`
	CollectionID string           `json:"collectionId" yaml:"collectionId"`
	Name         string           `json:"name" yaml:"name"`
	Description  string           `json:"description" yaml:"description,omitempty"`
	URL          string           `json:"url" yaml:"url"`
	Method       request.Method   `json:"method" yaml:"method"`
	Headers      string           `json:"headers" yaml:"headers,omitempty"`
	Data         string           `json:"data" yaml:"data,omitempty"`
	DataMode     request.DataMode `json:"dataMode" yaml:"dataMode"`
	Timestamp    int64            `json:"timestamp" yaml:"timestamp"`
}

// RecordID implements the store.Record interface for Request.
func (r Request) RecordID() string { return r.ID }

// IndexKey implements the store.Record interface for Request.
func (r Request) IndexKey(idx store.Index) any {
	switch idx {
	case store.ByTimestamp:
		return r.Timestamp
	case store.ByCollectionID:
		return r.CollectionID
	default:
		return nil
	}
}

// Template rebuilds the request template of r.
func (r Request) Template() (request.Request, error) {
	return request.FromStored(r.URL, string(r.Method), r.Headers, r.Data, string(r.DataMode))
}

// setTemplate copies the wire fields of t into r.
func (r *Request) setTemplate(t request.Request) {
	r.URL = t.URL
	r.Method = t.Method
	r.Headers = t.PackedHeaders()
	r.Data = t.Data()
	r.DataMode = t.DataMode()
}

// Target names the collection a request is saved to. NewCollection, when
// set, takes precedence and creates a collection with that name.
type Target struct {
	CollectionID  string
	NewCollection string
}

// RequestFields are the user-supplied fields of a saved request.
type RequestFields struct {
	// Name defaults to the URL of Template when empty.
	Name        string
	Description string
	Template    request.Request
}

// RequestPatch lists the fields UpdateRequest changes. Nil fields are kept.
type RequestPatch struct {
	Name        *string
	Description *string
	Template    *request.Request
}

// Patch lists the fields Update changes. Nil fields are kept.
type Patch struct {
	Name *string
}
