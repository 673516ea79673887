package history

import (
	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/store"
)

// Entry is one sent request as it was before variable substitution.
type Entry struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"`
	Method    request.Method   `json:"method"`
	Headers   string           `json:"headers"`
	Data      string           `json:"data"`
	DataMode  request.DataMode `json:"dataMode"`
	Timestamp int64            `json:"timestamp"`
}

// RecordID implements the store.Record interface for Entry.
func (e Entry) RecordID() string { return e.ID }

// IndexKey implements the store.Record interface for Entry.
func (e Entry) IndexKey(idx store.Index) any {
	if idx == store.ByTimestamp {
		return e.Timestamp
	}

	return nil
}

// Request rebuilds the request template of e.
func (e Entry) Request() (request.Request, error) {
	return request.FromStored(e.URL, string(e.Method), e.Headers, e.Data, string(e.DataMode))
}

// duplicates reports whether e and other are the same body-less request.
// Headers are compared as packed blobs, so reordered headers differ.
func (e Entry) duplicates(other Entry) bool {
	return e.URL == other.URL && e.Headers == other.Headers && e.Method == other.Method
}
