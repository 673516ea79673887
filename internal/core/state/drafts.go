// Package state keeps the in-progress request across restarts.
package state

import (
	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/settings"
)

// draft is the persisted form of the request being edited.
type draft struct {
	URL      string `json:"url"`
	Data     string `json:"data"`
	Headers  string `json:"headers"`
	DataMode string `json:"dataMode"`
	Method   string `json:"method"`
}

// Drafts saves and restores the last request being edited.
type Drafts struct {
	settings *settings.Store
}

// NewDrafts returns drafts kept in s under the lastRequest key.
func NewDrafts(s *settings.Store) *Drafts {
	return &Drafts{settings: s}
}

// Save records r as the request being edited.
func (d *Drafts) Save(r request.Request) error {
	return d.settings.StoreJSON(settings.KeyLastRequest, draft{
		URL:      r.URL,
		Data:     r.Data(),
		Headers:  r.PackedHeaders(),
		DataMode: string(r.DataMode()),
		Method:   string(r.Method),
	})
}

// Restore returns the saved request. ok is false when nothing was saved.
func (d *Drafts) Restore() (r request.Request, ok bool, err error) {
	var saved draft
	ok, err = d.settings.LoadJSON(settings.KeyLastRequest, &saved)
	if err != nil || !ok {
		return request.Request{}, false, err
	}

	r, err = request.FromStored(saved.URL, saved.Method, saved.Headers, saved.Data, saved.DataMode)
	if err != nil {
		return request.Request{}, false, err
	}

	return r, true, nil
}

// Discard forgets the saved request.
func (d *Drafts) Discard() error {
	return d.settings.Delete(settings.KeyLastRequest)
}
