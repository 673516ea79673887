package collection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/google/uuid"
	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/store"
)

// maxDocumentSize bounds the size of a collection fetched by ImportURL.
const maxDocumentSize = 16 << 20

// Config is the configuration of a Manager.
type Config struct {
	// Logger is used for debug output and for tolerated cascade failures.
	// Nil means discard.
	Logger *slog.Logger

	// Store keeps the collections and their requests.
	Store *store.Store

	// HTTPClient fetches documents for ImportURL. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock returns the current time. Nil means time.Now.
	Clock func() time.Time

	// OnList, if set, is called with the result of every List.
	OnList func(cols []Collection)
}

// requestBucket is the part of *store.Bucket[Request] the manager uses.
type requestBucket interface {
	Put(ctx context.Context, rec Request) (Request, error)
	Get(ctx context.Context, id string) (Request, error)
	All(ctx context.Context) iter.Seq2[Request, error]
	Query(ctx context.Context, idx store.Index, r store.KeyRange) iter.Seq2[Request, error]
	Delete(ctx context.Context, id string) error
}

// Manager manages collections and the requests saved in them.
type Manager struct {
	logger   *slog.Logger
	cols     *store.Bucket[Collection]
	requests requestBucket
	http     *http.Client
	now      func() time.Time
	onList   func(cols []Collection)
}

// NewManager returns a collection manager over c.Store.
func NewManager(c *Config) (m *Manager) {
	m = &Manager{
		logger:   c.Logger,
		cols:     store.NewBucket[Collection](c.Store, store.Collections),
		requests: store.NewBucket[Request](c.Store, store.CollectionRequests),
		http:     c.HTTPClient,
		now:      c.Clock,
		onList:   c.OnList,
	}
	if m.logger == nil {
		m.logger = slogutil.NewDiscardLogger()
	}
	if m.http == nil {
		m.http = http.DefaultClient
	}
	if m.now == nil {
		m.now = time.Now
	}

	return m
}

func (m *Manager) timestamp() int64 {
	return m.now().UnixMilli()
}

// Create stores a new, empty collection.
func (m *Manager) Create(ctx context.Context, name string) (Collection, error) {
	if name == "" {
		return Collection{}, ErrEmptyName
	}

	col, err := m.cols.Put(ctx, Collection{
		ID:        uuid.NewString(),
		Name:      name,
		Timestamp: m.timestamp(),
	})
	if err != nil {
		return Collection{}, fmt.Errorf("creating collection: %w", err)
	}

	m.logger.DebugContext(ctx, "collection created", "id", col.ID, "name", col.Name)

	return col, nil
}

// Get returns the collection with the given id.
func (m *Manager) Get(ctx context.Context, id string) (Collection, error) {
	return m.cols.Get(ctx, id)
}

// Update applies p to the collection with the given id.
func (m *Manager) Update(ctx context.Context, id string, p Patch) (Collection, error) {
	col, err := m.cols.Get(ctx, id)
	if err != nil {
		return Collection{}, fmt.Errorf("updating collection: %w", err)
	}

	if p.Name != nil {
		if *p.Name == "" {
			return Collection{}, ErrEmptyName
		}
		col.Name = *p.Name
	}

	if col, err = m.cols.Put(ctx, col); err != nil {
		return Collection{}, fmt.Errorf("updating collection: %w", err)
	}

	return col, nil
}

// List returns all collections in stored order.
func (m *Manager) List(ctx context.Context) ([]Collection, error) {
	cols, err := store.Collect(m.cols.All(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	if m.onList != nil {
		m.onList(cols)
	}

	return cols, nil
}

// AddRequest saves a request to the collection named by t, creating the
// collection first when t.NewCollection is set.
func (m *Manager) AddRequest(ctx context.Context, t Target, f RequestFields) (Request, error) {
	colID := t.CollectionID
	if t.NewCollection != "" {
		col, err := m.Create(ctx, t.NewCollection)
		if err != nil {
			return Request{}, err
		}
		colID = col.ID
	} else if colID == "" {
		return Request{}, ErrNoTarget
	}

	req := Request{
		ID:           uuid.NewString(),
		CollectionID: colID,
		Name:         f.Name,
		Description:  f.Description,
		Timestamp:    m.timestamp(),
	}
	req.setTemplate(f.Template)
	if req.Name == "" {
		req.Name = req.URL
	}

	req, err := m.requests.Put(ctx, req)
	if err != nil {
		return Request{}, fmt.Errorf("saving request: %w", err)
	}

	m.logger.DebugContext(ctx, "request saved", "id", req.ID, "collection_id", colID)

	return req, nil
}

// GetRequest returns the saved request with the given id.
func (m *Manager) GetRequest(ctx context.Context, id string) (Request, error) {
	return m.requests.Get(ctx, id)
}

// UpdateRequest applies p to the saved request with the given id. The
// collection it belongs to never changes.
func (m *Manager) UpdateRequest(ctx context.Context, id string, p RequestPatch) (Request, error) {
	req, err := m.requests.Get(ctx, id)
	if err != nil {
		return Request{}, fmt.Errorf("updating request: %w", err)
	}

	if p.Name != nil {
		req.Name = *p.Name
	}
	if p.Description != nil {
		req.Description = *p.Description
	}
	if p.Template != nil {
		req.setTemplate(*p.Template)
	}
	req.Timestamp = m.timestamp()

	if req, err = m.requests.Put(ctx, req); err != nil {
		return Request{}, fmt.Errorf("updating request: %w", err)
	}

	return req, nil
}

// DeleteRequest removes a saved request. Missing ids are ignored.
func (m *Manager) DeleteRequest(ctx context.Context, id string) error {
	if err := m.requests.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting request: %w", err)
	}

	return nil
}

// Requests returns the requests of a collection sorted by name.
func (m *Manager) Requests(ctx context.Context, collectionID string) ([]Request, error) {
	reqs, err := m.children(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(reqs, func(a, b Request) int {
		return strings.Compare(a.Name, b.Name)
	})

	return reqs, nil
}

// children returns the requests of a collection in stored order.
func (m *Manager) children(ctx context.Context, collectionID string) ([]Request, error) {
	reqs, err := store.Collect(m.requests.Query(ctx, store.ByCollectionID, store.Only(collectionID)))
	if err != nil {
		return nil, fmt.Errorf("listing requests of %s: %w", collectionID, err)
	}

	return reqs, nil
}

// Delete removes a collection and every request in it. A failure to delete
// one request does not stop the others; all failures are returned joined and
// PurgeOrphans can finish the job later.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.cols.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	reqs, err := m.children(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	errs := m.deleteRequests(ctx, reqs)
	m.logger.DebugContext(ctx, "collection deleted", "id", id, "requests", len(reqs), "failed", len(errs))

	return errors.Join(errs...)
}

// PurgeOrphans deletes every saved request whose collection no longer
// exists and returns how many were removed.
func (m *Manager) PurgeOrphans(ctx context.Context) (n int, err error) {
	cols, err := store.Collect(m.cols.All(ctx))
	if err != nil {
		return 0, fmt.Errorf("purging orphans: %w", err)
	}

	known := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		known[c.ID] = struct{}{}
	}

	all, err := store.Collect(m.requests.All(ctx))
	if err != nil {
		return 0, fmt.Errorf("purging orphans: %w", err)
	}

	var orphans []Request
	for _, r := range all {
		if _, ok := known[r.CollectionID]; !ok {
			orphans = append(orphans, r)
		}
	}

	errs := m.deleteRequests(ctx, orphans)

	return len(orphans) - len(errs), errors.Join(errs...)
}

func (m *Manager) deleteRequests(ctx context.Context, reqs []Request) (errs []error) {
	for _, r := range reqs {
		err := m.requests.Delete(ctx, r.ID)
		if err == nil {
			continue
		}

		m.logger.WarnContext(ctx, "deleting request", "id", r.ID, slogutil.KeyError, err)
		errs = append(errs, fmt.Errorf("request %s: %w", r.ID, err))
	}

	return errs
}

// Export returns the collection with the given id and its requests in
// stored order.
func (m *Manager) Export(ctx context.Context, id string) (*Document, error) {
	col, err := m.cols.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("exporting collection: %w", err)
	}

	reqs, err := m.children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("exporting collection: %w", err)
	}
	if reqs == nil {
		reqs = []Request{}
	}

	return &Document{ID: col.ID, Name: col.Name, Requests: reqs}, nil
}

// Import stores doc as a new collection. The collection and every request
// get fresh ids, all other fields are kept.
func (m *Manager) Import(ctx context.Context, doc *Document) (Collection, error) {
	col, err := m.Create(ctx, doc.Name)
	if err != nil {
		return Collection{}, fmt.Errorf("importing collection: %w", err)
	}

	for _, r := range doc.Requests {
		r.ID = uuid.NewString()
		r.CollectionID = col.ID
		if r.DataMode == "" {
			r.DataMode = request.ModeParams
		}

		if _, err = m.requests.Put(ctx, r); err != nil {
			return col, fmt.Errorf("importing request %q: %w", r.Name, err)
		}
	}

	m.logger.DebugContext(ctx, "collection imported", "id", col.ID, "requests", len(doc.Requests))

	return col, nil
}

// ImportJSON reads a document from r and imports it.
func (m *Manager) ImportJSON(ctx context.Context, r io.Reader) (Collection, error) {
	doc, err := ReadDocument(r)
	if err != nil {
		return Collection{}, err
	}

	return m.Import(ctx, doc)
}

// ImportURL fetches a document from rawURL and imports it.
func (m *Manager) ImportURL(ctx context.Context, rawURL string) (col Collection, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Collection{}, fmt.Errorf("fetching collection: %w", err)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return Collection{}, fmt.Errorf("fetching collection: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, resp.Body.Close()) }()

	if resp.StatusCode != http.StatusOK {
		return Collection{}, fmt.Errorf("fetching collection: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return Collection{}, fmt.Errorf("fetching collection: %w", err)
	}

	return m.ImportJSON(ctx, bytes.NewReader(data))
}
