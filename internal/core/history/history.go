// Package history records sent requests, suppressing duplicates of
// body-less requests and evicting the oldest entries beyond the configured
// capacity.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/google/uuid"
	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/settings"
	"github.com/sadopc/restbench/internal/store"
	"github.com/sahilm/fuzzy"
)

// Config is the configuration of a Manager.
type Config struct {
	// Logger is used for debug output. Nil means discard.
	Logger *slog.Logger

	// Store keeps the entries.
	Store *store.Store

	// Settings provides the history capacity. Nil means the default
	// capacity.
	Settings *settings.Store

	// Clock returns the current time. Nil means time.Now.
	Clock func() time.Time

	// OnList, if set, is called with the result of every List.
	OnList func(entries []Entry)
}

// Manager applies the growth policy of the history.
type Manager struct {
	logger   *slog.Logger
	entries  *store.Bucket[Entry]
	settings *settings.Store
	now      func() time.Time
	onList   func(entries []Entry)

	// mu serializes Add so that the duplicate scan and the capacity check
	// see the effects of the previous call.
	mu sync.Mutex
}

// NewManager returns a history manager over c.Store.
func NewManager(c *Config) (m *Manager) {
	m = &Manager{
		logger:   c.Logger,
		entries:  store.NewBucket[Entry](c.Store, store.Requests),
		settings: c.Settings,
		now:      c.Clock,
		onList:   c.OnList,
	}
	if m.logger == nil {
		m.logger = slogutil.NewDiscardLogger()
	}
	if m.now == nil {
		m.now = time.Now
	}

	return m
}

// capacity returns the configured maximum number of entries, at least one.
func (m *Manager) capacity() int {
	n := settings.DefaultHistoryCount
	if m.settings != nil {
		n = m.settings.Int(settings.KeyHistoryCount, settings.DefaultHistoryCount)
	}

	return max(n, 1)
}

// Add records a request. A body-less request replaces any entry with the
// same URL, header blob and method. Otherwise, when the history is full, the
// oldest entries are evicted first.
func (m *Manager) Add(
	ctx context.Context,
	url string,
	method request.Method,
	headers string,
	data string,
	mode request.DataMode,
) (e Entry, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e = Entry{
		ID:        uuid.NewString(),
		URL:       url,
		Method:    method,
		Headers:   headers,
		Data:      data,
		DataMode:  mode,
		Timestamp: m.now().UnixMilli(),
	}

	replaced := false
	if !method.HasBody() {
		replaced, err = m.removeDuplicates(ctx, e)
		if err != nil {
			return Entry{}, fmt.Errorf("adding history entry: %w", err)
		}
	}

	if !replaced {
		if err = m.evict(ctx); err != nil {
			return Entry{}, fmt.Errorf("adding history entry: %w", err)
		}
	}

	if e, err = m.entries.Put(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("adding history entry: %w", err)
	}

	m.logger.DebugContext(ctx, "history entry added", "id", e.ID, "method", e.Method, "replaced", replaced)

	return e, nil
}

// AddRequest records the template r.
func (m *Manager) AddRequest(ctx context.Context, r request.Request) (Entry, error) {
	return m.Add(ctx, r.URL, r.Method, r.PackedHeaders(), r.Data(), r.DataMode())
}

// removeDuplicates deletes every entry e duplicates and reports whether
// there was one.
func (m *Manager) removeDuplicates(ctx context.Context, e Entry) (found bool, err error) {
	all, err := store.Collect(m.entries.All(ctx))
	if err != nil {
		return false, err
	}

	for _, old := range all {
		if !e.duplicates(old) {
			continue
		}

		if err = m.entries.Delete(ctx, old.ID); err != nil {
			return found, err
		}
		found = true
	}

	return found, nil
}

// evict deletes the oldest entries until one more fits.
func (m *Manager) evict(ctx context.Context) (err error) {
	count, err := m.entries.Count(ctx)
	if err != nil {
		return err
	}

	excess := count - m.capacity() + 1
	if excess <= 0 {
		return nil
	}

	var oldest []Entry
	for e, scanErr := range m.entries.Query(ctx, store.ByTimestamp, store.KeyRange{}) {
		if scanErr != nil {
			return scanErr
		}

		oldest = append(oldest, e)
		if len(oldest) == excess {
			break
		}
	}

	for _, e := range oldest {
		if err = m.entries.Delete(ctx, e.ID); err != nil {
			return err
		}
	}

	m.logger.DebugContext(ctx, "history evicted", "count", len(oldest))

	return nil
}

// Get returns the entry with the given id.
func (m *Manager) Get(ctx context.Context, id string) (Entry, error) {
	return m.entries.Get(ctx, id)
}

// Delete removes one entry. Missing ids are ignored.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.entries.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting history entry: %w", err)
	}

	return nil
}

// Clear removes every entry.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.entries.Clear(ctx); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}

	m.logger.DebugContext(ctx, "history cleared")

	return nil
}

// List returns all entries, oldest first.
func (m *Manager) List(ctx context.Context) ([]Entry, error) {
	entries, err := store.Collect(m.entries.Query(ctx, store.ByTimestamp, store.KeyRange{}))
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	if m.onList != nil {
		m.onList(entries)
	}

	return entries, nil
}

// Search returns the entries whose URL contains query, case-insensitively,
// newest first.
func (m *Manager) Search(ctx context.Context, query string) ([]Entry, error) {
	entries, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var found []Entry
	for _, e := range slices.Backward(entries) {
		if strings.Contains(strings.ToLower(e.URL), query) {
			found = append(found, e)
		}
	}

	return found, nil
}

// Suggest returns up to limit distinct history URLs fuzzily matching query,
// best match first. An empty query yields the most recent URLs.
func (m *Manager) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	entries, err := store.Collect(m.entries.Query(ctx, store.ByTimestamp, store.KeyRange{}))
	if err != nil {
		return nil, fmt.Errorf("suggesting urls: %w", err)
	}

	var urls []string
	seen := make(map[string]struct{}, len(entries))
	for _, e := range slices.Backward(entries) {
		if _, ok := seen[e.URL]; ok {
			continue
		}
		seen[e.URL] = struct{}{}
		urls = append(urls, e.URL)
	}

	if query != "" {
		matches := fuzzy.Find(query, urls)
		urls = make([]string, 0, len(matches))
		for _, match := range matches {
			urls = append(urls, match.Str)
		}
	}

	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}

	return urls, nil
}
