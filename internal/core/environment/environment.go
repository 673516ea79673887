// Package environment holds named variable sets, the globals, the selection
// of the active environment and the template resolver that renders {{name}}
// tokens with them.
package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/google/uuid"
	"github.com/sadopc/restbench/internal/settings"
	"github.com/sadopc/restbench/internal/store"
)

// Environment is a named, selectable list of variables.
type Environment struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Values    []Variable `json:"values" yaml:"values"`
	Timestamp int64      `json:"timestamp" yaml:"timestamp"`
}

// RecordID implements the store.Record interface for Environment.
func (e Environment) RecordID() string { return e.ID }

// IndexKey implements the store.Record interface for Environment.
func (e Environment) IndexKey(idx store.Index) any {
	if idx == store.ByTimestamp {
		return e.Timestamp
	}

	return nil
}

// WriteJSON writes e as an indented JSON document.
func (e Environment) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(e)
}

// Patch lists the fields Update changes. Nil fields are kept.
type Patch struct {
	Name   *string
	Values []Variable
}

// Config is the configuration of a Registry.
type Config struct {
	// Logger is used for debug output. Nil means discard.
	Logger *slog.Logger

	// Store keeps the environments.
	Store *store.Store

	// Settings keeps the selection and the globals.
	Settings *settings.Store

	// Clock returns the current time. Nil means time.Now.
	Clock func() time.Time

	// OnList, if set, is called with the result of every List.
	OnList func(envs []Environment)
}

// Registry manages environments, the selected environment and the globals.
type Registry struct {
	logger   *slog.Logger
	envs     *store.Bucket[Environment]
	settings *settings.Store
	now      func() time.Time
	onList   func(envs []Environment)
}

// NewRegistry returns a registry over c.Store and c.Settings.
func NewRegistry(c *Config) (r *Registry) {
	r = &Registry{
		logger:   c.Logger,
		envs:     store.NewBucket[Environment](c.Store, store.Environments),
		settings: c.Settings,
		now:      c.Clock,
		onList:   c.OnList,
	}
	if r.logger == nil {
		r.logger = slogutil.NewDiscardLogger()
	}
	if r.now == nil {
		r.now = time.Now
	}

	return r
}

// Create stores a new environment.
func (r *Registry) Create(ctx context.Context, name string, values []Variable) (Environment, error) {
	env := Environment{
		ID:        uuid.NewString(),
		Name:      name,
		Values:    values,
		Timestamp: r.now().UnixMilli(),
	}
	if env.Values == nil {
		env.Values = []Variable{}
	}

	env, err := r.envs.Put(ctx, env)
	if err != nil {
		return Environment{}, fmt.Errorf("creating environment: %w", err)
	}

	r.logger.DebugContext(ctx, "environment created", "id", env.ID, "name", env.Name)

	return env, nil
}

// Update applies p to the environment with the given id and refreshes its
// timestamp.
func (r *Registry) Update(ctx context.Context, id string, p Patch) (Environment, error) {
	env, err := r.envs.Get(ctx, id)
	if err != nil {
		return Environment{}, fmt.Errorf("updating environment: %w", err)
	}

	if p.Name != nil {
		env.Name = *p.Name
	}
	if p.Values != nil {
		env.Values = p.Values
	}
	env.Timestamp = r.now().UnixMilli()

	if env, err = r.envs.Put(ctx, env); err != nil {
		return Environment{}, fmt.Errorf("updating environment: %w", err)
	}

	r.logger.DebugContext(ctx, "environment updated", "id", id)

	return env, nil
}

// Delete removes the environment with the given id. Deleting the selected
// environment clears the selection.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.envs.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting environment: %w", err)
	}

	if r.selectedID() == id {
		if err := r.Deselect(); err != nil {
			return err
		}
	}

	r.logger.DebugContext(ctx, "environment deleted", "id", id)

	return nil
}

// Get returns the environment with the given id.
func (r *Registry) Get(ctx context.Context, id string) (Environment, error) {
	return r.envs.Get(ctx, id)
}

// List returns all environments ordered by timestamp.
func (r *Registry) List(ctx context.Context) ([]Environment, error) {
	envs, err := store.Collect(r.envs.Query(ctx, store.ByTimestamp, store.KeyRange{}))
	if err != nil {
		return nil, fmt.Errorf("listing environments: %w", err)
	}

	if r.onList != nil {
		r.onList(envs)
	}

	return envs, nil
}

// Select makes the environment with the given id the active one.
func (r *Registry) Select(ctx context.Context, id string) (Environment, error) {
	env, err := r.envs.Get(ctx, id)
	if err != nil {
		return Environment{}, fmt.Errorf("selecting environment: %w", err)
	}

	if err = r.settings.Set(settings.KeySelectedEnvironmentID, id); err != nil {
		return Environment{}, fmt.Errorf("selecting environment: %w", err)
	}

	return env, nil
}

// Deselect clears the active environment.
func (r *Registry) Deselect() error {
	return r.settings.Set(settings.KeySelectedEnvironmentID, "")
}

// Selected returns the active environment. It returns nil when nothing is
// selected or the selection points to an environment that no longer exists.
func (r *Registry) Selected(ctx context.Context) (*Environment, error) {
	id := r.selectedID()
	if id == "" {
		return nil, nil
	}

	env, err := r.envs.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		r.logger.DebugContext(ctx, "stale environment selection", "id", id)

		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("loading selected environment: %w", err)
	}

	return &env, nil
}

func (r *Registry) selectedID() string {
	return r.settings.String(settings.KeySelectedEnvironmentID, "")
}

// Globals returns the global variables.
func (r *Registry) Globals() ([]Variable, error) {
	var globals []Variable
	if _, err := r.settings.LoadJSON(settings.KeyGlobals, &globals); err != nil {
		return nil, err
	}

	return globals, nil
}

// SetGlobals replaces the global variables.
func (r *Registry) SetGlobals(values []Variable) error {
	if values == nil {
		values = []Variable{}
	}

	return r.settings.StoreJSON(settings.KeyGlobals, values)
}

// Context returns the variables requests are currently rendered with.
func (r *Registry) Context(ctx context.Context) (Context, error) {
	env, err := r.Selected(ctx)
	if err != nil {
		return Context{}, err
	}

	globals, err := r.Globals()
	if err != nil {
		return Context{}, err
	}

	return Context{Environment: env, Globals: globals}, nil
}

// Import stores doc as a new environment with a fresh id.
func (r *Registry) Import(ctx context.Context, doc Environment) (Environment, error) {
	return r.Create(ctx, doc.Name, doc.Values)
}

// ImportJSON reads one environment document from rd and imports it.
func (r *Registry) ImportJSON(ctx context.Context, rd io.Reader) (Environment, error) {
	var doc Environment
	if err := json.NewDecoder(rd).Decode(&doc); err != nil {
		return Environment{}, fmt.Errorf("decoding environment: %w", err)
	}

	return r.Import(ctx, doc)
}

// Export returns the environment with the given id as a document.
func (r *Registry) Export(ctx context.Context, id string) (Environment, error) {
	env, err := r.envs.Get(ctx, id)
	if err != nil {
		return Environment{}, fmt.Errorf("exporting environment: %w", err)
	}

	return env, nil
}
