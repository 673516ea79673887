// Package settings is the coarse process-wide key/value storage: user
// preferences, the selected environment, globals and the last unsaved
// request. It is persisted as one YAML file, separate from the record store.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"gopkg.in/yaml.v3"
)

// Known keys.
const (
	KeyHistoryCount          = "historyCount"
	KeyAutoSaveRequest       = "autoSaveRequest"
	KeySelectedEnvironmentID = "selectedEnvironmentId"
	KeyRetainLinkHeaders     = "retainLinkHeaders"
	KeyUseProxy              = "useProxy"
	KeyProxyURL              = "proxyURL"
	KeyGlobals               = "globals"
	KeyLastRequest           = "lastRequest"
)

// DefaultHistoryCount is the history capacity used when none is configured.
const DefaultHistoryCount = 100

// Defaults returns the value every known preference starts with.
func Defaults() map[string]string {
	return map[string]string{
		KeyHistoryCount:          strconv.Itoa(DefaultHistoryCount),
		KeyAutoSaveRequest:       "true",
		KeySelectedEnvironmentID: "",
		KeyRetainLinkHeaders:     "false",
		KeyUseProxy:              "false",
		KeyProxyURL:              "",
	}
}

// Store holds string values by key. All values are kept as strings, typed
// accessors parse them on read.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// NewMemory returns a store that is never written to disk.
func NewMemory() *Store {
	return &Store{values: make(map[string]string)}
}

// Open loads the settings file at path. A missing file yields an empty store
// that is created on the first write.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	if err = yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}

	return s, nil
}

// Init sets every default that has no value yet.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for k, v := range Defaults() {
		if _, ok := s.values[k]; !ok {
			s.values[k] = v
			changed = true
		}
	}
	if !changed {
		return nil
	}

	return s.persistLocked()
}

// Get returns the raw value of key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]

	return v, ok
}

// String returns the value of key or def when it is unset.
func (s *Store) String(key, def string) string {
	if v, ok := s.Get(key); ok {
		return v
	}

	return def
}

// Int returns the value of key parsed as an integer, or def when it is unset
// or malformed.
func (s *Store) Int(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

// Bool returns the value of key parsed as a boolean, or def when it is unset
// or malformed.
func (s *Store) Bool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}

// Set stores value under key and writes the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	return s.persistLocked()
}

// SetInt stores an integer.
func (s *Store) SetInt(key string, n int) error {
	return s.Set(key, strconv.Itoa(n))
}

// SetBool stores a boolean.
func (s *Store) SetBool(key string, b bool) error {
	return s.Set(key, strconv.FormatBool(b))
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)

	return s.persistLocked()
}

// LoadJSON decodes the JSON value of key into v. It reports false when the
// key is unset.
func (s *Store) LoadJSON(key string, v any) (bool, error) {
	raw, ok := s.Get(key)
	if !ok || raw == "" {
		return false, nil
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("decoding setting %q: %w", key, err)
	}

	return true, nil
}

// StoreJSON encodes v as JSON under key.
func (s *Store) StoreJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding setting %q: %w", key, err)
	}

	return s.Set(key, string(data))
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing settings file: %w", err)
	}

	return nil
}
