// Package configproxy caches the remote scan configuration and vulnerability
// library and tracks the state of the calls that fetch or change them.
package configproxy

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/0x6d61/securescout/internal/model"
)

// API is the remote configuration surface. *client.ConfigAPI implements it.
type API interface {
	Get(ctx context.Context) (model.ScanConfig, error)
	Update(ctx context.Context, patch model.ConfigPatch) (model.ScanConfig, error)
	Library(ctx context.Context) (model.Definitions, error)
	UpdateRule(ctx context.Context, vulnType string, patch model.RulePatch) (model.VulnerabilityDefinition, error)
	Reset(ctx context.Context) (model.ScanConfig, error)
}

// Store is a pass-through to API that remembers the last configuration and
// library it saw. It is safe for concurrent use.
type Store struct {
	api    API
	logger *slog.Logger

	mu       sync.Mutex
	config   *model.ScanConfig
	library  model.Definitions
	inflight int
	errMsg   string
}

// New returns a Store backed by api.
func New(api API, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{api: api, logger: logger}
}

// begin marks a call in flight and clears the previous error.
func (s *Store) begin() {
	s.mu.Lock()
	s.inflight++
	s.errMsg = ""
	s.mu.Unlock()
}

// end finishes a call. On failure it records err's message, or fallback
// when the message is empty.
func (s *Store) end(err error, fallback string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err == nil {
		return
	}
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	s.errMsg = msg
	s.logger.Error(fallback, "error", err)
}

func (s *Store) setConfig(cfg model.ScanConfig) {
	s.mu.Lock()
	c := cfg.Clone()
	s.config = &c
	s.mu.Unlock()
}

// Fetch loads the configuration.
func (s *Store) Fetch(ctx context.Context) (model.ScanConfig, error) {
	s.begin()
	cfg, err := s.api.Get(ctx)
	if err == nil {
		s.setConfig(cfg)
	}
	s.end(err, "Failed to fetch configuration")
	return cfg, err
}

// Update applies a partial update and caches the returned configuration.
func (s *Store) Update(ctx context.Context, patch model.ConfigPatch) (model.ScanConfig, error) {
	s.begin()
	cfg, err := s.api.Update(ctx, patch)
	if err == nil {
		s.setConfig(cfg)
	}
	s.end(err, "Failed to update configuration")
	return cfg, err
}

// FetchLibrary loads the vulnerability library.
func (s *Store) FetchLibrary(ctx context.Context) (model.Definitions, error) {
	s.begin()
	lib, err := s.api.Library(ctx)
	if err == nil {
		s.mu.Lock()
		s.library = lib.Clone()
		s.mu.Unlock()
	}
	s.end(err, "Failed to fetch vulnerability library")
	return lib, err
}

// UpdateRule patches one rule. When the library has been fetched, its entry
// for vulnType is replaced by the returned rule.
func (s *Store) UpdateRule(ctx context.Context, vulnType string, patch model.RulePatch) (model.VulnerabilityDefinition, error) {
	s.begin()
	def, err := s.api.UpdateRule(ctx, vulnType, patch)
	if err == nil {
		s.mu.Lock()
		if s.library != nil {
			stored := def
			stored.Patterns = slices.Clone(def.Patterns)
			s.library[vulnType] = stored
		}
		s.mu.Unlock()
	}
	s.end(err, "Failed to update vulnerability rule")
	return def, err
}

// Reset restores the built-in configuration.
func (s *Store) Reset(ctx context.Context) (model.ScanConfig, error) {
	s.begin()
	cfg, err := s.api.Reset(ctx)
	if err == nil {
		s.setConfig(cfg)
	}
	s.end(err, "Failed to reset configuration")
	return cfg, err
}

// ClearError forgets the last error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// Loading reports whether any call is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the message of the last failed call, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Config returns the cached configuration and whether one was loaded.
func (s *Store) Config() (model.ScanConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return model.ScanConfig{}, false
	}
	return s.config.Clone(), true
}

// Library returns the cached library, or nil before FetchLibrary succeeds.
func (s *Store) Library() model.Definitions {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.library == nil {
		return nil
	}
	return s.library.Clone()
}
