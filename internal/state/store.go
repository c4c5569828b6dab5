package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Fallback names why a read returned the default document.
type Fallback string

// Fallback reasons reported to observers.
const (
	FallbackMissing    Fallback = "missing"
	FallbackUnreadable Fallback = "unreadable"
	FallbackMalformed  Fallback = "malformed"
	FallbackInvalid    Fallback = "invalid"
)

// DefaultObserver receives a signal whenever a read falls back to a default document.
type DefaultObserver interface {
	ObserveDefault(key string, reason Fallback)
}

// Validator lets a document type reject payloads that decode but cannot be genuine.
type Validator interface {
	Valid() bool
}

// Store wraps a Backend with JSON encoding, default-on-corruption reads and
// per-key mutual exclusion around read-modify-write cycles.
type Store struct {
	backend  Backend
	logger   *slog.Logger
	observer DefaultObserver
	locks    keyLocks
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultObserver reports every default fallback to observer.
func WithDefaultObserver(observer DefaultObserver) Option {
	return func(s *Store) {
		s.observer = observer
	}
}

// New wraps backend in a Store.
func New(backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("state backend is required")
	}
	s := &Store{
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		locks:   keyLocks{held: make(map[string]*sync.Mutex)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Driver returns the backend driver identifier.
func (s *Store) Driver() Driver { return s.backend.Driver() }

// ErrUnreadable is returned by Update when the backend could not read the
// current document. Writing a default over it would discard stored history.
var ErrUnreadable = errors.New("state document unreadable")

// Load reads the document under key. Missing, unreadable, malformed or invalid
// documents yield def() and usedDefault=true; Load never fails.
func Load[T any](ctx context.Context, s *Store, key string, def func() T) (value T, usedDefault bool) {
	value, reason, _ := load(ctx, s, key, def)
	return value, reason != ""
}

func load[T any](ctx context.Context, s *Store, key string, def func() T) (T, Fallback, error) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fallback(s, key, FallbackMissing, nil, def), FallbackMissing, nil
		}
		return fallback(s, key, FallbackUnreadable, err, def), FallbackUnreadable, err
	}
	var decoded T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fallback(s, key, FallbackMalformed, err, def), FallbackMalformed, nil
	}
	if v, ok := any(decoded).(Validator); ok && !v.Valid() {
		return fallback(s, key, FallbackInvalid, nil, def), FallbackInvalid, nil
	}
	return decoded, "", nil
}

// Update runs one read-modify-write cycle on key while holding the key's lock.
// fn reports whether it changed the document; unchanged documents and fn errors
// are not written back. The returned value reflects fn's edits either way.
// Missing, malformed and invalid documents start from def(); an unreadable
// document fails with ErrUnreadable and fn is not called.
func Update[T any](ctx context.Context, s *Store, key string, def func() T, fn func(*T) (bool, error)) (value T, usedDefault bool, err error) {
	unlock := s.locks.lock(key)
	defer unlock()

	value, reason, readErr := load(ctx, s, key, def)
	usedDefault = reason != ""
	if reason == FallbackUnreadable {
		return value, usedDefault, fmt.Errorf("%w: %s: %w", ErrUnreadable, key, readErr)
	}
	changed, err := fn(&value)
	if err != nil || !changed {
		return value, usedDefault, err
	}
	if err := s.save(ctx, key, value); err != nil {
		return value, usedDefault, err
	}
	return value, usedDefault, nil
}

func (s *Store) save(ctx context.Context, key string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, key, payload); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func fallback[T any](s *Store, key string, reason Fallback, err error, def func() T) T {
	s.reportDefault(key, reason, err)
	if def == nil {
		var zero T
		return zero
	}
	return def()
}

func (s *Store) reportDefault(key string, reason Fallback, err error) {
	if reason == FallbackMissing {
		s.logger.Debug("state document missing, using default", "key", key, "driver", s.Driver())
	} else {
		s.logger.Warn("state document unusable, using default", "key", key, "driver", s.Driver(), "reason", reason, "err", err)
	}
	if s.observer != nil {
		s.observer.ObserveDefault(key, reason)
	}
}
