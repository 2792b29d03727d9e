// Package store persists graph snapshots. Every backend implements Provider;
// failures are reported as *StoreError wrapping ErrLoadFailed or
// ErrSaveFailed so callers can surface them without losing the cause.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

var (
	// ErrLoadFailed wraps any failure to read or decode a snapshot.
	ErrLoadFailed = errors.New("load failed")
	// ErrSaveFailed wraps any failure to encode or write a snapshot.
	ErrSaveFailed = errors.New("save failed")
	// ErrNoSnapshot is returned by Load when the backend holds nothing yet.
	ErrNoSnapshot = errors.New("no snapshot stored")
)

// Provider loads and saves whole snapshots.
type Provider interface {
	Load(ctx context.Context) (model.Snapshot, error)
	Save(ctx context.Context, s model.Snapshot) error
}

// Watcher is implemented by providers that can report external changes.
// Watch calls fn after the backing data changes until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, fn func()) error
}

// Version describes one retained save.
type Version struct {
	Seq      uint64 `json:"seq"`
	Revision uint64 `json:"revision"`
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
}

// Historian is implemented by providers that retain earlier saves.
type Historian interface {
	History(ctx context.Context) ([]Version, error)
	LoadVersion(ctx context.Context, seq uint64) (model.Snapshot, error)
}

// Lister is implemented by backends that hold several named maps.
type Lister interface {
	Maps(ctx context.Context) ([]string, error)
}

// Unwrap returns the provider beneath any wrappers such as BreakerStore.
func Unwrap(p Provider) Provider {
	for {
		w, ok := p.(interface{ Unwrap() Provider })
		if !ok {
			return p
		}
		p = w.Unwrap()
	}
}

// StoreError records which backend and operation failed.
type StoreError struct {
	Op      string // "load" or "save"
	Backend string
	Cause   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Cause)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *StoreError) Unwrap() []error {
	if e.Op == "save" {
		return []error{ErrSaveFailed, e.Cause}
	}
	return []error{ErrLoadFailed, e.Cause}
}

func loadErr(backend string, err error) error {
	return &StoreError{Op: "load", Backend: backend, Cause: err}
}

func saveErr(backend string, err error) error {
	return &StoreError{Op: "save", Backend: backend, Cause: err}
}

// Encode serializes a snapshot. Indented output keeps files diffable.
func Encode(s model.Snapshot, indent bool) ([]byte, error) {
	if s.Version == 0 {
		s.Version = model.SnapshotVersion
	}
	if s.Nodes == nil {
		s.Nodes = []model.Node{}
	}
	if s.Edges == nil {
		s.Edges = []model.Edge{}
	}
	if indent {
		return json.MarshalIndent(s, "", "  ")
	}
	return json.Marshal(s)
}

// Decode parses and validates a snapshot.
func Decode(data []byte) (model.Snapshot, error) {
	var s model.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version == 0 {
		s.Version = model.SnapshotVersion
	}
	if err := s.Validate(); err != nil {
		return model.Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return s, nil
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string // one of the Backend* names; empty means file
	DSN     string // file path, sqlite path, badger dir, or redis URL
	Name    string // map name inside multi-map backends
	Breaker bool   // wrap the provider in a circuit breaker
	History int    // saves to retain where the backend supports history
	Logger  *zap.Logger
}

// Open builds the provider described by opts. The returned close function
// releases backend resources and is never nil.
func Open(ctx context.Context, opts Options) (Provider, func() error, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	name := opts.Name
	if name == "" {
		name = "default"
	}
	noop := func() error { return nil }

	var (
		p      Provider
		closer = noop
	)
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		p = NewFileStore(opts.DSN, log)
	case BackendSQLite:
		s, err := OpenSQLite(ctx, opts.DSN, name)
		if err != nil {
			return nil, noop, err
		}
		p, closer = s, s.Close
	case BackendBadger:
		s, err := OpenBadger(BadgerConfig{Path: opts.DSN, SyncWrites: true, History: opts.History}, name, log)
		if err != nil {
			return nil, noop, err
		}
		p, closer = s, s.Close
	case BackendRedis:
		s, err := OpenRedis(opts.DSN, name)
		if err != nil {
			return nil, noop, err
		}
		p, closer = s, s.Close
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", opts.Backend)
	}

	if opts.Breaker {
		p = NewBreakerStore(p, DefaultBreakerConfig(opts.Backend), log)
	}
	log.Debug("store opened", zap.String("backend", opts.Backend), zap.String("name", name))
	return p, closer, nil
}
