// Package storage persists JSON snapshots of the scan store under fixed
// keys. Every write replaces the previous snapshot for its key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Snapshot keys.
const (
	KeyScanConfig  = "scanConfig"
	KeyScans       = "scans"
	KeyScanResults = "scanResults"
)

// ErrNotFound is returned by Get when no snapshot exists for the key.
var ErrNotFound = errors.New("storage: snapshot not found")

// Entry is a lightweight overview of one stored snapshot.
type Entry struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Store persists and retrieves snapshots.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]*Entry, error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverValkey = "valkey"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is the SQLite database file (":memory:" for an ephemeral store).
	Path string
	// Addr is the Valkey server address (host:port).
	Addr string
	// Prefix namespaces Valkey keys.
	Prefix string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		path := opts.Path
		if path == "" {
			path = "securescout.db"
		}
		return NewSQLiteStore(path)
	case DriverValkey:
		return NewValkeyStore(ctx, opts.Addr, opts.Prefix)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", opts.Driver)
	}
}
