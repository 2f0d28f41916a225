package storage

import (
	"context"
	"errors"
)

// Well-known keys. KeyData holds the whole list mapping as one JSON
// document, KeyTheme the active theme id.
const (
	KeyData  = "mapScraperData"
	KeyTheme = "customplacedb-theme"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// Store is a small key-value document store with change notification.
// Watch delivers the new value after every Set, including sets made by
// other processes sharing the same backend. The channel is closed when
// the context is cancelled or the store shuts down.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Watch(ctx context.Context, key string) (<-chan []byte, error)
	Close() error
}
