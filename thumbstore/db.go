// Package thumbstore persists encoded thumbnails per source root so that
// they survive restarts. Records are keyed by the item's path relative to
// its root and carry the modify time of the file they were produced from.
package thumbstore

import "errors"

var (
	// ErrNotExist is returned by DB.Get and Store.Load on a miss.
	ErrNotExist = errors.New("thumbstore: not exist")
	// ErrNoRoot is returned by Registry.Resolve when no root owns a path.
	ErrNoRoot = errors.New("thumbstore: no source root for path")
)

// DB is the key/value engine behind a Store.
type DB interface {
	Get([]byte) ([]byte, error)
	Set([]byte, []byte) error
	Del([]byte) error
	Close() error
}
