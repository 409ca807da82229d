package thumbstore

import (
	"encoding/binary"
	"fmt"
	"path"
	"time"

	"github.com/alexballas/xthumbgrid/thumbnail"
)

// CoverSuffix is appended to a folder's relative path to form the key of
// its cover thumbnail, so it cannot collide with a file record.
const CoverSuffix = "/.xthumbgrid-cover"

const headerLen = 8

// Store reads and writes thumbnail records for one source root.
type Store struct {
	root string
	db   DB
}

// NewStore binds db to the source root at root.
func NewStore(root string, db DB) *Store {
	return &Store{root: root, db: db}
}

// Root returns the absolute source root this store serves.
func (s *Store) Root() string { return s.root }

// FileKey is the record key of a file item.
func FileKey(rel string) string {
	return path.Clean("/" + rel)[1:]
}

// CoverKey is the record key of a folder item's cover.
func CoverKey(rel string) string {
	return FileKey(rel) + CoverSuffix
}

// Load returns the thumbnail stored under key and the modify time it was
// recorded with. A miss is ErrNotExist.
func (s *Store) Load(key string) (*thumbnail.Thumbnail, time.Time, error) {
	raw, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(raw) <= headerLen {
		return nil, time.Time{}, fmt.Errorf("thumbstore: short record for %q", key)
	}
	mod := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:headerLen])))
	t, err := thumbnail.Decode(raw[headerLen:])
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("thumbstore: decode %q: %w", key, err)
	}
	return t, mod, nil
}

// Save stores t under key together with the source modify time.
func (s *Store) Save(key string, t *thumbnail.Thumbnail, modTime time.Time) error {
	data, err := thumbnail.Encode(t)
	if err != nil {
		return fmt.Errorf("thumbstore: encode %q: %w", key, err)
	}
	rec := make([]byte, headerLen+len(data))
	binary.BigEndian.PutUint64(rec[:headerLen], uint64(modTime.UnixNano()))
	copy(rec[headerLen:], data)
	return s.db.Set([]byte(key), rec)
}

// Delete removes the record under key, if any.
func (s *Store) Delete(key string) error {
	return s.db.Del([]byte(key))
}

// Close closes the underlying engine.
func (s *Store) Close() error {
	return s.db.Close()
}
