package thumbstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
)

type pebbleDB struct {
	db *pebble.DB
}

// OpenPebble opens (creating if needed) a pebble database in dir.
func OpenPebble(dir string) (DB, error) {
	if err := os.MkdirAll(dir, os.FileMode(0755)); err != nil {
		return nil, err
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble store %s: %w", dir, err)
	}
	return &pebbleDB{db}, nil
}

func (p *pebbleDB) Get(k []byte) ([]byte, error) {
	v, closer, err := p.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Thumbnails can always be regenerated, so writes skip fsync.
func (p *pebbleDB) Set(k, v []byte) error {
	return p.db.Set(k, v, pebble.NoSync)
}

func (p *pebbleDB) Del(k []byte) error {
	return p.db.Delete(k, pebble.NoSync)
}

func (p *pebbleDB) Close() error {
	return p.db.Close()
}
