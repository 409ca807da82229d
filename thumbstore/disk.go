package thumbstore

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const diskExt = ".thumb"

// DiskDB stores every record in its own file, named by the sha256 of the key.
type DiskDB struct {
	dir string
}

// OpenDisk creates dir if needed and returns a file-per-key engine.
func OpenDisk(dir string) (*DiskDB, error) {
	if err := os.MkdirAll(dir, os.FileMode(0755)); err != nil {
		return nil, err
	}
	return &DiskDB{dir: dir}, nil
}

func (d *DiskDB) file(k []byte) string {
	sum := sha256.Sum256(k)
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+diskExt)
}

func (d *DiskDB) Get(k []byte) ([]byte, error) {
	v, err := os.ReadFile(d.file(k))
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	return v, err
}

// Set writes through a temp file so readers never see a torn record.
func (d *DiskDB) Set(k, v []byte) error {
	name := d.file(k)
	tmp, err := os.CreateTemp(d.dir, "put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), name)
}

func (d *DiskDB) Del(k []byte) error {
	err := os.Remove(d.file(k))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (d *DiskDB) Close() error {
	return nil
}

// Prune deletes the least recently written records once either limit is
// exceeded, stopping at 80% of both. It returns the number of files removed.
func (d *DiskDB) Prune(maxBytes int64, maxFiles int) (int, error) {
	files, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, err
	}

	type fileInfo struct {
		name string
		size int64
		time time.Time
	}

	var cached []fileInfo
	var totalSize int64
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != diskExt {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		cached = append(cached, fileInfo{name: f.Name(), size: info.Size(), time: info.ModTime()})
		totalSize += info.Size()
	}

	if totalSize <= maxBytes && len(cached) <= maxFiles {
		return 0, nil
	}

	// Oldest first
	sort.Slice(cached, func(i, j int) bool {
		return cached[i].time.Before(cached[j].time)
	})

	removed := 0
	for _, f := range cached {
		if totalSize <= int64(float64(maxBytes)*0.8) && len(cached)-removed <= int(float64(maxFiles)*0.8) {
			break
		}
		if err := os.Remove(filepath.Join(d.dir, f.name)); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		totalSize -= f.size
		removed++
	}
	return removed, nil
}
