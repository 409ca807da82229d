package cli

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexballas/xthumbgrid/internal/config"
	"github.com/alexballas/xthumbgrid/thumbnail"
	"github.com/alexballas/xthumbgrid/thumbstore"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		CacheSize:     1 << 20,
		StoreBackend:  backend,
		StoreDir:      t.TempDir(),
		FFmpegPath:    "ffmpeg",
		Workers:       1,
		QueueSize:     4,
		PruneMaxBytes: 0,
		PruneMaxFiles: 0,
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out.String(), Version) {
		t.Errorf("Expected %q in output, got %q", Version, out.String())
	}
}

func TestPrune_RejectsPebble(t *testing.T) {
	if _, err := prune(testConfig(t, config.BackendPebble)); !errors.Is(err, errPruneBackend) {
		t.Errorf("Expected errPruneBackend, got %v", err)
	}
}

func TestPrune_DiskBackend(t *testing.T) {
	c := testConfig(t, config.BackendDisk)
	db, err := thumbstore.OpenDisk(filepath.Join(c.StoreDir, "disk"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := db.Set([]byte(fmt.Sprintf("k%d", i)), []byte("record")); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := prune(c)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("Expected 3 records removed at zero limits, got %d", removed)
	}
}

func TestOpenStack_PersistsAndCountsMetrics(t *testing.T) {
	c := testConfig(t, config.BackendDisk)
	s, err := openStack(c, zerolog.Nop())
	if err != nil {
		t.Fatalf("openStack failed: %v", err)
	}

	src := filepath.Join(t.TempDir(), "a.png")
	store, rel, err := s.Roots.Resolve(src)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	th, err := thumbnail.New(image.NewRGBA(image.Rect(0, 0, 4, 2)))
	if err != nil {
		t.Fatal(err)
	}
	mod := time.Unix(1600000000, 0)
	if err := store.Save(thumbstore.FileKey(rel), th, mod); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, got, err := store.Load(thumbstore.FileKey(rel)); err != nil || !got.Equal(mod) {
		t.Errorf("Load = %v, %v; want %v", got, err, mod)
	}

	if err := s.Cache.Insert(src, th); err != nil {
		t.Fatal(err)
	}
	families, err := s.Metrics.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "xthumbgrid_cache_size_entries" {
			found = f.GetMetric()[0].GetGauge().GetValue() == 1
		}
	}
	if !found {
		t.Error("Expected xthumbgrid_cache_size_entries to report one entry")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
