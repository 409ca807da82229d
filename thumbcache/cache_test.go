package thumbcache

import (
	"fmt"
	"image"
	"math/rand"
	"sync"
	"testing"

	"github.com/alexballas/xthumbgrid/thumbnail"
)

// thumbOf returns a thumbnail whose ByteSize is exactly n (n must be a multiple of 4).
func thumbOf(n int) *thumbnail.Thumbnail {
	img := image.NewRGBA(image.Rect(0, 0, n/4, 1))
	return &thumbnail.Thumbnail{Image: img, Width: n / 4, Height: 1}
}

func TestCache_InsertFitsWithoutEviction(t *testing.T) {
	c := New(Options{MaxSize: 100})
	for i := 0; i < 5; i++ {
		if err := c.Insert(fmt.Sprintf("p%d", i), thumbOf(20)); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}
	if c.Len() != 5 || c.Size() != 100 {
		t.Errorf("Expected 5 entries / 100 bytes, got %d / %d", c.Len(), c.Size())
	}
}

func TestCache_EvictsMinimalOldestPrefix(t *testing.T) {
	c := New(Options{MaxSize: 100})
	_ = c.Insert("a", thumbOf(40))
	_ = c.Insert("b", thumbOf(20))
	_ = c.Insert("c", thumbOf(20))
	_ = c.Insert("d", thumbOf(20))

	// 100 used; a 28 byte entry only needs "a" gone.
	if err := c.Insert("e", thumbOf(28)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if c.Contains("a") {
		t.Error("Expected oldest entry a to be evicted")
	}
	for _, p := range []string{"b", "c", "d", "e"} {
		if !c.Contains(p) {
			t.Errorf("Entry %s should have survived", p)
		}
	}

	// 88 used; 52 bytes needs b and c (40) -> 48+52 = 100.
	if err := c.Insert("f", thumbOf(52)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if c.Contains("b") || c.Contains("c") {
		t.Error("Expected b and c to be evicted")
	}
	if !c.Contains("d") || !c.Contains("e") {
		t.Error("Expected d and e to survive")
	}
	if c.Size() != 100 {
		t.Errorf("Expected size 100, got %d", c.Size())
	}
}

func TestCache_RejectLeavesStateUntouched(t *testing.T) {
	c := New(Options{MaxSize: 100})
	_ = c.Insert("a", thumbOf(60))
	_ = c.Insert("b", thumbOf(40))

	if err := c.Insert("huge", thumbOf(104)); err != ErrRejected {
		t.Fatalf("Expected ErrRejected, got %v", err)
	}
	if c.Len() != 2 || c.Size() != 100 || !c.Contains("a") || !c.Contains("b") {
		t.Errorf("Rejected insert mutated the cache: len=%d size=%d", c.Len(), c.Size())
	}
}

func TestCache_CapacityInvariantRandom(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	c := New(Options{MaxSize: 1000})
	for i := 0; i < 2000; i++ {
		before := c.Size()
		beforeLen := c.Len()
		size := 4 * (1 + r.Intn(300))
		err := c.Insert(fmt.Sprintf("p%d", r.Intn(50)), thumbOf(size))
		if err != nil {
			if c.Size() != before || c.Len() != beforeLen {
				t.Fatalf("iteration %d: rejected insert changed state", i)
			}
			continue
		}
		if c.Size() > c.MaxSize() {
			t.Fatalf("iteration %d: size %d exceeds max %d", i, c.Size(), c.MaxSize())
		}
	}
}

func TestCache_EvictionNotifiesAllLinkers(t *testing.T) {
	c := New(Options{MaxSize: 100})
	var mu sync.Mutex
	calls := map[string]int{}
	record := func(name string) RemovedFunc {
		return func(path string, _ *thumbnail.Thumbnail) {
			mu.Lock()
			calls[name+":"+path]++
			mu.Unlock()
		}
	}
	l1 := c.CreateLinker(record("l1"))
	l2 := c.CreateLinker(record("l2"))
	l3 := c.CreateLinker(record("l3"))

	_ = c.Insert("P", thumbOf(80))
	if _, ok := c.Link("P", l1); !ok {
		t.Fatal("link l1 failed")
	}
	if _, ok := c.Link("P", l2); !ok {
		t.Fatal("link l2 failed")
	}
	// Linked twice by l2 still yields one notification.
	c.Link("P", l2)

	_ = c.Insert("Q", thumbOf(40))

	if calls["l1:P"] != 1 || calls["l2:P"] != 1 {
		t.Errorf("Expected exactly one notification per linker, got %v", calls)
	}
	if calls["l3:P"] != 0 {
		t.Errorf("Linker without a reference should not be notified, got %v", calls)
	}
	if l1.Refs("P") != 0 || l2.Refs("P") != 0 {
		t.Error("Eviction should reset linker references")
	}
	_ = l3
}

func TestCache_ReferencesDoNotBlockEviction(t *testing.T) {
	c := New(Options{MaxSize: 40})
	l := c.CreateLinker(nil)
	_ = c.Insert("a", thumbOf(40))
	c.Link("a", l)
	if err := c.Insert("b", thumbOf(40)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if c.Contains("a") {
		t.Error("Referenced entry must still be evicted under capacity pressure")
	}
}

func TestCache_UnlinkAndDeleteLinker(t *testing.T) {
	c := New(Options{MaxSize: 100})
	l1 := c.CreateLinker(nil)
	l2 := c.CreateLinker(nil)
	_ = c.Insert("a", thumbOf(20))

	c.Link("a", l1)
	c.Link("a", l1)
	c.Link("a", l2)
	if c.Refs("a") != 3 {
		t.Fatalf("Expected 3 refs, got %d", c.Refs("a"))
	}
	c.Unlink("a", l1)
	if l1.Refs("a") != 1 {
		t.Errorf("Expected l1 refs 1, got %d", l1.Refs("a"))
	}

	c.DeleteLinker(l2)
	if c.Refs("a") != 1 {
		t.Errorf("Expected 1 ref after deleting l2, got %d", c.Refs("a"))
	}
	if !c.Contains("a") {
		t.Error("DeleteLinker must not evict shared entries")
	}
	if _, ok := c.Link("a", l2); ok {
		t.Error("Deleted linker should not be able to link")
	}
}

func TestCache_ReplaceNotifiesAndKeepsSize(t *testing.T) {
	c := New(Options{MaxSize: 100})
	notified := 0
	l := c.CreateLinker(func(string, *thumbnail.Thumbnail) { notified++ })
	_ = c.Insert("a", thumbOf(60))
	c.Link("a", l)

	// Replacement only needs the old buffer's space.
	if err := c.Insert("a", thumbOf(100)); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if notified != 1 {
		t.Errorf("Expected 1 notification on replace, got %d", notified)
	}
	if c.Size() != 100 || c.Len() != 1 {
		t.Errorf("Expected 1 entry of 100 bytes, got %d / %d", c.Len(), c.Size())
	}
}

func TestCache_CallbackMayReenterCache(t *testing.T) {
	c := New(Options{MaxSize: 40})
	var l *Linker
	l = c.CreateLinker(func(path string, _ *thumbnail.Thumbnail) {
		c.Unlink(path, l)
		c.Contains(path)
	})
	_ = c.Insert("a", thumbOf(40))
	c.Link("a", l)
	_ = c.Insert("b", thumbOf(40)) // would deadlock if callbacks ran under the lock
}

func TestCache_InvalidateAndClose(t *testing.T) {
	c := New(Options{MaxSize: 100})
	notified := 0
	l := c.CreateLinker(func(string, *thumbnail.Thumbnail) { notified++ })
	_ = c.Insert("a", thumbOf(20))
	_ = c.Insert("b", thumbOf(20))
	c.Link("a", l)
	c.Link("b", l)

	if !c.Invalidate("a") {
		t.Error("Expected a to be resident")
	}
	if c.Invalidate("a") {
		t.Error("Second invalidate should report false")
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if notified != 2 {
		t.Errorf("Expected 2 notifications, got %d", notified)
	}
	if err := c.Insert("c", thumbOf(4)); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestCache_RemovalReportsEvictedBuffer(t *testing.T) {
	c := New(Options{MaxSize: 40})
	var gotPath string
	var got *thumbnail.Thumbnail
	l := c.CreateLinker(func(path string, th *thumbnail.Thumbnail) {
		gotPath, got = path, th
	})
	first := thumbOf(40)
	_ = c.Insert("a", first)
	c.Link("a", l)

	// Replacing a with a new buffer reports the old one.
	second := thumbOf(40)
	if err := c.Insert("a", second); err != nil {
		t.Fatal(err)
	}
	if gotPath != "a" || got != first {
		t.Errorf("Expected the replaced buffer for a, got %q %p (first %p)", gotPath, got, first)
	}
	if buf, _ := c.Link("a", l); buf != second {
		t.Error("Expected the new buffer to be linked")
	}
}
