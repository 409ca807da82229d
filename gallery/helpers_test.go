package gallery

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexballas/xthumbgrid/thumbnail"
)

var (
	errFake        = errors.New("fake failure")
	defaultModTime = time.Unix(1600000000, 0)
)

// fakeService answers asynchronously like the real decode service.
type fakeService struct {
	mu       sync.Mutex
	modTimes map[string]time.Time
	failing  map[string]bool
	size     int // thumbnail width, bytes are size*4
	hold     chan struct{}

	thumbCalls  atomic.Int64
	statusCalls atomic.Int64
}

func newFakeService() *fakeService {
	return &fakeService{
		modTimes: make(map[string]time.Time),
		failing:  make(map[string]bool),
		size:     4,
	}
}

func (f *fakeService) setModTime(path string, t time.Time) {
	f.mu.Lock()
	f.modTimes[path] = t
	f.mu.Unlock()
}

func (f *fakeService) fail(path string) {
	f.mu.Lock()
	f.failing[path] = true
	f.mu.Unlock()
}

func (f *fakeService) GetThumbnail(path string, coverWidth, maxWidth int, cb func(*thumbnail.Thumbnail, error)) {
	f.thumbCalls.Add(1)
	f.mu.Lock()
	failing, size, hold := f.failing[path], f.size, f.hold
	f.mu.Unlock()
	go func() {
		if hold != nil {
			<-hold
		}
		if failing {
			cb(nil, errFake)
			return
		}
		cb(thumbOfWidth(size), nil)
	}()
}

func (f *fakeService) GetStatus(path string, force bool, cb func(*thumbnail.Status, error)) {
	f.statusCalls.Add(1)
	f.mu.Lock()
	mod, ok := f.modTimes[path]
	failing := f.failing[path]
	f.mu.Unlock()
	if !ok {
		mod = defaultModTime
	}
	go func() {
		if failing {
			cb(nil, errFake)
			return
		}
		cb(&thumbnail.Status{Path: path, ModTime: mod}, nil)
	}()
}

// thumbOfWidth returns a w x 1 thumbnail, w*4 bytes.
func thumbOfWidth(w int) *thumbnail.Thumbnail {
	img := image.NewRGBA(image.Rect(0, 0, w, 1))
	return &thumbnail.Thumbnail{Image: img, Width: w, Height: 1}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
