package thumbsvc

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/alexballas/xthumbgrid/thumbnail"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

type thumbResult struct {
	th  *thumbnail.Thumbnail
	err error
}

func getThumb(t *testing.T, s *Service, path string, cover, max int) thumbResult {
	t.Helper()
	ch := make(chan thumbResult, 1)
	s.GetThumbnail(path, cover, max, func(th *thumbnail.Thumbnail, err error) {
		ch <- thumbResult{th, err}
	})
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for thumbnail")
	}
	return thumbResult{}
}

func TestService_ImageScaledToMaxWidth(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "wide.png")
	writePNG(t, p, 400, 100)

	s := New(Options{Workers: 2})
	defer s.Close()

	r := getThumb(t, s, p, 128, 200)
	if r.err != nil {
		t.Fatalf("thumbnail failed: %v", r.err)
	}
	if r.th.Width != 200 || r.th.Height != 50 {
		t.Errorf("Expected 200x50, got %dx%d", r.th.Width, r.th.Height)
	}
}

func TestService_FolderCoverIsSquare(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 64, 32)
	writePNG(t, filepath.Join(dir, "a.png"), 32, 64)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	test.NewApp()
	s := New(Options{})
	defer s.Close()

	r := getThumb(t, s, dir, 96, 200)
	if r.err != nil {
		t.Fatalf("cover failed: %v", r.err)
	}
	if r.th.Width != 96 || r.th.Height != 96 {
		t.Errorf("Expected 96x96 cover, got %dx%d", r.th.Width, r.th.Height)
	}
}

func TestService_Failures(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	_ = os.WriteFile(txt, []byte("hello"), 0644)
	empty := filepath.Join(dir, "empty")
	_ = os.Mkdir(empty, 0755)

	s := New(Options{})
	defer s.Close()

	if r := getThumb(t, s, txt, 96, 200); r.err != ErrUnsupported || r.th != nil {
		t.Errorf("Expected ErrUnsupported, got %v", r.err)
	}
	if r := getThumb(t, s, empty, 96, 200); r.err == nil {
		t.Error("Expected an error for a folder without images")
	}
	if r := getThumb(t, s, filepath.Join(dir, "missing.png"), 96, 200); r.err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestService_StatusMemoAndForce(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "img.png")
	writePNG(t, p, 30, 20)

	s := New(Options{})
	defer s.Close()

	status := func(force bool) *thumbnail.Status {
		ch := make(chan *thumbnail.Status, 1)
		s.GetStatus(p, force, func(st *thumbnail.Status, err error) {
			if err != nil {
				t.Errorf("status failed: %v", err)
			}
			ch <- st
		})
		select {
		case st := <-ch:
			return st
		case <-time.After(5 * time.Second):
			t.Fatal("Timeout waiting for status")
		}
		return nil
	}

	first := status(false)
	if first == nil || first.Width != 30 || first.Height != 20 {
		t.Fatalf("Unexpected status %+v", first)
	}

	later := first.ModTime.Add(time.Hour)
	_ = os.Chtimes(p, later, later)

	if memo := status(false); !memo.ModTime.Equal(first.ModTime) {
		t.Error("Non-forced status should come from the memo")
	}
	if fresh := status(true); !fresh.ModTime.Equal(later) {
		t.Errorf("Forced status should see the new mod time, got %v", fresh.ModTime)
	}
}

func TestService_FullQueueDropsOldest(t *testing.T) {
	s := New(Options{Workers: 1, QueueSize: 2})

	release := make(chan struct{})
	started := make(chan struct{})
	s.enqueue(request{run: func() { close(started); <-release }, fail: func(error) {}})
	<-started

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		s.enqueue(request{
			run:  func() { errs <- nil },
			fail: func(err error) { errs <- err },
		})
	}

	select {
	case err := <-errs:
		if err != ErrDropped {
			t.Errorf("Expected ErrDropped first, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for dropped request")
	}

	close(release)
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Errorf("Expected queued request to run, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Timeout waiting for queued requests")
		}
	}
	s.Close()

	done := make(chan error, 1)
	s.GetThumbnail("x.png", 1, 1, func(_ *thumbnail.Thumbnail, err error) { done <- err })
	if err := <-done; err != ErrClosed {
		t.Errorf("Expected ErrClosed after Close, got %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	got := parseDuration("01", "02", "03", "40")
	want := time.Hour + 2*time.Minute + 3*time.Second + 400*time.Millisecond
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
