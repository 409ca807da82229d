// Package thumbsvc is the decode/resize service: it turns images, videos
// and folders into thumbnails on a pool of background workers and answers
// file status queries. Every call is asynchronous and reports through its
// callback exactly once.
package thumbsvc

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alexballas/xthumbgrid/thumbnail"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnsupported = errors.New("thumbsvc: unsupported file type")
	ErrDropped     = errors.New("thumbsvc: request dropped from full queue")
	ErrClosed      = errors.New("thumbsvc: service closed")
)

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Workers    int    // default 4
	QueueSize  int    // default 100
	FFmpegPath string // default "ffmpeg"
	Logger     zerolog.Logger
}

type request struct {
	run  func()
	fail func(error)
}

// Service is safe for concurrent use.
type Service struct {
	reqLock  sync.Mutex
	reqCond  *sync.Cond
	requests []request
	closed   bool
	wg       sync.WaitGroup

	maxQueue   int
	ffmpegPath string
	log        zerolog.Logger

	flight singleflight.Group

	statusMu sync.Mutex
	statuses map[string]*thumbnail.Status
}

// New starts the worker pool.
func New(opt Options) *Service {
	if opt.Workers <= 0 {
		opt.Workers = 4
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = 100
	}
	if opt.FFmpegPath == "" {
		opt.FFmpegPath = "ffmpeg"
	}
	s := &Service{
		requests:   make([]request, 0, opt.QueueSize),
		maxQueue:   opt.QueueSize,
		ffmpegPath: opt.FFmpegPath,
		log:        opt.Logger,
		statuses:   make(map[string]*thumbnail.Status),
	}
	s.reqCond = sync.NewCond(&s.reqLock)

	s.wg.Add(opt.Workers)
	for range opt.Workers {
		go s.worker()
	}
	return s
}

// GetThumbnail produces a thumbnail for path. Folders get a square cover
// coverWidth pixels wide; images and videos are scaled down to maxWidth.
func (s *Service) GetThumbnail(path string, coverWidth, maxWidth int, cb func(*thumbnail.Thumbnail, error)) {
	s.enqueue(request{
		run: func() {
			key := fmt.Sprintf("%s\x00%d\x00%d", path, coverWidth, maxWidth)
			v, err, _ := s.flight.Do(key, func() (any, error) {
				return s.generate(path, coverWidth, maxWidth)
			})
			if err != nil {
				s.log.Debug().Err(err).Str("path", path).Msg("thumbnail generation failed")
				cb(nil, err)
				return
			}
			cb(v.(*thumbnail.Thumbnail), nil)
		},
		fail: func(err error) { cb(nil, err) },
	})
}

// GetStatus reports the live metadata of path. Results are memoised per
// path; force bypasses the memo and refreshes it.
func (s *Service) GetStatus(path string, force bool, cb func(*thumbnail.Status, error)) {
	if !force {
		s.statusMu.Lock()
		st, ok := s.statuses[path]
		s.statusMu.Unlock()
		if ok {
			cp := *st
			go cb(&cp, nil)
			return
		}
	}
	s.enqueue(request{
		run: func() {
			st, err := stat(path)
			if err != nil {
				s.statusMu.Lock()
				delete(s.statuses, path)
				s.statusMu.Unlock()
				cb(nil, err)
				return
			}
			s.statusMu.Lock()
			s.statuses[path] = st
			s.statusMu.Unlock()
			cp := *st
			cb(&cp, nil)
		},
		fail: func(err error) { cb(nil, err) },
	})
}

// Close stops the workers after they finish their current request.
// Queued requests fail with ErrClosed.
func (s *Service) Close() {
	s.reqLock.Lock()
	if s.closed {
		s.reqLock.Unlock()
		return
	}
	s.closed = true
	pending := s.requests
	s.requests = nil
	s.reqCond.Broadcast()
	s.reqLock.Unlock()

	for _, r := range pending {
		r.fail(ErrClosed)
	}
	s.wg.Wait()
}

func (s *Service) enqueue(r request) {
	s.reqLock.Lock()
	if s.closed {
		s.reqLock.Unlock()
		go r.fail(ErrClosed)
		return
	}
	// If queue is full, drop the OLDEST request (at index 0)
	var dropped *request
	if len(s.requests) >= s.maxQueue {
		d := s.requests[0]
		dropped = &d
		s.requests = s.requests[1:]
	}
	s.requests = append(s.requests, r)
	s.reqCond.Signal()
	s.reqLock.Unlock()

	if dropped != nil {
		go dropped.fail(ErrDropped)
	}
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		s.reqLock.Lock()
		for len(s.requests) == 0 && !s.closed {
			s.reqCond.Wait()
		}
		if s.closed {
			s.reqLock.Unlock()
			return
		}
		// Pop LAST request (LIFO)
		lastIdx := len(s.requests) - 1
		req := s.requests[lastIdx]
		s.requests = s.requests[:lastIdx]
		s.reqLock.Unlock()

		req.run()
	}
}

func (s *Service) generate(path string, coverWidth, maxWidth int) (*thumbnail.Thumbnail, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		img, err := folderCover(path)
		if err != nil {
			return nil, err
		}
		return thumbnail.Letterbox(img, coverWidth)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var img image.Image
	switch {
	case isSupportedImage(ext):
		img, err = thumbnail.LoadImage(path)
	case isSupportedVideo(ext):
		img, err = s.videoFrame(path)
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}
	return thumbnail.ScaleToWidth(img, maxWidth)
}

func stat(path string) (*thumbnail.Status, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	st := &thumbnail.Status{
		Path:    path,
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if !st.IsDir && isSupportedImage(strings.ToLower(filepath.Ext(path))) {
		if f, err := os.Open(path); err == nil {
			if cfg, _, err := image.DecodeConfig(f); err == nil {
				st.Width, st.Height = cfg.Width, cfg.Height
			}
			f.Close()
		}
	}
	return st, nil
}

func isSupportedImage(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff":
		return true
	}
	return false
}

func isSupportedVideo(ext string) bool {
	return ext == ".mp4" || ext == ".mkv" || ext == ".avi" || ext == ".webm" || ext == ".mov"
}

// IsSupported reports whether path has an extension the service can render.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return isSupportedImage(ext) || isSupportedVideo(ext)
}
