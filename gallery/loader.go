package gallery

import (
	"errors"
	"sync"

	"github.com/alexballas/xthumbgrid/thumbnail"
	"github.com/alexballas/xthumbgrid/thumbstore"
	"github.com/rs/zerolog"
)

var errNoService = errors.New("gallery: no decode service")

// DecodeService produces thumbnails and file status asynchronously.
// Each callback fires once; failure is a nil result with an error.
type DecodeService interface {
	GetThumbnail(path string, coverWidth, maxWidth int, cb func(*thumbnail.Thumbnail, error))
	GetStatus(path string, force bool, cb func(*thumbnail.Status, error))
}

// RootResolver finds the persistent store owning an absolute path.
type RootResolver interface {
	Resolve(abs string) (*thumbstore.Store, string, error)
}

// LoaderState is the phase a Loader is in.
type LoaderState int

const (
	LoaderCreated LoaderState = iota
	LoaderLookupStore
	LoaderFetchFromService
	LoaderDone
	LoaderError
)

func (s LoaderState) String() string {
	switch s {
	case LoaderCreated:
		return "created"
	case LoaderLookupStore:
		return "lookup-store"
	case LoaderFetchFromService:
		return "fetch-from-service"
	case LoaderDone:
		return "done"
	case LoaderError:
		return "error"
	}
	return "unknown"
}

// LoadResult is what a Loader reports through its callback.
type LoadResult int

const (
	LoadDone LoadResult = iota
	LoadFailed
	LoadCancelled
)

// LoaderFunc receives the single terminal report of a Loader. target is
// the zero Handle when the loader was stopped.
type LoaderFunc func(l *Loader, target Handle, res LoadResult, t *thumbnail.Thumbnail)

// LoaderConfig carries the collaborators a Loader talks to.
type LoaderConfig struct {
	Roots      RootResolver
	Service    DecodeService
	CoverWidth int
	MaxWidth   int
	Logger     zerolog.Logger
}

// Loader produces one item's thumbnail: persistent store first, then the
// decode service, writing fresh results back to the store.
type Loader struct {
	mu     sync.Mutex
	active bool
	fired  bool
	target Handle
	state  LoaderState

	path   string
	kind   Kind
	cfg    LoaderConfig
	onDone LoaderFunc
}

// NewLoader prepares a loader for the item behind target. It does nothing until Start.
func NewLoader(target Handle, path string, kind Kind, cfg LoaderConfig, onDone LoaderFunc) *Loader {
	return &Loader{
		active: true,
		target: target,
		path:   path,
		kind:   kind,
		cfg:    cfg,
		onDone: onDone,
	}
}

// Start runs the loader in the background and returns immediately.
func (l *Loader) Start() {
	go l.lookupStore()
}

// Stop cancels the loader. If it has not reported yet, the callback fires
// now with LoadCancelled and any later service reply is ignored. Stop is
// safe to call from any goroutine, any number of times.
func (l *Loader) Stop() bool {
	l.mu.Lock()
	if l.fired {
		l.mu.Unlock()
		return false
	}
	l.fired = true
	l.active = false
	l.target = Handle{}
	l.state = LoaderError
	l.mu.Unlock()

	if l.onDone != nil {
		l.onDone(l, Handle{}, LoadCancelled, nil)
	}
	return true
}

// State returns the current phase.
func (l *Loader) State() LoaderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Path returns the absolute source path being loaded.
func (l *Loader) Path() string { return l.path }

func (l *Loader) lookupStore() {
	if !l.enter(LoaderLookupStore) {
		return
	}
	if l.cfg.Service == nil {
		l.fail("service", errNoService)
		return
	}
	if l.cfg.Roots == nil {
		l.fail("resolve", thumbstore.ErrNoRoot)
		return
	}
	store, rel, err := l.cfg.Roots.Resolve(l.path)
	if err != nil {
		l.fail("resolve", err)
		return
	}
	key := thumbstore.FileKey(rel)
	if l.kind == KindDirectory {
		key = thumbstore.CoverKey(rel)
	}

	l.cfg.Service.GetStatus(l.path, false, func(st *thumbnail.Status, err error) {
		if !l.isActive() {
			return
		}
		if err != nil {
			l.fail("status", err)
			return
		}
		t, mod, err := store.Load(key)
		if err == nil && mod.Equal(st.ModTime) {
			l.finish(LoadDone, t)
			return
		}
		if err != nil && !errors.Is(err, thumbstore.ErrNotExist) {
			l.cfg.Logger.Debug().Err(err).Str("key", key).Msg("unreadable store record")
		}
		l.fetch(store, key, st)
	})
}

func (l *Loader) fetch(store *thumbstore.Store, key string, st *thumbnail.Status) {
	if !l.enter(LoaderFetchFromService) {
		return
	}
	l.cfg.Service.GetThumbnail(l.path, l.cfg.CoverWidth, l.cfg.MaxWidth, func(t *thumbnail.Thumbnail, err error) {
		if !l.isActive() {
			return
		}
		if err != nil || t == nil {
			l.fail("service", err)
			return
		}
		if err := store.Save(key, t, st.ModTime); err != nil {
			l.cfg.Logger.Warn().Err(err).Str("key", key).Msg("could not persist thumbnail")
		}
		l.finish(LoadDone, t)
	})
}

// enter moves to the next phase unless the loader was stopped.
func (l *Loader) enter(s LoaderState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return false
	}
	l.state = s
	return true
}

func (l *Loader) isActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Loader) fail(phase string, err error) {
	l.cfg.Logger.Debug().Err(err).Str("path", l.path).Str("phase", phase).Msg("thumbnail load failed")
	l.finish(LoadFailed, nil)
}

func (l *Loader) finish(res LoadResult, t *thumbnail.Thumbnail) {
	l.mu.Lock()
	if l.fired || !l.active {
		l.mu.Unlock()
		return
	}
	l.fired = true
	l.active = false
	if res == LoadDone {
		l.state = LoaderDone
	} else {
		l.state = LoaderError
	}
	target := l.target
	l.mu.Unlock()

	if l.onDone != nil {
		l.onDone(l, target, res, t)
	}
}
