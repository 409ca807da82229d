package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/alexballas/xthumbgrid/internal/config"
	"github.com/alexballas/xthumbgrid/thumbcache"
	"github.com/alexballas/xthumbgrid/thumbcache/prom"
	"github.com/alexballas/xthumbgrid/thumbstore"
	"github.com/alexballas/xthumbgrid/thumbsvc"
)

// stack is the shared thumbnail pipeline behind every grid of a process.
type stack struct {
	Roots   *thumbstore.Registry
	Cache   *thumbcache.Cache
	Service *thumbsvc.Service
	Metrics *prometheus.Registry

	server *http.Server
	log    zerolog.Logger
}

// openDB opens the configured persistent backend.
func openDB(c *config.Config) (thumbstore.DB, error) {
	switch c.StoreBackend {
	case config.BackendPebble:
		return thumbstore.OpenPebble(filepath.Join(c.StoreDir, "pebble"))
	case config.BackendDisk:
		return thumbstore.OpenDisk(filepath.Join(c.StoreDir, "disk"))
	}
	return nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
}

// openStack builds the store, cache, decode service and metrics for c.
// Every absolute path resolves to the single filesystem root.
func openStack(c *config.Config, log zerolog.Logger) (*stack, error) {
	if err := os.MkdirAll(c.StoreDir, 0o755); err != nil {
		return nil, err
	}
	db, err := openDB(c)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.StoreBackend, err)
	}
	roots := thumbstore.NewRegistry()
	if _, err := roots.Register(string(filepath.Separator), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	s := &stack{
		Roots: roots,
		Cache: thumbcache.New(thumbcache.Options{
			MaxSize: c.CacheSize,
			Metrics: prom.New(reg, "xthumbgrid", "cache", nil),
			Logger:  log,
		}),
		Service: thumbsvc.New(thumbsvc.Options{
			Workers:    c.Workers,
			QueueSize:  c.QueueSize,
			FFmpegPath: c.FFmpegPath,
			Logger:     log,
		}),
		Metrics: reg,
		log:     log,
	}
	if c.MetricsAddr != "" {
		s.serveMetrics(c.MetricsAddr)
	}
	return s, nil
}

func (s *stack) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Metrics, promhttp.HandlerOpts{}))
	s.server = &http.Server{Addr: addr, Handler: mux}
	go func() {
		s.log.Info().Str("addr", addr).Msg("metrics: serving")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// Close stops the workers first so no late reply touches a closed store.
func (s *stack) Close() error {
	s.Service.Close()
	var errs []error
	if err := s.Cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Roots.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.server != nil {
		if err := s.server.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
