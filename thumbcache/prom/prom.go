// Package prom exports thumbcache metrics to Prometheus.
package prom

import (
	"github.com/alexballas/xthumbgrid/thumbcache"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements thumbcache.Metrics with Prometheus counters and gauges.
type Adapter struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	rejects   prometheus.Counter
	evicts    *prometheus.CounterVec
	sizeEnt   prometheus.Gauge
	sizeBytes prometheus.Gauge
}

// New registers the adapter's collectors with reg (nil => prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Thumbnail cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Thumbnail cache misses",
			ConstLabels: constLabels,
		}),
		rejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "rejections_total",
			Help:        "Thumbnails too large to admit",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Thumbnail evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident thumbnails",
			ConstLabels: constLabels,
		}),
		sizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_bytes",
			Help:        "Pixel memory held by resident thumbnails",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.rejects, a.evicts, a.sizeEnt, a.sizeBytes)
	return a
}

func (a *Adapter) Hit()    { a.hits.Inc() }
func (a *Adapter) Miss()   { a.misses.Inc() }
func (a *Adapter) Reject() { a.rejects.Inc() }

// Evict increments the eviction counter labelled with the reason.
func (a *Adapter) Evict(r thumbcache.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// Size updates the residency gauges.
func (a *Adapter) Size(entries int, bytes int64) {
	a.sizeEnt.Set(float64(entries))
	a.sizeBytes.Set(float64(bytes))
}

func reason(r thumbcache.EvictReason) string {
	if r == thumbcache.EvictInvalidate {
		return "invalidate"
	}
	return "capacity"
}

var _ thumbcache.Metrics = (*Adapter)(nil)
