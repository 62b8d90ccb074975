// Package engine ties the motif/hop/predicate/indexer/hint/match/shape
// packages into the two operations the rest of this module is built
// around: compiling a query string into a reusable CompiledQuery, and
// running one against a host graph. It is the only package that builds a
// predicate tree from parsed WHERE syntax, since doing so for an EXISTS
// subquery requires recursively compiling a child query — a
// responsibility only top-level orchestration code can own without an
// import cycle between internal/predicate and internal/cypher.
//
// Grounded on the teacher's internal/engine/engine.go for the
// Engine-owns-the-pipeline shape, and on its cmd/server and cmd/cli for
// how logging and metrics get attached to it.
package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ritamzico/cyql/internal/config"
)

// Engine owns the per-instance logger and Prometheus metrics a compiled
// query runs through. It carries no mutable query state of its own —
// every CompiledQuery and ArrayAttributeIndexer it produces is built
// fresh, so one Engine is safe to share across concurrently running
// queries against independent (or even the same, read-only) host graphs.
type Engine struct {
	Log *logrus.Logger

	cfg config.Config

	registry *prometheus.Registry
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New builds an Engine from cfg, with its own logger and its own
// Prometheus registry — never the global default registerer, so that two
// Engines in the same process (e.g. one per loaded graph) never collide
// registering the same metric names twice.
func New(cfg config.Config) *Engine {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	registry := prometheus.NewRegistry()
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cyql_queries_total",
		Help: "Total number of queries executed, labeled by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cyql_query_duration_seconds",
		Help:    "Query execution latency in seconds, labeled by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	registry.MustRegister(queries, duration)

	return &Engine{
		Log:      log,
		cfg:      cfg,
		registry: registry,
		queries:  queries,
		duration: duration,
	}
}

// Registry exposes the engine's private Prometheus registry, for a
// caller (e.g. cmd/server) to wire up a /metrics handler.
func (e *Engine) Registry() *prometheus.Registry { return e.registry }

func (e *Engine) observe(outcome string, d time.Duration) {
	e.queries.WithLabelValues(outcome).Inc()
	e.duration.WithLabelValues(outcome).Observe(d.Seconds())
}
