// Package metrics exposes Prometheus counters for the API and the worker.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IncrementalCounter is a labelled counter.
type IncrementalCounter interface {
	Increment(val ...string)
}

type Counter struct {
	Name string
	Help string

	vec *prometheus.CounterVec
}

func (c *Counter) Increment(val ...string) {
	c.vec.WithLabelValues(val...).Inc()
}

func NewCounterWithRegistry(reg prometheus.Registerer, name, help string, labels ...string) *Counter {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)

	reg.MustRegister(vec)

	return &Counter{Name: name, Help: help, vec: vec}
}

// Metrics groups every counter of one process on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests  IncrementalCounter
	TreeMutations IncrementalCounter
	Exports       IncrementalCounter
	PublishJobs   IncrementalCounter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry:      reg,
		HTTPRequests:  NewCounterWithRegistry(reg, "menuforge_http_requests_total", "HTTP requests by method and status.", "method", "status"),
		TreeMutations: NewCounterWithRegistry(reg, "menuforge_tree_mutations_total", "Server-side tree operations by kind.", "op"),
		Exports:       NewCounterWithRegistry(reg, "menuforge_exports_total", "Rendered exports by format.", "format"),
		PublishJobs:   NewCounterWithRegistry(reg, "menuforge_publish_jobs_total", "Publish jobs by final status.", "status"),
	}
}

// Registry returns the gatherer backing Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts every request by method and final status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.HTTPRequests.Increment(r.Method, strconv.Itoa(sw.status))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
