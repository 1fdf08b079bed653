package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"menuforge/internal/httpkit"
	"menuforge/internal/ports"
)

// healthTimeout bounds each deep check.
const healthTimeout = 5 * time.Second

// poolStatser is implemented by backends with a connection pool.
type poolStatser interface {
	PoolStats() map[string]any
}

// innermost strips decorators such as the template cache.
func innermost(s ports.Store) ports.Store {
	for {
		u, ok := s.(interface{ Unwrap() ports.Store })
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}

// Health handles GET /health. storageBackendActive reports whether the
// database backend is serving (false means the JSON file fallback).
// With ?deep=true every dependency is probed in parallel.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	backend := h.store.Backend()
	health := map[string]any{
		"ok":                   true,
		"storageBackendActive": backend == "postgres",
		"backend":              backend,
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, check := range checks {
			if check["status"] != "ok" {
				health["ok"] = false
				log.Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	status := http.StatusOK
	if health["ok"] == false {
		status = http.StatusServiceUnavailable
	}
	httpkit.WriteJSON(w, status, health)
	return nil
}

// deepHealthCheck runs the store ping and every registered check.
func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	probes := map[string]HealthCheck{"store": h.store.Ping}
	for name, check := range h.checks {
		probes[name] = check
	}
	if _, ok := probes["storage"]; !ok && h.sp != nil {
		probes["storage"] = func(context.Context) error { return nil }
	}

	var (
		mu     sync.Mutex
		checks = make(map[string]map[string]any, len(probes))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, probe := range probes {
		g.Go(func() error {
			result := runCheck(gctx, probe)
			mu.Lock()
			checks[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if ps, ok := innermost(h.store).(poolStatser); ok {
		for k, v := range ps.PoolStats() {
			checks["store"][k] = v
		}
	}
	if h.sp != nil {
		if c, ok := checks["storage"]; ok {
			c["provider"] = h.sp.Provider()
		}
	}
	return checks
}

func runCheck(ctx context.Context, probe HealthCheck) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := probe(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}
