package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMiddlewareCountsStatus(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, p := range []string{"/a", "/b", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `menuforge_http_requests_total{method="GET",status="200"} 2`)
	assert.Contains(t, body, `menuforge_http_requests_total{method="GET",status="404"} 1`)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.TreeMutations.Increment("move")
	m.Exports.Increment("php")

	body := scrape(t, m)
	assert.Contains(t, body, `menuforge_tree_mutations_total{op="move"} 1`)
	assert.Contains(t, body, `menuforge_exports_total{format="php"} 1`)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.PublishJobs.Increment("DONE")

	assert.Contains(t, scrape(t, a), `menuforge_publish_jobs_total{status="DONE"} 1`)
	assert.NotContains(t, scrape(t, b), `menuforge_publish_jobs_total{status="DONE"}`)
}
