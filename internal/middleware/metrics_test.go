package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/service"
)

func TestMetricsRecordsRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/api/v1/sync/jobs/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/sync/jobs/abc", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	metrics.Handler().ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `path="/api/v1/sync/jobs/:id"`)
}

type requestRecorder struct {
	routes []string
}

func (r *requestRecorder) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.routes = append(r.routes, method+" "+path)
}

func TestMetricsLabelsUnmatchedAndSkipsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &requestRecorder{}
	r := gin.New()
	r.Use(Metrics(rec, "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/wp-login.php", "/.env"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
	}

	assert.Equal(t, []string{"GET unmatched", "GET unmatched"}, rec.routes)
}
