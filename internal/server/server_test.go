package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobs-viewer/tests/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	testutils.SetupGinTestMode()
	ctx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(ctx)

	server, err := New(ctx.Config, ctx.Logger)

	require.NoError(t, err)
	assert.NotNil(t, server.Router)
	assert.Equal(t, ctx.Config, server.config)
	assert.NotNil(t, server.backend)
	assert.NotNil(t, server.sessions)
}

func TestNew_InvalidBackendURL(t *testing.T) {
	testutils.SetupGinTestMode()
	cfg := testutils.NewTestConfig("not-a-url")

	_, err := New(cfg, zap.NewNop())

	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	server.Router.ServeHTTP(w, req)

	testutils.AssertJSONResponse(t, w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "jobs-viewer",
	})
}

func TestReadinessCheck(t *testing.T) {
	testutils.SetupGinTestMode()
	server, backend := createTestServer(t)

	t.Run("backend_up", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))

		testutils.AssertJSONResponse(t, w, http.StatusOK, map[string]interface{}{
			"status":  "ready",
			"service": "jobs-viewer",
		})

		var response map[string]interface{}
		testutils.ParseJSONResponse(t, w, &response)
		checks := response["checks"].(map[string]interface{})
		assert.Equal(t, "healthy", checks["backend"])
	})

	t.Run("backend_down", func(t *testing.T) {
		backend.FailDates(true)
		defer backend.FailDates(false)

		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))

		testutils.AssertErrorResponse(t, w, http.StatusServiceUnavailable, "Listings API unreachable")
	})
}

func TestSecurityHeaders(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t)

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "script-src 'self'")
}

func TestCORSPreflight(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/events/select", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	server.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticFiles(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t)

	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, w.Body.String())
		})
	}

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/static/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t)

	// a page load hits the backend so the counters have samples
	server.Router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jobs_viewer_backend_requests_total")
	assert.Contains(t, w.Body.String(), "jobs_viewer_active_sessions")
}

func TestMetricsDisabled(t *testing.T) {
	testutils.SetupGinTestMode()
	ctx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(ctx)
	ctx.Config.Metrics.Enabled = false

	server, err := New(ctx.Config, ctx.Logger)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIndexPage(t *testing.T) {
	testutils.SetupGinTestMode()
	server, backend := createTestServer(t)
	backend.SetDates("2024-03-01")
	backend.SetJobs("2024-03-01", testutils.JobRecord("j1", "Go Developer", "Acme", 0.12))

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))

	doc := testutils.ParseHTML(t, w)
	assert.Equal(t, "Go Developer", strings.TrimSpace(doc.Find(".job-card-title").Text()))
	assert.Equal(t, "1 offre", strings.TrimSpace(doc.Find("#job-count").Text()))
}

func TestRateLimiting(t *testing.T) {
	testutils.SetupGinTestMode()
	ctx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(ctx)
	ctx.Config.RateLimit.Requests = 2
	ctx.Config.RateLimit.Window = 60

	server, err := New(ctx.Config, ctx.Logger)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		server.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	server.Router.ServeHTTP(w, req)

	testutils.AssertErrorResponse(t, w, http.StatusTooManyRequests, "Rate limit exceeded")
}

func TestRequestIDMiddleware(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t)

	t.Run("without_request_id", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		requestID := w.Header().Get("X-Request-ID")
		assert.Len(t, requestID, 36)
	})

	t.Run("with_existing_request_id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Request-ID", "test-request-id-123")
		server.Router.ServeHTTP(w, req)

		assert.Equal(t, "test-request-id-123", w.Header().Get("X-Request-ID"))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t)

	server.Router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	testutils.AssertErrorResponse(t, w, http.StatusInternalServerError, "Internal server error")

	var response map[string]interface{}
	testutils.ParseJSONResponse(t, w, &response)
	assert.Contains(t, response, "request_id")
}

func TestConcurrentRequests(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t)

	const numRequests = 10
	results := make(chan int, numRequests)

	for i := 0; i < numRequests; i++ {
		go func() {
			w := httptest.NewRecorder()
			server.Router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
			results <- w.Code
		}()
	}

	for i := 0; i < numRequests; i++ {
		assert.Equal(t, http.StatusOK, <-results)
	}
}

func TestInvalidHTTPMethods(t *testing.T) {
	testutils.SetupGinTestMode()
	server, _ := createTestServer(t)

	for _, path := range []string{"/events/select", "/events/date"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))

			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

// Helper functions

func createTestServer(t *testing.T) (*Server, *testutils.FakeBackend) {
	t.Helper()
	ctx := testutils.SetupTestContext(t)
	t.Cleanup(func() { testutils.CleanupTestContext(ctx) })

	server, err := New(ctx.Config, ctx.Logger)
	require.NoError(t, err)
	return server, ctx.Backend
}
