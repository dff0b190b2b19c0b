package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"jobs-viewer/config"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestContext holds common test dependencies
type TestContext struct {
	Config  *config.Config
	Logger  *zap.Logger
	Backend *FakeBackend
}

// SetupTestContext starts a fake listings API and a config pointing at it.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	backend := NewFakeBackend()
	return &TestContext{
		Config:  NewTestConfig(backend.URL()),
		Logger:  zap.NewNop(),
		Backend: backend,
	}
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(ctx *TestContext) {
	if ctx.Backend != nil {
		ctx.Backend.Close()
	}
}

// NewTestConfig returns a test configuration reading from backendURL.
func NewTestConfig(backendURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port: "8080",
			Host: "localhost",
			Env:  "test",
		},
		Backend: config.BackendConfig{
			URL:     backendURL,
			Timeout: 2 * time.Second,
		},
		Session: config.SessionConfig{
			TTL:        time.Minute,
			CookieName: "jobs_viewer_session",
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "console",
		},
		CORS: config.CORSConfig{
			Origins:     []string{"http://localhost:3000"},
			Credentials: true,
		},
		RateLimit: config.RateLimitConfig{
			Requests: 1000,
			Window:   60,
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
		},
	}
}

// JobsRequest is one job enumeration call received by the fake backend.
type JobsRequest struct {
	Date               string
	IncludeInternships string
}

// FakeBackend serves the listings API from in-memory records. Records whose
// job_type is "internship" are only returned when include_internships=true.
type FakeBackend struct {
	server *httptest.Server

	mu          sync.Mutex
	dates       []string
	jobs        map[string][]map[string]interface{}
	failDates   bool
	failJobs    bool
	jobsDelay   map[string]time.Duration
	jobRequests []JobsRequest
}

func NewFakeBackend() *FakeBackend {
	b := &FakeBackend{
		jobs:      make(map[string][]map[string]interface{}),
		jobsDelay: make(map[string]time.Duration),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/dates", b.serveDates)
	mux.HandleFunc("/api/jobs", b.serveJobs)
	b.server = httptest.NewServer(mux)
	return b
}

func (b *FakeBackend) URL() string {
	return b.server.URL
}

func (b *FakeBackend) Close() {
	b.server.Close()
}

func (b *FakeBackend) SetDates(dates ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dates = dates
}

func (b *FakeBackend) SetJobs(date string, records ...map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[date] = records
}

func (b *FakeBackend) FailDates(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failDates = fail
}

func (b *FakeBackend) FailJobs(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failJobs = fail
}

// DelayJobs makes job requests for date wait d before answering.
func (b *FakeBackend) DelayJobs(date string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobsDelay[date] = d
}

func (b *FakeBackend) JobRequests() []JobsRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]JobsRequest(nil), b.jobRequests...)
}

func (b *FakeBackend) serveDates(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	fail, dates := b.failDates, b.dates
	b.mu.Unlock()

	if fail {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, dates)
}

func (b *FakeBackend) serveJobs(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	include := r.URL.Query().Get("include_internships")

	b.mu.Lock()
	b.jobRequests = append(b.jobRequests, JobsRequest{Date: date, IncludeInternships: include})
	fail, records, delay := b.failJobs, b.jobs[date], b.jobsDelay[date]
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		if rec["job_type"] == "internship" && include != "true" {
			continue
		}
		out = append(out, rec)
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// JobRecord builds a backend job record.
func JobRecord(id, title, company string, score float64) map[string]interface{} {
	return map[string]interface{}{
		"id":             id,
		"title":          title,
		"company":        company,
		"ai_score":       score,
		"job_url_direct": "https://careers.example.com/" + id,
	}
}

// ParseJSONResponse parses JSON response body into a struct
func ParseJSONResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	err := json.Unmarshal(w.Body.Bytes(), target)
	require.NoError(t, err)
}

// AssertJSONResponse asserts that the response has the expected status and contains expected fields
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedFields map[string]interface{}) {
	require.Equal(t, expectedStatus, w.Code)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	ParseJSONResponse(t, w, &response)

	for key, expectedValue := range expectedFields {
		require.Contains(t, response, key)
		if expectedValue != nil {
			require.Equal(t, expectedValue, response[key])
		}
	}
}

// AssertErrorResponse asserts that the response is an error with expected message
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedErrorMessage string) {
	require.Equal(t, expectedStatus, w.Code)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	ParseJSONResponse(t, w, &response)

	require.Contains(t, response, "error")
	if expectedErrorMessage != "" {
		require.Contains(t, response["error"].(string), expectedErrorMessage)
	}
}

// ParseHTML parses an HTML response body.
func ParseHTML(t *testing.T, w *httptest.ResponseRecorder) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
	require.NoError(t, err)
	return doc
}

// ParseFragment parses a markup fragment such as a rendered pane.
func ParseFragment(t *testing.T, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

// SetupGinTestMode sets up Gin in test mode
func SetupGinTestMode() {
	gin.SetMode(gin.TestMode)
}

// TestHTTPClient provides utilities for HTTP testing. It keeps the cookies the
// router sets, like a browser would.
type TestHTTPClient struct {
	router  http.Handler
	mu      sync.Mutex
	cookies map[string]*http.Cookie
}

// NewTestHTTPClient creates a new test HTTP client
func NewTestHTTPClient(router http.Handler) *TestHTTPClient {
	return &TestHTTPClient{
		router:  router,
		cookies: make(map[string]*http.Cookie),
	}
}

// GET performs a GET request
func (c *TestHTTPClient) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	return c.do(req, headers)
}

// POSTForm performs a form-encoded POST request
func (c *TestHTTPClient) POSTForm(path string, form map[string]string, headers map[string]string) *httptest.ResponseRecorder {
	values := url.Values{}
	for k, v := range form {
		values.Set(k, v)
	}
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, headers)
}

func (c *TestHTTPClient) do(req *http.Request, headers map[string]string) *httptest.ResponseRecorder {
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	c.mu.Lock()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	c.mu.Unlock()

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	c.mu.Lock()
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	c.mu.Unlock()
	return w
}

// Cookie returns a cookie held by the client.
func (c *TestHTTPClient) Cookie(name string) (*http.Cookie, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ck, ok := c.cookies[name]
	return ck, ok
}

// ClearCookies forgets every cookie, like a new browser.
func (c *TestHTTPClient) ClearCookies() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = make(map[string]*http.Cookie)
}

// AcceptJSON is the header set the browser script sends.
func AcceptJSON() map[string]string {
	return map[string]string{
		"Accept": "application/json",
	}
}

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(t *testing.T, uuidStr string) {
	_, err := uuid.Parse(uuidStr)
	require.NoError(t, err, "Expected valid UUID, got: %s", uuidStr)
}

// AssertTimestampRecent checks if a timestamp is within the last minute
func AssertTimestampRecent(t *testing.T, timestamp time.Time) {
	now := time.Now()
	diff := now.Sub(timestamp)
	require.True(t, diff >= 0, "Timestamp should not be in the future")
	require.True(t, diff < time.Minute, "Timestamp should be recent (within last minute)")
}
