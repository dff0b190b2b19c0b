package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jobs-viewer/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.BackendConfig{URL: srv.URL, Timeout: 2 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient(config.BackendConfig{URL: "/api", Timeout: time.Second}, zap.NewNop())
	assert.Error(t, err)
}

func TestClient_Dates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dates", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["2024-03-02","2024-03-01"]`))
	})

	dates, err := c.Dates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-02", "2024-03-01"}, dates)
}

func TestClient_DatesFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server_error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"unparsable", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>oops</html>`))
		}},
		{"null_body", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`null`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)

			_, err := c.Dates(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDateLoad))
			assert.False(t, errors.Is(err, ErrJobLoad))
		})
	}
}

func TestClient_Jobs(t *testing.T) {
	var gotQuery atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs", r.URL.Path)
		gotQuery.Store(r.URL.Query())
		_, _ = w.Write([]byte(`[{"id":"1","title":"A","ai_score":0.1},{"id":"2","title":"B","ai_score":0.35}]`))
	})

	jobs, err := c.Jobs(context.Background(), "2024-03-02 10:00:00", true)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "A", jobs[0].Title)

	q := gotQuery.Load().(interface{ Get(string) string })
	assert.Equal(t, "2024-03-02 10:00:00", q.Get("date"))
	assert.Equal(t, "true", q.Get("include_internships"))

	_, err = c.Jobs(context.Background(), "2024-03-02", false)
	require.NoError(t, err)
	q = gotQuery.Load().(interface{ Get(string) string })
	assert.Equal(t, "false", q.Get("include_internships"))
}

func TestClient_JobsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Jobs(context.Background(), "2024-03-02", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobLoad))
	assert.Contains(t, err.Error(), "502")
}

func TestClient_JobsNullBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`null`))
	})

	jobs, err := c.Jobs(context.Background(), "2024-03-02", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobLoad))
	assert.False(t, errors.Is(err, ErrDateLoad))
	assert.Nil(t, jobs)
}

func TestClient_JobsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(config.BackendConfig{URL: url, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Jobs(context.Background(), "2024-03-02", false)
	assert.True(t, errors.Is(err, ErrJobLoad))
}

func TestClient_CoalescesIdenticalRequests(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_, _ = w.Write([]byte(`[{"id":"1","ai_score":0.1}]`))
	})

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jobs, err := c.Jobs(context.Background(), "2024-03-02", false)
			if assert.NoError(t, err) {
				results[i] = len(jobs)
			}
		}(i)
	}

	// Let every goroutine join the in-flight call before the backend answers.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, []int{1, 1, 1, 1, 1}, results)
}

func TestClient_Ping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	assert.NoError(t, c.Ping(context.Background()))
}
