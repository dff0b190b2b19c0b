package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobs-viewer/config"
	"jobs-viewer/internal/metrics"
	"jobs-viewer/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrDateLoad wraps every failure of the date enumeration request.
	ErrDateLoad = errors.New("date load failed")
	// ErrJobLoad wraps every failure of the job enumeration request.
	ErrJobLoad = errors.New("job load failed")
)

// maxBodySize caps what is read from a single API response.
const maxBodySize = 32 << 20

// Client reads the listings API. It never retries.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
	group   singleflight.Group
}

// NewClient creates a client for the API rooted at cfg.URL.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute", cfg.URL)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger.Named("backend"),
	}, nil
}

// Dates returns the available listing dates, primary date first.
func (c *Client) Dates(ctx context.Context) ([]string, error) {
	v, err, _ := c.group.Do("dates", func() (interface{}, error) {
		body, err := c.get(ctx, metrics.EndpointDates, "/api/dates", nil)
		if err != nil {
			return nil, err
		}
		return models.DecodeDates(body)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDateLoad, err)
	}
	return v.([]string), nil
}

// Jobs returns the postings of one date, with or without internships.
func (c *Client) Jobs(ctx context.Context, date string, includeInternships bool) ([]models.Job, error) {
	flag := strconv.FormatBool(includeInternships)
	query := url.Values{}
	query.Set("date", date)
	query.Set("include_internships", flag)

	v, err, shared := c.group.Do("jobs|"+date+"|"+flag, func() (interface{}, error) {
		body, err := c.get(ctx, metrics.EndpointJobs, "/api/jobs", query)
		if err != nil {
			return nil, err
		}
		jobs, rejected, err := models.DecodeJobs(body)
		if err != nil {
			return nil, err
		}
		for _, r := range rejected {
			c.logger.Warn("Dropped job record",
				zap.String("date", date),
				zap.Int("index", r.Index),
				zap.String("job_id", r.ID),
				zap.String("reason", r.Reason),
			)
		}
		metrics.RejectedJobRecords.Add(float64(len(rejected)))
		return jobs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJobLoad, err)
	}
	if shared {
		c.logger.Debug("Coalesced job request", zap.String("date", date), zap.Bool("include_internships", includeInternships))
	}
	return v.([]models.Job), nil
}

// Ping checks that the API answers the date enumeration.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, metrics.EndpointDates, "/api/dates", nil)
	return err
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	start := time.Now()
	body, err := c.do(ctx, u.String())
	metrics.BackendLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, metrics.OutcomeFailure).Inc()
		c.logger.Error("Backend request failed",
			zap.String("endpoint", endpoint),
			zap.String("url", u.String()),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.BackendRequests.WithLabelValues(endpoint, metrics.OutcomeSuccess).Inc()
	c.logger.Debug("Backend request",
		zap.String("endpoint", endpoint),
		zap.String("url", u.String()),
		zap.Duration("latency", time.Since(start)),
		zap.Int("body_size", len(body)),
	)
	return body, nil
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBodySize)
	}
	return body, nil
}
