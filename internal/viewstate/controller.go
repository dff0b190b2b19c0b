package viewstate

import (
	"context"
	"strings"
	"sync"

	"jobs-viewer/internal/metrics"
	"jobs-viewer/internal/models"

	"go.uber.org/zap"
)

// Source is the listings API as seen by the view state.
type Source interface {
	Dates(ctx context.Context) ([]string, error)
	Jobs(ctx context.Context, date string, includeInternships bool) ([]models.Job, error)
}

// Controller is the single owner of one page session's State. Fetches run
// outside the lock; a response is applied only if no newer load was issued
// while it was in flight.
type Controller struct {
	mu     sync.Mutex
	state  State
	source Source
	logger *zap.Logger
}

func NewController(source Source, logger *zap.Logger) *Controller {
	return &Controller{
		source: source,
		logger: logger,
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) update(fn func(State) State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = fn(c.state)
	return c.state
}

// LoadDates fetches the available dates, selects the first one and loads its
// jobs. A failure leaves the selector empty and is shown in the list pane.
func (c *Controller) LoadDates(ctx context.Context) State {
	st := c.update(State.BeginLoad)
	seq := st.Seq

	dates, err := c.source.Dates(ctx)

	var applied bool
	st = c.update(func(s State) State {
		if !s.Current(seq) {
			return s
		}
		applied = true
		if err != nil {
			return s.FailDates(seq)
		}
		return s.ApplyDates(seq, dates)
	})
	if !applied {
		metrics.StaleResponses.WithLabelValues(metrics.EndpointDates).Inc()
		c.logger.Debug("Discarded stale dates response", zap.Uint64("seq", seq))
		return st
	}
	if err != nil {
		c.logger.Error("Failed to load dates", zap.Error(err))
		return st
	}

	c.logger.Debug("Dates loaded", zap.Int("count", len(dates)))
	if len(dates) == 0 {
		return st
	}
	return c.LoadJobs(ctx, dates[0])
}

// LoadJobs fetches the jobs of date with the current internship filter. The
// list shows the loading indicator until the response is applied.
func (c *Controller) LoadJobs(ctx context.Context, date string) State {
	date = strings.TrimSpace(date)
	st := c.update(func(s State) State {
		return s.WithDate(date).BeginLoad()
	})
	seq, include := st.Seq, st.IncludeInternships

	jobs, err := c.source.Jobs(ctx, date, include)

	var applied bool
	st = c.update(func(s State) State {
		if !s.Current(seq) {
			return s
		}
		applied = true
		if err != nil {
			return s.FailJobs(seq)
		}
		return s.ApplyJobs(seq, jobs)
	})
	if !applied {
		metrics.StaleResponses.WithLabelValues(metrics.EndpointJobs).Inc()
		c.logger.Debug("Discarded stale jobs response",
			zap.Uint64("seq", seq),
			zap.String("date", date),
		)
		return st
	}
	if err != nil {
		c.logger.Error("Failed to load jobs",
			zap.String("date", date),
			zap.Bool("include_internships", include),
			zap.Error(err),
		)
		return st
	}

	c.logger.Debug("Jobs loaded",
		zap.String("date", date),
		zap.Bool("include_internships", include),
		zap.Int("count", len(jobs)),
	)
	return st
}

// SetIncludeInternships updates the filter and reloads the selected date.
// Without a selected date only the flag changes.
func (c *Controller) SetIncludeInternships(ctx context.Context, include bool) State {
	st := c.update(func(s State) State {
		return s.WithIncludeInternships(include)
	})
	if st.SelectedDate == "" {
		return st
	}
	return c.LoadJobs(ctx, st.SelectedDate)
}

// ApplyFilters sets both the date and the internship filter, then reloads.
func (c *Controller) ApplyFilters(ctx context.Context, date string, include bool) State {
	c.update(func(s State) State {
		return s.WithIncludeInternships(include)
	})
	return c.LoadJobs(ctx, date)
}

// Select shows the job with the given id. Unknown ids clear the selection.
func (c *Controller) Select(id string) State {
	return c.update(func(s State) State {
		return s.Select(id)
	})
}
