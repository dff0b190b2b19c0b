package viewstate

import (
	"time"

	"jobs-viewer/internal/metrics"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Sessions holds one Controller per page session. Idle sessions expire after
// the configured TTL.
type Sessions struct {
	store  *cache.Cache
	source Source
	logger *zap.Logger
}

func NewSessions(ttl time.Duration, source Source, logger *zap.Logger) *Sessions {
	store := cache.New(ttl, ttl)
	store.OnEvicted(func(string, interface{}) {
		metrics.ActiveSessions.Dec()
	})

	return &Sessions{
		store:  store,
		source: source,
		logger: logger.Named("viewstate"),
	}
}

// Create starts a fresh page session and returns its id.
func (s *Sessions) Create() (string, *Controller) {
	id := uuid.New().String()
	ctrl := NewController(s.source, s.logger.With(zap.String("session_id", id)))
	s.store.Set(id, ctrl, cache.DefaultExpiration)
	metrics.ActiveSessions.Inc()
	return id, ctrl
}

// Get returns the session's controller and extends its lifetime.
func (s *Sessions) Get(id string) (*Controller, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := s.store.Get(id)
	if !ok {
		return nil, false
	}
	ctrl := v.(*Controller)
	// Replace fails if the janitor evicted the entry meanwhile; the caller
	// still holds a usable controller for this request.
	_ = s.store.Replace(id, ctrl, cache.DefaultExpiration)
	return ctrl, true
}

// Delete ends a session.
func (s *Sessions) Delete(id string) {
	s.store.Delete(id)
}

// Count is the number of live sessions.
func (s *Sessions) Count() int {
	return s.store.ItemCount()
}
