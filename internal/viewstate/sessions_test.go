package viewstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessions_CreateGet(t *testing.T) {
	s := NewSessions(time.Minute, &fakeSource{}, zap.NewNop())

	id, ctrl := s.Create()
	require.NotEmpty(t, id)

	got, ok := s.Get(id)
	assert.True(t, ok)
	assert.Same(t, ctrl, got)

	other, _ := s.Create()
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, s.Count())
}

func TestSessions_Unknown(t *testing.T) {
	s := NewSessions(time.Minute, &fakeSource{}, zap.NewNop())

	_, ok := s.Get("")
	assert.False(t, ok)
	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestSessions_Delete(t *testing.T) {
	s := NewSessions(time.Minute, &fakeSource{}, zap.NewNop())
	id, _ := s.Create()

	s.Delete(id)

	_, ok := s.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Count())
}

func TestSessions_Expire(t *testing.T) {
	s := NewSessions(50*time.Millisecond, &fakeSource{}, zap.NewNop())
	id, _ := s.Create()

	time.Sleep(120 * time.Millisecond)

	_, ok := s.Get(id)
	assert.False(t, ok)
}
