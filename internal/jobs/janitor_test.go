package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testlog "service-delivery/internal/testutil"
)

type stubEvictor struct {
	mu    sync.Mutex
	calls []time.Time
	n     int
}

func (s *stubEvictor) EvictTerminal(olderThan time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, olderThan)
	return s.n
}

func (s *stubEvictor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestJanitor_RunOnceUsesCutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := &stubEvictor{n: 3}
	rec := testlog.New()
	j := NewJanitor(rec.Logger(), ev, "", 10*time.Minute)
	j.now = func() time.Time { return now }

	require.Equal(t, 3, j.RunOnce())
	require.Equal(t, []time.Time{now.Add(-10 * time.Minute)}, ev.calls)

	entries := rec.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "evicted settled deliveries", entries[0].Msg)
}

func TestJanitor_QuietWhenNothingEvicted(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	j := NewJanitor(rec.Logger(), &stubEvictor{}, "", time.Minute)

	require.Zero(t, j.RunOnce())
	require.Empty(t, rec.Entries())
}

func TestJanitor_BadSchedule(t *testing.T) {
	t.Parallel()

	j := NewJanitor(nil, &stubEvictor{}, "every now and then", time.Minute)
	require.Error(t, j.Start())
}

func TestJanitor_RunsOnSchedule(t *testing.T) {
	t.Parallel()

	ev := &stubEvictor{}
	j := NewJanitor(nil, ev, "@every 1s", time.Minute)
	require.Equal(t, DefaultSchedule, NewJanitor(nil, ev, "", 0).schedule)

	require.NoError(t, j.Start())
	require.Eventually(t, func() bool { return ev.count() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.Stop(ctx)
}
