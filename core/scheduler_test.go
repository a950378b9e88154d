package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"submerger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsAndStops(t *testing.T) {
	store := &fakeStore{subs: []models.Subscription{
		{ID: "1", URL: "http://one.example.com", Name: "sub1"},
	}}
	var fetches atomic.Int32
	fetch := func(ctx context.Context, url string) (string, error) {
		fetches.Add(1)
		return "proxies:\n  - name: ProxyA\n", nil
	}

	svc := NewRefreshService(store, fetch)
	sched := NewScheduler(svc, 10*time.Millisecond)
	sched.Start(context.Background())

	require.Eventually(t, func() bool {
		return fetches.Load() >= 2
	}, time.Second, 5*time.Millisecond, "scheduler should fire repeatedly")

	sched.Stop()
	after := fetches.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, fetches.Load(), "no refreshes may run after Stop returns")
	assert.Contains(t, store.savedConfig(), "sub1_ProxyA")
}

func TestSchedulerDoubleStartIsNoop(t *testing.T) {
	store := &fakeStore{}
	svc := NewRefreshService(store, fetchFromMap(nil))
	sched := NewScheduler(svc, time.Hour)

	ctx := context.Background()
	sched.Start(ctx)
	sched.Start(ctx) // Second call must not spawn a second loop.
	sched.Stop()

	// Stop again is safe too.
	sched.Stop()
}
