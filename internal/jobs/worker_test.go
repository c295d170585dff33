package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	Username string `json:"username"`
}

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueue(client, time.Minute)
}

func TestScheduleAndPending(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	now := time.UnixMilli(1700000000000)

	require.NoError(t, q.Schedule(ctx, "later", "app", greeting{"b"}, now.Add(time.Hour)))
	require.NoError(t, q.Schedule(ctx, "sooner", "app", greeting{"a"}, now))

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "sooner", pending[0].Name)
	assert.Equal(t, "later", pending[1].Name)
	assert.JSONEq(t, `{"username":"a"}`, string(pending[0].Data))
}

func TestClaimOnlyDueJobs(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	now := time.UnixMilli(1700000000000)

	require.NoError(t, q.Schedule(ctx, "due", "app", greeting{"a"}, now.Add(-time.Second)))
	require.NoError(t, q.Schedule(ctx, "future", "app", greeting{"b"}, now.Add(5*time.Minute)))

	claimed, err := q.Claim(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "due", claimed[0].Name)
	assert.Equal(t, 1, claimed[0].Attempts)

	again, err := q.Claim(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestExpiredInflightIsRequeued(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	now := time.UnixMilli(1700000000000)

	require.NoError(t, q.Schedule(ctx, "flaky", "app", greeting{"a"}, now))
	claimed, err := q.Claim(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	n, err := q.RequeueExpired(ctx, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	later := now.Add(2 * time.Minute)
	n, err = q.RequeueExpired(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	claimed, err = q.Claim(ctx, later, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 2, claimed[0].Attempts)
}

func TestWorkerDispatchesTypedPayload(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	w := NewWorker(q, time.Second, 10)
	now := time.UnixMilli(1700000000000)
	w.now = func() time.Time { return now }

	var got []string
	Handle(w, "greet", func(ctx context.Context, appID string, p greeting) error {
		got = append(got, appID+"/"+p.Username)
		return nil
	})

	require.NoError(t, q.Schedule(ctx, "greet", "app1", greeting{"alice"}, now))
	require.NoError(t, q.Schedule(ctx, "greet", "app2", greeting{"bob"}, now.Add(time.Hour)))

	n, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"app1/alice"}, got)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestWorkerAcksFailuresAndPanics(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	w := NewWorker(q, time.Second, 10)
	now := time.UnixMilli(1700000000000)
	w.now = func() time.Time { return now }

	calls := 0
	w.Register("fails", func(ctx context.Context, job Job) error {
		calls++
		return errors.New("platform down")
	})
	w.Register("panics", func(ctx context.Context, job Job) error {
		calls++
		panic("boom")
	})

	require.NoError(t, q.Schedule(ctx, "fails", "app", greeting{}, now))
	require.NoError(t, q.Schedule(ctx, "panics", "app", greeting{}, now))
	require.NoError(t, q.Schedule(ctx, "unknown", "app", greeting{}, now))

	n, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, calls)

	// Nothing left to retry, even after the visibility window.
	w.now = func() time.Time { return now.Add(time.Hour) }
	n, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRunStopsOnCancel(t *testing.T) {
	q := newTestQueue(t)
	w := NewWorker(q, 10*time.Millisecond, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
