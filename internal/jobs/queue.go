package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	queueKey    = "jobs:queue"
	inflightKey = "jobs:inflight"
	payloadsKey = "jobs:payloads"
)

// Job is one scheduled unit of work.
type Job struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	AppID    string          `json:"app_id"`
	Data     json.RawMessage `json:"data"`
	RunAt    time.Time       `json:"run_at"`
	Attempts int             `json:"attempts"`
}

// Scheduler enqueues named jobs with a typed payload to run at or after runAt.
type Scheduler interface {
	Schedule(ctx context.Context, name, appID string, payload any, runAt time.Time) error
}

// moveScript atomically moves a member between two sorted sets. The ZREM
// result decides which worker owns the job.
var moveScript = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 1 then
	redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
	return 1
end
return 0
`)

// Queue is a durable delayed job queue on redis with at-least-once delivery.
// Claimed jobs sit in an inflight set until acked; jobs whose visibility
// deadline passes are put back on the queue.
type Queue struct {
	client     *redis.Client
	visibility time.Duration
}

func NewQueue(client *redis.Client, visibility time.Duration) *Queue {
	if visibility <= 0 {
		visibility = time.Minute
	}
	return &Queue{client: client, visibility: visibility}
}

// Schedule implements Scheduler.
func (q *Queue) Schedule(ctx context.Context, name, appID string, payload any, runAt time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	job := Job{
		ID:    uuid.New().String(),
		Name:  name,
		AppID: appID,
		Data:  data,
		RunAt: runAt,
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, payloadsKey, job.ID, raw)
	pipe.ZAdd(ctx, queueKey, &redis.Z{Score: float64(runAt.UnixMilli()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", name, err)
	}
	return nil
}

// Claim takes up to limit due jobs off the queue.
func (q *Queue) Claim(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	ids, err := q.client.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list due jobs: %w", err)
	}

	deadline := now.Add(q.visibility).UnixMilli()
	claimed := make([]Job, 0, len(ids))
	for _, id := range ids {
		moved, err := moveScript.Run(ctx, q.client, []string{queueKey, inflightKey}, id, deadline).Int()
		if err != nil {
			return claimed, fmt.Errorf("failed to claim job %s: %w", id, err)
		}
		if moved == 0 {
			continue
		}

		job, err := q.load(ctx, id)
		if err != nil {
			slog.Error("dropping unreadable job", "job_id", id, "error", err)
			q.Ack(ctx, id)
			continue
		}
		job.Attempts++
		if raw, err := json.Marshal(job); err == nil {
			q.client.HSet(ctx, payloadsKey, id, raw)
		}
		claimed = append(claimed, job)
	}
	return claimed, nil
}

// Ack removes a finished job.
func (q *Queue) Ack(ctx context.Context, id string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, inflightKey, id)
	pipe.HDel(ctx, payloadsKey, id)
	_, err := pipe.Exec(ctx)
	return err
}

// RequeueExpired returns inflight jobs past their deadline to the queue.
func (q *Queue) RequeueExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := q.client.ZRangeByScore(ctx, inflightKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	requeued := 0
	for _, id := range ids {
		moved, err := moveScript.Run(ctx, q.client, []string{inflightKey, queueKey}, id, now.UnixMilli()).Int()
		if err != nil {
			return requeued, err
		}
		requeued += moved
	}
	return requeued, nil
}

// Pending lists queued jobs ordered by run time.
func (q *Queue) Pending(ctx context.Context) ([]Job, error) {
	ids, err := q.client.ZRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	pending := make([]Job, 0, len(ids))
	for _, id := range ids {
		job, err := q.load(ctx, id)
		if err != nil {
			return nil, err
		}
		pending = append(pending, job)
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].RunAt.Before(pending[j].RunAt) })
	return pending, nil
}

func (q *Queue) load(ctx context.Context, id string) (Job, error) {
	var job Job
	raw, err := q.client.HGet(ctx, payloadsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return job, fmt.Errorf("job %s has no payload", id)
	}
	if err != nil {
		return job, err
	}
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return job, fmt.Errorf("job %s: %w", id, err)
	}
	return job, nil
}
