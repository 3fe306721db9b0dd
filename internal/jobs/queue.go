// Package jobs hands long-running sync operations to an external worker
// through a named Redis list. Enqueue is fire-and-forget: the caller gets an
// opaque job id back immediately; completion and retry tracking belong to
// whichever consumer pops the job.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Job names the external worker dispatches on. Kept aligned with the task
// names the campaign scheduler knows.
const (
	JobSyncGroups       = "sync_whatsapp_groups"
	JobSyncContacts     = "sync_whatsapp_contacts"
	JobSyncStatus       = "sync_whatsapp_instance_status"
	JobDispatchCampaign = "dispatch_scheduled_message"
)

// Job is the queue's wire record: a name and a single string argument. For
// sync jobs the argument is the instance id; for campaign dispatch it is the
// scheduled message id.
type Job struct {
	ID         string    `json:"id"`
	Name       string    `json:"job"`
	Arg        string    `json:"instance_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Queue struct {
	rdb  *redis.Client
	name string
}

func NewQueue(rdb *redis.Client, name string) *Queue {
	if name == "" {
		name = "default"
	}
	return &Queue{rdb: rdb, name: name}
}

func (q *Queue) key() string { return "wa:jobs:" + q.name }

// Enqueue pushes one job and returns its handle without waiting for anything
// downstream.
func (q *Queue) Enqueue(ctx context.Context, jobName, arg string) (string, error) {
	j := Job{
		ID:         uuid.NewString(),
		Name:       jobName,
		Arg:        arg,
		EnqueuedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	if err := q.rdb.LPush(ctx, q.key(), payload).Err(); err != nil {
		return "", err
	}
	return j.ID, nil
}

// Dequeue blocks up to timeout for the next job. No job within the window
// returns (nil, nil).
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPOP answers [key, value].
	if len(res) != 2 {
		return nil, nil
	}
	var j Job
	if err := json.Unmarshal([]byte(res[1]), &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Depth reports the number of queued jobs, for metrics.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key()).Result()
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
