package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	database "github.com/tsurugroups/wa-platform/internal/db"
)

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	rdb := database.StartTestRedis(t)
	q := NewQueue(rdb, "default")
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, JobSyncGroups, "inst-1")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depth)

	j, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, j)
	require.Equal(t, jobID, j.ID)
	require.Equal(t, JobSyncGroups, j.Name)
	require.Equal(t, "inst-1", j.Arg)
	require.WithinDuration(t, time.Now(), j.EnqueuedAt, time.Minute)

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	require.Zero(t, depth)
}

func TestDequeueFIFO(t *testing.T) {
	rdb := database.StartTestRedis(t)
	q := NewQueue(rdb, "default")
	ctx := context.Background()

	first, err := q.Enqueue(ctx, JobSyncStatus, "inst-1")
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, JobSyncContacts, "inst-2")
	require.NoError(t, err)

	j, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, first, j.ID)

	j, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, second, j.ID)
}

func TestDequeueEmptyTimesOut(t *testing.T) {
	rdb := database.StartTestRedis(t)
	q := NewQueue(rdb, "default")

	start := time.Now()
	j, err := q.Dequeue(context.Background(), 300*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, j)
	require.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestQueuesAreIsolated(t *testing.T) {
	rdb := database.StartTestRedis(t)
	syncQ := NewQueue(rdb, "default")
	campQ := NewQueue(rdb, "campaigns")
	ctx := context.Background()

	_, err := campQ.Enqueue(ctx, JobDispatchCampaign, "sched-1")
	require.NoError(t, err)

	// the sync worker never sees campaign jobs
	j, err := syncQ.Dequeue(ctx, 200*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, j)

	j, err = campQ.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, j)
	require.Equal(t, JobDispatchCampaign, j.Name)
}
