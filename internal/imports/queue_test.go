package imports

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestQueueBoundsAndOrder(t *testing.T) {
	queue := NewQueue(2)
	ctx := context.Background()

	first := Task{JobID: uuid.New(), TenantID: "tenant-a"}
	second := Task{JobID: uuid.New(), TenantID: "tenant-a"}
	require.NoError(t, queue.Enqueue(ctx, first))
	require.NoError(t, queue.Enqueue(ctx, second))
	require.Equal(t, 2, queue.Len())

	err := queue.Enqueue(ctx, Task{JobID: uuid.New(), TenantID: "tenant-a"})
	require.ErrorIs(t, err, ErrQueueFull)

	require.Equal(t, first.JobID, (<-queue.Tasks()).JobID)
	require.Equal(t, second.JobID, (<-queue.Tasks()).JobID)
}

func TestQueueDefaultCapacity(t *testing.T) {
	queue := NewQueue(0)
	require.Equal(t, DefaultQueueCapacity, cap(queue.tasks))
}

func TestIntakeSubmit(t *testing.T) {
	jobStore := newFakeJobStore()
	queue := NewQueue(4)
	intake := NewIntake(jobStore, queue, zerolog.Nop())

	job, err := intake.Submit(context.Background(), "tenant-a", []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, JobQueued, job.Status)
	require.Zero(t, job.Progress)

	// The row is durable before the payload hits the queue.
	stored, err := jobStore.Get(context.Background(), "tenant-a", job.ID)
	require.NoError(t, err)
	require.Equal(t, JobQueued, stored.Status)

	task := <-queue.Tasks()
	require.Equal(t, job.ID, task.JobID)
	require.Equal(t, []byte("payload"), task.Payload)
}

func TestIntakeSubmitQueueFull(t *testing.T) {
	jobStore := newFakeJobStore()
	queue := NewQueue(1)
	intake := NewIntake(jobStore, queue, zerolog.Nop())

	_, err := intake.Submit(context.Background(), "tenant-a", []byte("one"))
	require.NoError(t, err)

	_, err = intake.Submit(context.Background(), "tenant-a", []byte("two"))
	require.ErrorIs(t, err, ErrQueueFull)
}
