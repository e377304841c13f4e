package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// Inspector reports whether the broker still holds a job for an identifier
type Inspector interface {
	InFlight(ctx context.Context, taskType, identifier string) (bool, error)
	// Reclaim frees the id of a finished task so it can be enqueued again.
	// It reports false while the task is still pending or running.
	Reclaim(ctx context.Context, taskID string) (bool, error)
}

// Enqueuer submits tasks to the broker. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqInspector introspects the asynq queue
type AsynqInspector struct {
	inspector *asynq.Inspector
	pageSize  int
}

// NewAsynqInspector wraps inspector
func NewAsynqInspector(inspector *asynq.Inspector) *AsynqInspector {
	return &AsynqInspector{inspector: inspector, pageSize: 500}
}

// InFlight scans active, pending, scheduled and retry tasks for a matching payload
func (i *AsynqInspector) InFlight(_ context.Context, taskType, identifier string) (bool, error) {
	listers := []struct {
		state string
		list  func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	}{
		{"active", i.inspector.ListActiveTasks},
		{"pending", i.inspector.ListPendingTasks},
		{"scheduled", i.inspector.ListScheduledTasks},
		{"retry", i.inspector.ListRetryTasks},
	}

	for _, l := range listers {
		tasks, err := l.list(QueueName, asynq.PageSize(i.pageSize))
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to list %s tasks: %w", l.state, err)
		}
		for _, t := range tasks {
			if matches(t, taskType, identifier) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Reclaim deletes the task taskID when asynq has archived or completed it.
// Archived ids are otherwise reserved until the archive is trimmed.
func (i *AsynqInspector) Reclaim(_ context.Context, taskID string) (bool, error) {
	info, err := i.inspector.GetTaskInfo(QueueName, taskID)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}

	switch info.State {
	case asynq.TaskStateArchived, asynq.TaskStateCompleted:
		if err := i.inspector.DeleteTask(QueueName, taskID); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			return false, fmt.Errorf("failed to delete task %s: %w", taskID, err)
		}
		return true, nil
	default:
		return false, nil
	}
}

func matches(info *asynq.TaskInfo, taskType, identifier string) bool {
	if info.Type != taskType {
		return false
	}
	p, err := ParsePayload(asynq.NewTask(info.Type, info.Payload))
	return err == nil && p.Identifier == identifier
}
