package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// LocalQueue runs tasks in-process. It stands in for the asynq broker when
// the memory cache backend is selected, honouring task ids, MaxRetry and
// SkipRetry the same way.
type LocalQueue struct {
	mu      sync.Mutex
	handler asynq.Handler
	tasks   map[string]*asynq.TaskInfo
	sem     chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	delay   time.Duration
	logger  *logrus.Logger
}

// NewLocalQueue creates a queue running at most concurrency tasks at once
func NewLocalQueue(concurrency int, logger *logrus.Logger) *LocalQueue {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalQueue{
		tasks:  make(map[string]*asynq.TaskInfo),
		sem:    make(chan struct{}, concurrency),
		ctx:    ctx,
		cancel: cancel,
		delay:  time.Second,
		logger: logger,
	}
}

// Start begins dispatching to handler
func (q *LocalQueue) Start(handler asynq.Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// Wait blocks until every queued task has finished
func (q *LocalQueue) Wait() {
	q.wg.Wait()
}

// Shutdown cancels running tasks and waits for them
func (q *LocalQueue) Shutdown() {
	q.cancel()
	q.wg.Wait()
}

// EnqueueContext schedules task; ctx only bounds the enqueue itself
func (q *LocalQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var taskID string
	maxRetry := 0
	for _, opt := range opts {
		switch opt.Type() {
		case asynq.TaskIDOpt:
			taskID, _ = opt.Value().(string)
		case asynq.MaxRetryOpt:
			maxRetry, _ = opt.Value().(int)
		}
	}

	q.mu.Lock()
	if q.handler == nil {
		q.mu.Unlock()
		return nil, errors.New("local queue not started")
	}
	if taskID == "" {
		taskID = fmt.Sprintf("%s:%d", task.Type(), time.Now().UnixNano())
	}
	if _, exists := q.tasks[taskID]; exists {
		q.mu.Unlock()
		return nil, asynq.ErrTaskIDConflict
	}
	info := &asynq.TaskInfo{
		ID:       taskID,
		Queue:    QueueName,
		Type:     task.Type(),
		Payload:  task.Payload(),
		State:    asynq.TaskStatePending,
		MaxRetry: maxRetry,
	}
	q.tasks[taskID] = info
	handler := q.handler
	q.mu.Unlock()

	q.wg.Add(1)
	go q.run(handler, task, taskID, maxRetry)
	return info, nil
}

func (q *LocalQueue) run(handler asynq.Handler, task *asynq.Task, taskID string, maxRetry int) {
	defer q.wg.Done()

	// Failed tasks stay archived and keep their id, like asynq
	archived := false
	defer func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if info, ok := q.tasks[taskID]; ok && archived {
			info.State = asynq.TaskStateArchived
			return
		}
		delete(q.tasks, taskID)
	}()

	select {
	case q.sem <- struct{}{}:
	case <-q.ctx.Done():
		return
	}
	defer func() { <-q.sem }()

	q.setState(taskID, asynq.TaskStateActive)

	for attempt := 0; ; attempt++ {
		err := handler.ProcessTask(q.ctx, task)
		if err == nil {
			return
		}
		log := q.logger.WithFields(logrus.Fields{
			"task":    taskID,
			"attempt": attempt + 1,
			"error":   err,
		})
		if errors.Is(err, asynq.SkipRetry) || attempt >= maxRetry {
			log.Warn("Task failed")
			archived = true
			return
		}
		log.Info("Retrying task")

		select {
		case <-time.After(q.delay):
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *LocalQueue) setState(taskID string, state asynq.TaskState) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if info, ok := q.tasks[taskID]; ok {
		info.State = state
	}
}

// InFlight reports whether a task for identifier is queued or running
func (q *LocalQueue) InFlight(_ context.Context, taskType, identifier string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, info := range q.tasks {
		if info.State != asynq.TaskStateArchived && matches(info, taskType, identifier) {
			return true, nil
		}
	}
	return false, nil
}

// Reclaim drops an archived task so its id can be enqueued again
func (q *LocalQueue) Reclaim(_ context.Context, taskID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.tasks[taskID]
	if !ok {
		return true, nil
	}
	if info.State != asynq.TaskStateArchived {
		return false, nil
	}
	delete(q.tasks, taskID)
	return true, nil
}
