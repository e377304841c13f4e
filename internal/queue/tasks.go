package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TypeDownload  = "media:download"
	TypeTranslate = "media:translate"
)

// QueueName is the asynq queue every task goes to
const QueueName = "nassav"

// Payload is the body of every task
type Payload struct {
	Identifier string `json:"identifier"`
	JobID      string `json:"job_id,omitempty"`
}

// DownloadTaskID is the asynq task id that makes download enqueues unique
func DownloadTaskID(identifier string) string {
	return "download:" + identifier
}

// TranslateTaskID is the asynq task id of a translation job
func TranslateTaskID(identifier string) string {
	return "translate:" + identifier
}

// NewDownloadTask builds a download task for identifier
func NewDownloadTask(identifier, jobID string) (*asynq.Task, error) {
	return newTask(TypeDownload, Payload{Identifier: identifier, JobID: jobID})
}

// NewTranslateTask builds a translation task for identifier
func NewTranslateTask(identifier string) (*asynq.Task, error) {
	return newTask(TypeTranslate, Payload{Identifier: identifier})
}

func newTask(taskType string, p Payload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, data), nil
}

// ParsePayload decodes a task body
func ParsePayload(t *asynq.Task) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("unmarshal %s: %w", t.Type(), err)
	}
	if p.Identifier == "" {
		return p, fmt.Errorf("%s payload has no identifier", t.Type())
	}
	return p, nil
}
