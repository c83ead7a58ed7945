// Package queue holds the job queues drained by resident workers.
//
// Every backend works on a connection handed to it by the caller, so a task
// can pop a job and write its side effects on the same connection it
// acquired for the tick.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyPayload = errors.New("queue: empty payload")

// Queue is a FIFO of opaque payloads reachable through a connection of type C.
type Queue[C any] interface {
	Push(ctx context.Context, conn C, payload []byte) error
	// Pop removes and returns the oldest payload. ok is false when the queue is empty.
	Pop(ctx context.Context, conn C) (payload []byte, ok bool, err error)
	Len(ctx context.Context, conn C) (int64, error)
}

// Job is the payload batch loopers enqueue and drain workers consume.
type Job struct {
	ID      uuid.UUID  `json:"id"`
	Batch   string     `json:"batch,omitempty"`
	Now     time.Time  `json:"now"`
	Account *uuid.UUID `json:"account,omitempty"`
	Data    any        `json:"data,omitempty"`
}

// NewJob stamps a job with a fresh id.
func NewJob(batch string, now time.Time) Job {
	return Job{ID: uuid.New(), Batch: batch, Now: now}
}

func (j Job) Encode() ([]byte, error) { return json.Marshal(j) }

func DecodeJob(b []byte) (Job, error) {
	var j Job
	err := json.Unmarshal(b, &j)
	return j, err
}
