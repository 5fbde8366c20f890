// Package tasks carries board generation onto a Redis-backed queue so the
// HTTP surface can acknowledge a request before the pipeline finishes.
package tasks

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

// TypeBoardGenerate is the queue type for full board generation jobs.
const TypeBoardGenerate = "board:generate"

// GeneratePayload identifies the board to build and the channels feeding it.
type GeneratePayload struct {
	BoardID    int64    `json:"boardId"`
	OwnerID    int64    `json:"ownerId"`
	ChannelIDs []string `json:"channelIds"`
}

// Dispatcher enqueues board generation jobs.
type Dispatcher interface {
	DispatchGenerate(ctx context.Context, payload GeneratePayload) error
}

// QueueDispatcher dispatches jobs through an asynq client.
type QueueDispatcher struct {
	client *asynq.Client
}

// NewQueueDispatcher constructs a dispatcher over the given Redis address.
func NewQueueDispatcher(redisAddress, redisPassword string) (*QueueDispatcher, error) {
	if redisAddress == "" {
		return nil, errors.New("tasks: redis address is required")
	}
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddress, Password: redisPassword})
	return &QueueDispatcher{client: client}, nil
}

func (d *QueueDispatcher) DispatchGenerate(ctx context.Context, payload GeneratePayload) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeBoardGenerate, encoded)
	_, err = d.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	return err
}

// Close releases the underlying queue connection.
func (d *QueueDispatcher) Close() error {
	return d.client.Close()
}
