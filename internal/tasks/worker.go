package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/tasteboard/backend/internal/boards"
)

// Generator is the piece of the board pipeline the worker drives.
type Generator interface {
	Generate(ctx context.Context, boardID, ownerID int64, channelIDs []string) error
}

// WorkerConfig describes the queue worker's dependencies.
type WorkerConfig struct {
	RedisAddress  string
	RedisPassword string
	Concurrency   int
	Generator     Generator
	Logger        *zap.Logger
}

// Worker consumes board generation jobs from the queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	generator Generator
	logger    *zap.Logger
}

// NewWorker constructs the queue worker.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.RedisAddress == "" {
		return nil, errors.New("tasks: redis address is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("tasks: generator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	worker := &Worker{
		server: asynq.NewServer(
			asynq.RedisClientOpt{Addr: cfg.RedisAddress, Password: cfg.RedisPassword},
			asynq.Config{Concurrency: concurrency},
		),
		mux:       asynq.NewServeMux(),
		generator: cfg.Generator,
		logger:    logger,
	}
	worker.mux.HandleFunc(TypeBoardGenerate, worker.handleGenerate)
	return worker, nil
}

// Run blocks, processing jobs until Shutdown is called.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown drains in-flight jobs and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleGenerate(ctx context.Context, task *asynq.Task) error {
	var payload GeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	err := w.generator.Generate(ctx, payload.BoardID, payload.OwnerID, payload.ChannelIDs)
	if err == nil {
		w.logger.Info("board generated",
			zap.Int64("board_id", payload.BoardID),
			zap.Int("channel_count", len(payload.ChannelIDs)))
		return nil
	}

	w.logger.Error("board generation failed",
		zap.Int64("board_id", payload.BoardID),
		zap.Error(err))

	// Retrying cannot help a board with no source material or a missing row.
	if errors.Is(err, boards.ErrNoData) || errors.Is(err, boards.ErrNotFound) || errors.Is(err, boards.ErrForbidden) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
