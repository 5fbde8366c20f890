package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/tasteboard/backend/internal/boards"
)

type fakeGenerator struct {
	err   error
	calls []GeneratePayload
}

func (f *fakeGenerator) Generate(_ context.Context, boardID, ownerID int64, channelIDs []string) error {
	f.calls = append(f.calls, GeneratePayload{BoardID: boardID, OwnerID: ownerID, ChannelIDs: channelIDs})
	return f.err
}

func newGenerateTask(t *testing.T, payload GeneratePayload) *asynq.Task {
	t.Helper()
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to encode payload: %v", err)
	}
	return asynq.NewTask(TypeBoardGenerate, encoded)
}

func newTestWorker(t *testing.T, generator Generator) *Worker {
	t.Helper()
	worker, err := NewWorker(WorkerConfig{
		RedisAddress: "localhost:6379",
		Generator:    generator,
	})
	if err != nil {
		t.Fatalf("failed to construct worker: %v", err)
	}
	return worker
}

func TestHandleGenerateInvokesGenerator(t *testing.T) {
	generator := &fakeGenerator{}
	worker := newTestWorker(t, generator)

	payload := GeneratePayload{BoardID: 7, OwnerID: 10, ChannelIDs: []string{"chan-a"}}
	if err := worker.handleGenerate(context.Background(), newGenerateTask(t, payload)); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}

	if len(generator.calls) != 1 {
		t.Fatalf("expected one generation call, got %d", len(generator.calls))
	}
	call := generator.calls[0]
	if call.BoardID != 7 || call.OwnerID != 10 || len(call.ChannelIDs) != 1 {
		t.Fatalf("unexpected call %#v", call)
	}
}

func TestHandleGenerateSkipsRetryForPermanentFailures(t *testing.T) {
	for _, permanent := range []error{boards.ErrNoData, boards.ErrNotFound, boards.ErrForbidden} {
		generator := &fakeGenerator{err: permanent}
		worker := newTestWorker(t, generator)

		err := worker.handleGenerate(context.Background(), newGenerateTask(t, GeneratePayload{BoardID: 1}))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("expected skip-retry for %v, got %v", permanent, err)
		}
	}
}

func TestHandleGenerateRetriesTransientFailures(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("upstream flake")}
	worker := newTestWorker(t, generator)

	err := worker.handleGenerate(context.Background(), newGenerateTask(t, GeneratePayload{BoardID: 1}))
	if err == nil {
		t.Fatalf("expected handler error")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transient failure must stay retryable, got %v", err)
	}
}

func TestHandleGenerateRejectsMalformedPayload(t *testing.T) {
	generator := &fakeGenerator{}
	worker := newTestWorker(t, generator)

	err := worker.handleGenerate(context.Background(), asynq.NewTask(TypeBoardGenerate, []byte("not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload must not be retried, got %v", err)
	}
	if len(generator.calls) != 0 {
		t.Fatalf("generator must not run on malformed payload")
	}
}
