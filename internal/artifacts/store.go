package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultAttempts   = 3
	defaultRetryDelay = 2 * time.Second
)

var errMissingObjectStorage = errors.New("artifacts: object storage is required")

// StorageError reports that persisting an artifact failed after the retry
// budget was exhausted.
type StorageError struct {
	SourceURL string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("artifacts: persisting %s failed: %v", e.SourceURL, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// StoreConfig describes Store dependencies and retry policy.
type StoreConfig struct {
	Storage    ObjectStorage
	HTTPClient *http.Client
	Attempts   int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Store copies ephemeral generated images into durable object storage,
// retrying the whole download+upload sequence on any failure.
type Store struct {
	storage    ObjectStorage
	httpClient *http.Client
	attempts   int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewStore constructs a Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Storage == nil {
		return nil, errMissingObjectStorage
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		storage:    cfg.Storage,
		httpClient: httpClient,
		attempts:   attempts,
		retryDelay: retryDelay,
		logger:     logger,
	}, nil
}

// Persist downloads the artifact at sourceURL and uploads it under
// destinationPath, returning the durable URL. The download+upload sequence
// runs at most the configured number of attempts with a fixed delay between
// them; exhaustion yields a StorageError.
func (s *Store) Persist(ctx context.Context, sourceURL, destinationPath string) (string, error) {
	var durableURL string
	operation := func() error {
		data, err := s.download(ctx, sourceURL)
		if err != nil {
			return err
		}
		uploaded, err := s.storage.Upload(ctx, destinationPath, data, http.DetectContentType(data))
		if err != nil {
			return err
		}
		durableURL = uploaded
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), uint64(s.attempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", &StorageError{SourceURL: sourceURL, Cause: err}
	}
	return durableURL, nil
}

// Delete removes a previously persisted artifact. Failures are logged and
// swallowed; reclaiming an orphaned object is never worth failing a
// regeneration over.
func (s *Store) Delete(ctx context.Context, durableURL string) {
	if durableURL == "" {
		return
	}
	if err := s.storage.Delete(ctx, durableURL); err != nil {
		s.logger.Warn("artifact delete failed",
			zap.String("url", durableURL), zap.Error(err))
	}
}

func (s *Store) download(ctx context.Context, sourceURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, err
	}
	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("artifacts: download returned status %d", response.StatusCode)
	}
	return io.ReadAll(response.Body)
}
