package youtube

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var (
	errMissingVideoAPI   = errors.New("youtube: video api is required")
	errMissingVideoCache = errors.New("youtube: video cache is required")
)

// VideoAPI is the slice of the platform client the fetcher consumes.
type VideoAPI interface {
	SearchRecentVideoIDs(ctx context.Context, channelID string) ([]string, error)
	VideoMetadata(ctx context.Context, videoIDs []string) ([]VideoRecord, error)
}

// FetcherConfig describes the dependencies of a Fetcher.
type FetcherConfig struct {
	API    VideoAPI
	Cache  *VideoCache
	Logger *zap.Logger
}

// Fetcher resolves a channel to its recent normalized video records,
// consulting the cache before the origin platform. It mutates only the cache.
type Fetcher struct {
	api    VideoAPI
	cache  *VideoCache
	logger *zap.Logger
}

// NewFetcher constructs a Fetcher.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.API == nil {
		return nil, errMissingVideoAPI
	}
	if cfg.Cache == nil {
		return nil, errMissingVideoCache
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{api: cfg.API, cache: cfg.Cache, logger: logger}, nil
}

// Fetch returns the channel's recent video records for the given board.
//
// A non-empty channel index short-circuits the origin search: stale IDs are
// accepted in exchange for saved quota. Individual records may still be
// refetched when their cache entries expired independently.
func (f *Fetcher) Fetch(ctx context.Context, boardID int64, channelID string) ([]VideoRecord, error) {
	videoIDs, hit, err := f.cache.ChannelVideos(ctx, channelID)
	if err != nil {
		f.logger.Warn("channel index read failed",
			zap.String("channel_id", channelID), zap.Error(err))
		hit = false
	}

	if !hit || len(videoIDs) == 0 {
		videoIDs, err = f.api.SearchRecentVideoIDs(ctx, channelID)
		if err != nil {
			return nil, err
		}
		if len(videoIDs) == 0 {
			return nil, nil
		}
		if err := f.cache.UnionChannelVideos(ctx, channelID, videoIDs); err != nil {
			f.logger.Warn("channel index write failed",
				zap.String("channel_id", channelID), zap.Error(err))
		}
	}

	// The board index is written on both paths so keyword regeneration can
	// re-derive the candidate set without another origin search.
	if err := f.cache.UnionBoardVideos(ctx, boardID, videoIDs); err != nil {
		f.logger.Warn("board index write failed",
			zap.Int64("board_id", boardID), zap.Error(err))
	}

	return f.Records(ctx, videoIDs)
}

// Records resolves video IDs to records, fetching uncached metadata from the
// origin in platform-sized batches. IDs the platform no longer knows are
// dropped silently.
func (f *Fetcher) Records(ctx context.Context, videoIDs []string) ([]VideoRecord, error) {
	byID := make(map[string]VideoRecord, len(videoIDs))
	missing := make([]string, 0, len(videoIDs))
	for _, videoID := range videoIDs {
		record, ok, err := f.cache.Record(ctx, videoID)
		if err != nil {
			f.logger.Warn("video record read failed",
				zap.String("video_id", videoID), zap.Error(err))
		}
		if ok {
			byID[videoID] = record
			continue
		}
		missing = append(missing, videoID)
	}

	for start := 0; start < len(missing); start += metadataBatchSize {
		end := start + metadataBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		fetched, err := f.api.VideoMetadata(ctx, missing[start:end])
		if err != nil {
			return nil, err
		}
		for _, record := range fetched {
			byID[record.VideoID] = record
			if err := f.cache.PutRecord(ctx, record); err != nil {
				f.logger.Warn("video record write failed",
					zap.String("video_id", record.VideoID), zap.Error(err))
			}
		}
	}

	records := make([]VideoRecord, 0, len(videoIDs))
	for _, videoID := range videoIDs {
		if record, ok := byID[videoID]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}
