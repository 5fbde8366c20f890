package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tasteboard/backend/internal/cache"
)

const (
	channelIndexKeyPrefix = "youtube_channel:"
	boardIndexKeyPrefix   = "user_videos:"
	videoRecordKeyPrefix  = "youtube_video:"
)

// VideoCache stores per-channel and per-board video-ID indexes and per-video
// metadata records. Index writes merge with set-union semantics so concurrent
// fetchers for the same board cannot lose each other's IDs; per-video records
// are last-write-wins. Every entry expires after the configured TTL and
// absence is always a recoverable outcome.
type VideoCache struct {
	store cache.Store
	ttl   time.Duration
}

// NewVideoCache wraps a Store with the video-domain key schema.
func NewVideoCache(store cache.Store, ttl time.Duration) *VideoCache {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &VideoCache{store: store, ttl: ttl}
}

// ChannelVideos returns the cached ordered video-ID set for a channel.
func (c *VideoCache) ChannelVideos(ctx context.Context, channelID string) ([]string, bool, error) {
	return c.readIndex(ctx, channelIndexKeyPrefix+channelID)
}

// UnionChannelVideos merges new IDs into the channel index and resets its TTL.
func (c *VideoCache) UnionChannelVideos(ctx context.Context, channelID string, videoIDs []string) error {
	return c.unionIndex(ctx, channelIndexKeyPrefix+channelID, videoIDs)
}

// BoardVideos returns the cached ordered video-ID set contributed to a board.
func (c *VideoCache) BoardVideos(ctx context.Context, boardID int64) ([]string, bool, error) {
	return c.readIndex(ctx, boardIndexKey(boardID))
}

// UnionBoardVideos merges new IDs into the board index and resets its TTL.
func (c *VideoCache) UnionBoardVideos(ctx context.Context, boardID int64, videoIDs []string) error {
	return c.unionIndex(ctx, boardIndexKey(boardID), videoIDs)
}

// Record returns the cached metadata record for a video.
func (c *VideoCache) Record(ctx context.Context, videoID string) (VideoRecord, bool, error) {
	raw, ok, err := c.store.Get(ctx, videoRecordKeyPrefix+videoID)
	if err != nil || !ok {
		return VideoRecord{}, false, err
	}
	var record VideoRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		// A corrupt entry is treated as a miss; the origin rebuilds it.
		return VideoRecord{}, false, nil
	}
	return record, true, nil
}

// PutRecord stores a metadata record, superseding any previous value.
func (c *VideoCache) PutRecord(ctx context.Context, record VideoRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, videoRecordKeyPrefix+record.VideoID, raw, c.ttl)
}

func (c *VideoCache) readIndex(ctx context.Context, key string) ([]string, bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, nil
	}
	return ids, true, nil
}

// unionIndex merges videoIDs into the stored index through the store's
// atomic Update, so concurrent fetchers writing the same key each land their
// IDs instead of overwriting one another.
func (c *VideoCache) unionIndex(ctx context.Context, key string, videoIDs []string) error {
	return c.store.Update(ctx, key, c.ttl, func(current []byte, found bool) ([]byte, error) {
		var existing []string
		if found {
			if err := json.Unmarshal(current, &existing); err != nil {
				// A corrupt index is rebuilt from the incoming IDs.
				existing = nil
			}
		}
		return json.Marshal(unionOrdered(existing, videoIDs))
	})
}

// unionOrdered merges two ID lists keeping first-appearance order and
// suppressing duplicates. The result only ever grows relative to existing.
func unionOrdered(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, id := range existing {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, id := range incoming {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	return merged
}

func boardIndexKey(boardID int64) string {
	return fmt.Sprintf("%s%d", boardIndexKeyPrefix, boardID)
}
