package history

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gujimy/KVideo/pkg/logging"
)

const redisKeyPrefix = "kvideo:history:"

// RedisStore keeps watch history in Redis, one list per viewer with the most
// recent record at the head.
type RedisStore struct {
	redis  *redis.Client
	max    int64
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed history store retaining up to
// maxPerViewer records per viewer. maxPerViewer <= 0 means DefaultLimit.
func NewRedisStore(client *redis.Client, maxPerViewer int) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if maxPerViewer <= 0 {
		maxPerViewer = DefaultLimit
	}
	return &RedisStore{
		redis:  client,
		max:    int64(maxPerViewer),
		logger: logging.NewLogger("history-redis"),
	}
}

func redisKey(viewerID string) string {
	return redisKeyPrefix + viewerID
}

// Recent returns up to limit records for the viewer, most recent first.
// Malformed list entries are skipped, not surfaced as errors.
func (s *RedisStore) Recent(ctx context.Context, viewerID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	vals, err := s.redis.LRange(ctx, redisKey(viewerID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	records := make([]Record, 0, len(vals))
	for _, v := range vals {
		var rec Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			s.logger.Warn().
				Err(err).
				Str("viewer", viewerID).
				Msg("Skipping malformed history record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Add records one watch event at the head of the viewer's list and trims the
// list to the retention cap.
func (s *RedisStore) Add(ctx context.Context, viewerID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}

	key := redisKey(viewerID)
	pipe := s.redis.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, s.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}
