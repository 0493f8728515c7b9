package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/models"
)

// RedisSource reads a snapshot document stored under a single key.
type RedisSource struct {
	client   *redis.Client
	key      string
	maxItems int
	logger   logger.Logger
}

func NewRedisSource(client *redis.Client, key string, maxItems int, log logger.Logger) *RedisSource {
	return &RedisSource{client: client, key: key, maxItems: maxItems, logger: log}
}

func (s *RedisSource) LoadAllRecords(ctx context.Context) ([]models.Proposal, error) {
	doc, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: redis key %s", ErrSnapshotNotFound, s.key)
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	records, err := decodeSnapshot(doc)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded proposal snapshot from redis", map[string]interface{}{
		"key":     s.key,
		"records": len(records),
	})
	return capRecords(records, s.maxItems, s.logger), nil
}
