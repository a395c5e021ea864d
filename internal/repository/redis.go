package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"catalog/harvester/internal/domain"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type redisRecordRepository struct {
	redisClient *redis.Client
	keyPrefix   string
}

// NewRedisRecordRepository stores each destination as a list of JSON records
func NewRedisRecordRepository(redisClient *redis.Client, keyPrefix string) RecordRepository {
	return &redisRecordRepository{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
	}
}

func (r *redisRecordRepository) SaveRecords(ctx context.Context, destination string, records []domain.ProductRecord) error {
	key := r.keyPrefix + destination

	values := make([]any, 0, len(records))
	for i, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record %d: %w", i, err)
		}
		values = append(values, string(data))
	}

	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save records to Redis key %s: %w", key, err)
	}

	log.Infof("💾 Saved %d records to Redis key %s", len(records), key)
	return nil
}
