package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/barstock/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces report keys
const keyPrefix = "barstock:import:"

// RedisStore keeps import reports in redis as JSON with a TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to redis and checks the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrReportStoreUnavailable, err)
	}
	return client, nil
}

// NewRedisStore creates a report store on an existing client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Save stores the report under its run id
func (s *RedisStore) Save(ctx context.Context, result *domain.ImportResult) error {
	if result == nil || result.ID == "" {
		return domain.ErrInvalidRequest
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := s.client.Set(ctx, reportKey(result.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrReportStoreUnavailable, err)
	}
	return nil
}

// Get loads a report by run id
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.ImportResult, error) {
	val, err := s.client.Get(ctx, reportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReportStoreUnavailable, err)
	}

	var result domain.ImportResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &result, nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func reportKey(id string) string {
	return keyPrefix + id
}
