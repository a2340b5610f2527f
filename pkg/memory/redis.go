package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"conversation-ai-core/pkg/models"
)

const redisVersion = "redis-memory-2.1.0"

// Redis key prefixes
const (
	ConversationMemoryKeyPrefix = "memory:conversation:"
	CustomerProfileKeyPrefix    = "memory:customer:"
)

// RedisStore persists conversation memory and customer profiles in Redis as
// JSON payloads, so memory survives restarts and is shared across instances.
type RedisStore struct {
	rdb    *redis.Client
	logger *logrus.Logger
	ready  atomic.Bool

	// Serializes read-modify-write cycles on UpdateMemory within this process.
	updateMu sync.Mutex
}

func NewRedisStore(rdb *redis.Client, logger *logrus.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger}
}

func (s *RedisStore) Initialize(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis memory store: %w", err)
	}
	s.ready.Store(true)
	return nil
}

func (s *RedisStore) GetMemory(ctx context.Context, conversationID string) (models.ConversationMemory, error) {
	data, err := s.rdb.Get(ctx, ConversationMemoryKeyPrefix+conversationID).Result()
	if err != nil {
		if err == redis.Nil {
			return models.ConversationMemory{ConversationID: conversationID}, nil
		}
		return models.ConversationMemory{}, fmt.Errorf("failed to load conversation memory: %w", err)
	}

	var mem models.ConversationMemory
	if err := json.Unmarshal([]byte(data), &mem); err != nil {
		return models.ConversationMemory{}, fmt.Errorf("invalid conversation memory payload: %w", err)
	}
	return mem, nil
}

func (s *RedisStore) GetCustomerProfile(ctx context.Context, customerID string) (models.CustomerProfile, error) {
	data, err := s.rdb.Get(ctx, CustomerProfileKeyPrefix+customerID).Result()
	if err != nil {
		if err == redis.Nil {
			return models.CustomerProfile{CustomerID: customerID, Satisfaction: 1.0}, nil
		}
		return models.CustomerProfile{}, fmt.Errorf("failed to load customer profile: %w", err)
	}

	var profile models.CustomerProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return models.CustomerProfile{}, fmt.Errorf("invalid customer profile payload: %w", err)
	}
	return profile, nil
}

// SeedProfile installs a customer profile, typically synced from the CRM.
func (s *RedisStore) SeedProfile(ctx context.Context, profile models.CustomerProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode customer profile: %w", err)
	}
	if err := s.rdb.Set(ctx, CustomerProfileKeyPrefix+profile.CustomerID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store customer profile: %w", err)
	}
	return nil
}

func (s *RedisStore) UpdateMemory(ctx context.Context, update models.MemoryUpdate) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	mem, err := s.GetMemory(ctx, update.ConversationID)
	if err != nil {
		return err
	}

	mem = applyUpdate(mem, update)

	data, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("failed to encode conversation memory: %w", err)
	}
	if err := s.rdb.Set(ctx, ConversationMemoryKeyPrefix+update.ConversationID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store conversation memory: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"conversation_id": update.ConversationID,
		"message_count":   mem.MessageCount,
	}).Debug("Updated conversation memory")

	return nil
}

func (s *RedisStore) GenerateInsights(ctx context.Context, conversationID string) ([]models.ContextualInsight, error) {
	mem, err := s.GetMemory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	profile := models.CustomerProfile{}
	if mem.CustomerID != "" {
		profile, err = s.GetCustomerProfile(ctx, mem.CustomerID)
		if err != nil {
			return nil, err
		}
	}

	return insightsFrom(mem, profile), nil
}

func (s *RedisStore) IsHealthy(ctx context.Context) bool {
	if !s.ready.Load() {
		return false
	}
	return s.rdb.Ping(ctx).Err() == nil
}

func (s *RedisStore) Version() string {
	return redisVersion
}

func (s *RedisStore) Shutdown(_ context.Context) error {
	s.ready.Store(false)
	return nil
}
