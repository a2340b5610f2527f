package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"conversation-ai-core/pkg/models"
)

const inMemoryVersion = "inmemory-memory-1.0.0"

// InMemoryStore keeps conversation memory and customer profiles in
// mutex-guarded maps. Suitable for single-instance deployments and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	memories map[string]models.ConversationMemory
	profiles map[string]models.CustomerProfile
	ready    atomic.Bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		memories: make(map[string]models.ConversationMemory),
		profiles: make(map[string]models.CustomerProfile),
	}
}

func (s *InMemoryStore) Initialize(_ context.Context) error {
	s.ready.Store(true)
	return nil
}

func (s *InMemoryStore) GetMemory(_ context.Context, conversationID string) (models.ConversationMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mem, ok := s.memories[conversationID]
	if !ok {
		return models.ConversationMemory{ConversationID: conversationID}, nil
	}
	return cloneMemory(mem), nil
}

func (s *InMemoryStore) GetCustomerProfile(_ context.Context, customerID string) (models.CustomerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[customerID]
	if !ok {
		return models.CustomerProfile{CustomerID: customerID, Satisfaction: 1.0}, nil
	}
	return cloneProfile(profile), nil
}

// SeedProfile installs a customer profile. Used by callers that sync profile
// data from the CRM, and by tests.
func (s *InMemoryStore) SeedProfile(profile models.CustomerProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.CustomerID] = profile
}

func (s *InMemoryStore) UpdateMemory(_ context.Context, update models.MemoryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memories[update.ConversationID] = applyUpdate(s.memories[update.ConversationID], update)
	return nil
}

func (s *InMemoryStore) GenerateInsights(ctx context.Context, conversationID string) ([]models.ContextualInsight, error) {
	s.mu.RLock()
	mem := s.memories[conversationID]
	profile := s.profiles[mem.CustomerID]
	s.mu.RUnlock()

	return insightsFrom(mem, profile), nil
}

func (s *InMemoryStore) IsHealthy(_ context.Context) bool {
	return s.ready.Load()
}

func (s *InMemoryStore) Version() string {
	return inMemoryVersion
}

func (s *InMemoryStore) Shutdown(_ context.Context) error {
	s.ready.Store(false)
	return nil
}

func cloneMemory(mem models.ConversationMemory) models.ConversationMemory {
	out := mem
	out.SentimentTimeline = append([]models.SentimentSample(nil), mem.SentimentTimeline...)
	out.Issues = append([]string(nil), mem.Issues...)
	out.MessageTimestamps = append([]time.Time(nil), mem.MessageTimestamps...)
	return out
}

func cloneProfile(profile models.CustomerProfile) models.CustomerProfile {
	out := profile
	out.HistoricalIssues = append([]string(nil), profile.HistoricalIssues...)
	return out
}
