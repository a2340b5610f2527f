package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"conversation-ai-core/pkg/models"
)

type entry struct {
	payload    models.AIProcessingResult
	insertedAt time.Time
	expiresAt  time.Time
}

// ResultCache stores completed processing results under content-derived keys
// with TTL expiry. Expired entries are treated as absent on lookup and swept
// eagerly every sweepEvery insertions to bound growth. Lookups return copies;
// cache-owned entries are never shared by reference with callers.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	sweepEvery int
	puts       int
	logger     *logrus.Logger
}

func NewResultCache(ttl time.Duration, sweepEvery int, logger *logrus.Logger) *ResultCache {
	if sweepEvery <= 0 {
		sweepEvery = 1
	}
	return &ResultCache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		sweepEvery: sweepEvery,
		logger:     logger,
	}
}

// Get returns a copy of the cached result if present and not expired.
func (c *ResultCache) Get(key string) (models.AIProcessingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return models.AIProcessingResult{}, false
	}
	if time.Now().After(e.expiresAt) {
		// Lazy expiry
		delete(c.entries, key)
		return models.AIProcessingResult{}, false
	}
	return e.payload.Clone(), true
}

// Put stores a copy of the result under key. Every sweepEvery insertions a
// housekeeping pass removes all expired entries.
func (c *ResultCache) Put(key string, result models.AIProcessingResult) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		payload:    result.Clone(),
		insertedAt: now,
		expiresAt:  now.Add(c.ttl),
	}

	c.puts++
	if c.puts%c.sweepEvery == 0 {
		c.sweepLocked(now)
	}
}

func (c *ResultCache) sweepLocked(now time.Time) {
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.WithFields(logrus.Fields{
			"removed_count": removed,
			"remaining":     len(c.entries),
		}).Debug("Swept expired cache entries")
	}
}

func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.puts = 0
}

// DedupKey identifies one logical computation for in-flight deduplication.
func DedupKey(messageID, conversationID string) string {
	return messageID + ":" + conversationID
}

// ResultKey derives the cache key from normalized message content plus the
// current analyzer model versions, so a model rollout invalidates prior
// cached answers without an explicit flush.
func ResultKey(content string, modelVersions map[string]string) string {
	names := make([]string, 0, len(modelVersions))
	for name := range modelVersions {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(normalizeContent(content)))
	for _, name := range names {
		h.Write([]byte("|" + name + "=" + modelVersions[name]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeContent(content string) string {
	return strings.Join(strings.Fields(strings.ToLower(content)), " ")
}
