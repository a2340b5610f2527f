package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-ai-core/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func sampleResult(messageID string) models.AIProcessingResult {
	return models.AIProcessingResult{
		MessageID:      messageID,
		ConversationID: "conv_123",
		Sentiment:      models.AnalysisResult{Score: -0.4, Label: "negative"},
		Suggestions: []models.ResponseSuggestion{
			{Text: "I'm sorry about this", Tone: "empathetic", Confidence: 0.7},
		},
	}
}

func TestResultCache_GetBeforeAndAfterExpiry(t *testing.T) {
	c := NewResultCache(50*time.Millisecond, 100, testLogger())

	c.Put("key1", sampleResult("msg_1"))

	got, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "msg_1", got.MessageID)

	time.Sleep(60 * time.Millisecond)

	_, ok = c.Get("key1")
	assert.False(t, ok, "expired entry should be treated as absent")
	assert.Equal(t, 0, c.Len(), "lazy expiry should remove the entry")
}

func TestResultCache_EagerSweep(t *testing.T) {
	c := NewResultCache(10*time.Millisecond, 5, testLogger())

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("key_%d", i), sampleResult(fmt.Sprintf("msg_%d", i)))
	}
	time.Sleep(20 * time.Millisecond)

	// Entries are expired but not yet looked up; the fifth insertion should
	// sweep them out.
	assert.Equal(t, 4, c.Len())
	c.Put("key_fresh", sampleResult("msg_fresh"))
	assert.Equal(t, 1, c.Len())
}

func TestResultCache_ReturnsCopies(t *testing.T) {
	c := NewResultCache(time.Minute, 100, testLogger())
	c.Put("key1", sampleResult("msg_1"))

	first, ok := c.Get("key1")
	require.True(t, ok)
	first.Suggestions[0].Text = "mutated"

	second, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "I'm sorry about this", second.Suggestions[0].Text,
		"cache-owned payload must not be shared by reference with callers")
}

func TestResultKey_VersionChangeInvalidates(t *testing.T) {
	v1 := map[string]string{"sentiment": "1.0.0", "intent": "1.0.0"}
	v2 := map[string]string{"sentiment": "1.1.0", "intent": "1.0.0"}

	key1 := ResultKey("My order is broken", v1)
	key2 := ResultKey("My order is broken", v2)
	assert.NotEqual(t, key1, key2, "a model rollout must change the cache key")
}

func TestResultKey_NormalizesContent(t *testing.T) {
	versions := map[string]string{"sentiment": "1.0.0"}

	key1 := ResultKey("My  Order is BROKEN", versions)
	key2 := ResultKey("my order is broken", versions)
	assert.Equal(t, key1, key2)
}

func TestInflightTable_SharedFlight(t *testing.T) {
	table := NewInflightTable()
	key := DedupKey("msg_1", "conv_1")

	first, owner := table.Begin(key)
	require.True(t, owner)

	second, owner := table.Begin(key)
	assert.False(t, owner)
	assert.Same(t, first, second, "concurrent callers must share one flight")
	assert.Equal(t, 1, table.Len())
}

func TestInflightTable_SettleReleasesAllWaiters(t *testing.T) {
	table := NewInflightTable()
	key := DedupKey("msg_1", "conv_1")

	flight, owner := table.Begin(key)
	require.True(t, owner)

	results := make(chan models.AIProcessingResult, 2)
	for i := 0; i < 2; i++ {
		go func() {
			res, err := flight.Wait(context.Background())
			assert.NoError(t, err)
			results <- res
		}()
	}

	table.Settle(key, flight, sampleResult("msg_1"), nil)

	for i := 0; i < 2; i++ {
		select {
		case res := <-results:
			assert.Equal(t, "msg_1", res.MessageID)
		case <-time.After(time.Second):
			t.Fatal("waiter did not observe the settled result")
		}
	}

	assert.Equal(t, 0, table.Len(), "settled flight must be removed")

	_, owner = table.Begin(key)
	assert.True(t, owner, "key is free for a new computation after settling")
}

func TestInflightTable_SettleAfterClearReleasesWaiters(t *testing.T) {
	table := NewInflightTable()
	key := DedupKey("msg_1", "conv_1")

	flight, owner := table.Begin(key)
	require.True(t, owner)

	done := make(chan models.AIProcessingResult, 1)
	go func() {
		res, err := flight.Wait(context.Background())
		assert.NoError(t, err)
		done <- res
	}()

	// Shutdown clears the table while the owner is still computing. The
	// owner's settle must still release everyone who joined this flight.
	table.Clear()
	table.Settle(key, flight, sampleResult("msg_1"), nil)

	select {
	case res := <-done:
		assert.Equal(t, "msg_1", res.MessageID)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released after the table was cleared")
	}
}

func TestInflightTable_SettleDoesNotEvictSuccessor(t *testing.T) {
	table := NewInflightTable()
	key := DedupKey("msg_1", "conv_1")

	first, owner := table.Begin(key)
	require.True(t, owner)

	table.Clear()
	successor, owner := table.Begin(key)
	require.True(t, owner)

	// Settling the cleared flight must not remove the successor's entry.
	table.Settle(key, first, sampleResult("msg_1"), nil)
	joined, owner := table.Begin(key)
	assert.False(t, owner)
	assert.Same(t, successor, joined)

	table.Settle(key, successor, sampleResult("msg_1"), nil)
}
