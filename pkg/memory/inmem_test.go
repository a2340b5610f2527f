package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-ai-core/pkg/models"
)

func customerUpdate(conversationID string, score float64, issues ...string) models.MemoryUpdate {
	return models.MemoryUpdate{
		ConversationID: conversationID,
		CustomerID:     "cust_1",
		Sender:         models.SenderCustomer,
		SentimentScore: score,
		Issues:         issues,
		Timestamp:      time.Now(),
	}
}

func TestInMemoryStore_UpdateAndGet(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Initialize(context.Background()))

	update := customerUpdate("conv_1", -0.4, "billing")
	update.Intent = "complaint"
	require.NoError(t, store.UpdateMemory(context.Background(), update))

	mem, err := store.GetMemory(context.Background(), "conv_1")
	require.NoError(t, err)

	assert.Equal(t, "conv_1", mem.ConversationID)
	assert.Equal(t, "cust_1", mem.CustomerID)
	assert.Equal(t, 1, mem.MessageCount)
	assert.Equal(t, "complaint", mem.LastIntent)
	require.Len(t, mem.SentimentTimeline, 1)
	assert.Equal(t, -0.4, mem.SentimentTimeline[0].Score)
	assert.Equal(t, []string{"billing"}, mem.Issues)
}

func TestInMemoryStore_AgentMessagesSkipSentimentTimeline(t *testing.T) {
	store := NewInMemoryStore()

	update := customerUpdate("conv_1", 0.5)
	update.Sender = models.SenderAgent
	require.NoError(t, store.UpdateMemory(context.Background(), update))

	mem, err := store.GetMemory(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Empty(t, mem.SentimentTimeline, "agent sentiment must not pollute the customer timeline")
	assert.Equal(t, 1, mem.MessageCount)
	assert.Len(t, mem.MessageTimestamps, 1)
}

func TestInMemoryStore_IssuesDeduplicated(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.UpdateMemory(context.Background(), customerUpdate("conv_1", -0.2, "billing")))
	require.NoError(t, store.UpdateMemory(context.Background(), customerUpdate("conv_1", -0.3, "billing", "technical")))

	mem, err := store.GetMemory(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "technical"}, mem.Issues)
}

func TestInMemoryStore_UnknownConversationAndCustomer(t *testing.T) {
	store := NewInMemoryStore()

	mem, err := store.GetMemory(context.Background(), "never_seen")
	require.NoError(t, err)
	assert.Equal(t, "never_seen", mem.ConversationID)
	assert.Zero(t, mem.MessageCount)

	profile, err := store.GetCustomerProfile(context.Background(), "never_seen")
	require.NoError(t, err)
	assert.Equal(t, 1.0, profile.Satisfaction, "unknown customers default to full satisfaction")
}

func TestInMemoryStore_ReadsAreIsolatedCopies(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.UpdateMemory(context.Background(), customerUpdate("conv_1", -0.2, "billing")))

	mem, err := store.GetMemory(context.Background(), "conv_1")
	require.NoError(t, err)
	mem.Issues[0] = "mutated"
	mem.SentimentTimeline[0].Score = 99

	fresh, err := store.GetMemory(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"billing"}, fresh.Issues)
	assert.Equal(t, -0.2, fresh.SentimentTimeline[0].Score)
}

func TestGenerateInsights_SentimentTrend(t *testing.T) {
	store := NewInMemoryStore()
	for _, score := range []float64{0.5, 0.1, -0.3} {
		require.NoError(t, store.UpdateMemory(context.Background(), customerUpdate("conv_1", score)))
	}

	insights, err := store.GenerateInsights(context.Background(), "conv_1")
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "sentiment_trend", insights[0].Type)
	assert.Contains(t, insights[0].Description, "declining")
}

func TestGenerateInsights_RepeatIssueAndAtRiskCustomer(t *testing.T) {
	store := NewInMemoryStore()
	store.SeedProfile(models.CustomerProfile{
		CustomerID:       "cust_1",
		HistoricalIssues: []string{"billing"},
		Satisfaction:     0.3,
	})
	require.NoError(t, store.UpdateMemory(context.Background(), customerUpdate("conv_1", -0.2, "billing")))

	insights, err := store.GenerateInsights(context.Background(), "conv_1")
	require.NoError(t, err)

	types := make([]string, len(insights))
	for i, insight := range insights {
		types[i] = insight.Type
	}
	assert.Contains(t, types, "repeat_issue")
	assert.Contains(t, types, "at_risk_customer")
}

func TestGenerateInsights_LongConversation(t *testing.T) {
	store := NewInMemoryStore()
	for i := 0; i < 11; i++ {
		require.NoError(t, store.UpdateMemory(context.Background(), customerUpdate("conv_1", 0.1)))
	}

	insights, err := store.GenerateInsights(context.Background(), "conv_1")
	require.NoError(t, err)

	found := false
	for _, insight := range insights {
		if insight.Type == "long_conversation" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestInMemoryStore_HealthFollowsLifecycle(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	assert.False(t, store.IsHealthy(ctx))
	require.NoError(t, store.Initialize(ctx))
	assert.True(t, store.IsHealthy(ctx))
	require.NoError(t, store.Shutdown(ctx))
	assert.False(t, store.IsHealthy(ctx))
}
