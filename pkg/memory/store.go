// Package memory provides the conversation memory collaborator: accumulated
// per-conversation state and cross-conversation customer profiles, plus the
// insight heuristics derived from them.
package memory

import (
	"context"
	"fmt"
	"time"

	"conversation-ai-core/pkg/models"
)

// Store is the conversation memory collaborator interface consumed by the
// orchestrator and the escalation risk engine.
type Store interface {
	Initialize(ctx context.Context) error
	GetMemory(ctx context.Context, conversationID string) (models.ConversationMemory, error)
	GetCustomerProfile(ctx context.Context, customerID string) (models.CustomerProfile, error)
	UpdateMemory(ctx context.Context, update models.MemoryUpdate) error
	GenerateInsights(ctx context.Context, conversationID string) ([]models.ContextualInsight, error)
	IsHealthy(ctx context.Context) bool
	Version() string
	Shutdown(ctx context.Context) error
}

// applyUpdate folds one memory update into the conversation memory. Shared by
// the in-memory and Redis implementations.
func applyUpdate(mem models.ConversationMemory, update models.MemoryUpdate) models.ConversationMemory {
	mem.ConversationID = update.ConversationID
	if update.CustomerID != "" {
		mem.CustomerID = update.CustomerID
	}
	if update.Sender == models.SenderCustomer {
		mem.SentimentTimeline = append(mem.SentimentTimeline, models.SentimentSample{
			Score:     update.SentimentScore,
			Timestamp: update.Timestamp,
		})
	}
	for _, issue := range update.Issues {
		if !contains(mem.Issues, issue) {
			mem.Issues = append(mem.Issues, issue)
		}
	}
	mem.MessageTimestamps = append(mem.MessageTimestamps, update.Timestamp)
	mem.MessageCount++
	if update.Intent != "" {
		mem.LastIntent = update.Intent
	}
	mem.UpdatedAt = time.Now()
	return mem
}

// insightsFrom derives contextual insights from a conversation memory and the
// customer's profile.
func insightsFrom(mem models.ConversationMemory, profile models.CustomerProfile) []models.ContextualInsight {
	var insights []models.ContextualInsight

	if n := len(mem.SentimentTimeline); n >= 3 {
		window := mem.SentimentTimeline
		if n > 5 {
			window = window[n-5:]
		}
		trend := window[len(window)-1].Score - window[0].Score
		if trend < -0.2 {
			insights = append(insights, models.ContextualInsight{
				Type:        "sentiment_trend",
				Description: fmt.Sprintf("Customer sentiment is declining (trend %.2f over the last %d messages)", trend, len(window)),
				Confidence:  0.8,
			})
		} else if trend > 0.2 {
			insights = append(insights, models.ContextualInsight{
				Type:        "sentiment_trend",
				Description: "Customer sentiment is improving",
				Confidence:  0.7,
			})
		}
	}

	if repeats := intersect(mem.Issues, profile.HistoricalIssues); len(repeats) > 0 {
		insights = append(insights, models.ContextualInsight{
			Type:        "repeat_issue",
			Description: fmt.Sprintf("Customer has previously reported: %v", repeats),
			Confidence:  0.9,
		})
	}

	if mem.MessageCount > 10 {
		insights = append(insights, models.ContextualInsight{
			Type:        "long_conversation",
			Description: fmt.Sprintf("Conversation has %d messages without resolution", mem.MessageCount),
			Confidence:  0.75,
		})
	}

	if profile.CustomerID != "" && profile.Satisfaction < 0.6 {
		insights = append(insights, models.ContextualInsight{
			Type:        "at_risk_customer",
			Description: fmt.Sprintf("Customer satisfaction is low (%.2f)", profile.Satisfaction),
			Confidence:  0.7,
		})
	}

	return insights
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func intersect(a, b []string) []string {
	var out []string
	for _, item := range a {
		if contains(b, item) {
			out = append(out, item)
		}
	}
	return out
}
