package models

import "time"

// SentimentSample is one point on a conversation's sentiment timeline
type SentimentSample struct {
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationMemory is the core's view of accumulated conversation state,
// owned by the conversation memory store.
type ConversationMemory struct {
	ConversationID    string            `json:"conversation_id"`
	CustomerID        string            `json:"customer_id"`
	SentimentTimeline []SentimentSample `json:"sentiment_timeline"`
	Issues            []string          `json:"issues"`
	MessageTimestamps []time.Time       `json:"message_timestamps"`
	MessageCount      int               `json:"message_count"`
	LastIntent        string            `json:"last_intent,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// CustomerProfile is the cross-conversation history for one customer.
type CustomerProfile struct {
	CustomerID         string   `json:"customer_id"`
	HistoricalIssues   []string `json:"historical_issues"`
	PastEscalations    int      `json:"past_escalations"`
	Satisfaction       float64  `json:"satisfaction"`
	TotalConversations int      `json:"total_conversations"`
}

// MemoryUpdate is the event appended to conversation memory after the
// sentiment and intent stages complete.
type MemoryUpdate struct {
	ConversationID string    `json:"conversation_id"`
	CustomerID     string    `json:"customer_id"`
	MessageID      string    `json:"message_id"`
	Sender         Sender    `json:"sender"`
	SentimentScore float64   `json:"sentiment_score"`
	Intent         string    `json:"intent"`
	Issues         []string  `json:"issues,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
