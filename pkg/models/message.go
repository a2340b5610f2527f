package models

import "time"

// Sender identifies which side of the conversation produced a message
type Sender string

const (
	SenderAgent    Sender = "AGENT"
	SenderCustomer Sender = "CUSTOMER"
)

// ConversationStatus mirrors the ticketing system's lifecycle states
type ConversationStatus string

const (
	StatusOpen    ConversationStatus = "OPEN"
	StatusPending ConversationStatus = "PENDING"
	StatusSolved  ConversationStatus = "SOLVED"
	StatusClosed  ConversationStatus = "CLOSED"
)

// Message is a single inbound customer-service message. Immutable once created.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	Sender         Sender    `json:"sender"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConversationContext carries the conversation state the caller maintains
// between pipeline invocations. The core reads it but never mutates it.
type ConversationContext struct {
	ConversationID string             `json:"conversation_id"`
	Messages       []Message          `json:"messages"`
	CustomerID     string             `json:"customer_id"`
	AgentID        string             `json:"agent_id,omitempty"`
	TicketID       string             `json:"ticket_id,omitempty"`
	Status         ConversationStatus `json:"status"`
	Priority       string             `json:"priority,omitempty"`
	Tags           []string           `json:"tags,omitempty"`
}
