package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event names emitted by the pipeline core
const (
	EventInitialized               = "initialized"
	EventMessageProcessed          = "messageProcessed"
	EventProcessingError           = "processingError"
	EventCacheHit                  = "cacheHit"
	EventEscalationRiskDetected    = "escalationRiskDetected"
	EventContextualInsights        = "contextualInsights"
	EventPreventionActionExecuted  = "preventionActionExecuted"
	EventShutdown                  = "shutdown"
)

// Event is one side-channel notification from the core.
type Event struct {
	Name           string                 `json:"name"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	MessageID      string                 `json:"message_id,omitempty"`
	Fields         map[string]interface{} `json:"fields,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// Bus fans events out to subscriber channels. Publishing never blocks the
// pipeline: a subscriber with a full buffer misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool
	logger *logrus.Logger
}

func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a new subscriber channel with the given buffer size.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers the event to every subscriber that has buffer space.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.WithFields(logrus.Fields{
				"event":           event.Name,
				"conversation_id": event.ConversationID,
			}).Debug("Dropped event for slow subscriber")
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op afterwards.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
