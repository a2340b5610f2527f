package models

import "time"

// AnalysisResult is the output of a single analyzer run for one message.
// Produced once per message, immutable.
type AnalysisResult struct {
	Score          float64       `json:"score"`
	Label          string        `json:"label"`
	Confidence     float64       `json:"confidence"`
	ProcessingTime time.Duration `json:"processing_time"`
	ModelVersion   string        `json:"model_version"`
}

// ResponseSuggestion is one candidate agent reply produced by the response
// generator and later enriched with contextual insights.
type ResponseSuggestion struct {
	Text       string  `json:"text"`
	Tone       string  `json:"tone"`
	Confidence float64 `json:"confidence"`
}

// ContextualInsight is a memory-derived observation about the conversation
// (sentiment trajectory, recurring issues, conversation length).
type ContextualInsight struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// AIProcessingResult is the merged output of one full pipeline run.
type AIProcessingResult struct {
	MessageID      string                `json:"message_id"`
	ConversationID string                `json:"conversation_id"`
	Sentiment      AnalysisResult        `json:"sentiment"`
	Intent         AnalysisResult        `json:"intent"`
	Suggestions    []ResponseSuggestion  `json:"suggestions"`
	Insights       []ContextualInsight   `json:"insights"`
	Escalation     *EscalationPrediction `json:"escalation,omitempty"`
	ProcessingTime time.Duration         `json:"processing_time"`
	FromCache      bool                  `json:"from_cache"`
	ProcessedAt    time.Time             `json:"processed_at"`
}

// Clone returns a deep copy. Cached results are handed to callers as copies
// so cache-owned memory is never shared by reference.
func (r AIProcessingResult) Clone() AIProcessingResult {
	out := r
	if r.Suggestions != nil {
		out.Suggestions = make([]ResponseSuggestion, len(r.Suggestions))
		copy(out.Suggestions, r.Suggestions)
	}
	if r.Insights != nil {
		out.Insights = make([]ContextualInsight, len(r.Insights))
		copy(out.Insights, r.Insights)
	}
	if r.Escalation != nil {
		esc := r.Escalation.Clone()
		out.Escalation = &esc
	}
	return out
}
