package models

import "time"

// RiskFactorType categorizes the independent escalation risk signals
type RiskFactorType string

const (
	FactorSentimentDecline RiskFactorType = "sentiment_decline"
	FactorRepeatIssue      RiskFactorType = "repeat_issue"
	FactorResponseDelay    RiskFactorType = "response_delay"
	FactorComplexity       RiskFactorType = "complexity"
	FactorCustomerHistory  RiskFactorType = "customer_history"
)

// RiskLevel is the discrete banding of the aggregate risk score
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ActionPriority orders prevention actions for the agent
type ActionPriority string

const (
	PriorityImmediate ActionPriority = "immediate"
	PriorityUrgent    ActionPriority = "urgent"
	PriorityNormal    ActionPriority = "normal"
)

// ActionType enumerates the six supported prevention actions
type ActionType string

const (
	ActionProactiveContact  ActionType = "proactive_contact"
	ActionEscalateNow       ActionType = "escalate_now"
	ActionOfferCompensation ActionType = "offer_compensation"
	ActionToneChange        ActionType = "tone_change"
	ActionStatusUpdate      ActionType = "status_update"
	ActionAgentTransfer     ActionType = "agent_transfer"
)

// EscalationRiskFactor is one weighted signal contributing to the aggregate
// risk score. Recomputed on every evaluation, never persisted.
type EscalationRiskFactor struct {
	Type        RiskFactorType `json:"type"`
	Severity    float64        `json:"severity"`
	Weight      float64        `json:"weight"`
	Mitigable   bool           `json:"mitigable"`
	Description string         `json:"description"`
}

// PreventionAction is a discrete remedial action recommended to the agent.
// Generated, never mutated.
type PreventionAction struct {
	Type             ActionType     `json:"type"`
	Priority         ActionPriority `json:"priority"`
	EstimatedImpact  float64        `json:"estimated_impact"`
	RequiresApproval bool           `json:"requires_approval"`
	Description      string         `json:"description"`
}

// EscalationPrediction is the full output of one risk evaluation.
type EscalationPrediction struct {
	ConversationID        string                 `json:"conversation_id"`
	RiskScore             float64                `json:"risk_score"`
	RiskLevel             RiskLevel              `json:"risk_level"`
	Factors               []EscalationRiskFactor `json:"factors"`
	TimeToEscalation      time.Duration          `json:"time_to_escalation"`
	EscalationProbability float64                `json:"escalation_probability"`
	Confidence            float64                `json:"confidence"`
	Actions               []PreventionAction     `json:"actions"`
	ManagerAlert          bool                   `json:"manager_alert"`
	PredictedAt           time.Time              `json:"predicted_at"`
}

// Clone returns a deep copy of the prediction.
func (p EscalationPrediction) Clone() EscalationPrediction {
	out := p
	if p.Factors != nil {
		out.Factors = make([]EscalationRiskFactor, len(p.Factors))
		copy(out.Factors, p.Factors)
	}
	if p.Actions != nil {
		out.Actions = make([]PreventionAction, len(p.Actions))
		copy(out.Actions, p.Actions)
	}
	return out
}

// ActionResult reports the outcome of one prevention action execution.
// Executor failures are reported here, never propagated to the caller.
type ActionResult struct {
	ActionType ActionType `json:"action_type"`
	Success    bool       `json:"success"`
	Result     string     `json:"result"`
	ExecutedAt time.Time  `json:"executed_at"`
}
