package escalation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"conversation-ai-core/pkg/constants"
	"conversation-ai-core/pkg/events"
	"conversation-ai-core/pkg/models"
)

// Playbook maps risk conditions to a bundle of prevention actions. A playbook
// fires when the score meets its threshold and at least one of its trigger
// factor types is present.
type Playbook struct {
	Name           string
	MinRiskScore   float64
	TriggerFactors []models.RiskFactorType
	Actions        []models.PreventionAction
}

func DefaultPlaybooks() []Playbook {
	return []Playbook{
		{
			Name:           "negative-sentiment-recovery",
			MinRiskScore:   0.6,
			TriggerFactors: []models.RiskFactorType{models.FactorSentimentDecline},
			Actions: []models.PreventionAction{
				{
					Type:            models.ActionToneChange,
					Priority:        models.PriorityUrgent,
					EstimatedImpact: 0.6,
					Description:     "Switch to an empathetic tone and acknowledge the customer's frustration",
				},
				{
					Type:            models.ActionProactiveContact,
					Priority:        models.PriorityUrgent,
					EstimatedImpact: 0.5,
					Description:     "Reach out proactively before the customer follows up",
				},
			},
		},
		{
			Name:           "churn-risk",
			MinRiskScore:   0.7,
			TriggerFactors: []models.RiskFactorType{models.FactorRepeatIssue, models.FactorCustomerHistory},
			Actions: []models.PreventionAction{
				{
					Type:             models.ActionOfferCompensation,
					Priority:         models.PriorityUrgent,
					EstimatedImpact:  0.7,
					RequiresApproval: true,
					Description:      "Offer goodwill compensation for the repeated problem",
				},
				{
					Type:            models.ActionAgentTransfer,
					Priority:        models.PriorityNormal,
					EstimatedImpact: 0.4,
					Description:     "Transfer to a senior agent familiar with the customer's history",
				},
			},
		},
		{
			Name:           "stalled-conversation",
			MinRiskScore:   0.3,
			TriggerFactors: []models.RiskFactorType{models.FactorResponseDelay, models.FactorComplexity},
			Actions: []models.PreventionAction{
				{
					Type:            models.ActionStatusUpdate,
					Priority:        models.PriorityNormal,
					EstimatedImpact: 0.4,
					Description:     "Send a status update so the customer knows the ticket is moving",
				},
				{
					Type:            models.ActionProactiveContact,
					Priority:        models.PriorityNormal,
					EstimatedImpact: 0.3,
					Description:     "Check in with the customer on the open items",
				},
			},
		},
	}
}

// factorSpecificActions holds the per-factor remediation defined for mitigable
// factors whose severity crosses the threshold.
var factorSpecificActions = map[models.RiskFactorType]models.PreventionAction{
	models.FactorSentimentDecline: {
		Type:            models.ActionToneChange,
		Priority:        models.PriorityUrgent,
		EstimatedImpact: 0.55,
		Description:     "Adjust tone in direct response to declining sentiment",
	},
	models.FactorResponseDelay: {
		Type:            models.ActionStatusUpdate,
		Priority:        models.PriorityUrgent,
		EstimatedImpact: 0.5,
		Description:     "Post an immediate status update to break the silence",
	},
}

// generatePreventionActions builds the ranked action list: playbook actions,
// factor-specific actions for severe mitigable factors, and the unconditional
// escalate-now action at very high scores. Duplicated action types keep their
// highest-impact variant. The list is sorted by priority tier then descending
// impact and truncated to the configured maximum.
func (e *Engine) generatePreventionActions(score float64, factors []models.EscalationRiskFactor) []models.PreventionAction {
	present := make(map[models.RiskFactorType]bool, len(factors))
	for _, f := range factors {
		present[f.Type] = true
	}

	var candidates []models.PreventionAction

	for _, playbook := range e.playbooks {
		if score < playbook.MinRiskScore {
			continue
		}
		triggered := false
		for _, factorType := range playbook.TriggerFactors {
			if present[factorType] {
				triggered = true
				break
			}
		}
		if triggered {
			candidates = append(candidates, playbook.Actions...)
		}
	}

	for _, f := range factors {
		if !f.Mitigable || f.Severity <= constants.FactorActionSeverityThreshold {
			continue
		}
		if action, ok := factorSpecificActions[f.Type]; ok {
			candidates = append(candidates, action)
		}
	}

	if score >= constants.EscalateNowScoreThreshold {
		candidates = append(candidates, models.PreventionAction{
			Type:            models.ActionEscalateNow,
			Priority:        models.PriorityImmediate,
			EstimatedImpact: 0.9,
			Description:     "Escalate to a manager immediately",
		})
	}

	// Union by action type, keeping the highest-impact variant.
	byType := make(map[models.ActionType]models.PreventionAction)
	for _, action := range candidates {
		if existing, ok := byType[action.Type]; !ok || action.EstimatedImpact > existing.EstimatedImpact {
			byType[action.Type] = action
		}
	}

	actions := make([]models.PreventionAction, 0, len(byType))
	for _, action := range byType {
		actions = append(actions, action)
	}

	sort.Slice(actions, func(i, j int) bool {
		pi, pj := priorityRank(actions[i].Priority), priorityRank(actions[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return actions[i].EstimatedImpact > actions[j].EstimatedImpact
	})

	if len(actions) > constants.MaxPreventionActions {
		actions = actions[:constants.MaxPreventionActions]
	}
	return actions
}

func priorityRank(priority models.ActionPriority) int {
	switch priority {
	case models.PriorityImmediate:
		return 0
	case models.PriorityUrgent:
		return 1
	default:
		return 2
	}
}

// ExecutePreventionAction dispatches the action to its executor. Executor
// failures are caught and reported in the result; a failed prevention action
// never crashes the caller.
func (e *Engine) ExecutePreventionAction(ctx context.Context, conversationID string, action models.PreventionAction, agentID string) models.ActionResult {
	result := models.ActionResult{
		ActionType: action.Type,
		ExecutedAt: time.Now(),
	}

	executor, ok := actionExecutors[action.Type]
	if !ok {
		result.Result = fmt.Sprintf("unknown action type %q", action.Type)
	} else if message, err := executor(ctx, conversationID, agentID); err != nil {
		result.Result = err.Error()
	} else {
		result.Success = true
		result.Result = message
	}

	status := "failure"
	if result.Success {
		status = "success"
	}
	e.metrics.PreventionActions.WithLabelValues(string(action.Type), status).Inc()

	e.bus.Publish(events.Event{
		Name:           events.EventPreventionActionExecuted,
		ConversationID: conversationID,
		Fields: map[string]interface{}{
			"action":   string(action.Type),
			"success":  result.Success,
			"result":   result.Result,
			"agent_id": agentID,
		},
	})

	e.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"action":          action.Type,
		"success":         result.Success,
		"agent_id":        agentID,
	}).Info("Executed prevention action")

	return result
}

type actionExecutor func(ctx context.Context, conversationID, agentID string) (string, error)

// Each executor returns a small structured result for the agent UI. The real
// integrations (outbound messaging, ticketing, routing) sit behind the API
// layer; these record the decision and hand it off.
var actionExecutors = map[models.ActionType]actionExecutor{
	models.ActionProactiveContact: func(_ context.Context, conversationID, _ string) (string, error) {
		return fmt.Sprintf("proactive contact queued for conversation %s", conversationID), nil
	},
	models.ActionEscalateNow: func(_ context.Context, conversationID, agentID string) (string, error) {
		if agentID == "" {
			return "", fmt.Errorf("immediate escalation requires an agent id")
		}
		return fmt.Sprintf("conversation %s escalated to manager by %s", conversationID, agentID), nil
	},
	models.ActionOfferCompensation: func(_ context.Context, conversationID, _ string) (string, error) {
		return fmt.Sprintf("compensation offer drafted for conversation %s, pending approval", conversationID), nil
	},
	models.ActionToneChange: func(_ context.Context, conversationID, _ string) (string, error) {
		return fmt.Sprintf("tone guidance attached to conversation %s", conversationID), nil
	},
	models.ActionStatusUpdate: func(_ context.Context, conversationID, _ string) (string, error) {
		return fmt.Sprintf("status update sent on conversation %s", conversationID), nil
	},
	models.ActionAgentTransfer: func(_ context.Context, conversationID, _ string) (string, error) {
		return fmt.Sprintf("transfer requested for conversation %s", conversationID), nil
	},
}
