// Package escalation implements the risk engine: it scores a conversation's
// escalation risk from weighted factors, predicts time to escalation, selects
// prevention actions, and runs per-conversation intensive monitoring loops.
package escalation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"conversation-ai-core/pkg/constants"
	"conversation-ai-core/pkg/events"
	"conversation-ai-core/pkg/memory"
	"conversation-ai-core/pkg/metrics"
	"conversation-ai-core/pkg/models"
)

// Engine evaluates escalation risk for conversations. Construct with
// NewEngine and release resources with Shutdown.
type Engine struct {
	store           memory.Store
	logger          *logrus.Logger
	metrics         *metrics.Metrics
	bus             *events.Bus
	playbooks       []Playbook
	monitorInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	monitors        map[string]monitorHandle
	monitorGen      uint64
	lastPredictions map[string]models.EscalationPrediction

	statsMu            sync.Mutex
	outcomesReported   int64
	escalationsAvoided int64
}

func NewEngine(store memory.Store, bus *events.Bus, m *metrics.Metrics, monitorInterval time.Duration, logger *logrus.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:           store,
		logger:          logger,
		metrics:         m,
		bus:             bus,
		playbooks:       DefaultPlaybooks(),
		monitorInterval: monitorInterval,
		ctx:             ctx,
		cancel:          cancel,
		monitors:        make(map[string]monitorHandle),
		lastPredictions: make(map[string]models.EscalationPrediction),
	}
}

// PredictRisk evaluates the conversation's current escalation risk. As a side
// effect, scores at or above the monitoring threshold (re)start an intensive
// monitoring loop for the conversation.
func (e *Engine) PredictRisk(ctx context.Context, conversationID string, current *models.Message) (models.EscalationPrediction, error) {
	return e.predict(ctx, conversationID, current, true)
}

func (e *Engine) predict(ctx context.Context, conversationID string, current *models.Message, manageMonitor bool) (models.EscalationPrediction, error) {
	mem, err := e.store.GetMemory(ctx, conversationID)
	if err != nil {
		return models.EscalationPrediction{}, fmt.Errorf("failed to load conversation memory: %w", err)
	}

	profile := models.CustomerProfile{}
	if mem.CustomerID != "" {
		profile, err = e.store.GetCustomerProfile(ctx, mem.CustomerID)
		if err != nil {
			return models.EscalationPrediction{}, fmt.Errorf("failed to load customer profile: %w", err)
		}
	}

	factors := extractFactors(mem, profile)
	score := aggregateScore(factors)
	level := riskLevel(score)

	prediction := models.EscalationPrediction{
		ConversationID:        conversationID,
		RiskScore:             score,
		RiskLevel:             level,
		Factors:               factors,
		TimeToEscalation:      timeToEscalation(factors),
		EscalationProbability: score,
		Confidence:            math.Min(constants.ConfidenceCeiling, constants.ConfidenceBase+constants.ConfidencePerFactor*float64(len(factors))),
		Actions:               e.generatePreventionActions(score, factors),
		ManagerAlert:          managerAlert(score, factors),
		PredictedAt:           time.Now(),
	}

	e.metrics.EscalationsDetected.WithLabelValues(string(level)).Inc()

	e.mu.Lock()
	e.lastPredictions[conversationID] = prediction
	e.mu.Unlock()

	if manageMonitor {
		e.maintainMonitor(conversationID, score)
	}

	e.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"risk_score":      score,
		"risk_level":      level,
		"factor_count":    len(factors),
		"manager_alert":   prediction.ManagerAlert,
	}).Debug("Evaluated escalation risk")

	return prediction, nil
}

// extractFactors computes the up-to-five independent risk factors. Each is
// absent if its trigger condition is not met.
func extractFactors(mem models.ConversationMemory, profile models.CustomerProfile) []models.EscalationRiskFactor {
	var factors []models.EscalationRiskFactor

	if f, ok := sentimentDeclineFactor(mem); ok {
		factors = append(factors, f)
	}
	if f, ok := repeatIssueFactor(mem, profile); ok {
		factors = append(factors, f)
	}
	if f, ok := responseDelayFactor(mem); ok {
		factors = append(factors, f)
	}
	if f, ok := complexityFactor(mem); ok {
		factors = append(factors, f)
	}
	if f, ok := customerHistoryFactor(profile); ok {
		factors = append(factors, f)
	}
	return factors
}

func sentimentDeclineFactor(mem models.ConversationMemory) (models.EscalationRiskFactor, bool) {
	n := len(mem.SentimentTimeline)
	if n < constants.TrendMinSamples {
		return models.EscalationRiskFactor{}, false
	}

	window := mem.SentimentTimeline
	if n > constants.TrendSampleSize {
		window = window[n-constants.TrendSampleSize:]
	}

	scores := make([]float64, len(window))
	for i, sample := range window {
		scores[i] = sample.Score
	}

	trend, _ := AnalyzeTrend(scores)
	sum := 0.0
	for _, score := range scores {
		sum += score
	}
	average := sum / float64(len(scores))

	if trend >= constants.TrendDeclineThreshold && average >= constants.AverageSentimentThreshold {
		return models.EscalationRiskFactor{}, false
	}

	return models.EscalationRiskFactor{
		Type:        models.FactorSentimentDecline,
		Severity:    math.Min(1, math.Abs(trend)+math.Abs(average)),
		Weight:      constants.WeightSentimentDecline,
		Mitigable:   true,
		Description: fmt.Sprintf("Sentiment trend %.2f with average %.2f over recent messages", trend, average),
	}, true
}

func repeatIssueFactor(mem models.ConversationMemory, profile models.CustomerProfile) (models.EscalationRiskFactor, bool) {
	count := 0
	for _, issue := range mem.Issues {
		for _, historical := range profile.HistoricalIssues {
			if issue == historical {
				count++
				break
			}
		}
	}
	if count == 0 {
		return models.EscalationRiskFactor{}, false
	}

	return models.EscalationRiskFactor{
		Type:        models.FactorRepeatIssue,
		Severity:    math.Min(1, float64(count)*constants.RepeatIssueSeverityStep),
		Weight:      constants.WeightRepeatIssue,
		Mitigable:   false,
		Description: fmt.Sprintf("%d issue(s) previously reported by this customer", count),
	}, true
}

func responseDelayFactor(mem models.ConversationMemory) (models.EscalationRiskFactor, bool) {
	gapThreshold := time.Duration(constants.ResponseDelayGapHours) * time.Hour

	var delays []time.Duration
	for i := 1; i < len(mem.MessageTimestamps); i++ {
		gap := mem.MessageTimestamps[i].Sub(mem.MessageTimestamps[i-1])
		if gap > gapThreshold {
			delays = append(delays, gap)
		}
	}
	if len(delays) == 0 {
		return models.EscalationRiskFactor{}, false
	}

	var total time.Duration
	for _, delay := range delays {
		total += delay
	}
	meanHours := (total / time.Duration(len(delays))).Hours()

	return models.EscalationRiskFactor{
		Type:        models.FactorResponseDelay,
		Severity:    math.Min(1, meanHours/constants.ResponseDelayNormalizationHours),
		Weight:      constants.WeightResponseDelay,
		Mitigable:   true,
		Description: fmt.Sprintf("Mean response delay of %.1f hours across %d gap(s)", meanHours, len(delays)),
	}, true
}

func complexityFactor(mem models.ConversationMemory) (models.EscalationRiskFactor, bool) {
	complexity := constants.ComplexityMessageCountFactor*float64(mem.MessageCount) +
		constants.ComplexityIssueCountFactor*float64(len(mem.Issues))
	if complexity <= constants.ComplexityTriggerThreshold {
		return models.EscalationRiskFactor{}, false
	}

	return models.EscalationRiskFactor{
		Type:        models.FactorComplexity,
		Severity:    math.Min(1, complexity),
		Weight:      constants.WeightComplexity,
		Mitigable:   true,
		Description: fmt.Sprintf("Complex conversation: %d messages, %d issue(s)", mem.MessageCount, len(mem.Issues)),
	}, true
}

func customerHistoryFactor(profile models.CustomerProfile) (models.EscalationRiskFactor, bool) {
	if profile.PastEscalations == 0 && profile.Satisfaction >= constants.SatisfactionThreshold {
		return models.EscalationRiskFactor{}, false
	}

	return models.EscalationRiskFactor{
		Type:        models.FactorCustomerHistory,
		Severity:    math.Min(1, float64(profile.PastEscalations)*constants.EscalationCountSeverityStep+(1-profile.Satisfaction)),
		Weight:      constants.WeightCustomerHistory,
		Mitigable:   false,
		Description: fmt.Sprintf("%d past escalation(s), satisfaction %.2f", profile.PastEscalations, profile.Satisfaction),
	}, true
}

// aggregateScore is the weighted average of present factors, clamped to [0,1].
// No factors means no risk.
func aggregateScore(factors []models.EscalationRiskFactor) float64 {
	if len(factors) == 0 {
		return 0
	}

	weightedSum := 0.0
	weightTotal := 0.0
	for _, f := range factors {
		weightedSum += f.Severity * f.Weight
		weightTotal += f.Weight
	}
	if weightTotal == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, weightedSum/weightTotal))
}

func riskLevel(score float64) models.RiskLevel {
	switch {
	case score >= constants.RiskThresholdCritical:
		return models.RiskCritical
	case score >= constants.RiskThresholdHigh:
		return models.RiskHigh
	case score >= constants.RiskThresholdMedium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// timeToEscalation starts from the baseline and is adjusted multiplicatively
// per present factor. Sentiment decline and repeat issues shorten the
// estimate; response delays mean a slower-moving conversation and lengthen it.
func timeToEscalation(factors []models.EscalationRiskFactor) time.Duration {
	minutes := float64(constants.BaselineTimeToEscalationMinutes)
	for _, f := range factors {
		switch f.Type {
		case models.FactorSentimentDecline:
			minutes *= 1 - 0.5*f.Severity
		case models.FactorRepeatIssue:
			minutes *= 1 - 0.3*f.Severity
		case models.FactorResponseDelay:
			minutes *= 1 + 0.5*f.Severity
		}
	}
	if minutes < constants.MinTimeToEscalationMinutes {
		minutes = constants.MinTimeToEscalationMinutes
	}
	return time.Duration(minutes * float64(time.Minute))
}

func managerAlert(score float64, factors []models.EscalationRiskFactor) bool {
	if score >= constants.ManagerAlertScoreThreshold {
		return true
	}
	for _, f := range factors {
		if f.Severity >= constants.ManagerAlertSeverityThreshold {
			return true
		}
	}
	return false
}

// ActiveRisks returns the most recent prediction for every conversation under
// intensive monitoring, highest risk first.
func (e *Engine) ActiveRisks() []models.EscalationPrediction {
	e.mu.Lock()
	defer e.mu.Unlock()

	risks := make([]models.EscalationPrediction, 0, len(e.monitors))
	for conversationID := range e.monitors {
		if pred, ok := e.lastPredictions[conversationID]; ok {
			risks = append(risks, pred.Clone())
		}
	}
	sort.Slice(risks, func(i, j int) bool {
		return risks[i].RiskScore > risks[j].RiskScore
	})
	return risks
}

// ReportOutcome records whether a monitored conversation ultimately escalated.
// It feeds the engine's prevention success rate only; scoring weights are not
// adjusted.
func (e *Engine) ReportOutcome(conversationID string, escalated bool, outcome string, actionsUsed []models.ActionType) {
	e.statsMu.Lock()
	e.outcomesReported++
	if !escalated {
		e.escalationsAvoided++
	}
	e.statsMu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"escalated":       escalated,
		"outcome":         outcome,
		"actions_used":    actionsUsed,
	}).Info("Escalation outcome reported")
}

// PreventionSuccessRate is the fraction of reported outcomes that did not
// escalate. Zero until the first outcome is reported.
func (e *Engine) PreventionSuccessRate() float64 {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	if e.outcomesReported == 0 {
		return 0
	}
	return float64(e.escalationsAvoided) / float64(e.outcomesReported)
}

// IsHealthy probes the engine's memory store dependency.
func (e *Engine) IsHealthy(ctx context.Context) bool {
	if e.ctx.Err() != nil {
		return false
	}
	return e.store.IsHealthy(ctx)
}

// Shutdown cancels all monitoring loops.
func (e *Engine) Shutdown() {
	e.cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	for conversationID, m := range e.monitors {
		m.cancel()
		delete(e.monitors, conversationID)
	}
	e.metrics.ActiveMonitors.Set(0)
}
