package escalation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"conversation-ai-core/pkg/constants"
	"conversation-ai-core/pkg/events"
	"conversation-ai-core/pkg/models"
)

// monitorHandle ties a registered monitoring loop to its cancel function. The
// generation lets a loop prove it still owns the registration: a superseded
// loop that finishes one last re-evaluation must not tear down its
// replacement.
type monitorHandle struct {
	cancel context.CancelFunc
	gen    uint64
}

// maintainMonitor applies the monitoring policy after a prediction: a score at
// or above the start threshold (re)starts the loop for the conversation,
// superseding any running one; a score below the stop threshold cancels it.
func (e *Engine) maintainMonitor(conversationID string, score float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, running := e.monitors[conversationID]

	switch {
	case score >= constants.MonitorStartScore:
		if running {
			existing.cancel()
		}
		e.monitorGen++
		gen := e.monitorGen
		ctx, cancel := context.WithCancel(e.ctx)
		e.monitors[conversationID] = monitorHandle{cancel: cancel, gen: gen}
		go e.monitorLoop(ctx, conversationID, gen)
		if !running {
			e.metrics.ActiveMonitors.Inc()
		}
		e.logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"risk_score":      score,
		}).Info("Started intensive escalation monitoring")

	case running && score < constants.MonitorStopScore:
		existing.cancel()
		delete(e.monitors, conversationID)
		e.metrics.ActiveMonitors.Dec()
		e.logger.WithField("conversation_id", conversationID).Info("Stopped escalation monitoring, risk subsided")
	}
}

// monitorLoop periodically re-evaluates risk for one conversation. It stops
// itself once risk drops below the stop threshold, and raises an immediate
// action signal on critical re-evaluations that warrant a manager alert.
func (e *Engine) monitorLoop(ctx context.Context, conversationID string, gen uint64) {
	ticker := time.NewTicker(e.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prediction, err := e.predict(ctx, conversationID, nil, false)
			if err != nil {
				e.logger.WithError(err).WithField("conversation_id", conversationID).Error("Monitoring re-evaluation failed")
				continue
			}

			if prediction.RiskScore < constants.MonitorStopScore {
				e.stopMonitor(conversationID, gen)
				return
			}

			if prediction.RiskLevel == models.RiskCritical && prediction.ManagerAlert {
				e.bus.Publish(events.Event{
					Name:           events.EventEscalationRiskDetected,
					ConversationID: conversationID,
					Fields: map[string]interface{}{
						"risk_score":                prediction.RiskScore,
						"risk_level":                string(prediction.RiskLevel),
						"immediate_action_required": true,
					},
				})
			}
		}
	}
}

// stopMonitor removes the registration only if it still belongs to the
// calling loop's generation. A superseded loop racing its replacement is a
// no-op here.
func (e *Engine) stopMonitor(conversationID string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.monitors[conversationID]
	if !ok || m.gen != gen {
		return
	}
	m.cancel()
	delete(e.monitors, conversationID)
	e.metrics.ActiveMonitors.Dec()
	e.logger.WithField("conversation_id", conversationID).Info("Stopped escalation monitoring, risk subsided")
}
