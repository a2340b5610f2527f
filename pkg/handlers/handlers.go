package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"conversation-ai-core/pkg/analyzer"
	"conversation-ai-core/pkg/escalation"
	"conversation-ai-core/pkg/models"
	"conversation-ai-core/pkg/pipeline"
)

type Handler struct {
	orchestrator *pipeline.Orchestrator
	engine       *escalation.Engine
	logger       *logrus.Logger
}

func NewHandler(orchestrator *pipeline.Orchestrator, engine *escalation.Engine, logger *logrus.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		engine:       engine,
		logger:       logger,
	}
}

func (h *Handler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conversationID := vars["id"]

	if conversationID == "" {
		http.Error(w, "Missing conversation ID", http.StatusBadRequest)
		return
	}

	var request struct {
		MessageID  string    `json:"message_id,omitempty"`
		Content    string    `json:"content"`
		Sender     string    `json:"sender"`
		CustomerID string    `json:"customer_id"`
		AgentID    string    `json:"agent_id,omitempty"`
		TicketID   string    `json:"ticket_id,omitempty"`
		Status     string    `json:"status,omitempty"`
		Timestamp  time.Time `json:"timestamp,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if request.MessageID == "" {
		request.MessageID = uuid.New().String()
	}
	if request.Timestamp.IsZero() {
		request.Timestamp = time.Now()
	}
	if request.Sender == "" {
		request.Sender = string(models.SenderCustomer)
	}
	if request.Status == "" {
		request.Status = string(models.StatusOpen)
	}

	msg := models.Message{
		ID:             request.MessageID,
		ConversationID: conversationID,
		Content:        request.Content,
		Sender:         models.Sender(request.Sender),
		Timestamp:      request.Timestamp,
	}
	convCtx := &models.ConversationContext{
		ConversationID: conversationID,
		CustomerID:     request.CustomerID,
		AgentID:        request.AgentID,
		TicketID:       request.TicketID,
		Status:         models.ConversationStatus(request.Status),
	}

	result, err := h.orchestrator.ProcessMessage(r.Context(), msg, convCtx)
	if err != nil {
		h.logger.WithError(err).WithField("conversation_id", conversationID).Error("Failed to process message")
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)

	h.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"message_id":      msg.ID,
		"from_cache":      result.FromCache,
	}).Debug("Processed message")
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.orchestrator.GetMetrics())
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.orchestrator.GetHealth(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if report.Status == models.Unhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(report)
}

func (h *Handler) ActiveEscalations(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"risks":                   h.engine.ActiveRisks(),
		"prevention_success_rate": h.engine.PreventionSuccessRate(),
		"timestamp":               time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) ExecutePreventionAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conversationID := vars["id"]

	if conversationID == "" {
		http.Error(w, "Missing conversation ID", http.StatusBadRequest)
		return
	}

	var request struct {
		Action          string  `json:"action"`
		Priority        string  `json:"priority,omitempty"`
		EstimatedImpact float64 `json:"estimated_impact,omitempty"`
		AgentID         string  `json:"agent_id,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	action := models.PreventionAction{
		Type:            models.ActionType(request.Action),
		Priority:        models.ActionPriority(request.Priority),
		EstimatedImpact: request.EstimatedImpact,
	}

	result := h.engine.ExecutePreventionAction(r.Context(), conversationID, action, request.AgentID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *Handler) ReportEscalationOutcome(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conversationID := vars["id"]

	if conversationID == "" {
		http.Error(w, "Missing conversation ID", http.StatusBadRequest)
		return
	}

	var request struct {
		Escalated   bool     `json:"escalated"`
		Outcome     string   `json:"outcome"`
		ActionsUsed []string `json:"actions_used,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actions := make([]models.ActionType, 0, len(request.ActionsUsed))
	for _, a := range request.ActionsUsed {
		actions = append(actions, models.ActionType(a))
	}

	h.engine.ReportOutcome(conversationID, request.Escalated, request.Outcome, actions)

	response := map[string]interface{}{
		"success":                 true,
		"conversation_id":         conversationID,
		"prevention_success_rate": h.engine.PreventionSuccessRate(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func statusForError(err error) int {
	var validationErr *pipeline.ValidationError
	var timeoutErr *pipeline.TimeoutError
	var rateLimitErr *analyzer.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &rateLimitErr):
		return http.StatusTooManyRequests
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.Is(err, pipeline.ErrNotInitialized), errors.Is(err, pipeline.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
