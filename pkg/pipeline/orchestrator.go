// Package pipeline contains the processing orchestrator: the façade that
// validates inbound messages, collapses duplicate requests, consults the
// result cache, races the staged analyzer computation against a timeout,
// invokes the escalation risk engine, and aggregates metrics and health.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"conversation-ai-core/pkg/analyzer"
	"conversation-ai-core/pkg/cache"
	"conversation-ai-core/pkg/config"
	"conversation-ai-core/pkg/escalation"
	"conversation-ai-core/pkg/events"
	"conversation-ai-core/pkg/memory"
	"conversation-ai-core/pkg/metrics"
	"conversation-ai-core/pkg/models"
)

// Collaborators groups the injected analyzer and memory collaborators. No
// process-wide singletons: every Orchestrator owns its own set.
type Collaborators struct {
	Sentiment analyzer.Analyzer
	Intent    analyzer.Analyzer
	Responder analyzer.ResponseGenerator
	Memory    memory.Store
	Risk      *escalation.Engine
}

type Orchestrator struct {
	cfg    *config.Config
	logger *logrus.Logger
	prom   *metrics.Metrics
	stats  *metrics.Stats
	bus    *events.Bus

	sentiment analyzer.Analyzer
	intent    analyzer.Analyzer
	responder analyzer.ResponseGenerator
	memory    memory.Store
	risk      *escalation.Engine

	cache    *cache.ResultCache
	inflight *cache.InflightTable

	initialized  atomic.Bool
	shuttingDown atomic.Bool
	wg           sync.WaitGroup
}

func NewOrchestrator(cfg *config.Config, collab Collaborators, bus *events.Bus, prom *metrics.Metrics, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		prom:      prom,
		stats:     metrics.NewStats(),
		bus:       bus,
		sentiment: collab.Sentiment,
		intent:    collab.Intent,
		responder: collab.Responder,
		memory:    collab.Memory,
		risk:      collab.Risk,
		cache:     cache.NewResultCache(cfg.CacheTTL(), cfg.CacheSweepEvery, logger),
		inflight:  cache.NewInflightTable(),
	}
}

// Initialize starts all analyzer collaborators concurrently. Any collaborator
// failure aborts the whole pipeline with a non-retryable InitializationError.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	start := time.Now()

	inits := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"sentiment analyzer", o.sentiment.Initialize},
		{"intent classifier", o.intent.Initialize},
		{"response generator", o.responder.Initialize},
		{"conversation memory", o.memory.Initialize},
	}

	errCh := make(chan *InitializationError, len(inits))
	var wg sync.WaitGroup
	for _, init := range inits {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errCh <- &InitializationError{Component: name, Err: err}
			}
		}(init.name, init.fn)
	}
	wg.Wait()
	close(errCh)

	if initErr := <-errCh; initErr != nil {
		o.logger.WithError(initErr).Error("Pipeline initialization failed")
		return initErr
	}

	o.initialized.Store(true)

	elapsed := time.Since(start)
	o.bus.Publish(events.Event{
		Name:   events.EventInitialized,
		Fields: map[string]interface{}{"elapsed_ms": elapsed.Milliseconds()},
	})
	o.logger.WithField("elapsed", elapsed).Info("Pipeline initialized")
	return nil
}

// ProcessMessage runs the full analysis pipeline for one message. Concurrent
// callers with the same (message id, conversation id) share one in-flight
// computation and observe the same result.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg models.Message, convCtx *models.ConversationContext) (models.AIProcessingResult, error) {
	if !o.initialized.Load() {
		return models.AIProcessingResult{}, ErrNotInitialized
	}
	if o.shuttingDown.Load() {
		return models.AIProcessingResult{}, ErrShuttingDown
	}
	if strings.TrimSpace(msg.Content) == "" {
		return models.AIProcessingResult{}, &ValidationError{Reason: "message content is empty"}
	}
	if convCtx == nil {
		return models.AIProcessingResult{}, &ValidationError{Reason: "conversation context is required"}
	}

	dedupKey := cache.DedupKey(msg.ID, msg.ConversationID)
	flight, owner := o.inflight.Begin(dedupKey)
	if !owner {
		// Join the computation already in flight for this key.
		return flight.Wait(ctx)
	}

	o.wg.Add(1)
	o.prom.InflightGauge.Inc()

	result, err := o.compute(ctx, msg, convCtx)

	// The dedup entry is released regardless of outcome; every waiter sees
	// this result exactly once.
	o.inflight.Settle(dedupKey, flight, result, err)
	o.prom.InflightGauge.Dec()
	o.wg.Done()

	return result, err
}

func (o *Orchestrator) compute(ctx context.Context, msg models.Message, convCtx *models.ConversationContext) (models.AIProcessingResult, error) {
	cacheKey := cache.ResultKey(msg.Content, o.modelVersions())

	if o.cfg.EnableCaching {
		if cached, ok := o.cache.Get(cacheKey); ok {
			o.stats.RecordCacheHit()
			o.prom.CacheLookups.WithLabelValues("hit").Inc()
			cached.MessageID = msg.ID
			cached.ConversationID = msg.ConversationID
			cached.FromCache = true
			o.bus.Publish(events.Event{
				Name:           events.EventCacheHit,
				ConversationID: msg.ConversationID,
				MessageID:      msg.ID,
			})
			return cached, nil
		}
		o.stats.RecordCacheMiss()
		o.prom.CacheLookups.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout())
	defer cancel()

	type outcome struct {
		result models.AIProcessingResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := o.runStages(tctx, msg, convCtx)
		done <- outcome{result: res, err: err}
	}()

	var result models.AIProcessingResult
	var err error
	select {
	case out := <-done:
		result, err = out.result, out.err
	case <-tctx.Done():
		// Partial stage results are discarded, no partial-success return.
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = &TimeoutError{Stage: "pipeline", Timeout: o.cfg.Timeout()}
		} else {
			err = ctx.Err()
		}
	}

	elapsed := time.Since(start)

	if err != nil {
		o.stats.RecordFailure()
		o.prom.MessagesProcessed.WithLabelValues("failure").Inc()
		o.bus.Publish(events.Event{
			Name:           events.EventProcessingError,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Fields:         map[string]interface{}{"error": err.Error()},
		})
		o.logger.WithError(err).WithFields(logrus.Fields{
			"conversation_id": msg.ConversationID,
			"message_id":      msg.ID,
		}).Error("Message processing failed")
		return models.AIProcessingResult{}, err
	}

	result.ProcessingTime = elapsed
	result.ProcessedAt = time.Now()

	o.stats.RecordSuccess(elapsed)
	o.prom.MessagesProcessed.WithLabelValues("success").Inc()
	o.prom.PipelineDuration.Observe(elapsed.Seconds())

	if o.cfg.EnableCaching {
		o.cache.Put(cacheKey, result)
	}

	o.bus.Publish(events.Event{
		Name:           events.EventMessageProcessed,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Fields:         map[string]interface{}{"elapsed_ms": elapsed.Milliseconds()},
	})

	return result, nil
}

// runStages executes the pipeline's computation DAG:
//
//  1. sentiment and intent run concurrently (fan-out/fan-in join)
//  2. memory update follows, sequentially
//  3. insights and risk prediction run concurrently with each other
//  4. baseline suggestions start as soon as stage 1 completes, in parallel
//     with stages 2-3
//  5. response enhancement joins stages 3 and 4
//  6. high or critical risk emits an event without blocking the result
func (o *Orchestrator) runStages(ctx context.Context, msg models.Message, convCtx *models.ConversationContext) (models.AIProcessingResult, error) {
	type analysisOut struct {
		res models.AnalysisResult
		err error
	}

	sentimentCh := make(chan analysisOut, 1)
	intentCh := make(chan analysisOut, 1)
	go func() {
		start := time.Now()
		res, err := o.sentiment.Analyze(ctx, msg, convCtx)
		o.prom.StageDuration.WithLabelValues("sentiment").Observe(time.Since(start).Seconds())
		sentimentCh <- analysisOut{res: res, err: err}
	}()
	go func() {
		start := time.Now()
		res, err := o.intent.Analyze(ctx, msg, convCtx)
		o.prom.StageDuration.WithLabelValues("intent").Observe(time.Since(start).Seconds())
		intentCh <- analysisOut{res: res, err: err}
	}()

	sentiment := <-sentimentCh
	intent := <-intentCh
	if sentiment.err != nil {
		return models.AIProcessingResult{}, sentiment.err
	}
	if intent.err != nil {
		return models.AIProcessingResult{}, intent.err
	}

	// Baseline suggestions depend only on stage 1; start them now.
	type suggestOut struct {
		res []models.ResponseSuggestion
		err error
	}
	suggestCh := make(chan suggestOut, 1)
	go func() {
		start := time.Now()
		res, err := o.responder.Suggest(ctx, msg, sentiment.res, intent.res)
		o.prom.StageDuration.WithLabelValues("suggest").Observe(time.Since(start).Seconds())
		suggestCh <- suggestOut{res: res, err: err}
	}()

	update := models.MemoryUpdate{
		ConversationID: msg.ConversationID,
		CustomerID:     convCtx.CustomerID,
		MessageID:      msg.ID,
		Sender:         msg.Sender,
		SentimentScore: sentiment.res.Score,
		Intent:         intent.res.Label,
		Issues:         analyzer.IssueTagsFor(intent.res.Label),
		Timestamp:      msg.Timestamp,
	}
	if err := o.memory.UpdateMemory(ctx, update); err != nil {
		return models.AIProcessingResult{}, err
	}

	type insightsOut struct {
		res []models.ContextualInsight
		err error
	}
	type riskOut struct {
		res models.EscalationPrediction
		err error
	}
	insightsCh := make(chan insightsOut, 1)
	riskCh := make(chan riskOut, 1)
	go func() {
		start := time.Now()
		res, err := o.memory.GenerateInsights(ctx, msg.ConversationID)
		o.prom.StageDuration.WithLabelValues("insights").Observe(time.Since(start).Seconds())
		insightsCh <- insightsOut{res: res, err: err}
	}()
	go func() {
		start := time.Now()
		res, err := o.risk.PredictRisk(ctx, msg.ConversationID, &msg)
		o.prom.StageDuration.WithLabelValues("risk").Observe(time.Since(start).Seconds())
		riskCh <- riskOut{res: res, err: err}
	}()

	insights := <-insightsCh
	risk := <-riskCh
	suggestions := <-suggestCh
	if insights.err != nil {
		return models.AIProcessingResult{}, insights.err
	}
	if risk.err != nil {
		return models.AIProcessingResult{}, risk.err
	}
	if suggestions.err != nil {
		return models.AIProcessingResult{}, suggestions.err
	}

	if len(insights.res) > 0 {
		o.bus.Publish(events.Event{
			Name:           events.EventContextualInsights,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Fields:         map[string]interface{}{"insight_count": len(insights.res)},
		})
	}

	enhanced, err := o.responder.Enhance(ctx, suggestions.res, insights.res)
	if err != nil {
		return models.AIProcessingResult{}, err
	}

	if risk.res.RiskLevel == models.RiskHigh || risk.res.RiskLevel == models.RiskCritical {
		o.bus.Publish(events.Event{
			Name:           events.EventEscalationRiskDetected,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Fields: map[string]interface{}{
				"risk_score": risk.res.RiskScore,
				"risk_level": string(risk.res.RiskLevel),
			},
		})
	}

	prediction := risk.res
	return models.AIProcessingResult{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		Sentiment:      sentiment.res,
		Intent:         intent.res,
		Suggestions:    enhanced,
		Insights:       insights.res,
		Escalation:     &prediction,
	}, nil
}

func (o *Orchestrator) modelVersions() map[string]string {
	return map[string]string{
		"sentiment": o.sentiment.Version(),
		"intent":    o.intent.Version(),
		"response":  o.responder.Version(),
	}
}

// GetMetrics returns an immutable snapshot of the rolling aggregate.
func (o *Orchestrator) GetMetrics() models.ProcessingMetrics {
	return o.stats.Snapshot(o.cache.Len())
}

// GetHealth polls every collaborator's probe plus the orchestrator's own load.
// All checks passing is healthy; at least half is degraded; less is unhealthy.
func (o *Orchestrator) GetHealth(ctx context.Context) models.HealthReport {
	checks := map[string]bool{
		"sentiment":         o.sentiment.IsHealthy(ctx),
		"intent":            o.intent.IsHealthy(ctx),
		"response":          o.responder.IsHealthy(ctx),
		"memory":            o.memory.IsHealthy(ctx),
		"escalation":        o.risk.IsHealthy(ctx),
		"cache_capacity":    o.cache.Len() < o.cfg.MaxCacheEntries,
		"inflight_capacity": o.inflight.Len() < o.cfg.MaxConcurrent,
	}

	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}

	status := models.Unhealthy
	switch {
	case passed == len(checks):
		status = models.Healthy
	case passed*2 >= len(checks):
		status = models.Degraded
	}

	return models.HealthReport{
		Status:       status,
		Checks:       checks,
		InFlight:     o.inflight.Len(),
		CacheEntries: o.cache.Len(),
		CheckedAt:    time.Now(),
	}
}

// Shutdown stops accepting new work, waits for in-flight computations up to
// the configured grace period, then shuts down collaborators and clears all
// cache and dedup state. If in-flight work does not settle in time, shutdown
// proceeds anyway.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.shuttingDown.Store(true)
	o.logger.Info("Pipeline shutting down")

	settled := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(settled)
	}()

	select {
	case <-settled:
	case <-time.After(o.cfg.ShutdownGrace()):
		o.logger.WithField("grace", o.cfg.ShutdownGrace()).Warn("Grace period elapsed with work still in flight")
	case <-ctx.Done():
	}

	o.risk.Shutdown()

	shutdowns := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"sentiment analyzer", o.sentiment.Shutdown},
		{"intent classifier", o.intent.Shutdown},
		{"response generator", o.responder.Shutdown},
		{"conversation memory", o.memory.Shutdown},
	}
	for _, s := range shutdowns {
		if err := s.fn(ctx); err != nil {
			o.logger.WithError(err).WithField("component", s.name).Error("Collaborator shutdown failed")
		}
	}

	o.cache.Clear()
	o.inflight.Clear()
	o.initialized.Store(false)

	o.bus.Publish(events.Event{Name: events.EventShutdown})
	o.bus.Close()

	o.logger.Info("Pipeline shutdown complete")
	return nil
}
