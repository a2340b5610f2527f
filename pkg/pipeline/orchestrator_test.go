package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-ai-core/pkg/config"
	"conversation-ai-core/pkg/escalation"
	"conversation-ai-core/pkg/events"
	"conversation-ai-core/pkg/memory"
	"conversation-ai-core/pkg/metrics"
	"conversation-ai-core/pkg/models"
)

// fakeAnalyzer is a scriptable analyzer double with atomic call counting.
type fakeAnalyzer struct {
	result    models.AnalysisResult
	err       error
	delay     time.Duration
	version   string
	healthy   atomic.Bool
	initErr   error
	calls     atomic.Int32
	initCalls atomic.Int32
}

func newFakeAnalyzer(version string, result models.AnalysisResult) *fakeAnalyzer {
	f := &fakeAnalyzer{result: result, version: version}
	f.healthy.Store(true)
	return f
}

func (f *fakeAnalyzer) Initialize(_ context.Context) error {
	f.initCalls.Add(1)
	return f.initErr
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, _ models.Message, _ *models.ConversationContext) (models.AnalysisResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.AnalysisResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeAnalyzer) IsHealthy(_ context.Context) bool { return f.healthy.Load() }
func (f *fakeAnalyzer) Version() string                  { return f.version }
func (f *fakeAnalyzer) Shutdown(_ context.Context) error { return nil }

type fakeResponder struct {
	fakeAnalyzer
	suggestions []models.ResponseSuggestion
}

func (f *fakeResponder) Suggest(_ context.Context, _ models.Message, _, _ models.AnalysisResult) ([]models.ResponseSuggestion, error) {
	f.calls.Add(1)
	return f.suggestions, f.err
}

func (f *fakeResponder) Enhance(_ context.Context, suggestions []models.ResponseSuggestion, _ []models.ContextualInsight) ([]models.ResponseSuggestion, error) {
	return suggestions, nil
}

type testPipeline struct {
	orchestrator *Orchestrator
	sentiment    *fakeAnalyzer
	intent       *fakeAnalyzer
	responder    *fakeResponder
	store        *memory.InMemoryStore
	engine       *escalation.Engine
}

func setupTestPipeline(t *testing.T, mutate func(*config.Config)) *testPipeline {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &config.Config{
		EnableCaching:     true,
		TimeoutMS:         5000,
		MaxConcurrent:     64,
		CacheTTLSeconds:   300,
		CacheSweepEvery:   100,
		MaxCacheEntries:   1000,
		ShutdownGraceMS:   200,
		MonitorIntervalMS: 60000,
	}
	if mutate != nil {
		mutate(cfg)
	}

	prom := metrics.NewMetricsWith(prometheus.NewRegistry())
	bus := events.NewBus(logger)
	store := memory.NewInMemoryStore()
	engine := escalation.NewEngine(store, bus, prom, cfg.MonitorInterval(), logger)

	sentiment := newFakeAnalyzer("sent-1.0.0", models.AnalysisResult{Score: 0.4, Label: "positive", Confidence: 0.9})
	intent := newFakeAnalyzer("intent-1.0.0", models.AnalysisResult{Label: "question", Confidence: 0.8})
	responder := &fakeResponder{
		fakeAnalyzer: fakeAnalyzer{version: "resp-1.0.0"},
		suggestions:  []models.ResponseSuggestion{{Text: "Happy to help!", Tone: "warm", Confidence: 0.7}},
	}
	responder.healthy.Store(true)

	orchestrator := NewOrchestrator(cfg, Collaborators{
		Sentiment: sentiment,
		Intent:    intent,
		Responder: responder,
		Memory:    store,
		Risk:      engine,
	}, bus, prom, logger)

	t.Cleanup(engine.Shutdown)
	return &testPipeline{
		orchestrator: orchestrator,
		sentiment:    sentiment,
		intent:       intent,
		responder:    responder,
		store:        store,
		engine:       engine,
	}
}

func testMessage(id, content string) models.Message {
	return models.Message{
		ID:             id,
		ConversationID: "conv_1",
		Content:        content,
		Sender:         models.SenderCustomer,
		Timestamp:      time.Now(),
	}
}

func testConvCtx() *models.ConversationContext {
	return &models.ConversationContext{
		ConversationID: "conv_1",
		CustomerID:     "cust_1",
		Status:         models.StatusOpen,
	}
}

func TestProcessMessage_RequiresInitialize(t *testing.T) {
	p := setupTestPipeline(t, nil)

	_, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "hello"), testConvCtx())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitialize_CollaboratorFailure(t *testing.T) {
	p := setupTestPipeline(t, nil)
	p.intent.initErr = errors.New("model weights missing")

	err := p.orchestrator.Initialize(context.Background())

	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "intent classifier", initErr.Component)
	assert.False(t, initErr.Retryable())

	// Failed initialization leaves the pipeline unusable.
	_, err = p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "hello"), testConvCtx())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestProcessMessage_Validation(t *testing.T) {
	p := setupTestPipeline(t, nil)
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	var validationErr *ValidationError

	_, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "   "), testConvCtx())
	assert.ErrorAs(t, err, &validationErr)

	_, err = p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "hello"), nil)
	assert.ErrorAs(t, err, &validationErr)
}

func TestProcessMessage_FullPipeline(t *testing.T) {
	p := setupTestPipeline(t, nil)
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	result, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "How do I reset my password?"), testConvCtx())
	require.NoError(t, err)

	assert.Equal(t, "msg_1", result.MessageID)
	assert.Equal(t, "conv_1", result.ConversationID)
	assert.Equal(t, "positive", result.Sentiment.Label)
	assert.Equal(t, "question", result.Intent.Label)
	assert.Len(t, result.Suggestions, 1)
	require.NotNil(t, result.Escalation)
	assert.False(t, result.FromCache)
	assert.Greater(t, result.ProcessingTime, time.Duration(0))

	// The memory update stage ran.
	mem, err := p.store.GetMemory(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Equal(t, 1, mem.MessageCount)
	assert.Equal(t, "question", mem.LastIntent)
	require.Len(t, mem.SentimentTimeline, 1)
	assert.Equal(t, 0.4, mem.SentimentTimeline[0].Score)
}

func TestProcessMessage_CacheHit(t *testing.T) {
	p := setupTestPipeline(t, nil)
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	first, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "same question"), testConvCtx())
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, int32(1), p.sentiment.calls.Load())

	// Different message id, identical content: served from cache without
	// re-running the analyzers, with identifiers rewritten for this request.
	second, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_2", "same question"), testConvCtx())
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "msg_2", second.MessageID)
	assert.Equal(t, first.Sentiment, second.Sentiment)
	assert.Equal(t, int32(1), p.sentiment.calls.Load())

	snapshot := p.orchestrator.GetMetrics()
	assert.Equal(t, 0.5, snapshot.CacheHitRate)
}

func TestProcessMessage_CachingDisabled(t *testing.T) {
	p := setupTestPipeline(t, func(cfg *config.Config) { cfg.EnableCaching = false })
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	_, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "same question"), testConvCtx())
	require.NoError(t, err)
	result, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_2", "same question"), testConvCtx())
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.Equal(t, int32(2), p.sentiment.calls.Load())
}

func TestProcessMessage_ConcurrentDuplicatesShareOneComputation(t *testing.T) {
	p := setupTestPipeline(t, func(cfg *config.Config) { cfg.EnableCaching = false })
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	// Hold the computation open long enough for all duplicates to join it.
	p.sentiment.delay = 100 * time.Millisecond

	const callers = 8
	msg := testMessage("msg_1", "duplicate burst")

	var wg sync.WaitGroup
	results := make([]models.AIProcessingResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.orchestrator.ProcessMessage(context.Background(), msg, testConvCtx())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Sentiment, results[i].Sentiment)
		assert.Equal(t, results[0].ProcessedAt, results[i].ProcessedAt)
	}
	assert.Equal(t, int32(1), p.sentiment.calls.Load(), "deduplicated callers must not re-run analysis")

	snapshot := p.orchestrator.GetMetrics()
	assert.Equal(t, int64(1), snapshot.RequestCount, "a deduplicated burst counts as one processed request")
}

func TestProcessMessage_Timeout(t *testing.T) {
	p := setupTestPipeline(t, func(cfg *config.Config) { cfg.TimeoutMS = 50 })
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	p.sentiment.delay = 500 * time.Millisecond

	start := time.Now()
	_, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "slow one"), testConvCtx())
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "pipeline", timeoutErr.Stage)
	assert.True(t, timeoutErr.Retryable())
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond, "timeout must not fire before the configured bound")
	assert.Less(t, elapsed, 400*time.Millisecond, "timeout must fire well before the stage completes")

	snapshot := p.orchestrator.GetMetrics()
	assert.Equal(t, 1.0, snapshot.ErrorRate)
}

func TestProcessMessage_CallerCancellation(t *testing.T) {
	p := setupTestPipeline(t, nil)
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	p.sentiment.delay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := p.orchestrator.ProcessMessage(ctx, testMessage("msg_1", "cancelled"), testConvCtx())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessMessage_StageErrorPropagates(t *testing.T) {
	p := setupTestPipeline(t, nil)
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	stageErr := errors.New("upstream model unavailable")
	p.intent.err = stageErr

	_, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "hello"), testConvCtx())
	assert.ErrorIs(t, err, stageErr)

	snapshot := p.orchestrator.GetMetrics()
	assert.Equal(t, int64(1), snapshot.RequestCount)
	assert.Equal(t, 1.0, snapshot.ErrorRate)
}

func TestGetMetrics_RollingAggregate(t *testing.T) {
	p := setupTestPipeline(t, func(cfg *config.Config) { cfg.EnableCaching = false })
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	_, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "first"), testConvCtx())
	require.NoError(t, err)

	p.intent.err = errors.New("boom")
	_, err = p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_2", "second"), testConvCtx())
	require.Error(t, err)

	snapshot := p.orchestrator.GetMetrics()
	assert.Equal(t, int64(2), snapshot.RequestCount)
	assert.Equal(t, 0.5, snapshot.ErrorRate)
	assert.Greater(t, snapshot.AverageLatencyMs, 0.0)
}

func TestGetHealth_Tristate(t *testing.T) {
	p := setupTestPipeline(t, nil)
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	report := p.orchestrator.GetHealth(context.Background())
	assert.Equal(t, models.Healthy, report.Status)
	assert.Len(t, report.Checks, 7)

	// One failing probe out of seven: degraded.
	p.sentiment.healthy.Store(false)
	report = p.orchestrator.GetHealth(context.Background())
	assert.Equal(t, models.Degraded, report.Status)
	assert.False(t, report.Checks["sentiment"])

	// Four failing probes leave fewer than half passing: unhealthy.
	p.intent.healthy.Store(false)
	p.responder.healthy.Store(false)
	p.engine.Shutdown() // escalation probe fails once the engine is stopped
	report = p.orchestrator.GetHealth(context.Background())
	assert.Equal(t, models.Unhealthy, report.Status)
}

func TestShutdown(t *testing.T) {
	p := setupTestPipeline(t, nil)
	require.NoError(t, p.orchestrator.Initialize(context.Background()))

	_, err := p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_1", "hello"), testConvCtx())
	require.NoError(t, err)

	require.NoError(t, p.orchestrator.Shutdown(context.Background()))

	_, err = p.orchestrator.ProcessMessage(context.Background(), testMessage("msg_2", "after shutdown"), testConvCtx())
	assert.ErrorIs(t, err, ErrNotInitialized)

	report := p.orchestrator.GetHealth(context.Background())
	assert.Equal(t, 0, report.CacheEntries)
	assert.Equal(t, 0, report.InFlight)
}
