package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-ai-core/pkg/models"
)

func analyzeContent(t *testing.T, a *SentimentAnalyzer, content string) models.AnalysisResult {
	t.Helper()
	result, err := a.Analyze(context.Background(), models.Message{ID: "msg_1", ConversationID: "conv_1", Content: content}, nil)
	require.NoError(t, err)
	return result
}

func TestSentimentAnalyzer_Labels(t *testing.T) {
	a := NewSentimentAnalyzer(4)
	require.NoError(t, a.Initialize(context.Background()))

	positive := analyzeContent(t, a, "Thank you, this is great!")
	assert.Equal(t, "positive", positive.Label)
	assert.Greater(t, positive.Score, 0.2)

	negative := analyzeContent(t, a, "This is absolutely terrible and useless")
	assert.Equal(t, "negative", negative.Label)
	assert.Equal(t, -1.0, negative.Score)

	neutral := analyzeContent(t, a, "The invoice arrived on Tuesday")
	assert.Equal(t, "neutral", neutral.Label)
	assert.Equal(t, 0.0, neutral.Score)
	assert.Equal(t, 0.5, neutral.Confidence)
}

func TestSentimentAnalyzer_MixedSignalsStayNeutral(t *testing.T) {
	a := NewSentimentAnalyzer(4)
	require.NoError(t, a.Initialize(context.Background()))

	result := analyzeContent(t, a, "Thanks, but it is still broken")
	assert.Equal(t, "neutral", result.Label)
}

func TestSentimentAnalyzer_Deterministic(t *testing.T) {
	a := NewSentimentAnalyzer(4)
	require.NoError(t, a.Initialize(context.Background()))

	first := analyzeContent(t, a, "I am extremely frustrated with this broken product")
	second := analyzeContent(t, a, "I am extremely frustrated with this broken product")
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Label, second.Label)
}

func TestSentimentAnalyzer_EmptyContent(t *testing.T) {
	a := NewSentimentAnalyzer(4)
	require.NoError(t, a.Initialize(context.Background()))

	_, err := a.Analyze(context.Background(), models.Message{Content: "   "}, nil)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestSentimentAnalyzer_NotInitialized(t *testing.T) {
	a := NewSentimentAnalyzer(4)

	_, err := a.Analyze(context.Background(), models.Message{Content: "hello"}, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSentimentAnalyzer_RateLimit(t *testing.T) {
	a := NewSentimentAnalyzer(1)
	require.NoError(t, a.Initialize(context.Background()))

	// Occupy the single concurrency slot, then analyze.
	release, err := a.acquire()
	require.NoError(t, err)
	defer release()

	_, err = a.Analyze(context.Background(), models.Message{Content: "hello"}, nil)

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 1, rateErr.Limit)
	assert.True(t, rateErr.Retryable())
}

func TestSentimentAnalyzer_Version(t *testing.T) {
	a := NewSentimentAnalyzer(4)
	assert.Equal(t, SentimentModelVersion, a.Version())
}
