package analyzer

import (
	"context"
	"math"
	"strings"
	"time"

	"conversation-ai-core/pkg/models"
)

// SentimentAnalyzer scores message sentiment in [-1, 1] from weighted keyword
// buckets. Deterministic, so results are cacheable and tests are repeatable.
type SentimentAnalyzer struct {
	lexiconBase
}

const SentimentModelVersion = "lexicon-sentiment-1.2.0"

var positiveWords = []string{
	"thanks", "thank you", "great", "awesome", "perfect", "excellent", "love",
	"appreciate", "helpful", "resolved", "fixed", "happy", "wonderful", "amazing",
}

var negativeWords = []string{
	"angry", "furious", "terrible", "awful", "horrible", "useless", "broken",
	"unacceptable", "disappointed", "frustrated", "worst", "refund", "cancel",
	"ridiculous", "waste", "scam", "never again", "fed up", "still not working",
}

// Strong words double their bucket's contribution.
var intensifiers = []string{"very", "extremely", "absolutely", "completely", "totally"}

func NewSentimentAnalyzer(maxConcurrent int) *SentimentAnalyzer {
	return &SentimentAnalyzer{lexiconBase: newLexiconBase(SentimentModelVersion, maxConcurrent)}
}

func (a *SentimentAnalyzer) Analyze(ctx context.Context, msg models.Message, _ *models.ConversationContext) (models.AnalysisResult, error) {
	release, err := a.acquire()
	if err != nil {
		return models.AnalysisResult{}, err
	}
	defer release()

	if strings.TrimSpace(msg.Content) == "" {
		return models.AnalysisResult{}, ErrEmptyContent
	}
	if err := ctx.Err(); err != nil {
		return models.AnalysisResult{}, err
	}

	start := time.Now()
	normalized := strings.ToLower(msg.Content)

	positive := countMatches(normalized, positiveWords)
	negative := countMatches(normalized, negativeWords)

	// Exclamation marks amplify whichever polarity dominates.
	exclamations := strings.Count(msg.Content, "!")
	if exclamations > 0 {
		if negative > positive {
			negative += exclamations
		} else if positive > negative {
			positive += exclamations
		}
	}

	boost := 1.0
	if countMatches(normalized, intensifiers) > 0 {
		boost = 2.0
	}

	total := float64(positive+negative) * boost
	score := 0.0
	if total > 0 {
		score = float64(positive-negative) * boost / total
	}
	score = math.Max(-1, math.Min(1, score))

	label := "neutral"
	switch {
	case score > 0.2:
		label = "positive"
	case score < -0.2:
		label = "negative"
	}

	confidence := math.Min(0.95, 0.5+0.1*float64(positive+negative))
	if positive+negative == 0 {
		confidence = 0.5
	}

	return models.AnalysisResult{
		Score:          score,
		Label:          label,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
		ModelVersion:   a.version,
	}, nil
}

func countMatches(normalized string, words []string) int {
	count := 0
	for _, word := range words {
		if strings.Contains(normalized, word) {
			count++
		}
	}
	return count
}
