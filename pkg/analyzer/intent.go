package analyzer

import (
	"context"
	"math"
	"strings"
	"time"

	"conversation-ai-core/pkg/models"
)

// IntentClassifier labels a message with the strongest matching intent bucket.
type IntentClassifier struct {
	lexiconBase
}

const IntentModelVersion = "lexicon-intent-1.0.3"

var intentBuckets = map[string][]string{
	"complaint": {
		"complaint", "unacceptable", "terrible", "awful", "disappointed",
		"frustrated", "angry", "worst", "fed up", "ridiculous",
	},
	"refund_request": {
		"refund", "money back", "charge back", "reimburse", "my money",
	},
	"cancellation": {
		"cancel", "unsubscribe", "close my account", "stop my subscription",
	},
	"technical_issue": {
		"error", "bug", "crash", "broken", "not working", "doesn't work",
		"can't log in", "cannot login", "failed", "stuck",
	},
	"question": {
		"how do i", "how can i", "what is", "where", "when", "can you explain", "?",
	},
	"praise": {
		"thanks", "thank you", "great job", "awesome", "love it", "well done",
	},
}

// issueTags maps intent labels to the issue categories tracked in
// conversation memory and customer history.
var issueTags = map[string][]string{
	"complaint":       {"service_quality"},
	"refund_request":  {"billing"},
	"cancellation":    {"churn"},
	"technical_issue": {"technical"},
}

func NewIntentClassifier(maxConcurrent int) *IntentClassifier {
	return &IntentClassifier{lexiconBase: newLexiconBase(IntentModelVersion, maxConcurrent)}
}

func (a *IntentClassifier) Analyze(ctx context.Context, msg models.Message, _ *models.ConversationContext) (models.AnalysisResult, error) {
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

	best := "general_inquiry"
	bestCount := 0
	for label, words := range intentBuckets {
		count := countMatches(normalized, words)
		if count > bestCount {
			best = label
			bestCount = count
		}
	}

	confidence := 0.4
	if bestCount > 0 {
		confidence = math.Min(0.95, 0.55+0.15*float64(bestCount))
	}

	return models.AnalysisResult{
		Score:          float64(bestCount),
		Label:          best,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
		ModelVersion:   a.version,
	}, nil
}

// IssueTagsFor returns the issue categories implied by an intent label.
func IssueTagsFor(intentLabel string) []string {
	return issueTags[intentLabel]
}
