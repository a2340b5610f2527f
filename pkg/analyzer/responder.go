package analyzer

import (
	"context"
	"math"
	"strings"

	"conversation-ai-core/pkg/models"
)

// TemplateResponder generates baseline reply suggestions from intent-keyed
// templates, with tone adjusted by sentiment. Enhance merges contextual
// insights into the baseline suggestions.
type TemplateResponder struct {
	lexiconBase
}

const ResponderModelVersion = "template-responder-1.1.0"

var intentTemplates = map[string][]string{
	"complaint": {
		"I'm really sorry about this experience. Let me look into it right away.",
		"I understand how frustrating this must be. Here's what I can do for you.",
	},
	"refund_request": {
		"I can help with your refund. Let me check your order details first.",
		"I'll review your account and start the refund process where applicable.",
	},
	"cancellation": {
		"I'm sorry to hear you're considering cancelling. Can I help resolve the underlying issue first?",
	},
	"technical_issue": {
		"Thanks for reporting this. Could you share any error message you're seeing?",
		"Let me walk you through a couple of steps that usually resolve this.",
	},
	"question": {
		"Good question. Here's how that works.",
	},
	"praise": {
		"Thank you for the kind words! Glad we could help.",
	},
	"general_inquiry": {
		"Thanks for reaching out. Could you tell me a bit more so I can help?",
	},
}

func NewTemplateResponder(maxConcurrent int) *TemplateResponder {
	return &TemplateResponder{lexiconBase: newLexiconBase(ResponderModelVersion, maxConcurrent)}
}

func (r *TemplateResponder) Suggest(ctx context.Context, msg models.Message, sentiment, intent models.AnalysisResult) ([]models.ResponseSuggestion, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if strings.TrimSpace(msg.Content) == "" {
		return nil, ErrEmptyContent
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tone := "neutral"
	if sentiment.Score < -0.2 {
		tone = "empathetic"
	} else if sentiment.Score > 0.2 {
		tone = "warm"
	}

	templates := intentTemplates[intent.Label]
	if len(templates) == 0 {
		templates = intentTemplates["general_inquiry"]
	}

	suggestions := make([]models.ResponseSuggestion, 0, len(templates))
	for _, text := range templates {
		suggestions = append(suggestions, models.ResponseSuggestion{
			Text:       text,
			Tone:       tone,
			Confidence: intent.Confidence,
		})
	}
	return suggestions, nil
}

// Enhance appends an insight-derived note to the suggestion list and nudges
// confidence up when the insights corroborate the baseline.
func (r *TemplateResponder) Enhance(ctx context.Context, suggestions []models.ResponseSuggestion, insights []models.ContextualInsight) ([]models.ResponseSuggestion, error) {
	if !r.ready.Load() {
		return nil, ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enhanced := make([]models.ResponseSuggestion, len(suggestions))
	copy(enhanced, suggestions)

	for i := range enhanced {
		enhanced[i].Confidence = math.Min(0.95, enhanced[i].Confidence+0.05*float64(len(insights)))
	}

	for _, insight := range insights {
		if insight.Type == "repeat_issue" {
			enhanced = append(enhanced, models.ResponseSuggestion{
				Text:       "I can see this isn't the first time you've run into this. I'll flag it so it gets a permanent fix.",
				Tone:       "empathetic",
				Confidence: insight.Confidence,
			})
			break
		}
	}

	return enhanced, nil
}
