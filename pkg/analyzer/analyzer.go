// Package analyzer defines the pluggable analyzer collaborators consumed by
// the pipeline orchestrator, plus deterministic lexicon-based reference
// implementations suitable for development and testing. Production deployments
// substitute real model-backed implementations of the same interfaces.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"conversation-ai-core/pkg/models"
)

// Analyzer is the shape every analysis collaborator exposes: an async call
// with a version identifier and a health probe.
type Analyzer interface {
	Initialize(ctx context.Context) error
	Analyze(ctx context.Context, msg models.Message, convCtx *models.ConversationContext) (models.AnalysisResult, error)
	IsHealthy(ctx context.Context) bool
	Version() string
	Shutdown(ctx context.Context) error
}

// ResponseGenerator produces baseline reply suggestions from sentiment and
// intent, and later enhances them with contextual insights.
type ResponseGenerator interface {
	Initialize(ctx context.Context) error
	Suggest(ctx context.Context, msg models.Message, sentiment, intent models.AnalysisResult) ([]models.ResponseSuggestion, error)
	Enhance(ctx context.Context, suggestions []models.ResponseSuggestion, insights []models.ContextualInsight) ([]models.ResponseSuggestion, error)
	IsHealthy(ctx context.Context) bool
	Version() string
	Shutdown(ctx context.Context) error
}

var (
	// ErrEmptyContent is returned for blank input. Non-retryable.
	ErrEmptyContent = errors.New("empty message content")

	// ErrNotInitialized is returned when Analyze is called before Initialize.
	ErrNotInitialized = errors.New("analyzer not initialized")
)

// RateLimitError is returned when the analyzer's concurrency ceiling is hit.
// Callers should back off and retry.
type RateLimitError struct {
	Limit int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("analyzer concurrency limit of %d exceeded", e.Limit)
}

func (e *RateLimitError) Retryable() bool { return true }
