package escalation

// TrendLabel classifies the direction of a sentiment score series
type TrendLabel string

const (
	TrendImproving TrendLabel = "IMPROVING"
	TrendStable    TrendLabel = "STABLE"
	TrendDeclining TrendLabel = "DECLINING"
)

// AnalyzeTrend computes the sentiment trend over a score series as the
// difference between the last and first samples, and classifies it.
func AnalyzeTrend(scores []float64) (float64, TrendLabel) {
	if len(scores) < 2 {
		return 0, TrendStable
	}

	trend := scores[len(scores)-1] - scores[0]
	switch {
	case trend < -0.2:
		return trend, TrendDeclining
	case trend > 0.2:
		return trend, TrendImproving
	default:
		return trend, TrendStable
	}
}
