package pipeline

import (
	"math"

	"github.com/presenca/discovery-audit/internal/model"
)

// Component weights of the Discovery Score. They sum to 1; when no
// competitive data exists the competitive weight is redistributed
// proportionally across the rest so the ceiling stays at 100.
const (
	weightAIConfidence = 0.25
	weightCompleteness = 0.20
	weightSentiment    = 0.20
	weightVisual       = 0.15
	weightCompetitive  = 0.20
)

// ScoreInput carries the per-stage components, each in [0,1]. Competitive
// is nil when competitor discovery produced nothing.
type ScoreInput struct {
	AIConfidence float64
	Completeness float64
	Sentiment    float64
	Visual       float64
	Competitive  *float64
}

// ComputeScore folds the components into the composite 0-100 Discovery
// Score.
func ComputeScore(in ScoreInput) int {
	ai := clamp01(in.AIConfidence)
	completeness := clamp01(in.Completeness)
	sentiment := clamp01(in.Sentiment)
	visual := clamp01(in.Visual)

	var weighted float64
	if in.Competitive != nil {
		weighted = weightAIConfidence*ai +
			weightCompleteness*completeness +
			weightSentiment*sentiment +
			weightVisual*visual +
			weightCompetitive*clamp01(*in.Competitive)
	} else {
		scale := 1.0 / (1.0 - weightCompetitive)
		weighted = scale * (weightAIConfidence*ai +
			weightCompleteness*completeness +
			weightSentiment*sentiment +
			weightVisual*visual)
	}

	score := int(math.Round(weighted * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Completeness measures how much of the discoverable profile is filled in:
// description, hours, photos, website and category, equally weighted.
func Completeness(b model.Business) float64 {
	fields := []bool{
		b.Description != "",
		len(b.Hours) > 0,
		b.PhotosCount > 0,
		b.HasWebsite(),
		b.Category != "",
	}
	present := 0
	for _, ok := range fields {
		if ok {
			present++
		}
	}
	return float64(present) / float64(len(fields))
}

// SentimentAlignment is the fraction of claimed attributes that reviews
// actually validate. With no gaps extracted it is neutral.
func SentimentAlignment(s *model.SentimentAnalysis) float64 {
	if s == nil {
		return 0.5
	}
	return s.AlignmentRatio()
}

// ScoreBand names the interpretation band for a composite score, matching
// the report template.
func ScoreBand(score int) string {
	switch {
	case score >= 80:
		return "excelente"
	case score >= 60:
		return "bom"
	case score >= 40:
		return "regular"
	default:
		return "crítico"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
