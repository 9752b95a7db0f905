package store

import "github.com/presenca/discovery-audit/internal/model"

// applyResult copies a persisted result blob onto the audit snapshot so the
// invariant holds: result fields are populated iff the audit is completed.
func applyResult(a *model.Audit, r *model.AuditResult) {
	if r == nil {
		return
	}
	a.DiscoveryScore = &r.DiscoveryScore
	a.CompetitiveScore = r.CompetitiveScore
	a.SentimentScore = &r.SentimentScore
	a.VisualScore = &r.VisualScore
	a.Perception = &r.Perception
	a.Sentiment = &r.Sentiment
	a.Queries = r.Queries
	a.Visual = &r.Visual
	a.Competitive = r.Competitive
	a.Recommendations = r.Recommendations
	a.ProcessingSeconds = r.ProcessingSeconds
}
