package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenca/discovery-audit/internal/model"
)

func TestRuleTableLoads(t *testing.T) {
	require.NotEmpty(t, rules)
	for key, rule := range rules {
		assert.NotEmpty(t, rule.Action, "rule %s has no action", key)
		assert.Contains(t, priorityRank, rule.Priority, "rule %s has unknown priority", key)
		assert.Greater(t, rule.Impact, 0, "rule %s has no impact", key)
	}
}

func TestBuildRecommendationsDedupes(t *testing.T) {
	b := &model.Business{Description: "x", Hours: []string{"y"}, PhotosCount: 5}
	gaps := []model.CompetitorGap{
		{Type: model.GapReviews},
		{Type: model.GapReviews},
		{Type: model.GapPhotos},
	}

	recs := BuildRecommendations(b, gaps, nil)
	require.Len(t, recs, 2)
}

func TestBuildRecommendationsOrdering(t *testing.T) {
	b := &model.Business{Description: "x", Hours: []string{"y"}, PhotosCount: 5}
	gaps := []model.CompetitorGap{
		{Type: model.GapRating},       // medium priority
		{Type: model.GapAIVisibility}, // high priority, impact 10
		{Type: model.GapReviews},      // high priority, impact 9
	}

	recs := BuildRecommendations(b, gaps, nil)
	require.Len(t, recs, 3)
	assert.Equal(t, "high", recs[0].Priority)
	assert.Equal(t, 10, recs[0].Impact)
	assert.Equal(t, "high", recs[1].Priority)
	assert.Equal(t, "medium", recs[2].Priority)
}

func TestBuildRecommendationsProfileFindings(t *testing.T) {
	b := &model.Business{} // no description, hours or photos
	sentiment := &model.SentimentAnalysis{
		Gaps: []model.SentimentGap{
			{Claimed: "artesanal", Status: model.SentimentMissingValidation},
		},
	}

	recs := BuildRecommendations(b, nil, sentiment)
	categories := make(map[string]bool)
	for _, r := range recs {
		categories[r.Category] = true
	}
	assert.True(t, categories["perfil"])
	assert.True(t, categories["comunicação"])
}

func TestBuildRecommendationsValidatedSentimentAddsNothing(t *testing.T) {
	b := &model.Business{Description: "x", Hours: []string{"y"}, PhotosCount: 5}
	sentiment := &model.SentimentAnalysis{
		Gaps: []model.SentimentGap{{Claimed: "artesanal", Status: model.SentimentValidated}},
	}

	recs := BuildRecommendations(b, nil, sentiment)
	assert.Empty(t, recs)
}
