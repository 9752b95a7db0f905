package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/presenca/discovery-audit/internal/model"
)

func sampleAudit() (*model.Business, *model.Audit, []model.Competitor) {
	score := 62
	b := &model.Business{
		Name:         "Padaria do Zé",
		City:         "São Paulo",
		State:        "SP",
		Category:     "Padaria",
		Rating:       4.2,
		TotalReviews: 23,
		PhotosCount:  5,
	}
	a := &model.Audit{
		DiscoveryScore: &score,
		Perception: &model.AIPerception{
			Summary:        "Padaria de bairro com boa reputação",
			TargetAudience: "moradores da região",
			Confidence:     0.8,
			MissingSignals: []string{"site"},
		},
		Competitive: &model.CompetitiveAnalysis{
			Matrix: model.ComparisonMatrix{
				CompetitorAverage: model.ComparisonAverage{Rating: 4.6, TotalReviews: 120, PhotosCount: 40},
			},
			Gaps: []model.CompetitorGap{
				{Type: model.GapReviews, Severity: model.SeverityHigh, Message: "Poucas avaliações", Action: "Peça avaliações aos clientes"},
			},
		},
		Recommendations: []model.Recommendation{
			{Action: "Peça avaliações", Priority: "high", Impact: 9, Effort: "baixo"},
		},
	}
	competitors := []model.Competitor{
		{Rank: 1, Name: "Padaria Central", Rating: 4.6, TotalReviews: 120, PhotosCount: 40, Website: "https://central.example"},
	}
	return b, a, competitors
}

func TestRenderText(t *testing.T) {
	b, a, competitors := sampleAudit()
	out := RenderText(b, a, competitors)

	assert.Contains(t, out, "PADARIA DO ZÉ")
	assert.Contains(t, out, "62/100")
	assert.Contains(t, out, "bom")
	assert.Contains(t, out, "Padaria Central")
	assert.Contains(t, out, "Média concorrentes")
	assert.Contains(t, out, "Poucas avaliações")
	assert.Contains(t, out, "Peça avaliações")
	assert.Contains(t, out, "Confiança da recomendação: 80%")
}

func TestRenderTextWithoutScores(t *testing.T) {
	b := &model.Business{Name: "Padaria do Zé", City: "São Paulo", State: "SP"}
	out := RenderText(b, &model.Audit{}, nil)

	assert.NotContains(t, out, "/100")
	assert.Contains(t, out, "Comparação com concorrentes")
}
