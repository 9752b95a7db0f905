package delivery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenca/discovery-audit/internal/model"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(11) 98765-4321", "5511987654321"},
		{"+55 11 98765-4321", "5511987654321"},
		{"5511987654321", "5511987654321"},
		{"11987654321", "5511987654321"},
		{"11 8765-4321", "5511987654321"},  // mobile without the ninth digit
		{"(21) 3456-7890", "552134567890"}, // landline stays 10 digits
		{"021 98765-4321", "5521987654321"},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestNormalizePhoneRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "123", "abcdef", "119876", "11987654321987654"} {
		_, err := NormalizePhone(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestBuildReportMessageSections(t *testing.T) {
	score := 62
	b := &model.Business{Name: "Padaria do Zé", Rating: 4.2, TotalReviews: 23, PhotosCount: 5}
	a := &model.Audit{
		DiscoveryScore: &score,
		Competitive: &model.CompetitiveAnalysis{
			Matrix: model.ComparisonMatrix{
				CompetitorAverage: model.ComparisonAverage{Rating: 4.6, TotalReviews: 120, PhotosCount: 40},
			},
			Gaps: []model.CompetitorGap{
				{Type: model.GapReviews, Severity: model.SeverityHigh, Message: "Poucas avaliações", Action: "Peça avaliações"},
			},
		},
	}
	competitors := []model.Competitor{
		{Rank: 1, Name: "Padaria Central", Rating: 4.6, TotalReviews: 120},
	}

	msg := BuildReportMessage(b, a, competitors)
	assert.Contains(t, msg, "*1. Concorrentes na sua região*")
	assert.Contains(t, msg, "*2. Sua posição*")
	assert.Contains(t, msg, "*3. Principais oportunidades*")
	assert.Contains(t, msg, "Padaria Central")
	assert.Contains(t, msg, "62/100")
	assert.Contains(t, msg, "Poucas avaliações")
}

func TestBuildReportMessageCapsGaps(t *testing.T) {
	b := &model.Business{Name: "B"}
	gaps := make([]model.CompetitorGap, 5)
	for i := range gaps {
		gaps[i] = model.CompetitorGap{Message: "gap", Action: "ação"}
	}
	a := &model.Audit{Competitive: &model.CompetitiveAnalysis{Gaps: gaps}}

	msg := BuildReportMessage(b, a, nil)
	assert.Equal(t, 3, strings.Count(msg, "• gap"))
}

func TestBuildReportMessageNoCompetitors(t *testing.T) {
	msg := BuildReportMessage(&model.Business{Name: "B"}, &model.Audit{}, nil)
	assert.Contains(t, msg, "Nenhum concorrente direto encontrado")
	assert.Contains(t, msg, "Nenhuma lacuna crítica")
}
