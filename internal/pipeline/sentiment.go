package pipeline

import (
	"context"
	"fmt"

	"github.com/presenca/discovery-audit/internal/config"
	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/pkg/anthropic"
)

// AnalyzeSentiment cross-checks what the profile claims against what the
// reviews actually say, scoring each claim's evidence.
func AnalyzeSentiment(ctx context.Context, client anthropic.Client, cfg config.AnthropicConfig, b *model.Business, reviews []model.Review) (*model.SentimentAnalysis, error) {
	prompt := fmt.Sprintf(`Compare o que o perfil deste negócio afirma com o que as avaliações dos clientes realmente dizem.

%s
Extraia os atributos que o perfil afirma ou sugere (da descrição e categoria) e verifique cada um contra as avaliações. Responda com JSON:
{
  "topics": {"tópico mencionado nas avaliações": 0.0},
  "gaps": [
    {
      "claimed": "atributo afirmado pelo perfil",
      "evidence_score": 0.0,
      "status": "validated | missing_validation | negative_perception",
      "recommendation": "ação sugerida quando não validado"
    }
  ],
  "positive_signals": ["pontos fortes recorrentes nas avaliações"],
  "negative_signals": ["reclamações recorrentes"]
}

topics mapeia cada tópico ao sentimento médio entre 0 e 1. evidence_score entre 0 e 1 mede o suporte das avaliações ao atributo; use "validated" quando >= 0.5.`,
		businessContext(b, reviews))

	var sentiment model.SentimentAnalysis
	if err := callModel(ctx, client, cfg, "sentiment", prompt, &sentiment); err != nil {
		return nil, err
	}
	for i := range sentiment.Gaps {
		gap := &sentiment.Gaps[i]
		gap.EvidenceScore = clamp01(gap.EvidenceScore)
		// The status must agree with the score; models occasionally return
		// "validated" next to weak evidence.
		if gap.EvidenceScore >= 0.5 {
			gap.Status = model.SentimentValidated
		} else if gap.Status != model.SentimentNegativePerception {
			gap.Status = model.SentimentMissingValidation
		}
	}
	return &sentiment, nil
}

// defaultSentiment is the degraded stage result: no claims verified either
// way, neutral alignment.
func defaultSentiment() *model.SentimentAnalysis {
	return &model.SentimentAnalysis{}
}
