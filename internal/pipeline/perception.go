package pipeline

import (
	"context"
	"fmt"

	"github.com/presenca/discovery-audit/internal/config"
	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/pkg/anthropic"
)

// AnalyzePerception asks the model how an AI assistant would describe the
// business to a consumer, given only its public profile and reviews.
func AnalyzePerception(ctx context.Context, client anthropic.Client, cfg config.AnthropicConfig, b *model.Business, reviews []model.Review) (*model.AIPerception, error) {
	prompt := fmt.Sprintf(`Analise como um assistente de IA descreveria este negócio para um consumidor que pediu uma recomendação.

%s
Responda com JSON neste formato:
{
  "summary": "como o assistente resumiria o negócio em 1-2 frases",
  "target_audience": "público que o assistente associaria ao negócio",
  "key_attributes": ["atributos que o assistente destacaria"],
  "missing_signals": ["informações ausentes do perfil que enfraquecem a recomendação"],
  "confidence": 0.0
}

O campo confidence, entre 0 e 1, indica quão confiante o assistente estaria em recomendar este negócio com os dados disponíveis.`,
		businessContext(b, reviews))

	var perception model.AIPerception
	if err := callModel(ctx, client, cfg, "perception", prompt, &perception); err != nil {
		return nil, err
	}
	perception.Confidence = clamp01(perception.Confidence)
	return &perception, nil
}

// defaultPerception is the degraded stage result when the model is
// unreachable. Zero confidence drags the composite down honestly instead of
// inventing a judgment.
func defaultPerception() *model.AIPerception {
	return &model.AIPerception{
		Summary:        "Análise de percepção indisponível no momento",
		MissingSignals: []string{"análise de IA não concluída"},
		Confidence:     0,
	}
}
