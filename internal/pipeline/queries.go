package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/presenca/discovery-audit/internal/config"
	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/pkg/anthropic"
)

type queriesResponse struct {
	Queries  []model.ConversationalQuery `json:"queries"`
	Mentions []string                    `json:"recommended_businesses"`
}

// GenerateQueries produces the conversational questions a consumer would ask
// an AI assistant for this category and location, and which of the audited
// business and its competitors the assistant would recommend for them.
func GenerateQueries(ctx context.Context, client anthropic.Client, cfg config.AnthropicConfig, b *model.Business, competitors []model.Competitor, maxQueries int) ([]model.ConversationalQuery, map[string]bool, error) {
	if maxQueries <= 0 {
		maxQueries = 20
	}

	names := make([]string, 0, len(competitors)+1)
	names = append(names, b.Name)
	var candidates strings.Builder
	fmt.Fprintf(&candidates, "- %s (nota %.1f, %d avaliações)\n", b.Name, b.Rating, b.TotalReviews)
	for _, c := range competitors {
		names = append(names, c.Name)
		fmt.Fprintf(&candidates, "- %s (nota %.1f, %d avaliações)\n", c.Name, c.Rating, c.TotalReviews)
	}

	prompt := fmt.Sprintf(`Um consumidor em %s, %s procura um negócio da categoria "%s" perguntando a um assistente de IA.

Negócios disponíveis na região:
%s
Gere até %d perguntas realistas que esse consumidor faria, e diga quais dos negócios listados o assistente recomendaria com base nos dados. Responda com JSON:
{
  "queries": [
    {"query": "pergunta", "query_type": "discovery | comparison | specific_need | location", "relevance_score": 0.0}
  ],
  "recommended_businesses": ["nomes exatamente como listados"]
}`,
		b.City, b.State, b.Category, candidates.String(), maxQueries)

	var resp queriesResponse
	if err := callModel(ctx, client, cfg, "queries", prompt, &resp); err != nil {
		return nil, nil, err
	}

	if len(resp.Queries) > maxQueries {
		resp.Queries = resp.Queries[:maxQueries]
	}
	for i := range resp.Queries {
		resp.Queries[i].Relevance = clamp01(resp.Queries[i].Relevance)
	}

	mentions := make(map[string]bool, len(names))
	for _, name := range names {
		mentions[name] = false
	}
	for _, recommended := range resp.Mentions {
		if _, known := mentions[recommended]; known {
			mentions[recommended] = true
		}
	}
	return resp.Queries, mentions, nil
}
