package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/presenca/discovery-audit/internal/config"
	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/resilience"
	"github.com/presenca/discovery-audit/pkg/anthropic"
)

const analysisSystemPrompt = "Você é um analista de presença digital para negócios locais brasileiros. " +
	"Responda sempre e somente com JSON válido, sem texto fora do objeto."

// callModel sends one analysis prompt, retrying transient failures, and
// parses the fenced JSON response into out.
func callModel(ctx context.Context, client anthropic.Client, cfg config.AnthropicConfig, stage, prompt string, out any) error {
	req := anthropic.MessageRequest{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		System:    analysisSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", stage)

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return client.CreateMessage(ctx, req)
	})
	if err != nil {
		return eris.Wrapf(err, "pipeline: %s stage", stage)
	}

	resp.Usage.LogCost(cfg.Model, stage)
	return anthropic.ExtractJSON(resp.Text(), out)
}

// businessContext renders the profile block shared by the analysis prompts.
func businessContext(b *model.Business, reviews []model.Review) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Negócio: %s\n", b.Name)
	fmt.Fprintf(&sb, "Categoria: %s\n", b.Category)
	fmt.Fprintf(&sb, "Endereço: %s\n", b.Address)
	fmt.Fprintf(&sb, "Nota: %.1f (%d avaliações)\n", b.Rating, b.TotalReviews)
	fmt.Fprintf(&sb, "Fotos no perfil: %d\n", b.PhotosCount)
	if b.Website != "" {
		fmt.Fprintf(&sb, "Site: %s\n", b.Website)
	} else {
		sb.WriteString("Site: nenhum\n")
	}
	if b.Description != "" {
		fmt.Fprintf(&sb, "Descrição: %s\n", b.Description)
	}
	if len(b.Hours) > 0 {
		fmt.Fprintf(&sb, "Horários: %s\n", strings.Join(b.Hours, "; "))
	}

	if len(reviews) > 0 {
		sb.WriteString("\nAvaliações recentes:\n")
		for _, r := range reviews {
			text := r.Text
			if len(text) > 400 {
				text = text[:400]
			}
			fmt.Fprintf(&sb, "- (%d/5) %s\n", r.Rating, text)
		}
	}
	return sb.String()
}
