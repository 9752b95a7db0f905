package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/pipeline"
)

// RenderText renders the full audit report for terminals and the text
// report endpoint.
func RenderText(b *model.Business, a *model.Audit, competitors []model.Competitor) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "AUDITORIA DE PRESENÇA DIGITAL — %s\n", strings.ToUpper(b.Name))
	fmt.Fprintf(&sb, "%s, %s — %s\n\n", b.City, b.State, b.Category)

	if a.DiscoveryScore != nil {
		fmt.Fprintf(&sb, "Pontuação de descoberta: %d/100 (%s)\n\n",
			*a.DiscoveryScore, pipeline.ScoreBand(*a.DiscoveryScore))
	}

	sb.WriteString("== Comparação com concorrentes ==\n")
	sb.WriteString(renderComparison(b, a, competitors))
	sb.WriteString("\n")

	if a.Perception != nil {
		sb.WriteString("== Percepção do assistente de IA ==\n")
		fmt.Fprintf(&sb, "%s\n", a.Perception.Summary)
		if a.Perception.TargetAudience != "" {
			fmt.Fprintf(&sb, "Público associado: %s\n", a.Perception.TargetAudience)
		}
		fmt.Fprintf(&sb, "Confiança da recomendação: %.0f%%\n", a.Perception.Confidence*100)
		for _, signal := range a.Perception.MissingSignals {
			fmt.Fprintf(&sb, "  falta: %s\n", signal)
		}
		sb.WriteString("\n")
	}

	if a.Sentiment != nil && len(a.Sentiment.Gaps) > 0 {
		sb.WriteString("== Promessas do perfil vs avaliações ==\n")
		for _, gap := range a.Sentiment.Gaps {
			fmt.Fprintf(&sb, "  %-40s %s (evidência %.0f%%)\n",
				gap.Claimed, gap.Status, gap.EvidenceScore*100)
		}
		sb.WriteString("\n")
	}

	if a.Competitive != nil && len(a.Competitive.Gaps) > 0 {
		sb.WriteString("== Principais lacunas ==\n")
		for _, gap := range a.Competitive.Gaps {
			fmt.Fprintf(&sb, "  [%s] %s\n      → %s\n", gap.Severity, gap.Message, gap.Action)
		}
		sb.WriteString("\n")
	}

	if len(a.Recommendations) > 0 {
		sb.WriteString("== Recomendações ==\n")
		for i, rec := range a.Recommendations {
			fmt.Fprintf(&sb, "  %d. %s (prioridade %s, impacto %d/10, esforço %s)\n",
				i+1, rec.Action, rec.Priority, rec.Impact, rec.Effort)
			if rec.Detail != "" {
				fmt.Fprintf(&sb, "     %s\n", rec.Detail)
			}
		}
	}

	return sb.String()
}

func renderComparison(b *model.Business, a *model.Audit, competitors []model.Competitor) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Negócio", "Nota", "Avaliações", "Fotos", "Site"})
	t.AppendRow(table.Row{b.Name + " (você)", fmt.Sprintf("%.1f", b.Rating), b.TotalReviews, b.PhotosCount, yesNo(b.HasWebsite())})
	for _, c := range competitors {
		t.AppendRow(table.Row{c.Name, fmt.Sprintf("%.1f", c.Rating), c.TotalReviews, c.PhotosCount, yesNo(c.Website != "")})
	}
	if a.Competitive != nil {
		avg := a.Competitive.Matrix.CompetitorAverage
		t.AppendFooter(table.Row{"Média concorrentes", fmt.Sprintf("%.1f", avg.Rating), avg.TotalReviews, avg.PhotosCount, ""})
	}
	return t.Render() + "\n"
}

func yesNo(v bool) string {
	if v {
		return "sim"
	}
	return "não"
}
