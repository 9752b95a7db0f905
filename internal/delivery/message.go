package delivery

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/presenca/discovery-audit/internal/model"
)

// NormalizePhone converts a Brazilian phone number in any of the usual
// notations to the gateway wire format: 55 + DDD + number, digits only.
// Mobile numbers written without the ninth digit get it inserted.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := strings.TrimPrefix(digits.String(), "0")

	if strings.HasPrefix(number, "55") && len(number) >= 12 {
		number = number[2:]
	}

	// DDD + 8 digits starting 6-9 is a mobile missing its ninth digit.
	if len(number) == 10 && number[2] >= '6' && number[2] <= '9' {
		number = number[:2] + "9" + number[2:]
	}

	if len(number) != 10 && len(number) != 11 {
		return "", eris.Errorf("delivery: invalid BR phone number %q", raw)
	}
	if number[0] == '0' {
		return "", eris.Errorf("delivery: invalid DDD in %q", raw)
	}
	return "55" + number, nil
}

// BuildReportMessage renders the WhatsApp audit summary: competitors found,
// the business's position, and the main gaps.
func BuildReportMessage(b *model.Business, a *model.Audit, competitors []model.Competitor) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Auditoria de Presença Digital — %s*\n\n", b.Name)

	sb.WriteString("*1. Concorrentes na sua região*\n")
	if len(competitors) == 0 {
		sb.WriteString("Nenhum concorrente direto encontrado no raio analisado.\n")
	} else {
		for _, c := range competitors {
			fmt.Fprintf(&sb, "%d. %s — nota %.1f, %d avaliações\n",
				c.Rank, c.Name, c.Rating, c.TotalReviews)
		}
	}

	sb.WriteString("\n*2. Sua posição*\n")
	if a.DiscoveryScore != nil {
		fmt.Fprintf(&sb, "Pontuação de descoberta: *%d/100*\n", *a.DiscoveryScore)
	}
	fmt.Fprintf(&sb, "Sua nota: %.1f (%d avaliações, %d fotos)\n",
		b.Rating, b.TotalReviews, b.PhotosCount)
	if a.Competitive != nil {
		avg := a.Competitive.Matrix.CompetitorAverage
		fmt.Fprintf(&sb, "Média dos concorrentes: %.1f (%d avaliações, %d fotos)\n",
			avg.Rating, avg.TotalReviews, avg.PhotosCount)
	}

	sb.WriteString("\n*3. Principais oportunidades*\n")
	var gaps []model.CompetitorGap
	if a.Competitive != nil {
		gaps = a.Competitive.Gaps
	}
	if len(gaps) == 0 {
		sb.WriteString("Nenhuma lacuna crítica encontrada em relação aos concorrentes.\n")
	} else {
		for i, gap := range gaps {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&sb, "• %s\n  → %s\n", gap.Message, gap.Action)
		}
	}

	return sb.String()
}

// BuildOwnerNotification is the short internal note sent after a successful
// lead delivery.
func BuildOwnerNotification(b *model.Business, a *model.Audit, contact string) string {
	score := 0
	if a.DiscoveryScore != nil {
		score = *a.DiscoveryScore
	}
	return fmt.Sprintf("Auditoria entregue: %s (pontuação %d/100) para %s", b.Name, score, contact)
}
