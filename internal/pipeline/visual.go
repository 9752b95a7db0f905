package pipeline

import (
	"github.com/presenca/discovery-audit/internal/model"
)

// AuditVisual grades photo coverage against the configured target count.
// Purely derived from profile data, no external calls.
func AuditVisual(b *model.Business, photoTarget int) model.VisualAudit {
	if photoTarget <= 0 {
		photoTarget = 20
	}
	coverage := clamp01(float64(b.PhotosCount) / float64(photoTarget))

	audit := model.VisualAudit{
		PhotoCount: b.PhotosCount,
		Coverage:   coverage,
	}

	switch {
	case b.PhotosCount == 0:
		audit.Recommendations = []string{
			"Adicione fotos da fachada, do interior e dos produtos",
			"Perfis sem fotos raramente aparecem em recomendações",
		}
	case coverage < 0.5:
		audit.Recommendations = []string{
			"Adicione mais fotos recentes para cobrir produtos e ambiente",
		}
	case coverage < 1:
		audit.Recommendations = []string{
			"Mantenha as fotos atualizadas com novidades do negócio",
		}
	}
	return audit
}
