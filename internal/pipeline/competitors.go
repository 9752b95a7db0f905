package pipeline

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/pkg/places"
)

// severity threshold: a metric more than 50% behind the average is high.
const highSeverityDeficit = 0.5

// gapTieOrder breaks deficit ties deterministically.
var gapTieOrder = map[model.GapType]int{
	model.GapReviews: 0,
	model.GapPhotos:  1,
	model.GapRating:  2,
}

// DiscoverCompetitors finds nearby businesses in the same category, ranked
// by popularity. The audited place is excluded. An empty result is not an
// error; the audit degrades to a competitor-free score.
func DiscoverCompetitors(ctx context.Context, client places.Client, b *model.Business, radius float64, limit int) ([]model.Competitor, error) {
	if !b.HasLocation() {
		zap.L().Warn("competitors: business has no coordinates, skipping discovery",
			zap.String("place_id", b.PlaceID))
		return nil, nil
	}

	found, err := client.FindNearby(ctx, places.NearbyQuery{
		Latitude:       *b.Latitude,
		Longitude:      *b.Longitude,
		Category:       b.Category,
		RadiusMeters:   radius,
		Limit:          limit,
		ExcludePlaceID: b.PlaceID,
	})
	if err != nil {
		return nil, err
	}

	competitors := make([]model.Competitor, 0, len(found))
	for _, c := range found {
		competitors = append(competitors, model.Competitor{
			PlaceID:       c.PlaceID,
			Name:          c.Name,
			Address:       c.Address,
			Category:      c.Category,
			Website:       c.Website,
			GoogleMapsURL: c.GoogleMapsURL,
			Rating:        c.Rating,
			TotalReviews:  c.TotalReviews,
			PhotosCount:   c.PhotosCount,
		})
	}
	return competitors, nil
}

// BuildComparison assembles the side-by-side matrix and the Top-N averages.
func BuildComparison(b *model.Business, competitors []model.Competitor) model.ComparisonMatrix {
	matrix := model.ComparisonMatrix{
		Business: model.ComparisonEntry{
			Name:         b.Name,
			Rating:       b.Rating,
			TotalReviews: b.TotalReviews,
			PhotosCount:  b.PhotosCount,
			HasWebsite:   b.HasWebsite(),
		},
	}

	if len(competitors) == 0 {
		return matrix
	}

	var ratingSum float64
	var reviewSum, photoSum int
	for _, c := range competitors {
		ratingSum += c.Rating
		reviewSum += c.TotalReviews
		photoSum += c.PhotosCount
		matrix.TopCompetitors = append(matrix.TopCompetitors, model.ComparisonEntry{
			Name:         c.Name,
			Rating:       c.Rating,
			TotalReviews: c.TotalReviews,
			PhotosCount:  c.PhotosCount,
			HasWebsite:   c.Website != "",
		})
	}

	n := float64(len(competitors))
	matrix.CompetitorAverage = model.ComparisonAverage{
		Rating:       ratingSum / n,
		TotalReviews: int(float64(reviewSum)/n + 0.5),
		PhotosCount:  int(float64(photoSum)/n + 0.5),
	}
	return matrix
}

// CompetitivePosition is the mean of the capped business/average ratios for
// rating, reviews and photos. Nil when there is nothing to compare against.
func CompetitivePosition(matrix model.ComparisonMatrix) *float64 {
	if len(matrix.TopCompetitors) == 0 {
		return nil
	}
	ratios := []float64{
		cappedRatio(matrix.Business.Rating, matrix.CompetitorAverage.Rating),
		cappedRatio(float64(matrix.Business.TotalReviews), float64(matrix.CompetitorAverage.TotalReviews)),
		cappedRatio(float64(matrix.Business.PhotosCount), float64(matrix.CompetitorAverage.PhotosCount)),
	}
	var sum float64
	for _, r := range ratios {
		sum += r
	}
	position := sum / float64(len(ratios))
	return &position
}

// AnalyzeGaps finds the metrics where the business trails the Top-N average
// plus the derived visibility gaps. Gaps come out sorted by descending
// deficit, ties broken reviews > photos > rating; derived gaps follow.
func AnalyzeGaps(matrix model.ComparisonMatrix, aiMentions map[string]bool) []model.CompetitorGap {
	if len(matrix.TopCompetitors) == 0 {
		return nil
	}

	var metricGaps []model.CompetitorGap
	avg := matrix.CompetitorAverage
	biz := matrix.Business

	if gap := metricGap(model.GapRating, biz.Rating, avg.Rating,
		"Sua nota (%.1f) está abaixo da média dos concorrentes (%.1f)",
		"Melhore a experiência do cliente e responda às avaliações negativas"); gap != nil {
		metricGaps = append(metricGaps, *gap)
	}
	if gap := metricGap(model.GapReviews, float64(biz.TotalReviews), float64(avg.TotalReviews),
		"Você tem %.0f avaliações, a média dos concorrentes é %.0f",
		"Peça avaliações aos clientes satisfeitos após cada atendimento"); gap != nil {
		metricGaps = append(metricGaps, *gap)
	}
	if gap := metricGap(model.GapPhotos, float64(biz.PhotosCount), float64(avg.PhotosCount),
		"Seu perfil tem %.0f fotos, a média dos concorrentes é %.0f",
		"Adicione fotos recentes do espaço, produtos e equipe"); gap != nil {
		metricGaps = append(metricGaps, *gap)
	}

	sort.SliceStable(metricGaps, func(i, j int) bool {
		if metricGaps[i].Deficit != metricGaps[j].Deficit {
			return metricGaps[i].Deficit > metricGaps[j].Deficit
		}
		return gapTieOrder[metricGaps[i].Type] < gapTieOrder[metricGaps[j].Type]
	})

	gaps := metricGaps

	if competitorMentioned(matrix, aiMentions) && !aiMentions[biz.Name] {
		gaps = append(gaps, model.CompetitorGap{
			Type:     model.GapAIVisibility,
			Severity: model.SeverityHigh,
			Deficit:  1,
			Message:  "Assistentes de IA recomendam concorrentes, mas não o seu negócio",
			Action:   "Enriqueça o perfil com descrição, categoria e atributos completos",
		})
	}

	if !biz.HasWebsite && anyCompetitorHasWebsite(matrix) {
		gaps = append(gaps, model.CompetitorGap{
			Type:     model.GapWebsite,
			Severity: model.SeverityHigh,
			Deficit:  1,
			Message:  "Concorrentes têm site próprio e o seu negócio não",
			Action:   "Publique um site simples com serviços, horários e contato",
		})
	}

	return gaps
}

// cappedRatio is value/reference capped at 1, treating a zero reference as
// parity.
func cappedRatio(value, reference float64) float64 {
	if reference <= 0 {
		return 1
	}
	ratio := value / reference
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

func metricGap(t model.GapType, value, average float64, messageFmt, action string) *model.CompetitorGap {
	if average <= 0 || value >= average {
		return nil
	}
	deficit := (average - value) / average
	severity := model.SeverityMedium
	if deficit > highSeverityDeficit {
		severity = model.SeverityHigh
	}
	return &model.CompetitorGap{
		Type:     t,
		Severity: severity,
		Deficit:  deficit,
		Message:  fmt.Sprintf(messageFmt, value, average),
		Action:   action,
	}
}

func competitorMentioned(matrix model.ComparisonMatrix, mentions map[string]bool) bool {
	for _, c := range matrix.TopCompetitors {
		if mentions[c.Name] {
			return true
		}
	}
	return false
}

func anyCompetitorHasWebsite(matrix model.ComparisonMatrix) bool {
	for _, c := range matrix.TopCompetitors {
		if c.HasWebsite {
			return true
		}
	}
	return false
}
