package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/presenca/discovery-audit/internal/model"
)

func TestAuditVisualCoverage(t *testing.T) {
	tests := []struct {
		name     string
		photos   int
		target   int
		coverage float64
	}{
		{"no photos", 0, 20, 0},
		{"half", 10, 20, 0.5},
		{"at target", 20, 20, 1},
		{"over target capped", 50, 20, 1},
		{"zero target uses default", 10, 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := AuditVisual(&model.Business{PhotosCount: tt.photos}, tt.target)
			assert.InDelta(t, tt.coverage, audit.Coverage, 1e-9)
			assert.Equal(t, tt.photos, audit.PhotoCount)
		})
	}
}

func TestAuditVisualRecommendations(t *testing.T) {
	noPhotos := AuditVisual(&model.Business{}, 20)
	assert.NotEmpty(t, noPhotos.Recommendations)

	atTarget := AuditVisual(&model.Business{PhotosCount: 25}, 20)
	assert.Empty(t, atTarget.Recommendations)
}
