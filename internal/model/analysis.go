package model

// AIPerception is the structured judgment of how an AI assistant perceives
// the business, parsed from the perception analysis response.
type AIPerception struct {
	Summary        string   `json:"summary"`
	TargetAudience string   `json:"target_audience"`
	KeyAttributes  []string `json:"key_attributes"`
	MissingSignals []string `json:"missing_signals"`
	Confidence     float64  `json:"confidence"`
}

// SentimentGapStatus classifies whether review evidence corroborates a claim.
type SentimentGapStatus string

const (
	SentimentValidated          SentimentGapStatus = "validated"
	SentimentMissingValidation  SentimentGapStatus = "missing_validation"
	SentimentNegativePerception SentimentGapStatus = "negative_perception"
)

// SentimentGap compares one claimed attribute against review evidence.
type SentimentGap struct {
	Claimed        string             `json:"claimed"`
	EvidenceScore  float64            `json:"evidence_score"`
	Status         SentimentGapStatus `json:"status"`
	Recommendation string             `json:"recommendation,omitempty"`
}

// SentimentAnalysis is the result of the sentiment-gap stage.
type SentimentAnalysis struct {
	Topics          map[string]float64 `json:"topics"`
	Gaps            []SentimentGap     `json:"gaps"`
	PositiveSignals []string           `json:"positive_signals"`
	NegativeSignals []string           `json:"negative_signals"`
}

// AlignmentRatio is the fraction of claimed attributes corroborated by
// review evidence. No claims at all counts as neutral alignment.
func (s SentimentAnalysis) AlignmentRatio() float64 {
	if len(s.Gaps) == 0 {
		return 0.5
	}
	validated := 0
	for _, g := range s.Gaps {
		if g.Status == SentimentValidated {
			validated++
		}
	}
	return float64(validated) / float64(len(s.Gaps))
}

// TopicAverage is the mean sentiment across review topics, 0.5 when no
// topics were extracted.
func (s SentimentAnalysis) TopicAverage() float64 {
	if len(s.Topics) == 0 {
		return 0.5
	}
	var sum float64
	for _, v := range s.Topics {
		sum += v
	}
	return sum / float64(len(s.Topics))
}

// ConversationalQuery is one generated question a user might ask an AI
// assistant that should surface this business.
type ConversationalQuery struct {
	Query     string  `json:"query"`
	QueryType string  `json:"query_type"`
	Relevance float64 `json:"relevance_score"`
}

// VisualAudit summarizes photo coverage of the profile.
type VisualAudit struct {
	PhotoCount      int      `json:"photo_count"`
	Coverage        float64  `json:"coverage_score"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// ComparisonEntry holds one party's hard metrics in the comparison matrix.
type ComparisonEntry struct {
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
	PhotosCount  int     `json:"photos_count"`
	HasWebsite   bool    `json:"has_website"`
}

// ComparisonAverage holds the Top-N competitor averages.
type ComparisonAverage struct {
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
	PhotosCount  int     `json:"photos_count"`
}

// ComparisonMatrix is the side-by-side metric view.
type ComparisonMatrix struct {
	Business          ComparisonEntry   `json:"your_business"`
	CompetitorAverage ComparisonAverage `json:"competitor_average"`
	TopCompetitors    []ComparisonEntry `json:"top_competitors"`
}

// GapType identifies the metric or signal a gap refers to.
type GapType string

const (
	GapReviews      GapType = "reviews"
	GapPhotos       GapType = "photos"
	GapRating       GapType = "rating"
	GapAIVisibility GapType = "ai_visibility"
	GapWebsite      GapType = "website"
)

// GapSeverity grades how far behind the competitor average a metric is.
type GapSeverity string

const (
	SeverityHigh   GapSeverity = "high"
	SeverityMedium GapSeverity = "medium"
)

// CompetitorGap is one specific deficit versus the Top-N average.
type CompetitorGap struct {
	Type     GapType     `json:"type"`
	Severity GapSeverity `json:"severity"`
	Deficit  float64     `json:"deficit"`
	Message  string      `json:"message"`
	Action   string      `json:"action"`
}

// CompetitiveAnalysis is the result of the competitive comparison stage.
type CompetitiveAnalysis struct {
	Matrix     ComparisonMatrix `json:"comparison_matrix"`
	Gaps       []CompetitorGap  `json:"gaps"`
	AIMentions map[string]bool  `json:"ai_mentions"`
	Score      float64          `json:"competitive_score"`
}

// Recommendation is one prioritized action item.
type Recommendation struct {
	Action   string `json:"action"`
	Priority string `json:"priority"`
	Impact   int    `json:"impact"`
	Effort   string `json:"effort"`
	Category string `json:"category"`
	Detail   string `json:"detail,omitempty"`
}
