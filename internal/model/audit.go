package model

import "time"

// AuditStatus is the lifecycle state of an audit.
type AuditStatus string

const (
	AuditStatusPending    AuditStatus = "pending"
	AuditStatusProcessing AuditStatus = "processing"
	AuditStatusCompleted  AuditStatus = "completed"
	AuditStatusFailed     AuditStatus = "failed"
)

// Terminal reports whether no further transitions may leave this state.
func (s AuditStatus) Terminal() bool {
	return s == AuditStatusCompleted || s == AuditStatusFailed
}

// CanTransition reports whether the lifecycle permits moving to the given
// state. Transitions are monotonic: pending → processing → completed|failed.
func (s AuditStatus) CanTransition(to AuditStatus) bool {
	switch s {
	case AuditStatusPending:
		return to == AuditStatusProcessing || to == AuditStatusFailed
	case AuditStatusProcessing:
		return to == AuditStatusCompleted || to == AuditStatusFailed
	default:
		return false
	}
}

// DeliveryMode controls whether a finished audit is pushed to a messaging
// destination or only read back by polling.
type DeliveryMode string

const (
	DeliveryModeStandalone DeliveryMode = "standalone"
	DeliveryModeMessaging  DeliveryMode = "messaging"
)

// Audit is the unit of work. Scores and result blobs are non-nil iff the
// status is completed; ErrorMessage is set iff the status is failed.
type Audit struct {
	ID           string       `json:"id"`
	BusinessID   string       `json:"business_id"`
	Status       AuditStatus  `json:"status"`
	DeliveryMode DeliveryMode `json:"delivery_mode"`
	Contact      string       `json:"contact,omitempty"`

	DiscoveryScore   *int     `json:"discovery_score,omitempty"`
	CompetitiveScore *float64 `json:"competitive_score,omitempty"`
	SentimentScore   *float64 `json:"sentiment_score,omitempty"`
	VisualScore      *float64 `json:"visual_score,omitempty"`

	Perception      *AIPerception         `json:"ai_perception,omitempty"`
	Sentiment       *SentimentAnalysis    `json:"sentiment_analysis,omitempty"`
	Queries         []ConversationalQuery `json:"conversational_queries,omitempty"`
	Visual          *VisualAudit          `json:"visual_audit,omitempty"`
	Competitive     *CompetitiveAnalysis  `json:"competitor_analysis,omitempty"`
	Recommendations []Recommendation      `json:"recommendations,omitempty"`

	ErrorMessage      string    `json:"error_message,omitempty"`
	ProcessingSeconds int       `json:"processing_seconds,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AuditResult is the payload of the single completed write: every field the
// orchestrator computed, applied atomically together with the status change.
type AuditResult struct {
	DiscoveryScore   int      `json:"discovery_score"`
	CompetitiveScore *float64 `json:"competitive_score,omitempty"`
	SentimentScore   float64  `json:"sentiment_score"`
	VisualScore      float64  `json:"visual_score"`

	Perception      AIPerception          `json:"ai_perception"`
	Sentiment       SentimentAnalysis     `json:"sentiment_analysis"`
	Queries         []ConversationalQuery `json:"conversational_queries"`
	Visual          VisualAudit           `json:"visual_audit"`
	Competitive     *CompetitiveAnalysis  `json:"competitor_analysis,omitempty"`
	Recommendations []Recommendation      `json:"recommendations"`

	ProcessingSeconds int `json:"processing_seconds"`
}
