package model

import "time"

// Competitor is one nearby same-category business discovered for an audit.
// Rows are created once during the discovery stage and never mutated.
type Competitor struct {
	ID            string    `json:"id"`
	AuditID       string    `json:"audit_id"`
	Rank          int       `json:"rank"`
	PlaceID       string    `json:"place_id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Category      string    `json:"category"`
	Website       string    `json:"website,omitempty"`
	GoogleMapsURL string    `json:"google_maps_url,omitempty"`
	Rating        float64   `json:"rating"`
	TotalReviews  int       `json:"total_reviews"`
	PhotosCount   int       `json:"photos_count"`
	AIMentioned   bool      `json:"ai_mentioned"`
	CreatedAt     time.Time `json:"created_at"`
}
